package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unreachable")

// fakeStore is an in-memory Store that counts writes.
type fakeStore struct {
	mu       sync.Mutex
	products json.RawMessage
	sales    map[string]json.RawMessage
	pushes   int
	seq      int
	err      error
}

func newFakeStore(products string) *fakeStore {
	return &fakeStore{products: json.RawMessage(products), sales: map[string]json.RawMessage{}}
}

func (f *fakeStore) Products(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeStore) Sales(context.Context) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]json.RawMessage, len(f.sales))
	for k, v := range f.sales {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) PushSale(_ context.Context, sale Sale) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	if f.err != nil {
		return "", f.err
	}
	raw, err := json.Marshal(sale)
	if err != nil {
		return "", err
	}
	f.seq++
	key := fmt.Sprintf("-sale%04d", f.seq)
	f.sales[key] = raw
	return key, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err }

func (f *fakeStore) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushes
}

const sampleProducts = `[
	{"id": 1, "title": "iPhone 9", "description": "An apple mobile which is nothing like apple",
	 "price": 549, "category": "smartphones", "rating": 4.69, "thumbnail": "https://cdn.example/1.jpg",
	 "stock": 94, "brand": "Apple", "images": ["a.jpg", "b.jpg"]},
	null,
	{"id": 2, "title": "Ceramic Mug", "description": "Holds coffee",
	 "price": 9.5, "category": "home", "rating": 4.1, "thumbnail": "https://cdn.example/2.jpg"},
	{"id": 3, "title": "Perfume Oil", "description": "Mega discount, APPLE scented",
	 "price": 13, "category": "fragrances", "rating": 4.26, "thumbnail": "https://cdn.example/3.jpg"}
]`

// field decodes one stored field of a listed sale.
func field(t *testing.T, rec SaleRecord, name string) interface{} {
	t.Helper()
	raw, ok := rec.Fields[name]
	require.True(t, ok, "sale %s has no %q", rec.ID, name)
	var v interface{}
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
