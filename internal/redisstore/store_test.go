package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-sales/internal/catalog"
)

func newMockStore(t *testing.T) (*Store, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	s := New(db, "catalog:", "products", "sales")
	s.newKey = func() (string, error) { return "0190a1b2-0000-7000-8000-000000000001", nil }
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
	return s, mock
}

func TestProducts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectGet("catalog:products").SetVal(`[{"id":1,"title":"Mug"}]`)

	raw, err := s.Products(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"title":"Mug"}]`, string(raw))
}

func TestProductsMissingKey(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectGet("catalog:products").RedisNil()

	raw, err := s.Products(context.Background())
	require.NoError(t, err)
	products, err := catalog.DecodeProducts(raw)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductsError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectGet("catalog:products").SetErr(errors.New("connection refused"))

	_, err := s.Products(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestPushSale(t *testing.T) {
	s, mock := newMockStore(t)
	sale := catalog.Sale{ProductID: float64(7), ProductTitle: "Mug", Price: 9.5, Quantity: 3,
		TotalAmount: 28.5, PurchaseDate: "2025-03-14T15:09:26.535Z", UserID: "guest-1"}
	data, err := json.Marshal(sale)
	require.NoError(t, err)

	mock.ExpectHSet("catalog:sales", "0190a1b2-0000-7000-8000-000000000001", data).SetVal(1)

	key, err := s.PushSale(context.Background(), sale)
	require.NoError(t, err)
	assert.Equal(t, "0190a1b2-0000-7000-8000-000000000001", key)
}

func TestSales(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectHGetAll("catalog:sales").SetVal(map[string]string{
		"k1": `{"productTitle":"A"}`,
		"k2": `{"productTitle":"B"}`,
	})

	sales, err := s.Sales(context.Background())
	require.NoError(t, err)
	assert.Len(t, sales, 2)
	assert.JSONEq(t, `{"productTitle":"B"}`, string(sales["k2"]))
}

func TestSetProducts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectSet("catalog:products", []byte(`[]`), 0).SetVal("OK")

	require.NoError(t, s.SetProducts(context.Background(), json.RawMessage(`[]`)))
}

func TestTimeOrderedKey(t *testing.T) {
	a, err := timeOrderedKey()
	require.NoError(t, err)
	b, err := timeOrderedKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
