package catalog

import (
	"context"
	"encoding/json"
)

// Store is the remote hierarchical store holding products and sales.
// Implementations live in rtdb, redisstore and pgstore.
type Store interface {
	// Products reads the whole products subtree.
	Products(ctx context.Context) (json.RawMessage, error)
	// Sales reads every sale keyed by its store key.
	Sales(ctx context.Context) (map[string]json.RawMessage, error)
	// PushSale appends a sale under a newly generated key and returns the key.
	PushSale(ctx context.Context, sale Sale) (string, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Seeder is implemented by stores that can replace the products subtree.
type Seeder interface {
	SetProducts(ctx context.Context, products json.RawMessage) error
}
