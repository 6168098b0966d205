// Command catalog-seed writes a product list into the configured store.
//
//	STORE_BACKEND=redis catalog-seed -file products.json
//
// The file may hold a JSON array of products or an object with a "products"
// array (the shape of a Realtime Database export).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"catalog-sales/internal/catalog"
	"catalog-sales/internal/config"
	"catalog-sales/internal/logger"
	"catalog-sales/internal/storefactory"
)

func main() {
	file := flag.String("file", "products.json", "path to the products JSON file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	products, count, err := loadProducts(data)
	if err != nil {
		log.Fatalf("%s: %v", *file, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, closeStore, err := storefactory.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer closeStore()

	if err := store.SetProducts(ctx, products); err != nil {
		log.Fatalf("seed: %v", err)
	}
	logger.Infof("seeded %d products into %s/%s", count, cfg.Backend, cfg.ProductsPath)
}

// loadProducts validates data as a product list and returns it normalised to
// a JSON array.
func loadProducts(data []byte) (json.RawMessage, int, error) {
	var wrapped struct {
		Products json.RawMessage `json:"products"`
	}
	raw := json.RawMessage(data)
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Products) > 0 {
		raw = wrapped.Products
	}

	products, err := catalog.DecodeProducts(raw)
	if err != nil {
		return nil, 0, err
	}
	seen := make(map[int64]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			return nil, 0, fmt.Errorf("duplicate product id %d", p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	out, err := json.Marshal(products)
	if err != nil {
		return nil, 0, err
	}
	return out, len(products), nil
}
