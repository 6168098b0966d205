// Package redisstore keeps the catalog tree in Redis: the product list as one
// JSON string and sales as a hash of key -> JSON.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"catalog-sales/internal/catalog"
	"catalog-sales/internal/config"
)

// Store implements catalog.Store on a Redis client.
type Store struct {
	client      *redis.Client
	productsKey string
	salesKey    string
	newKey      func() (string, error)
}

// New creates a Store. Keys are prefix+productsPath and prefix+salesPath.
func New(client *redis.Client, prefix, productsPath, salesPath string) *Store {
	return &Store{
		client:      client,
		productsKey: prefix + productsPath,
		salesKey:    prefix + salesPath,
		newKey:      timeOrderedKey,
	}
}

// Connect opens a client from cfg and verifies it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig, productsPath, salesPath string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return New(client, cfg.Prefix, productsPath, salesPath), nil
}

func timeOrderedKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Products implements catalog.Store. A missing key reads as null.
func (s *Store) Products(ctx context.Context) (json.RawMessage, error) {
	data, err := s.client.Get(ctx, s.productsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return json.RawMessage("null"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.productsKey, err)
	}
	return data, nil
}

// Sales implements catalog.Store.
func (s *Store) Sales(ctx context.Context) (map[string]json.RawMessage, error) {
	all, err := s.client.HGetAll(ctx, s.salesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.salesKey, err)
	}
	sales := make(map[string]json.RawMessage, len(all))
	for k, v := range all {
		sales[k] = json.RawMessage(v)
	}
	return sales, nil
}

// PushSale implements catalog.Store.
func (s *Store) PushSale(ctx context.Context, sale catalog.Sale) (string, error) {
	key, err := s.newKey()
	if err != nil {
		return "", fmt.Errorf("sale key: %w", err)
	}
	data, err := json.Marshal(sale)
	if err != nil {
		return "", fmt.Errorf("encode sale: %w", err)
	}
	if err := s.client.HSet(ctx, s.salesKey, key, data).Err(); err != nil {
		return "", fmt.Errorf("redis hset %s: %w", s.salesKey, err)
	}
	return key, nil
}

// SetProducts implements catalog.Seeder.
func (s *Store) SetProducts(ctx context.Context, products json.RawMessage) error {
	if err := s.client.Set(ctx, s.productsKey, []byte(products), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.productsKey, err)
	}
	return nil
}

// Ping implements catalog.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (s *Store) Close() error {
	return s.client.Close()
}
