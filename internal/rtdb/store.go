// Package rtdb stores the catalog in a Firebase Realtime Database.
package rtdb

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"catalog-sales/internal/catalog"
	"catalog-sales/internal/config"
)

// Store reads products and appends sales through the Firebase Admin SDK.
type Store struct {
	client       *db.Client
	productsPath string
	salesPath    string
}

// New creates a Store over an existing database client.
func New(client *db.Client, productsPath, salesPath string) *Store {
	return &Store{client: client, productsPath: productsPath, salesPath: salesPath}
}

// Connect initialises a Firebase app from cfg and returns a Store on it.
func Connect(ctx context.Context, cfg config.FirebaseConfig, productsPath, salesPath string) (*Store, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: cfg.DatabaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase database: %w", err)
	}
	return New(client, productsPath, salesPath), nil
}

func clientOptions(cfg config.FirebaseConfig) ([]option.ClientOption, error) {
	if cfg.EmulatorHost != "" {
		return []option.ClientOption{option.WithoutAuthentication()}, nil
	}
	if cfg.CredentialsFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, nil
	}
	if cfg.ServiceAccount.PrivateKey == "" {
		// Application default credentials.
		return nil, nil
	}
	raw, err := cfg.ServiceAccountJSON()
	if err != nil {
		return nil, fmt.Errorf("service account: %w", err)
	}
	return []option.ClientOption{option.WithCredentialsJSON(raw)}, nil
}

// Products implements catalog.Store.
func (s *Store) Products(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.client.NewRef(s.productsPath).Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("rtdb get %s: %w", s.productsPath, err)
	}
	return raw, nil
}

// Sales implements catalog.Store.
func (s *Store) Sales(ctx context.Context) (map[string]json.RawMessage, error) {
	var sales map[string]json.RawMessage
	if err := s.client.NewRef(s.salesPath).Get(ctx, &sales); err != nil {
		return nil, fmt.Errorf("rtdb get %s: %w", s.salesPath, err)
	}
	if sales == nil {
		sales = map[string]json.RawMessage{}
	}
	return sales, nil
}

// PushSale implements catalog.Store. Push keys sort chronologically.
func (s *Store) PushSale(ctx context.Context, sale catalog.Sale) (string, error) {
	ref, err := s.client.NewRef(s.salesPath).Push(ctx, sale)
	if err != nil {
		return "", fmt.Errorf("rtdb push %s: %w", s.salesPath, err)
	}
	return ref.Key, nil
}

// SetProducts implements catalog.Seeder.
func (s *Store) SetProducts(ctx context.Context, products json.RawMessage) error {
	if err := s.client.NewRef(s.productsPath).Set(ctx, products); err != nil {
		return fmt.Errorf("rtdb set %s: %w", s.productsPath, err)
	}
	return nil
}

// Ping implements catalog.Store with a shallow read of the products node.
func (s *Store) Ping(ctx context.Context) error {
	var v interface{}
	if err := s.client.NewRef(s.productsPath).GetShallow(ctx, &v); err != nil {
		return fmt.Errorf("rtdb ping: %w", err)
	}
	return nil
}
