// Package pgstore keeps the catalog tree in PostgreSQL JSONB columns: one
// document per subtree path and one row per sale.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"catalog-sales/internal/catalog"
)

// Store implements catalog.Store on a *sql.DB.
type Store struct {
	db           *sql.DB
	documents    string
	sales        string
	productsPath string
	newKey       func() (string, error)
}

// NewStore creates a Store using tables in schema.
func NewStore(db *sql.DB, schema, productsPath string) *Store {
	q := pq.QuoteIdentifier(schema)
	return &Store{
		db:           db,
		documents:    q + ".documents",
		sales:        q + ".sales",
		productsPath: productsPath,
		newKey: func() (string, error) {
			id, err := uuid.NewV7()
			return id.String(), err
		},
	}
}

// EnsureSchema creates the schema and tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context, schema string) error {
	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS " + pq.QuoteIdentifier(schema),
		"CREATE TABLE IF NOT EXISTS " + s.documents + ` (
			path       text PRIMARY KEY,
			body       jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		"CREATE TABLE IF NOT EXISTS " + s.sales + ` (
			id         text PRIMARY KEY,
			body       jsonb NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("EnsureSchema: %w", err)
		}
	}
	return nil
}

// Products implements catalog.Store. A missing document reads as null.
func (s *Store) Products(ctx context.Context) (json.RawMessage, error) {
	query := "SELECT body FROM " + s.documents + " WHERE path = $1"

	var body []byte
	err := s.db.QueryRowContext(ctx, query, s.productsPath).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return json.RawMessage("null"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("Products query: %w", err)
	}
	return body, nil
}

// Sales implements catalog.Store.
func (s *Store) Sales(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, body FROM "+s.sales)
	if err != nil {
		return nil, fmt.Errorf("Sales query: %w", err)
	}
	defer rows.Close()

	sales := map[string]json.RawMessage{}
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("Sales scan: %w", err)
		}
		sales[id] = body
	}
	return sales, rows.Err()
}

// PushSale implements catalog.Store.
func (s *Store) PushSale(ctx context.Context, sale catalog.Sale) (string, error) {
	id, err := s.newKey()
	if err != nil {
		return "", fmt.Errorf("sale key: %w", err)
	}
	body, err := json.Marshal(sale)
	if err != nil {
		return "", fmt.Errorf("encode sale: %w", err)
	}

	query := "INSERT INTO " + s.sales + " (id, body) VALUES ($1, $2)"
	if _, err := s.db.ExecContext(ctx, query, id, body); err != nil {
		return "", fmt.Errorf("PushSale: %w", err)
	}
	return id, nil
}

// SetProducts implements catalog.Seeder.
func (s *Store) SetProducts(ctx context.Context, products json.RawMessage) error {
	query := "INSERT INTO " + s.documents + ` (path, body) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	if _, err := s.db.ExecContext(ctx, query, s.productsPath, []byte(products)); err != nil {
		return fmt.Errorf("SetProducts: %w", err)
	}
	return nil
}

// Ping implements catalog.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database pool.
func (s *Store) Close() error {
	return s.db.Close()
}
