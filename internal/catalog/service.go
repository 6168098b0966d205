package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"catalog-sales/internal/logger"
)

// TimeLayout is the purchaseDate format: UTC ISO-8601 with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Service implements search, lookup and sale bookkeeping over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) products(ctx context.Context) ([]Product, error) {
	raw, err := s.store.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	return DecodeProducts(raw)
}

// Search returns the products whose title or description contains q,
// case-insensitively. An empty q matches every product.
func (s *Service) Search(ctx context.Context, q string) (SearchResponse, error) {
	all, err := s.products(ctx)
	if err != nil {
		return SearchResponse{}, err
	}

	term := strings.ToLower(q)
	items := make([]ProductSummary, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			items = append(items, p.Summary())
		}
	}
	return SearchResponse{Items: items, Total: len(items)}, nil
}

// Get returns the first product with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	all, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

// RecordSale validates req, stamps it and appends it to the store.
// Validation failures return a *ValidationError and never touch the store.
func (s *Service) RecordSale(ctx context.Context, req SaleRequest, userID string) (SaleResponse, error) {
	sale, err := s.buildSale(req, userID)
	if err != nil {
		return SaleResponse{}, err
	}

	key, err := s.store.PushSale(ctx, sale)
	if err != nil {
		return SaleResponse{}, fmt.Errorf("push sale: %w", err)
	}

	return SaleResponse{
		Success: true,
		Message: MsgSaleRecorded,
		SaleID:  key,
		Sale:    sale,
	}, nil
}

func (s *Service) buildSale(req SaleRequest, userID string) (Sale, error) {
	productID, ok := truthy(req.ProductID)
	if !ok {
		return Sale{}, invalid(MsgIncompleteSale)
	}
	titleVal, ok := truthy(req.ProductTitle)
	if !ok {
		return Sale{}, invalid(MsgIncompleteSale)
	}
	price, ok := number(req.Price)
	if !ok {
		return Sale{}, invalid(MsgIncompleteSale)
	}

	quantity := int64(1)
	if present(req.Quantity) {
		q, ok := number(req.Quantity)
		if !ok || q < 1 || q != math.Trunc(q) || q > math.MaxInt32 {
			return Sale{}, invalid(MsgInvalidQuantity)
		}
		quantity = int64(q)
	}

	now := s.now().UTC()
	if userID == "" {
		userID = GuestID(now)
	}

	return Sale{
		ProductID:    productID,
		ProductTitle: titleVal,
		Price:        price,
		Quantity:     quantity,
		TotalAmount:  price * float64(quantity),
		PurchaseDate: now.Format(TimeLayout),
		UserID:       userID,
	}, nil
}

// GuestID is the identity assigned to callers without one.
func GuestID(t time.Time) string {
	return "guest-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// ListSales returns every sale, most recent purchaseDate first. Stored
// fields are passed through as they are; a record that is not an object is
// listed with its key only.
func (s *Service) ListSales(ctx context.Context) (SalesResponse, error) {
	raw, err := s.store.Sales(ctx)
	if err != nil {
		return SalesResponse{}, fmt.Errorf("read sales: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sales := make([]SaleRecord, 0, len(raw))
	for _, k := range keys {
		rec, err := NewSaleRecord(k, raw[k])
		if err != nil {
			logger.Warnf("sale %s is not an object: %v", k, err)
			rec = SaleRecord{ID: k, Fields: map[string]json.RawMessage{}}
		}
		sales = append(sales, rec)
	}

	SortByPurchaseDate(sales)
	return SalesResponse{Sales: sales, Total: len(sales)}, nil
}

// SortByPurchaseDate orders sales newest first. Unparsable dates go last.
func SortByPurchaseDate(sales []SaleRecord) {
	when := make(map[string]time.Time, len(sales))
	for _, s := range sales {
		if t, err := time.Parse(time.RFC3339Nano, s.PurchaseDate); err == nil {
			when[s.ID] = t
		}
	}
	sort.SliceStable(sales, func(i, j int) bool {
		ti, iok := when[sales[i].ID]
		tj, jok := when[sales[j].ID]
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}

func present(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) > 0
}

// truthy decodes raw and reports whether it is present and not one of
// null, false, 0, or "".
func truthy(raw json.RawMessage) (interface{}, bool) {
	if !present(raw) {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case nil:
		return nil, false
	case bool:
		return v, t
	case float64:
		return v, t != 0 && !math.IsNaN(t)
	case string:
		return v, t != ""
	}
	return v, true
}

// number reports whether raw is a JSON number and returns its value.
func number(raw json.RawMessage) (float64, bool) {
	if !present(raw) {
		return 0, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}
