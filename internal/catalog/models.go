package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"catalog-sales/internal/logger"
)

// Product is a catalog entry as stored in the products subtree. Raw keeps the
// stored object so it can be returned exactly as read.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	Thumbnail   string  `json:"thumbnail"`

	Raw json.RawMessage `json:"-"`
}

// productFields is Product without methods, used to avoid recursion in the
// JSON codecs below.
type productFields struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	Thumbnail   string  `json:"thumbnail"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of data in Raw.
func (p *Product) UnmarshalJSON(data []byte) error {
	var f productFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = Product{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Price:       f.Price,
		Category:    f.Category,
		Rating:      f.Rating,
		Thumbnail:   f.Thumbnail,
		Raw:         append(json.RawMessage(nil), data...),
	}
	return nil
}

// MarshalJSON writes the stored object unchanged, or the known fields for a
// Product built in code.
func (p Product) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	return json.Marshal(productFields{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Rating:      p.Rating,
		Thumbnail:   p.Thumbnail,
	})
}

// ProductSummary is the public projection returned by search.
type ProductSummary struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	Thumbnail   string  `json:"thumbnail"`
}

// Summary projects p onto the public search fields.
func (p Product) Summary() ProductSummary {
	return ProductSummary{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Rating:      p.Rating,
		Thumbnail:   p.Thumbnail,
	}
}

// DecodeProducts turns a products subtree into an ordered list. The subtree may
// be a JSON array with null holes or an object keyed by decimal indexes (the
// Realtime Database encoding of sparse arrays). Holes are skipped; null or an
// empty document yields an empty list. Entries that do not decode as a
// product are logged and skipped.
func DecodeProducts(raw json.RawMessage) ([]Product, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Product{}, nil
	}

	var entries []json.RawMessage
	var labels []string
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode product list: %w", err)
		}
		for i := range entries {
			labels = append(labels, strconv.Itoa(i))
		}
	case '{':
		var byKey map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byKey); err != nil {
			return nil, fmt.Errorf("decode product map: %w", err)
		}
		for k := range byKey {
			labels = append(labels, k)
		}
		sort.Slice(labels, func(i, j int) bool { return indexLess(labels[i], labels[j]) })
		for _, k := range labels {
			entries = append(entries, byKey[k])
		}
	default:
		return nil, fmt.Errorf("decode products: unexpected JSON value %q", string(trimmed[:1]))
	}

	products := make([]Product, 0, len(entries))
	for i, entry := range entries {
		entry = bytes.TrimSpace(entry)
		if len(entry) == 0 || bytes.Equal(entry, []byte("null")) {
			continue
		}
		var p Product
		if entry[0] != '{' {
			logger.Warnf("products[%s]: not an object, skipped", labels[i])
			continue
		}
		if err := json.Unmarshal(entry, &p); err != nil {
			logger.Warnf("products[%s]: %v, skipped", labels[i], err)
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// indexLess orders numeric keys numerically and everything else after them
// lexically.
func indexLess(a, b string) bool {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

// Sale is a recorded purchase. ProductID and ProductTitle are echoed as
// supplied by the caller.
type Sale struct {
	ProductID    interface{} `json:"productId"`
	ProductTitle interface{} `json:"productTitle"`
	Price        float64     `json:"price"`
	Quantity     int64       `json:"quantity"`
	TotalAmount  float64     `json:"totalAmount"`
	PurchaseDate string      `json:"purchaseDate"`
	UserID       string      `json:"userId"`
}

// SaleRecord is a stored sale as read back: its store key plus every stored
// field, untouched. A stored "id" field takes precedence over the key in the
// encoded form.
type SaleRecord struct {
	ID           string
	PurchaseDate string
	Fields       map[string]json.RawMessage
}

// NewSaleRecord decodes a stored sale. Only purchaseDate is interpreted; a
// value that is not a string is treated as missing.
func NewSaleRecord(key string, raw json.RawMessage) (SaleRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return SaleRecord{}, err
	}
	if fields == nil {
		return SaleRecord{}, fmt.Errorf("sale %s is null", key)
	}
	rec := SaleRecord{ID: key, Fields: fields}
	if v, ok := fields["purchaseDate"]; ok {
		_ = json.Unmarshal(v, &rec.PurchaseDate)
	}
	return rec, nil
}

// MarshalJSON writes {"id": key, ...fields} with fields in key order.
func (r SaleRecord) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	if _, ok := r.Fields["id"]; !ok {
		id, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"id":`)
		buf.Write(id)
		if len(keys) > 0 {
			buf.WriteByte(',')
		}
	}
	for i, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(r.Fields[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the encoded form back, taking "id" as the key.
func (r *SaleRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var id string
	if v, ok := fields["id"]; ok {
		_ = json.Unmarshal(v, &id)
		delete(fields, "id")
	}
	rec, err := NewSaleRecord(id, mustMarshal(fields))
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

func mustMarshal(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// SaleRequest is the decoded body of POST /api/addSale. Raw values are kept so
// that presence and JSON type can be validated.
type SaleRequest struct {
	ProductID    json.RawMessage
	ProductTitle json.RawMessage
	Price        json.RawMessage
	Quantity     json.RawMessage
}

// UnmarshalJSON picks the body fields by exact, case-sensitive name.
func (r *SaleRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = SaleRequest{
		ProductID:    fields["productId"],
		ProductTitle: fields["productTitle"],
		Price:        fields["price"],
		Quantity:     fields["quantity"],
	}
	return nil
}

// SearchResponse is the body of GET /api/items.
type SearchResponse struct {
	Items []ProductSummary `json:"items"`
	Total int              `json:"total"`
}

// SaleResponse is the body of a successful POST /api/addSale.
type SaleResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SaleID  string `json:"saleId"`
	Sale    Sale   `json:"sale"`
}

// SalesResponse is the body of GET /api/sales.
type SalesResponse struct {
	Sales []SaleRecord `json:"sales"`
	Total int          `json:"total"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message"`
}
