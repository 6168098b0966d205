package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalog-sales/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store, opts ...HandlerOption) *mux.Router {
	r := mux.NewRouter()
	NewHandler(NewService(store), auth.NewVerifier("s3cret"), opts...).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestSearchItemsEndpoint(t *testing.T) {
	r := newTestRouter(newFakeStore(sampleProducts))

	rec := do(t, r, http.MethodGet, "/api/items?q=Mug", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Ceramic Mug", resp.Items[0].Title)

	rec = do(t, r, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["total"])
}

func TestSearchItemsEndpointEmptyCatalog(t *testing.T) {
	rec := do(t, newTestRouter(newFakeStore("null")), http.MethodGet, "/api/items?q=x", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"total":0}`, rec.Body.String())
}

func TestGetItemEndpoint(t *testing.T) {
	r := newTestRouter(newFakeStore(sampleProducts))

	rec := do(t, r, http.MethodGet, "/api/items/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "iPhone 9", body["title"])
	assert.Equal(t, "Apple", body["brand"], "full product includes extra fields")

	rec = do(t, r, http.MethodGet, "/api/items/9999", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Producto no encontrado"}`, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/items/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"ID de producto inválido"}`, rec.Body.String())
}

func TestGetItemEndpointReturnsStoredObject(t *testing.T) {
	stored := `{"id":1,"title":"Mug","description":"x","rating":null}`
	r := newTestRouter(newFakeStore(`[` + stored + `,{"id":"2","title":"Bad"}]`))

	rec := do(t, r, http.MethodGet, "/api/items/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, stored, rec.Body.String())
}

func TestAddSaleEndpoint(t *testing.T) {
	store := newFakeStore(sampleProducts)
	r := newTestRouter(store)

	rec := do(t, r, http.MethodPost, "/api/addSale",
		`{"productId":7,"productTitle":"Mug","price":9.5,"quantity":3}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SaleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, MsgSaleRecorded, resp.Message)
	assert.NotEmpty(t, resp.SaleID)
	assert.Equal(t, 28.5, resp.Sale.TotalAmount)
	assert.Regexp(t, `^guest-\d+$`, resp.Sale.UserID)
	assert.Equal(t, 1, store.pushCount())
}

func TestAddSaleEndpointUserHeader(t *testing.T) {
	r := newTestRouter(newFakeStore(sampleProducts))

	rec := do(t, r, http.MethodPost, "/api/addSale",
		`{"productId":7,"productTitle":"Mug","price":9.5}`, map[string]string{"X-User-ID": "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	sale := decodeBody(t, rec)["sale"].(map[string]interface{})
	assert.Equal(t, "alice", sale["userId"])
	assert.Equal(t, float64(1), sale["quantity"])
}

func TestAddSaleEndpointRejects(t *testing.T) {
	for _, body := range []string{
		`{"productTitle":"Mug","price":9.5}`,
		`{"productId":7,"price":9.5}`,
		`{"productId":7,"productTitle":"Mug","price":"9.5"}`,
		`{"PRODUCTID":7,"producttitle":"Mug","PRICE":9.5}`,
		`not json`,
		`[1,2]`,
	} {
		store := newFakeStore(sampleProducts)
		rec := do(t, newTestRouter(store), http.MethodPost, "/api/addSale", body, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"success":false,"message":"Datos de producto incompletos para la venta."}`,
			rec.Body.String(), body)
		assert.Equal(t, 0, store.pushCount(), body)
	}
}

func TestStoreFailuresAreGeneric(t *testing.T) {
	store := newFakeStore(sampleProducts)
	store.err = errStoreDown
	r := newTestRouter(store)

	testCases := []struct {
		method, target, body, want string
	}{
		{http.MethodGet, "/api/items?q=a", "", `{"message":"` + MsgSearchFailed + `"}`},
		{http.MethodGet, "/api/items/1", "", `{"message":"` + MsgGetFailed + `"}`},
		{http.MethodPost, "/api/addSale", `{"productId":7,"productTitle":"Mug","price":1}`,
			`{"success":false,"message":"` + MsgRecordFailed + `"}`},
		{http.MethodGet, "/api/sales", "", `{"message":"` + MsgListSalesFailed + `"}`},
	}

	for _, tc := range testCases {
		rec := do(t, r, tc.method, tc.target, tc.body, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.target)
		assert.JSONEq(t, tc.want, rec.Body.String(), tc.target)
		assert.NotContains(t, rec.Body.String(), errStoreDown.Error())
	}
}

func TestListSalesEndpoint(t *testing.T) {
	store := newFakeStore(sampleProducts)
	r := newTestRouter(store)

	for _, title := range []string{"A", "B", "C"} {
		rec := do(t, r, http.MethodPost, "/api/addSale",
			`{"productId":1,"productTitle":"`+title+`","price":2,"quantity":2}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		time.Sleep(2 * time.Millisecond)
	}

	rec := do(t, r, http.MethodGet, "/api/sales", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SalesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Total)
	assert.Equal(t, "C", field(t, resp.Sales[0], "productTitle"))
	assert.Equal(t, "A", field(t, resp.Sales[2], "productTitle"))
	for _, s := range resp.Sales {
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, 4.0, field(t, s, "totalAmount"))
	}
}

func TestListSalesAdminGate(t *testing.T) {
	gate := true
	r := newTestRouter(newFakeStore(sampleProducts), WithAdminGate(func() bool { return gate }))

	rec := do(t, r, http.MethodGet, "/api/sales", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	userTok := signed(t, "bob")
	rec = do(t, r, http.MethodGet, "/api/sales", "", map[string]string{"Authorization": "Bearer " + userTok})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminTok := signed(t, "root", "admin")
	rec = do(t, r, http.MethodGet, "/api/sales", "", map[string]string{"Authorization": "Bearer " + adminTok})
	assert.Equal(t, http.StatusOK, rec.Code)

	gate = false
	rec = do(t, r, http.MethodGet, "/api/sales", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestRouter(newFakeStore(sampleProducts)), http.MethodGet, "/api/addSale", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func signed(t *testing.T, sub string, roles ...string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Roles:            roles,
		RegisteredClaims: jwt.RegisteredClaims{Subject: sub},
	})
	s, err := tok.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	return s
}
