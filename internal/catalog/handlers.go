package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"catalog-sales/internal/auth"
	"catalog-sales/internal/logger"

	"github.com/gorilla/mux"
)

// Handler handles HTTP requests for catalog operations
type Handler struct {
	svc          *Service
	verifier     *auth.Verifier
	storeTimeout time.Duration
	adminGate    func() bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStoreTimeout bounds every store round trip made for a request.
func WithStoreTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.storeTimeout = d }
}

// WithAdminGate makes GET /api/sales require an admin token whenever gate
// returns true.
func WithAdminGate(gate func() bool) HandlerOption {
	return func(h *Handler) { h.adminGate = gate }
}

// NewHandler creates a new catalog handler
func NewHandler(svc *Service, verifier *auth.Verifier, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc, verifier: verifier}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/items", h.SearchItems).Methods(http.MethodGet)
	r.HandleFunc("/api/items/{id}", h.GetItem).Methods(http.MethodGet)
	r.HandleFunc("/api/addSale", h.AddSale).Methods(http.MethodPost)
	r.HandleFunc("/api/sales", h.RequireAdmin(h.ListSales)).Methods(http.MethodGet)
}

func (h *Handler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	if h.storeTimeout > 0 {
		return context.WithTimeout(r.Context(), h.storeTimeout)
	}
	return context.WithCancel(r.Context())
}

// SearchItems handles GET /api/items?q=term
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	resp, err := h.svc.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		logger.Errorf("SearchItems: %v", err)
		writeError(w, http.StatusInternalServerError, MsgSearchFailed)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetItem handles GET /api/items/{id}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidProductID)
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	product, err := h.svc.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, MsgProductNotFound)
		return
	}
	if err != nil {
		logger.Errorf("GetItem %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, MsgGetFailed)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// AddSale handles POST /api/addSale
func (h *Handler) AddSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Debugf("AddSale: invalid body: %v", err)
		writeSaleError(w, http.StatusBadRequest, MsgIncompleteSale)
		return
	}

	ctx, cancel := h.ctx(r)
	defer cancel()

	resp, err := h.svc.RecordSale(ctx, req, h.verifier.CallerID(r))
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeSaleError(w, http.StatusBadRequest, verr.Message)
			return
		}
		logger.Errorf("AddSale: %v", err)
		writeSaleError(w, http.StatusInternalServerError, MsgRecordFailed)
		return
	}

	logger.Debugf("AddSale: recorded %s for %s", resp.SaleID, resp.Sale.UserID)
	writeJSON(w, http.StatusOK, resp)
}

// ListSales handles GET /api/sales
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	resp, err := h.svc.ListSales(ctx)
	if err != nil {
		logger.Errorf("ListSales: %v", err)
		writeError(w, http.StatusInternalServerError, MsgListSalesFailed)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequireAdmin is middleware that requires a valid JWT token with admin role
// while the admin gate is on. Without a gate it is a no-op.
func (h *Handler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.adminGate == nil || !h.adminGate() {
			next(w, r)
			return
		}

		tokenStr := auth.GetBearerToken(r)
		if tokenStr == "" {
			logger.Debugf("RequireAdmin: no bearer token provided")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := h.verifier.ParseToken(tokenStr)
		if err != nil {
			logger.Debugf("RequireAdmin: JWT parse error: %v", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !auth.HasRole(claims.Roles, "admin") {
			logger.Debugf("RequireAdmin: user %q lacks admin role", claims.Subject)
			writeError(w, http.StatusForbidden, "forbidden - admin role required")
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warnf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}

func writeSaleError(w http.ResponseWriter, status int, msg string) {
	ok := false
	writeJSON(w, status, ErrorResponse{Success: &ok, Message: msg})
}
