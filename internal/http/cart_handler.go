package http

import (
	"context"
	"net/http"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/identity"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxLineQuantity = 99

type CartService interface {
	Add(ctx context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error)
	SetQuantity(ctx context.Context, ownerID, lineID string, quantity int) (domain.Optional[domain.CartLine], error)
	Remove(ctx context.Context, ownerID, lineID string) error
	List(ctx context.Context, ownerID string) ([]domain.CartItemView, error)
	Clear(ctx context.Context, ownerID string) error
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
	log     *zap.Logger
}

func NewCartHandler(cart CartService, timeout time.Duration, log *zap.Logger) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
		log:     log,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// anonymous callers get an empty cart
	userID, _ := identity.CurrentUser(r.Context())

	views, err := h.cart.List(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(views))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := identity.CurrentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	line, err := h.cart.Add(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, toCartLineResponse(line))
}

// PUT /api/v1/cart/items/{line_id}
//
// A quantity of zero or less removes the line and answers 204.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := identity.CurrentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	lineID := chi.URLParam(r, "line_id")
	if lineID == "" {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	line, err := h.cart.SetQuantity(ctx, userID, lineID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	updated, ok := line.Get()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, toCartLineResponse(updated))
}

// DELETE /api/v1/cart/items/{line_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := identity.CurrentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.cart.Remove(ctx, userID, chi.URLParam(r, "line_id")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := identity.CurrentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	if err := h.cart.Clear(ctx, userID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
