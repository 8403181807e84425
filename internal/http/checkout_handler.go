package http

import (
	"context"
	"net/http"
	"time"

	"github.com/beastsupply/storefront/internal/checkout"
	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/identity"
	"github.com/beastsupply/storefront/internal/pricing"
	"go.uber.org/zap"
)

const idempotencyKeyHeader = "Idempotency-Key"

type CheckoutService interface {
	Quote(ctx context.Context, ownerID string, opts pricing.Options) (pricing.Quote, error)
	CreateOrder(ctx context.Context, ownerID string, req checkout.Request) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
		log:      log,
	}
}

// POST /api/v1/checkout/quote
//
// An anonymous caller has no cart, so the answer is the empty-cart one.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, authenticated := identity.CurrentUser(r.Context())

	var req QuoteRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	payment, shipping, err := parseMethods(req.PaymentMethod, req.ShippingMethod)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	if !authenticated {
		handleServiceError(w, r, h.log, domain.ErrEmptyCart)
		return
	}

	quote, err := h.checkout.Quote(ctx, userID, pricing.Options{Payment: payment, Shipping: shipping})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// POST /api/v1/checkout
//
// The idempotency key may come in the body or the Idempotency-Key header. A
// replayed submission answers 200 with the original order.
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := identity.CurrentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	payment, shipping, err := parseMethods(req.PaymentMethod, req.ShippingMethod)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	key := req.IdempotencyKey
	if header := r.Header.Get(idempotencyKeyHeader); header != "" && !key.IsPresent() {
		key = domain.Some(header)
	}

	res, err := h.checkout.CreateOrder(ctx, userID, checkout.Request{
		CustomerInfo:   req.CustomerInfo,
		PaymentMethod:  payment,
		ShippingMethod: shipping,
		IdempotencyKey: key,
	})
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	respondJSON(w, status, CheckoutResponseDTO{
		Order:       toOrderResponse(res.Order),
		CartCleared: res.CartCleared,
		Replayed:    res.Replayed,
	})
}

func parseMethods(payment, shipping string) (domain.PaymentMethod, domain.ShippingMethod, error) {
	p, err := domain.ParsePaymentMethod(payment)
	if err != nil {
		return "", "", err
	}
	s, err := domain.ParseShippingMethod(shipping)
	if err != nil {
		return "", "", err
	}
	return p, s, nil
}
