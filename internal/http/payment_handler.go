package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/payment"
)

// PaymentProxyHandler serves order tokens and the public key so browsers never see the secret.
type PaymentProxyHandler struct {
	tokens  payment.TokenSource
	timeout time.Duration
	log     *slog.Logger
}

func NewPaymentProxyHandler(tokens payment.TokenSource, timeout time.Duration, log *slog.Logger) *PaymentProxyHandler {
	return &PaymentProxyHandler{
		tokens:  tokens,
		timeout: timeout,
		log:     logger.OrDefault(log),
	}
}

type PaymentOrderResponseDTO struct {
	Order *payment.GatewayOrder `json:"order"`
}

type PaymentKeyResponseDTO struct {
	KeyID string `json:"keyId"`
}

// POST /api/payment/order
func (h *PaymentProxyHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req payment.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive number of minor units")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	order, err := h.tokens.CreateOrder(ctx, req)
	if err != nil {
		h.handleGatewayError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, PaymentOrderResponseDTO{Order: order})
}

// GET /api/payment/key
func (h *PaymentProxyHandler) Key(w http.ResponseWriter, r *http.Request) {
	key, err := h.tokens.PublicKey(r.Context())
	if err != nil {
		h.handleGatewayError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, PaymentKeyResponseDTO{KeyID: key})
}

func (h *PaymentProxyHandler) handleGatewayError(ctx context.Context, w http.ResponseWriter, err error) {
	h.log.ErrorContext(ctx, "payment gateway call failed", "request_id", getRequestID(ctx), "error", err)

	if errors.Is(err, payment.ErrNotConfigured) {
		respondError(w, http.StatusServiceUnavailable, "payment_not_configured", "online payment is not configured")
		return
	}
	var apiErr *payment.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		respondErrorDetails(w, http.StatusBadRequest, "gateway_rejected", "payment gateway rejected the request", apiErr.Description)
		return
	}
	respondError(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway unavailable")
}
