package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ramukaka/market/internal/cart"
	"github.com/ramukaka/market/internal/checkout"
	"github.com/ramukaka/market/internal/orders"
	"github.com/ramukaka/market/internal/payment"
	"github.com/ramukaka/market/internal/repository"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

func respondErrorDetails(w http.ResponseWriter, status int, code, message, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// classifyError maps a domain error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	var (
		validation *checkout.ValidationError
		persist    *orders.PersistenceError
		initErr    *payment.PaymentInitiationError
		failure    *payment.PaymentFailure
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusConflict, "empty_cart"
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		return http.StatusConflict, "submission_in_flight"
	case errors.Is(err, checkout.ErrIllegalTransition):
		return http.StatusConflict, "illegal_transition"
	case errors.Is(err, checkout.ErrPaymentReused):
		return http.StatusConflict, "payment_reused"
	case errors.Is(err, checkout.ErrCartLocked):
		return http.StatusConflict, "cart_locked"
	case errors.As(err, &persist):
		return http.StatusServiceUnavailable, "persistence_failed"
	case errors.As(err, &initErr):
		return http.StatusBadGateway, "payment_initiation_failed"
	case errors.As(err, &failure), errors.Is(err, payment.ErrMissingPaymentID):
		return http.StatusPaymentRequired, "payment_failed"
	case errors.Is(err, cart.ErrInvalidItem), errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidMethod):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, orders.ErrIllegalStatusChange), errors.Is(err, repository.ErrStatusConflict):
		return http.StatusConflict, "status_conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// publicMessage hides unclassified errors from clients.
func publicMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func handleDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	message := publicMessage(status, err)

	var validation *checkout.ValidationError
	if errors.As(err, &validation) {
		respondErrorDetails(w, status, code, "missing required fields", strings.Join(validation.Missing, ","))
		return
	}
	respondError(w, status, code, message)
}
