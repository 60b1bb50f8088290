package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ramukaka/market/internal/circuitbreaker"
	"github.com/ramukaka/market/internal/logger"
	"github.com/sony/gobreaker/v2"
)

var (
	ErrWidgetDismissed  = errors.New("payment window closed before completion")
	ErrMissingPaymentID = errors.New("payment success without payment id")
)

// PaymentInitiationError means no order token could be obtained, so the widget never opened.
type PaymentInitiationError struct {
	Err error
}

func (e *PaymentInitiationError) Error() string {
	return fmt.Sprintf("could not start online payment: %v", e.Err)
}

func (e *PaymentInitiationError) Unwrap() error { return e.Err }

// PaymentFailure carries the gateway's own description of a failed payment.
type PaymentFailure struct {
	Code        string
	Description string
	Reason      string
}

func (e *PaymentFailure) Error() string {
	if e.Description == "" {
		return "payment failed"
	}
	return "payment failed: " + e.Description
}

// SignatureVerifier is implemented by clients holding the merchant secret.
type SignatureVerifier interface {
	VerifySignature(orderID, paymentID, signature string) bool
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type Theme struct {
	Color string `json:"color"`
}

// WidgetConfig is handed to the browser to open the checkout widget.
type WidgetConfig struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

type InitiateRequest struct {
	Total   float64
	Receipt string
	Prefill Prefill
}

type HandlerConfig struct {
	Currency     string
	MerchantName string
	ThemeColor   string
	Timeout      time.Duration
	Breaker      circuitbreaker.Config
}

type BranchHandler struct {
	tokens   TokenSource
	verifier SignatureVerifier
	breaker  *gobreaker.CircuitBreaker[*WidgetConfig]
	cfg      HandlerConfig
	log      *slog.Logger
}

// NewBranchHandler wires a token source. verifier may be nil, in which case success
// signatures are not checked.
func NewBranchHandler(tokens TokenSource, verifier SignatureVerifier, cfg HandlerConfig, log *slog.Logger) *BranchHandler {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.MerchantName == "" {
		cfg.MerchantName = "Ramu Kaka Market"
	}
	if cfg.ThemeColor == "" {
		cfg.ThemeColor = "#3399cc"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	log = logger.OrDefault(log)

	return &BranchHandler{
		tokens:   tokens,
		verifier: verifier,
		breaker:  circuitbreaker.New[*WidgetConfig]("payment-token", cfg.Breaker, log),
		cfg:      cfg,
		log:      log,
	}
}

// Initiate requests an order token for total and builds the widget configuration.
func (h *BranchHandler) Initiate(ctx context.Context, req InitiateRequest) (*WidgetConfig, error) {
	amount, err := ToMinorUnits(req.Total)
	if err != nil {
		return nil, &PaymentInitiationError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	widget, err := h.breaker.Execute(func() (*WidgetConfig, error) {
		order, err := h.tokens.CreateOrder(ctx, OrderRequest{
			Amount:   amount,
			Currency: h.cfg.Currency,
			Receipt:  req.Receipt,
		})
		if err != nil {
			return nil, fmt.Errorf("create gateway order: %w", err)
		}
		key, err := h.tokens.PublicKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch public key: %w", err)
		}
		return &WidgetConfig{
			Key:         key,
			Amount:      order.Amount,
			Currency:    order.Currency,
			OrderID:     order.ID,
			Name:        h.cfg.MerchantName,
			Description: "Order " + req.Receipt,
			Prefill:     req.Prefill,
			Theme:       Theme{Color: h.cfg.ThemeColor},
		}, nil
	})
	if err != nil {
		h.log.ErrorContext(ctx, "payment initiation failed", "receipt", req.Receipt, "amount", amount, "error", err)
		return nil, &PaymentInitiationError{Err: err}
	}

	h.log.InfoContext(ctx, "payment initiated", "receipt", req.Receipt, "gateway_order_id", widget.OrderID, "amount", amount)
	return widget, nil
}

// Resolve turns a widget callback into a captured payment id, or the reason there is none.
func (h *BranchHandler) Resolve(widget *WidgetConfig, ev WidgetEvent) (string, error) {
	switch e := ev.(type) {
	case PaymentSucceeded:
		if e.PaymentID == "" {
			return "", ErrMissingPaymentID
		}
		if widget != nil && e.OrderID != "" && e.OrderID != widget.OrderID {
			return "", &PaymentFailure{Code: "ORDER_MISMATCH", Description: "payment does not belong to this checkout"}
		}
		if h.verifier != nil {
			orderID := e.OrderID
			if orderID == "" && widget != nil {
				orderID = widget.OrderID
			}
			if !h.verifier.VerifySignature(orderID, e.PaymentID, e.Signature) {
				h.log.Warn("payment signature rejected", "payment_id", e.PaymentID, "gateway_order_id", orderID)
				return "", &PaymentFailure{Code: "BAD_SIGNATURE", Description: "payment could not be verified"}
			}
		}
		return e.PaymentID, nil
	case PaymentFailed:
		return "", &PaymentFailure{Code: e.Code, Description: e.Description, Reason: e.Reason}
	case WidgetDismissed:
		return "", ErrWidgetDismissed
	default:
		return "", fmt.Errorf("unsupported widget event %T", ev)
	}
}
