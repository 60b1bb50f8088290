package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ramukaka/market/internal/checkout"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/notify"
	"github.com/ramukaka/market/internal/payment"
)

// CheckoutHandler turns UI events into orchestrator events. Order writes are not bounded
// by the request timeout; the gateway applies its own.
type CheckoutHandler struct {
	log *slog.Logger
}

func NewCheckoutHandler(log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{log: logger.OrDefault(log)}
}

type PromoChoiceRequestDTO struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
}

type CheckoutResponseDTO struct {
	checkout.Snapshot
	Notifications []notify.Notification `json:"notifications"`
}

// GET /api/v1/checkout
func (h *CheckoutHandler) State(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}
	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		Snapshot:      sess.Checkout().Snapshot(),
		Notifications: sess.Notes.Drain(),
	})
}

// POST /api/v1/checkout/open
func (h *CheckoutHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}
	snap, err := sess.BeginCheckout().Open(r.Context())
	h.respond(w, r, snap, sess.Notes, err)
}

// PUT /api/v1/checkout/draft
func (h *CheckoutHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	snap, err := sess.Checkout().UpdateDraft(draft)
	h.respond(w, r, snap, sess.Notes, err)
}

// POST /api/v1/checkout/confirm, optionally carrying the final draft.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}
	var draft *domain.OrderDraft
	if len(body) > 0 {
		draft = &domain.OrderDraft{}
		if err := json.Unmarshal(body, draft); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	snap, err := sess.Checkout().Confirm(r.Context(), draft)
	h.respond(w, r, snap, sess.Notes, err)
}

// POST /api/v1/checkout/promo
func (h *CheckoutHandler) ChoosePromo(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	var req PromoChoiceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	snap, err := sess.Checkout().ChoosePromo(r.Context(), req.PaymentMethod)
	h.respond(w, r, snap, sess.Notes, err)
}

// POST /api/v1/checkout/payment-event carries the widget callback:
// {"kind":"succeeded"|"failed"|"dismissed", ...}.
func (h *CheckoutHandler) PaymentEvent(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "unreadable body")
		return
	}
	ev, err := payment.DecodeEvent(body)
	if err != nil {
		respondErrorDetails(w, http.StatusBadRequest, "invalid_event", "invalid payment event", err.Error())
		return
	}

	snap, err := sess.Checkout().HandleWidgetEvent(r.Context(), ev)
	h.respond(w, r, snap, sess.Notes, err)
}

// POST /api/v1/checkout/cancel
func (h *CheckoutHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}
	snap, err := sess.Checkout().CancelPayment(r.Context())
	h.respond(w, r, snap, sess.Notes, err)
}

// POST /api/v1/checkout/dismiss
func (h *CheckoutHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}
	snap, err := sess.Checkout().Dismiss(r.Context())
	h.respond(w, r, snap, sess.Notes, err)
}

// respond always carries the snapshot and pending notifications; errors add an ErrorResponse.
func (h *CheckoutHandler) respond(w http.ResponseWriter, r *http.Request, snap checkout.Snapshot, notes *notify.Recorder, err error) {
	body := CheckoutResponseDTO{Snapshot: snap, Notifications: notes.Drain()}
	if err == nil {
		respondJSON(w, http.StatusOK, body)
		return
	}

	status, code := classifyError(err)
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "checkout event failed", "request_id", getRequestID(r.Context()), "error", err)
	}
	respondJSON(w, status, struct {
		CheckoutResponseDTO
		ErrorResponse
	}{body, ErrorResponse{Error: publicMessage(status, err), Code: code}})
}
