package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
)

type OrderService interface {
	History(ctx context.Context, customerID string) ([]*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	AdvanceStatus(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, error)
}

// RoleSource resolves the caller's roles. Roles only ever come from the remote profile.
type RoleSource interface {
	Resolve(ctx context.Context, sessionID, userID string) domain.Profile
}

type OrdersHandler struct {
	orders  OrderService
	roles   RoleSource
	timeout time.Duration
	log     *slog.Logger
}

func NewOrdersHandler(orders OrderService, roles RoleSource, timeout time.Duration, log *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		roles:   roles,
		timeout: timeout,
		log:     logger.OrDefault(log),
	}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	list, err := h.orders.History(ctx, sess.CustomerID())
	if err != nil {
		h.log.ErrorContext(ctx, "list orders failed", "request_id", getRequestID(ctx), "error", err)
		handleDomainError(w, err)
		return
	}
	if list == nil {
		list = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	order, err := h.orders.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if order.CustomerID != sess.CustomerID() && !h.canManage(ctx, sess.ID, order) {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// PATCH /api/v1/orders/{order_id}/status, for admin and delivery actors only.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil || getUserIDFromContext(ctx) == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !h.canManage(ctx, sess.ID, order) {
		respondError(w, http.StatusForbidden, "forbidden", "not allowed to update this order")
		return
	}

	updated, err := h.orders.AdvanceStatus(ctx, order.ID, req.Status)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// canManage allows admins everywhere and delivery staff within their pincodes.
func (h *OrdersHandler) canManage(ctx context.Context, sessionID string, order *domain.Order) bool {
	userID := getUserIDFromContext(ctx)
	if userID == "" || h.roles == nil {
		return false
	}
	roles := h.roles.Resolve(ctx, sessionID, userID).Roles
	if roles.Has(domain.RoleAdmin) {
		return true
	}
	delivery, ok := roles.Delivery()
	return ok && slices.Contains(delivery.Pincodes, order.CustomerPincode)
}
