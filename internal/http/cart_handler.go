package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ramukaka/market/internal/checkout"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/notify"
)

type CartHandler struct {
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{
		timeout: timeout,
		log:     logger.OrDefault(log),
	}
}

type AddItemRequestDTO struct {
	ProductID     string   `json:"product_id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discount_price,omitempty"`
	Images        []string `json:"images"`
	Unit          string   `json:"unit"`
	UnitQuantity  float64  `json:"unit_quantity"`
	Quantity      int      `json:"quantity"`
	Rating        *float64 `json:"rating,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items         []domain.CartItem     `json:"items"`
	Total         float64               `json:"total"`
	Notifications []notify.Notification `json:"notifications"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}
	h.respondCart(w, http.StatusOK, sess.Cart.Items(), sess.Notes)
}

// POST /api/v1/cart/items. Mutations are refused while a checkout holds the cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	if sess.CartLocked() {
		handleDomainError(w, checkout.ErrCartLocked)
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.Price < 0 || (req.DiscountPrice != nil && *req.DiscountPrice < 0) {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	item := domain.CartItem{
		ID:            req.ProductID,
		Name:          req.Name,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		Images:        req.Images,
		Unit:          req.Unit,
		UnitQuantity:  req.UnitQuantity,
		Quantity:      req.Quantity,
		Rating:        req.Rating,
		Keywords:      req.Keywords,
	}
	if err := sess.Cart.Add(ctx, item); err != nil {
		h.log.ErrorContext(ctx, "add to cart failed", "request_id", getRequestID(ctx), "error", err)
		handleDomainError(w, err)
		return
	}

	h.respondCart(w, http.StatusCreated, sess.Cart.Items(), sess.Notes)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	if sess.CartLocked() {
		handleDomainError(w, checkout.ErrCartLocked)
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	if err := sess.Cart.SetQuantity(ctx, chi.URLParam(r, "product_id"), req.Quantity); err != nil {
		handleDomainError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, sess.Cart.Items(), sess.Notes)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	if sess.CartLocked() {
		handleDomainError(w, checkout.ErrCartLocked)
		return
	}

	if err := sess.Cart.Remove(ctx, chi.URLParam(r, "product_id")); err != nil {
		handleDomainError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, sess.Cart.Items(), sess.Notes)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getSession(r.Context())
	if sess == nil {
		respondError(w, http.StatusUnauthorized, "no_session", "missing session")
		return
	}

	if sess.CartLocked() {
		handleDomainError(w, checkout.ErrCartLocked)
		return
	}

	if err := sess.Cart.Clear(ctx); err != nil {
		handleDomainError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, sess.Cart.Items(), sess.Notes)
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, items []domain.CartItem, notes *notify.Recorder) {
	respondJSON(w, status, CartResponseDTO{
		Items:         items,
		Total:         domain.CartTotal(items),
		Notifications: notes.Drain(),
	})
}
