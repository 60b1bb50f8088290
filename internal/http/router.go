package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	// Payment is nil when the service is not itself the payment proxy.
	Payment *PaymentProxyHandler
}

func NewRouter(cfg RouterConfig, registry *session.Registry, h Handlers, log *slog.Logger) http.Handler {
	log = logger.OrDefault(log)
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.Payment != nil {
		r.Route("/api/payment", func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Post("/order", h.Payment.CreateOrder)
			r.Get("/key", h.Payment.Key)
		})
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(registry, log))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
			r.Delete("/items/{product_id}", h.Cart.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.Checkout.State)
			r.Post("/open", h.Checkout.Open)
			r.Put("/draft", h.Checkout.UpdateDraft)
			r.Post("/confirm", h.Checkout.Confirm)
			r.Post("/promo", h.Checkout.ChoosePromo)
			r.Post("/payment-event", h.Checkout.PaymentEvent)
			r.Post("/cancel", h.Checkout.CancelPayment)
			r.Post("/dismiss", h.Checkout.Dismiss)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{order_id}", h.Orders.GetOrder)
			r.Patch("/{order_id}/status", h.Orders.UpdateStatus)
		})
	})

	return otelhttp.NewHandler(r, "market",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
