package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/logger"
	"github.com/ramukaka/market/internal/repository"
)

var (
	ErrEmptyOrder          = errors.New("order has no items")
	ErrPaymentIDRequired   = errors.New("online orders need a payment id")
	ErrUnexpectedPaymentID = errors.New("cash on delivery orders carry no payment id")
	ErrInvalidMethod       = errors.New("unknown payment method")
	ErrIllegalStatusChange = errors.New("illegal order status change")
)

// PersistenceError means the remote write failed. Nothing was stored.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("could not save order: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Submission is everything needed to freeze a checkout into an order.
type Submission struct {
	CustomerID    string
	CheckoutID    string
	Draft         domain.OrderDraft
	Items         []domain.CartItem
	PaymentMethod domain.PaymentMethod
	PaymentID     string
}

type Gateway struct {
	repo    repository.OrderRepository
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewGateway(repo repository.OrderRepository, timeout time.Duration, log *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		repo:    repo,
		timeout: timeout,
		now:     time.Now,
		log:     logger.OrDefault(log),
	}
}

// Submit writes the order once per checkout id. The write is detached from the caller's
// cancellation: once issued it runs to completion or timeout.
func (g *Gateway) Submit(ctx context.Context, s Submission) (*domain.Order, error) {
	if err := validate(s); err != nil {
		return nil, err
	}

	order := buildOrder(s, g.now())

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	err := g.repo.CreateOrder(writeCtx, order)
	if errors.Is(err, repository.ErrDuplicateCheckout) {
		existing, getErr := g.repo.GetOrderByCheckoutID(writeCtx, s.CheckoutID)
		if getErr != nil {
			return nil, &PersistenceError{Err: getErr}
		}
		g.log.InfoContext(ctx, "duplicate submission, returning stored order",
			"checkout_id", s.CheckoutID, "order_id", existing.ID)
		return existing, nil
	}
	if err != nil {
		g.log.ErrorContext(ctx, "order write failed", "checkout_id", s.CheckoutID, "error", err)
		return nil, &PersistenceError{Err: err}
	}

	g.log.InfoContext(ctx, "order placed",
		"order_id", order.ID,
		"checkout_id", order.CheckoutID,
		"payment_method", order.PaymentMethod,
		"total", order.Total)
	return order, nil
}

func validate(s Submission) error {
	if len(s.Items) == 0 {
		return ErrEmptyOrder
	}
	switch s.PaymentMethod {
	case domain.PaymentMethodOnline:
		if s.PaymentID == "" {
			return ErrPaymentIDRequired
		}
	case domain.PaymentMethodCOD:
		if s.PaymentID != "" {
			return ErrUnexpectedPaymentID
		}
	default:
		return ErrInvalidMethod
	}
	return nil
}

func buildOrder(s Submission, now time.Time) *domain.Order {
	items := make([]domain.OrderItem, 0, len(s.Items))
	for _, item := range domain.CloneItems(s.Items) {
		items = append(items, domain.OrderItemFromCart(item))
	}

	var paymentID *string
	if s.PaymentID != "" {
		id := s.PaymentID
		paymentID = &id
	}

	return &domain.Order{
		ID:                      uuid.NewString(),
		CheckoutID:              s.CheckoutID,
		CustomerID:              s.CustomerID,
		CustomerName:            s.Draft.Name,
		CustomerAddress:         s.Draft.Address,
		CustomerPincode:         s.Draft.Pincode,
		CustomerMobile:          s.Draft.Mobile,
		CustomerVillage:         s.Draft.Village,
		Items:                   items,
		Total:                   domain.CartTotal(s.Items),
		Status:                  domain.OrderStatusPending,
		CreatedAt:               now.UTC(),
		PaymentMethod:           s.PaymentMethod,
		PaymentID:               paymentID,
		CustomerHasViewedUpdate: true,
	}
}

func (g *Gateway) History(ctx context.Context, customerID string) ([]*domain.Order, error) {
	orders, err := g.repo.ListOrdersByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (g *Gateway) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return g.repo.GetOrderByID(ctx, orderID)
}

// AdvanceStatus moves an order along its delivery lifecycle on behalf of an admin or delivery actor.
func (g *Gateway) AdvanceStatus(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	order, err := g.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanAdvanceOrder(order.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalStatusChange, order.Status, to)
	}
	if err := g.repo.UpdateOrderStatus(ctx, orderID, order.Status, to); err != nil {
		return nil, err
	}
	order.Status = to
	order.CustomerHasViewedUpdate = false
	g.log.InfoContext(ctx, "order status advanced", "order_id", orderID, "status", to)
	return order, nil
}
