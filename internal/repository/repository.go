package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ramukaka/market/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateCheckout = errors.New("order for this checkout already exists")
	ErrDuplicatePayment  = errors.New("payment already used by another order")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrUserNotFound      = errors.New("user not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

// OrderRepository is create-and-read from the checkout side. Only UpdateOrderStatus mutates,
// and it is reserved for the admin and delivery actors.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error)
	ListOrdersByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error
}

type UserRepository interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

const EventOrderPlaced = "order.placed"

type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

// OrderPlacedPayload is the event body consumed by the admin and delivery panels.
type OrderPlacedPayload struct {
	OrderID       string               `json:"order_id"`
	CheckoutID    string               `json:"checkout_id"`
	CustomerID    string               `json:"customer_id"`
	Pincode       string               `json:"pincode"`
	Total         float64              `json:"total"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Items         []domain.OrderItem   `json:"items"`
	CreatedAt     time.Time            `json:"created_at"`
}

func NewOrderPlacedPayload(order *domain.Order) OrderPlacedPayload {
	return OrderPlacedPayload{
		OrderID:       order.ID,
		CheckoutID:    order.CheckoutID,
		CustomerID:    order.CustomerID,
		Pincode:       order.CustomerPincode,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Items:         order.Items,
		CreatedAt:     order.CreatedAt,
	}
}
