package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository implements repository.OrderRepository for testing
type MockOrderRepository struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	CreateErr   error
	CreateCalls int
	UpdateErr   error
	lastCtxErr  error
}

func newMockRepo() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[string]*domain.Order)}
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	m.lastCtxErr = ctx.Err()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, o := range m.orders {
		if o.CheckoutID == order.CheckoutID {
			return repository.ErrDuplicateCheckout
		}
	}
	m.orders[order.ID] = order
	return nil
}

func (m *MockOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (m *MockOrderRepository) GetOrderByCheckoutID(_ context.Context, checkoutID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CheckoutID == checkoutID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrderRepository) ListOrdersByCustomerID(_ context.Context, customerID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) UpdateOrderStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func price(v float64) *float64 { return &v }

func validSubmission() Submission {
	rating := 4.8
	return Submission{
		CustomerID: "u1",
		CheckoutID: "chk-1",
		Draft: domain.OrderDraft{
			Name: "Ramu", Mobile: "9999999999", Address: "Near temple", Pincode: "411001", Village: "Wadi",
			PaymentMethod: domain.PaymentMethodCOD,
		},
		Items: []domain.CartItem{
			{ID: "p1", Name: "Atta", Price: 50, DiscountPrice: price(40), Quantity: 2, Rating: &rating, Keywords: []string{"flour", "wheat"}},
			{ID: "p2", Name: "Dal", Price: 20, Quantity: 1},
		},
		PaymentMethod: domain.PaymentMethodCOD,
	}
}

func TestSubmit_COD(t *testing.T) {
	repo := newMockRepo()
	g := NewGateway(repo, time.Second, nil)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	order, err := g.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.CreateCalls)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentMethodCOD, order.PaymentMethod)
	assert.Nil(t, order.PaymentID)
	assert.True(t, order.CustomerHasViewedUpdate)
	assert.Equal(t, 100.0, order.Total)
	assert.Equal(t, fixed, order.CreatedAt)
	assert.Equal(t, "Ramu", order.CustomerName)
	assert.Equal(t, "411001", order.CustomerPincode)
	assert.Equal(t, "chk-1", order.CheckoutID)
	assert.NotEmpty(t, order.ID)

	raw, err := json.Marshal(order.Items)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "rating")
	assert.NotContains(t, string(raw), "keywords")

	stored, err := repo.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Total, stored.Total)
}

func TestSubmit_Online(t *testing.T) {
	g := NewGateway(newMockRepo(), time.Second, nil)
	s := validSubmission()
	s.PaymentMethod = domain.PaymentMethodOnline
	s.PaymentID = "pay_abc"

	order, err := g.Submit(context.Background(), s)
	require.NoError(t, err)

	require.NotNil(t, order.PaymentID)
	assert.Equal(t, "pay_abc", *order.PaymentID)
	assert.Equal(t, domain.PaymentMethodOnline, order.PaymentMethod)
}

func TestSubmit_Validation(t *testing.T) {
	repo := newMockRepo()
	g := NewGateway(repo, time.Second, nil)

	s := validSubmission()
	s.Items = nil
	_, err := g.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	s = validSubmission()
	s.PaymentMethod = domain.PaymentMethodOnline
	_, err = g.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrPaymentIDRequired)

	s = validSubmission()
	s.PaymentID = "pay_x"
	_, err = g.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrUnexpectedPaymentID)

	s = validSubmission()
	s.PaymentMethod = "UPI"
	_, err = g.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrInvalidMethod)

	assert.Equal(t, 0, repo.CreateCalls)
}

func TestSubmit_WriteFailureIsPersistenceError(t *testing.T) {
	repo := newMockRepo()
	repo.CreateErr = errors.New("connection reset")
	g := NewGateway(repo, time.Second, nil)

	order, err := g.Submit(context.Background(), validSubmission())

	assert.Nil(t, order)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorContains(t, err, "connection reset")
}

func TestSubmit_DuplicateCheckoutReturnsStoredOrder(t *testing.T) {
	repo := newMockRepo()
	g := NewGateway(repo, time.Second, nil)

	first, err := g.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	second, err := g.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	orders, _ := repo.ListOrdersByCustomerID(context.Background(), "u1")
	assert.Len(t, orders, 1)
}

func TestSubmit_IgnoresCallerCancellation(t *testing.T) {
	repo := newMockRepo()
	g := NewGateway(repo, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Submit(ctx, validSubmission())

	require.NoError(t, err)
	assert.NoError(t, repo.lastCtxErr)
}

func TestAdvanceStatus(t *testing.T) {
	repo := newMockRepo()
	g := NewGateway(repo, time.Second, nil)
	order, err := g.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	updated, err := g.AdvanceStatus(context.Background(), order.ID, domain.OrderStatusAssigned)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusAssigned, updated.Status)
	assert.False(t, updated.CustomerHasViewedUpdate)

	_, err = g.AdvanceStatus(context.Background(), order.ID, domain.OrderStatusPending)
	assert.ErrorIs(t, err, ErrIllegalStatusChange)

	_, err = g.AdvanceStatus(context.Background(), "missing", domain.OrderStatusAssigned)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestHistory(t *testing.T) {
	g := NewGateway(newMockRepo(), time.Second, nil)
	_, err := g.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	orders, err := g.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	none, err := g.History(context.Background(), "u2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
