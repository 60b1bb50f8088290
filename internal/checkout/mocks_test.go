package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ramukaka/market/internal/domain"
	"github.com/ramukaka/market/internal/orders"
	"github.com/ramukaka/market/internal/payment"
	"github.com/ramukaka/market/internal/repository"
)

// memOrders implements repository.OrderRepository for testing
type memOrders struct {
	mu        sync.Mutex
	orders    []*domain.Order
	createErr error
	creates   int
}

func (m *memOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	for _, o := range m.orders {
		if o.CheckoutID == order.CheckoutID {
			return repository.ErrDuplicateCheckout
		}
		if o.PaymentID != nil && order.PaymentID != nil && *o.PaymentID == *order.PaymentID {
			return repository.ErrDuplicatePayment
		}
	}
	m.orders = append(m.orders, order)
	return nil
}

func (m *memOrders) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrders) GetOrderByCheckoutID(_ context.Context, checkoutID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.CheckoutID == checkoutID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *memOrders) ListOrdersByCustomerID(_ context.Context, customerID string) ([]*domain.Order, error) {
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

func (m *memOrders) UpdateOrderStatus(context.Context, string, domain.OrderStatus, domain.OrderStatus) error {
	return errors.New("not supported")
}

func (m *memOrders) stored() []*domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Order(nil), m.orders...)
}

func (m *memOrders) setCreateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// gatedSubmitter holds every submission until release is closed.
type gatedSubmitter struct {
	next    Submitter
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func newGatedSubmitter(next Submitter) *gatedSubmitter {
	return &gatedSubmitter{next: next, entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gatedSubmitter) Submit(ctx context.Context, s orders.Submission) (*domain.Order, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.entered <- struct{}{}
	<-g.release
	return g.next.Submit(ctx, s)
}

// lostAckSubmitter commits the first submission but reports it as failed.
type lostAckSubmitter struct {
	next  Submitter
	mu    sync.Mutex
	calls int
}

func (l *lostAckSubmitter) Submit(ctx context.Context, s orders.Submission) (*domain.Order, error) {
	order, err := l.next.Submit(ctx, s)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls == 1 && err == nil {
		return nil, &orders.PersistenceError{Err: errors.New("context deadline exceeded")}
	}
	return order, err
}

type fakeProfiles struct {
	mu       sync.Mutex
	profile  domain.Profile
	resolves int
	saved    []domain.Profile
}

func (f *fakeProfiles) Resolve(context.Context) domain.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	return f.profile
}

func (f *fakeProfiles) SaveLocal(_ context.Context, p domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, p)
	return nil
}

type fakeTokens struct {
	mu    sync.Mutex
	err   error
	calls int
	next  int
}

func (f *fakeTokens) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.GatewayOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.next++
	return &payment.GatewayOrder{ID: fmt.Sprintf("order_%d", f.next), Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (f *fakeTokens) PublicKey(context.Context) (string, error) {
	return "rzp_test_key", nil
}

func (f *fakeTokens) initiations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
