package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ramukaka/market/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations/postgres",
	}

	repo, err := NewPostgresRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(checkoutID string, paymentID *string) *domain.Order {
	method := domain.PaymentMethodCOD
	if paymentID != nil {
		method = domain.PaymentMethodOnline
	}
	discount := 40.0
	return &domain.Order{
		ID:              uuid.NewString(),
		CheckoutID:      checkoutID,
		CustomerID:      "user-123",
		CustomerName:    "Ramu",
		CustomerAddress: "Near temple",
		CustomerPincode: "411001",
		CustomerMobile:  "9999999999",
		CustomerVillage: "Wadi",
		Items: []domain.OrderItem{
			{ID: "p1", Name: "Atta", Price: 50, DiscountPrice: &discount, Unit: "kg", UnitQuantity: 5, Quantity: 2},
			{ID: "p2", Name: "Dal", Price: 20, Unit: "kg", UnitQuantity: 1, Quantity: 1},
		},
		Total:                   100,
		Status:                  domain.OrderStatusPending,
		CreatedAt:               time.Now().UTC().Truncate(time.Microsecond),
		PaymentMethod:           method,
		PaymentID:               paymentID,
		CustomerHasViewedUpdate: true,
	}
}

func TestPostgresCreateOrder_Success(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder(uuid.NewString(), nil)

	require.NoError(t, repo.CreateOrder(ctx, order))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.CheckoutID, fetched.CheckoutID)
	assert.Equal(t, order.Total, fetched.Total)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)
	assert.Equal(t, domain.PaymentMethodCOD, fetched.PaymentMethod)
	assert.Nil(t, fetched.PaymentID)
	assert.True(t, fetched.CustomerHasViewedUpdate)
	require.Len(t, fetched.Items, 2)
	assert.Equal(t, 40.0, *fetched.Items[0].DiscountPrice)
	assert.True(t, order.CreatedAt.Equal(fetched.CreatedAt))

	byCheckout, err := repo.GetOrderByCheckoutID(ctx, order.CheckoutID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byCheckout.ID)
}

func TestPostgresCreateOrder_WritesOutboxEvent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder(uuid.NewString(), nil)
	require.NoError(t, repo.CreateOrder(ctx, order))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateId)
	assert.Equal(t, EventOrderPlaced, events[0].EventType)

	var payload OrderPlacedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, order.CheckoutID, payload.CheckoutID)
	assert.Equal(t, "411001", payload.Pincode)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPostgresCreateOrder_DuplicateCheckout(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	checkoutID := uuid.NewString()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(checkoutID, nil)))
	err := repo.CreateOrder(ctx, newTestOrder(checkoutID, nil))
	assert.ErrorIs(t, err, ErrDuplicateCheckout)

	// the failed insert must not leave an outbox row behind
	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPostgresCreateOrder_DuplicatePayment(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	paymentID := "pay_123"

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(uuid.NewString(), &paymentID)))
	err := repo.CreateOrder(ctx, newTestOrder(uuid.NewString(), &paymentID))
	assert.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestPostgresGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresListOrdersByCustomerID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first := newTestOrder(uuid.NewString(), nil)
	second := newTestOrder(uuid.NewString(), nil)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.CreateOrder(ctx, first))
	require.NoError(t, repo.CreateOrder(ctx, second))

	orders, err := repo.ListOrdersByCustomerID(ctx, "user-123")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	none, err := repo.ListOrdersByCustomerID(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPostgresUpdateOrderStatus(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder(uuid.NewString(), nil)
	require.NoError(t, repo.CreateOrder(ctx, order))

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusAssigned))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusAssigned, fetched.Status)
	assert.False(t, fetched.CustomerHasViewedUpdate)

	err = repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrStatusConflict)

	err = repo.UpdateOrderStatus(ctx, uuid.NewString(), domain.OrderStatusPending, domain.OrderStatusAssigned)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
