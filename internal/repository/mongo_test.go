package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ramukaka/market/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestMongo(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoOptions{URI: uri, Database: "testdb", Timeout: 10 * time.Second})
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func TestMongoClientOptions(t *testing.T) {
	opts := mongoClientOptions(MongoOptions{URI: "mongodb://localhost:27017"})

	require.NotNil(t, opts.AppName)
	assert.Equal(t, mongoAppName, *opts.AppName)
	require.NotNil(t, opts.MaxPoolSize)
	assert.Equal(t, uint64(20), *opts.MaxPoolSize)
	require.NotNil(t, opts.ServerSelectionTimeout)
	assert.Equal(t, 5*time.Second, *opts.ServerSelectionTimeout)
	require.NotNil(t, opts.RetryWrites)
	assert.True(t, *opts.RetryWrites)
	require.NotNil(t, opts.WriteConcern)
	assert.Equal(t, "majority", opts.WriteConcern.W)

	opts = mongoClientOptions(MongoOptions{URI: "mongodb://localhost:27017", Timeout: time.Second, MaxPoolSize: 64})
	assert.Equal(t, uint64(64), *opts.MaxPoolSize)
	assert.Equal(t, 2*time.Second, *opts.ConnectTimeout)
}

func TestMongoUsers_GetProfile(t *testing.T) {
	db, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()
	_, err := db.Collection("users").InsertOne(ctx, bson.M{
		"_id":     "u1",
		"name":    "Sita",
		"mobile":  "9876543210",
		"pincode": "411001",
		"roles": bson.M{
			"admin":    false,
			"delivery": bson.M{"pincodes": bson.A{"411001", "411002"}},
			"founder":  true,
		},
	})
	require.NoError(t, err)

	repo := NewMongoUserRepository(db)
	profile, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, "Sita", profile.Name)
	assert.Equal(t, "411001", profile.Pincode)
	assert.False(t, profile.Roles.Has(domain.RoleAdmin))
	d, ok := profile.Roles.Delivery()
	require.True(t, ok)
	assert.Equal(t, []string{"411001", "411002"}, d.Pincodes)
	assert.Equal(t, "/delivery", profile.Roles.Panel())
}

func TestMongoUsers_NotFound(t *testing.T) {
	db, cleanup := setupTestMongo(t)
	defer cleanup()

	_, err := NewMongoUserRepository(db).GetProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMongoOrders_CreateAndQuery(t *testing.T) {
	db, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	first := newTestOrder(uuid.NewString(), nil)
	first.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	second := newTestOrder(uuid.NewString(), nil)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repo.CreateOrder(ctx, first))
	require.NoError(t, repo.CreateOrder(ctx, second))

	fetched, err := repo.GetOrderByCheckoutID(ctx, first.CheckoutID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, fetched.ID)
	assert.Equal(t, 100.0, fetched.Total)
	assert.Nil(t, fetched.PaymentID)

	orders, err := repo.ListOrdersByCustomerID(ctx, "user-123")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)

	_, err = repo.GetOrderByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMongoOrders_Duplicates(t *testing.T) {
	db, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	checkoutID := uuid.NewString()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(checkoutID, nil)))
	assert.ErrorIs(t, repo.CreateOrder(ctx, newTestOrder(checkoutID, nil)), ErrDuplicateCheckout)

	// COD orders carry no payment id; the partial index must not collide on them
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(uuid.NewString(), nil)))

	paymentID := "pay_1"
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(uuid.NewString(), &paymentID)))
	assert.ErrorIs(t, repo.CreateOrder(ctx, newTestOrder(uuid.NewString(), &paymentID)), ErrDuplicatePayment)
}

func TestMongoOrders_UpdateStatus(t *testing.T) {
	db, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	order := newTestOrder(uuid.NewString(), nil)
	require.NoError(t, repo.CreateOrder(ctx, order))

	require.NoError(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusAssigned))
	assert.ErrorIs(t, repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusAssigned), ErrStatusConflict)
	assert.ErrorIs(t, repo.UpdateOrderStatus(ctx, "missing", domain.OrderStatusPending, domain.OrderStatusAssigned), ErrOrderNotFound)
}
