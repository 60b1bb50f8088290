package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ramukaka/market/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection("orders")}
}

func (m *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "checkout_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "payment_id", Value: 1}},
			Options: options.Index().
				SetName(paymentIDIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"payment_id": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), paymentIDIndex) {
				return ErrDuplicatePayment
			}
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoOrderRepository) GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"checkout_id": checkoutID})
}

func (m *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *MongoOrderRepository) ListOrdersByCustomerID(ctx context.Context, customerID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"customer_id": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query orders by customer id: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (m *MongoOrderRepository) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) error {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "customer_has_viewed_update": false}}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := m.GetOrderByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}
