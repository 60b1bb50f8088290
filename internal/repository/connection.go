package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const mongoAppName = "ramukaka-market"

// MongoOptions configures the connection shared by the users and orders collections.
type MongoOptions struct {
	URI         string
	Database    string
	Timeout     time.Duration
	MaxPoolSize uint64
}

// mongoClientOptions applies defaults. Writes are acknowledged by a majority and retried
// once by the driver.
func mongoClientOptions(opts MongoOptions) *options.ClientOptions {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = 20
	}
	return options.Client().
		ApplyURI(opts.URI).
		SetAppName(mongoAppName).
		SetConnectTimeout(2 * opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())
}

func ConnectMongoDB(ctx context.Context, opts MongoOptions) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, mongoClientOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(opts.Database), nil
}
