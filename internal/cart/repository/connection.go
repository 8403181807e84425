package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const pingTimeout = 5 * time.Second

// ConnectMongoDB returns the cart database once the primary answers a ping.
// Writes use majority acknowledgement.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetAppName("storefront-cart").
		SetRetryWrites(true).
		SetServerSelectionTimeout(pingTimeout).
		SetMaxPoolSize(50).
		SetMaxConnIdleTime(5*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb primary: %w", err)
	}

	return client.Database(database, options.Database().SetWriteConcern(writeconcern.Majority())), nil
}
