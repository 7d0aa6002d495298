package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const DefaultMongoDatabase = "blog-app"

// NewMongoClient connects to the given mongodb:// uri and returns the client
// together with the database named in the uri path.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, *mongo.Database, error) {
	dbName, err := MongoDatabaseName(uri)
	if err != nil {
		return nil, nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, client.Database(dbName), nil
}

func MongoDatabaseName(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongo uri: %w", err)
	}
	dbName := strings.Trim(u.Path, "/")
	if dbName == "" {
		return DefaultMongoDatabase, nil
	}
	return dbName, nil
}
