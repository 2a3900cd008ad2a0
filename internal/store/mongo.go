package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoConnector dials MongoDB once per Connect call.
type MongoConnector struct {
	uri                    string
	serverSelectionTimeout time.Duration
}

// NewMongoConnector creates a connector for uri. A zero
// serverSelectionTimeout keeps the driver default.
func NewMongoConnector(uri string, serverSelectionTimeout time.Duration) *MongoConnector {
	return &MongoConnector{
		uri:                    uri,
		serverSelectionTimeout: serverSelectionTimeout,
	}
}

// Connect creates a new client. The driver connects lazily, so
// unreachable servers surface on the first operation.
func (c *MongoConnector) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(c.uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	if c.serverSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(c.serverSelectionTimeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return &mongoConn{client: client}, nil
}

type mongoConn struct {
	client *mongo.Client
}

func (c *mongoConn) Find(ctx context.Context, ns Namespace, filter Filter) ([]Payment, error) {
	coll := c.client.Database(ns.Database).Collection(ns.Collection)

	cursor, err := coll.Find(ctx, filter.Document())
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", ns, err)
	}

	payments := make([]Payment, 0)
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("read cursor for %s: %w", ns, err)
	}
	return payments, nil
}

func (c *mongoConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *mongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

var (
	_ Connector = (*MongoConnector)(nil)
	_ Conn      = (*mongoConn)(nil)
)
