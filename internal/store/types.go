// Package store provides read-only access to the payments collection.
//
// Every query opens its own connection through a Connector and releases it
// before returning. Nothing is cached or pooled between requests.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Payment is a payment document as stored. Only the done field is
// interpreted, and only as a filter predicate.
type Payment = bson.M

// Filter selects which payments a query returns.
type Filter int

const (
	// FilterAll matches every payment.
	FilterAll Filter = iota
	// FilterDone matches payments with done == true.
	FilterDone
)

// String returns a human-readable description used in log lines.
func (f Filter) String() string {
	switch f {
	case FilterDone:
		return "done=true"
	default:
		return "all"
	}
}

// Description names the matched records, as in "Found 2 payments with done=true".
func (f Filter) Description() string {
	switch f {
	case FilterDone:
		return "payments with done=true"
	default:
		return "payments"
	}
}

// Document returns the query document for the filter.
func (f Filter) Document() bson.D {
	switch f {
	case FilterDone:
		return bson.D{{Key: "done", Value: true}}
	default:
		return bson.D{}
	}
}

// Namespace identifies the database and collection queried.
type Namespace struct {
	Database   string
	Collection string
}

// String returns "database.collection".
func (n Namespace) String() string {
	return n.Database + "." + n.Collection
}

// Connector opens a connection scoped to a single request.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a connection handle owned by one request.
// Close must be called exactly once.
type Conn interface {
	// Find runs one query and materializes the full result set.
	Find(ctx context.Context, ns Namespace, filter Filter) ([]Payment, error)

	// Ping checks that the server is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}
