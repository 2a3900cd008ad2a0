package store

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
)

// Gateway runs payment queries, one connection per call.
type Gateway struct {
	connector Connector
	ns        Namespace
	logger    *slog.Logger

	// sem admits one query at a time. The MCP SDK may dispatch requests
	// concurrently.
	sem *semaphore.Weighted
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a gateway querying ns through connector.
func NewGateway(connector Connector, ns Namespace, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		connector: connector,
		ns:        ns,
		logger:    slog.Default(),
		sem:       semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Namespace returns the database and collection queried.
func (g *Gateway) Namespace() Namespace {
	return g.ns
}

// FetchPayments returns every payment matching filter.
//
// A fresh connection is opened for the call and closed before returning,
// whatever the outcome. Failures to close are logged and never replace the
// query result. Connectivity and query failures are returned as
// ERR_301_STORE_UNAVAILABLE. An empty collection yields an empty, non-nil
// slice.
func (g *Gateway) FetchPayments(ctx context.Context, filter Filter) (payments []Payment, err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, g.fail(filter, err)
	}
	defer g.sem.Release(1)

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return nil, g.fail(filter, err)
	}
	defer g.release(ctx, conn)

	g.logger.Debug("Querying payments",
		slog.String("namespace", g.ns.String()),
		slog.String("filter", filter.String()))

	payments, err = conn.Find(ctx, g.ns, filter)
	if err != nil {
		return nil, g.fail(filter, err)
	}
	if payments == nil {
		payments = make([]Payment, 0)
	}

	g.logger.Info(fmt.Sprintf("Found %d %s", len(payments), filter.Description()),
		slog.Int("count", len(payments)),
		slog.String("filter", filter.String()),
		slog.String("namespace", g.ns.String()))

	return payments, nil
}

// Ping opens a connection, pings the server and closes it again.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return perrors.StoreError(err.Error(), err)
	}
	defer g.sem.Release(1)

	conn, err := g.connector.Connect(ctx)
	if err != nil {
		return perrors.StoreError(err.Error(), err)
	}
	defer g.release(ctx, conn)

	if err := conn.Ping(ctx); err != nil {
		return perrors.StoreError(err.Error(), err)
	}
	return nil
}

func (g *Gateway) fail(filter Filter, err error) error {
	storeErr := perrors.StoreError(err.Error(), err).
		WithDetail("namespace", g.ns.String()).
		WithDetail("filter", filter.String())

	g.logger.Error("MongoDB Error", perrors.FormatForLog(storeErr)...)
	return storeErr
}

// release closes conn, ignoring cancellation of ctx.
func (g *Gateway) release(ctx context.Context, conn Conn) {
	if err := conn.Close(context.WithoutCancel(ctx)); err != nil {
		g.logger.Error("Error closing MongoDB connection",
			perrors.FormatForLog(perrors.ConnectionCloseError(err))...)
	}
}
