package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
	"github.com/nextapp/paymentsmcp/internal/store"
	"github.com/nextapp/paymentsmcp/internal/telemetry"
	"github.com/nextapp/paymentsmcp/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "NextApp Payments Resource"

// PaymentFetcher runs payment queries. *store.Gateway implements it.
type PaymentFetcher interface {
	FetchPayments(ctx context.Context, filter store.Filter) ([]store.Payment, error)
}

// Server is the MCP server for paymentsmcp.
// It maps tool calls and resource reads onto payment queries.
type Server struct {
	mcp      *mcp.Server
	payments PaymentFetcher
	logger   *slog.Logger
	metrics  *telemetry.RequestMetrics

	tools         map[string]toolDescriptor
	toolOrder     []toolDescriptor
	resources     map[string]resourceDescriptor
	resourceOrder []resourceDescriptor
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// ResourceInfo contains information about a resource.
type ResourceInfo struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the request metrics collector. Defaults to a fresh one.
func WithMetrics(m *telemetry.RequestMetrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer creates a new MCP server backed by payments.
func NewServer(payments PaymentFetcher, opts ...Option) (*Server, error) {
	if payments == nil {
		return nil, errors.New("payment store is required")
	}

	s := &Server{
		payments: payments,
		logger:   slog.Default(),
		metrics:  telemetry.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.loadRegistries(paymentTools, paymentResources); err != nil {
		return nil, err
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools/resources
	)
	s.mcp.AddReceivingMiddleware(s.dispatchMiddleware)

	s.registerTools()
	s.registerResources()

	return s, nil
}

// loadRegistries indexes the descriptors, rejecting duplicate names and URIs.
func (s *Server) loadRegistries(tools []toolDescriptor, resources []resourceDescriptor) error {
	s.tools = make(map[string]toolDescriptor, len(tools))
	for _, d := range tools {
		if _, dup := s.tools[d.Name]; dup {
			return fmt.Errorf("duplicate tool name: %s", d.Name)
		}
		s.tools[d.Name] = d
		s.toolOrder = append(s.toolOrder, d)
	}

	s.resources = make(map[string]resourceDescriptor, len(resources))
	for _, d := range resources {
		if _, dup := s.resources[d.URI]; dup {
			return fmt.Errorf("duplicate resource URI: %s", d.URI)
		}
		s.resources[d.URI] = d
		s.resourceOrder = append(s.resourceOrder, d)
	}
	return nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Metrics returns a snapshot of the requests served so far.
func (s *Server) Metrics() *telemetry.Snapshot {
	return s.metrics.Snapshot()
}

// Info returns the implementation name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// Serve runs the server on the named transport until ctx is done or the
// client disconnects. Only stdio is supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch strings.ToLower(transport) {
	case "stdio", "":
		s.logger.Debug("Using stdio transport for JSON-RPC")
		return s.ServeTransport(ctx, &mcp.StdioTransport{})
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// ServeTransport connects to t and blocks until the session ends.
func (s *Server) ServeTransport(ctx context.Context, t mcp.Transport) error {
	session, err := s.mcp.Connect(ctx, t, nil)
	if err != nil {
		s.logger.Error("Server error", slog.String("error", err.Error()))
		return fmt.Errorf("failed to connect transport: %w", err)
	}

	s.logger.Info("MCP server started",
		slog.String("name", ServerName),
		slog.String("version", version.Version))

	stop := context.AfterFunc(ctx, func() { _ = session.Close() })
	defer stop()

	err = session.Wait()
	summary := s.metrics.Snapshot().LogAttrs()
	if ctx.Err() != nil || err == nil || isDisconnect(err) {
		s.logger.Info("MCP server stopped gracefully", summary...)
		return nil
	}

	s.logger.Error("MCP server stopped with error",
		append(summary, slog.String("error", err.Error()))...)
	return err
}

// JSON-RPC codes the SDK reports when the stream ends under a pending call.
const (
	codeClientClosing = -32003
	codeServerClosing = -32004
)

// isDisconnect reports whether err only means the client went away, such
// as stdin reaching EOF while the session is still starting.
func isDisconnect(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, mcp.ErrConnectionClosed) {
		return true
	}
	var wire *jsonrpc.Error
	return errors.As(err, &wire) &&
		(wire.Code == codeClientClosing || wire.Code == codeServerClosing)
}

// record adds one dispatch to the request metrics.
func (s *Server) record(method, target string, count int, start time.Time, err error) {
	event := telemetry.RequestEvent{
		Method:      method,
		Target:      target,
		ResultCount: count,
		Latency:     time.Since(start),
	}
	if err != nil {
		event.ErrorCode = perrors.GetCode(err)
		if event.ErrorCode == "" {
			event.ErrorCode = perrors.ErrCodeInternal
		}
	}
	s.metrics.Record(event)
}
