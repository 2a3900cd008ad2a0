package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
	"github.com/nextapp/paymentsmcp/internal/store"
)

// Resource URIs.
const (
	ResourcePaymentsDone = "payments://done"
)

// JSONMIMEType is the MIME type of every payment resource.
const JSONMIMEType = "application/json"

// resourceDescriptor binds a resource URI to the query backing it.
type resourceDescriptor struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Filter      store.Filter
}

// paymentResources is the resource registry, in listing order.
var paymentResources = []resourceDescriptor{
	{
		URI:         ResourcePaymentsDone,
		Name:        "payments-done",
		Description: "Payments with done=true",
		MIMEType:    JSONMIMEType,
		Filter:      store.FilterDone,
	},
}

func (s *Server) registerResources() {
	for _, d := range s.resourceOrder {
		s.mcp.AddResource(&mcp.Resource{
			URI:         d.URI,
			Name:        d.Name,
			Description: d.Description,
			MIMEType:    d.MIMEType,
		}, s.mcpResourceHandler(d))
		s.logger.Debug("Registered resource", slog.String("uri", d.URI))
	}

	s.logger.Info("MCP resources registered", slog.Int("count", len(s.resourceOrder)))
}

func (s *Server) mcpResourceHandler(d resourceDescriptor) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return s.readResource(ctx, d), nil
	}
}

// ListResources returns the registered resources in registration order.
func (s *Server) ListResources() []ResourceInfo {
	resources := make([]ResourceInfo, 0, len(s.resourceOrder))
	for _, d := range s.resourceOrder {
		resources = append(resources, ResourceInfo{
			URI:         d.URI,
			Name:        d.Name,
			Description: d.Description,
			MIMEType:    d.MIMEType,
		})
	}
	return resources
}

// ReadResource fetches the resource at uri. Failures, including unknown
// URIs, are returned as a JSON error payload in the contents.
func (s *Server) ReadResource(ctx context.Context, uri string) *mcp.ReadResourceResult {
	d, ok := s.resources[uri]
	if !ok {
		err := perrors.UnknownResourceError(uri)
		s.logger.Warn("Unknown resource requested", perrors.FormatForLog(err)...)
		s.record(methodReadResource, uri, 0, time.Now(), err)
		return errorContents(uri, err)
	}
	return s.readResource(ctx, d)
}

func (s *Server) readResource(ctx context.Context, d resourceDescriptor) *mcp.ReadResourceResult {
	start := time.Now()
	payments, err := s.payments.FetchPayments(ctx, d.Filter)
	s.record(methodReadResource, d.URI, len(payments), start, err)
	if err != nil {
		return errorContents(d.URI, err)
	}

	text, err := FormatPaymentsJSON(payments)
	if err != nil {
		s.logger.Error("Failed to format resource",
			slog.String("uri", d.URI),
			slog.String("error", err.Error()))
		return errorContents(d.URI, perrors.InternalError(err.Error(), err))
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      d.URI,
			MIMEType: d.MIMEType,
			Text:     text,
		}},
	}
}

func errorContents(uri string, err error) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: JSONMIMEType,
			Text:     NewErrorPayload(err).JSON(),
		}},
	}
}
