package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
)

// MCP methods whose failures are folded into the result.
const (
	methodCallTool     = "tools/call"
	methodReadResource = "resources/read"
)

// dispatchMiddleware tags every inbound request with an ID, logs it, and
// turns tools/call and resources/read failures (including the SDK's own
// unknown-tool and resource-not-found errors, and panics) into well-formed
// results.
func (s *Server) dispatchMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (result mcp.Result, err error) {
		requestID := uuid.NewString()
		start := time.Now()
		logger := s.logger.With(
			slog.String("request_id", requestID),
			slog.String("method", method))

		logger.Debug("MCP request received")

		defer func() {
			if r := recover(); r != nil {
				result = nil
				err = perrors.InternalError(fmt.Sprintf("panic handling %s: %v", method, r), nil)
			}

			if err != nil {
				if folded := s.fold(method, req, err, start); folded != nil {
					logger.Error("MCP request failed", perrors.FormatForLog(err)...)
					result, err = folded, nil
				}
			}

			logger.Debug("MCP request completed",
				slog.Duration("duration", time.Since(start)),
				slog.Bool("error", err != nil))
		}()

		return next(ctx, method, req)
	}
}

// fold converts err into a result for methods that report failures in-band.
// It returns nil for any other method.
func (s *Server) fold(method string, req mcp.Request, err error, start time.Time) mcp.Result {
	var pe *perrors.PaymentsError
	if !errors.As(err, &pe) {
		err = perrors.InternalError(err.Error(), err)
	}

	switch method {
	case methodCallTool:
		var name string
		if params, ok := req.GetParams().(*mcp.CallToolParamsRaw); ok && params != nil {
			name = params.Name
		}
		if _, known := s.tools[name]; !known {
			err = perrors.UnknownToolError(name)
		}
		s.record(method, name, 0, start, err)
		return toolErrorResult(MapError(err).Message)

	case methodReadResource:
		var uri string
		if params, ok := req.GetParams().(*mcp.ReadResourceParams); ok && params != nil {
			uri = params.URI
		}
		if _, known := s.resources[uri]; !known {
			err = perrors.UnknownResourceError(uri)
		}
		s.record(method, uri, 0, start, err)
		return errorContents(uri, err)
	}
	return nil
}
