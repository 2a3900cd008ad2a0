package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	perrors "github.com/nextapp/paymentsmcp/internal/errors"
	"github.com/nextapp/paymentsmcp/internal/store"
)

// Tool names.
const (
	ToolGetCompletedPayments = "get_completed_payments"
	ToolGetAllPayments       = "get_all_payments"
)

// toolDescriptor binds a tool name to the query it runs.
type toolDescriptor struct {
	Name        string
	Description string
	// Summary completes "Found N ..." in the result text.
	Summary string
	Filter  store.Filter
}

// paymentTools is the tool registry, in listing order.
var paymentTools = []toolDescriptor{
	{
		Name:        ToolGetCompletedPayments,
		Description: "Get all payments that have been completed (done=true)",
		Summary:     "completed payments",
		Filter:      store.FilterDone,
	},
	{
		Name:        ToolGetAllPayments,
		Description: "Get all payments from the database",
		Summary:     "payments",
		Filter:      store.FilterAll,
	},
}

// PaymentsInput is the argument object of the payment tools. They take no
// parameters; anything sent is ignored.
type PaymentsInput map[string]any

// emptyObjectSchema accepts any object.
func emptyObjectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{},
	}
}

func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	for _, d := range s.toolOrder {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: emptyObjectSchema(),
		}, s.mcpToolHandler(d))
		s.logger.Debug("Registered tool", slog.String("name", d.Name))
	}

	s.logger.Info("MCP tools registered", slog.Int("count", len(s.toolOrder)))
}

func (s *Server) mcpToolHandler(d toolDescriptor) mcp.ToolHandlerFor[PaymentsInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ PaymentsInput) (*mcp.CallToolResult, any, error) {
		return s.invokeTool(ctx, d), nil, nil
	}
}

// ListTools returns the registered tools in registration order.
func (s *Server) ListTools() []ToolInfo {
	tools := make([]ToolInfo, 0, len(s.toolOrder))
	for _, d := range s.toolOrder {
		tools = append(tools, ToolInfo{Name: d.Name, Description: d.Description})
	}
	return tools
}

// CallTool invokes the named tool. Failures, including unknown names, are
// reported in the result with IsError set; CallTool itself never fails.
func (s *Server) CallTool(ctx context.Context, name string, _ map[string]any) *mcp.CallToolResult {
	d, ok := s.tools[name]
	if !ok {
		err := perrors.UnknownToolError(name)
		s.logger.Warn("Unknown tool requested", perrors.FormatForLog(err)...)
		s.record(methodCallTool, name, 0, time.Now(), err)
		return toolErrorResult(MapError(err).Message)
	}
	return s.invokeTool(ctx, d)
}

func (s *Server) invokeTool(ctx context.Context, d toolDescriptor) *mcp.CallToolResult {
	start := time.Now()
	payments, err := s.payments.FetchPayments(ctx, d.Filter)
	s.record(methodCallTool, d.Name, len(payments), start, err)
	if err != nil {
		return toolErrorResult("Error fetching " + d.Summary + ": " + errorMessage(err))
	}

	text, err := FormatPaymentsText(d.Summary, payments)
	if err != nil {
		s.logger.Error("Failed to format tool result",
			slog.String("tool", d.Name),
			slog.String("error", err.Error()))
		return toolErrorResult("Error formatting " + d.Summary + ": " + err.Error())
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolErrorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorMessage returns the message of a PaymentsError without its code
// prefix, or err.Error() for other errors.
func errorMessage(err error) string {
	var pe *perrors.PaymentsError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
