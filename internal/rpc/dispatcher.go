package rpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/logging"
)

// ErrNoResponse may be returned by a tool handler to suppress the response
// line for its request.
var ErrNoResponse = errors.New("no response")

// ServerName is reported in serverInfo by initialize.
const ServerName = "tickrb-mcp-server"

// Dispatcher routes JSON-RPC requests to registered tools and resources.
type Dispatcher struct {
	registry *Registry
	version  string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics records one rpc request sample per handled line.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets the dispatcher logger. It must not write to the output
// stream.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher over a snapshot of registry. Later
// changes to registry are not visible to the dispatcher.
func NewDispatcher(registry *Registry, version string, opts ...Option) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	d := &Dispatcher{
		registry: registry.snapshot(),
		version:  version,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Serve reads requests from r line by line and writes responses to w until r
// is exhausted or ctx is cancelled. Each response is flushed before the next
// line is read. Reaching end of input returns nil.
func (d *Dispatcher) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if resp := d.HandleLine(ctx, line); resp != nil {
				if err := writeResponse(writer, resp); err != nil {
					return err
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				d.logger.Debug("input closed")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", readErr)
		}
	}
}

func writeResponse(w *bufio.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		// The result could not be encoded; report that instead.
		data, err = json.Marshal(newError(resp.ID, mcp.INTERNAL_ERROR, "Internal error", err.Error()))
		if err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush response: %w", err)
	}
	return nil
}

// HandleLine decodes one input line and handles it. A nil response means
// nothing is written for the line.
func (d *Dispatcher) HandleLine(ctx context.Context, line []byte) *Response {
	var raw any
	if err := json.Unmarshal(line, &raw); err != nil {
		d.logger.Warn("malformed request line", logging.Err(err))
		d.metrics.RecordRPCRequest(ctx, "", instrumentation.OutcomeError, 0)
		return newError(nil, mcp.PARSE_ERROR, "Parse error", err.Error())
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		d.logger.Warn("invalid request envelope", logging.Err(err))
		d.metrics.RecordRPCRequest(ctx, "", instrumentation.OutcomeError, 0)
		return newError(requestID(raw), mcp.INTERNAL_ERROR, "Internal error", err.Error())
	}

	return d.Handle(ctx, &req)
}

// requestID recovers the id of a request whose envelope did not decode.
func requestID(raw any) json.RawMessage {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	id, ok := obj["id"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(id)
	if err != nil {
		return nil
	}
	return data
}

// Handle routes a decoded request. Handler errors and panics are turned into
// internal errors carrying the request id.
func (d *Dispatcher) Handle(ctx context.Context, req *Request) (resp *Response) {
	ctx, span := instrumentation.StartRPCSpan(ctx, req.Method)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			d.logger.Error("request handler panicked", logging.Method(req.Method), logging.Err(err))
			resp = newError(req.ID, mcp.INTERNAL_ERROR, "Internal error", err.Error())
		}

		outcome := instrumentation.OutcomeResult
		if resp != nil && resp.Error != nil {
			outcome = instrumentation.OutcomeError
			instrumentation.SetSpanError(span, errors.New(resp.Error.Message))
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		d.metrics.RecordRPCRequest(ctx, req.Method, outcome, time.Since(start))
		span.End()
	}()

	result, rpcErr := d.route(ctx, req)
	switch {
	case rpcErr != nil && errors.Is(rpcErr, ErrNoResponse):
		return nil
	case rpcErr != nil:
		return d.errorResponse(req, rpcErr)
	default:
		return newResult(req.ID, result)
	}
}

// protocolError is a failure with a specific JSON-RPC code.
type protocolError struct {
	code    int
	message string
}

func (e *protocolError) Error() string {
	return e.message
}

func (d *Dispatcher) errorResponse(req *Request, err error) *Response {
	var perr *protocolError
	if errors.As(err, &perr) {
		d.logger.Debug("request rejected", logging.Method(req.Method), "code", perr.code, "reason", perr.message)
		return newError(req.ID, perr.code, perr.message, nil)
	}
	d.logger.Error("request failed", logging.Method(req.Method), logging.Err(err))
	return newError(req.ID, mcp.INTERNAL_ERROR, "Internal error", err.Error())
}

func (d *Dispatcher) route(ctx context.Context, req *Request) (any, error) {
	switch mcp.MCPMethod(req.Method) {
	case mcp.MethodInitialize:
		return d.initialize(), nil
	case mcp.MethodToolsList:
		return d.listTools(), nil
	case mcp.MethodToolsCall:
		return d.callTool(ctx, req.Params)
	case mcp.MethodResourcesList:
		return d.listResources(), nil
	case mcp.MethodResourcesRead:
		return d.readResource(ctx, req.Params)
	default:
		return nil, &protocolError{code: mcp.METHOD_NOT_FOUND, message: "Method not found"}
	}
}

func (d *Dispatcher) initialize() initializeResult {
	return initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: map[string]any{
			"tools":     map[string]any{},
			"resources": map[string]any{},
		},
		ServerInfo: mcp.Implementation{Name: ServerName, Version: d.version},
	}
}

func (d *Dispatcher) listTools() listToolsResult {
	tools := make([]toolDescriptor, 0, len(d.registry.tools))
	for _, entry := range d.registry.tools {
		tools = append(tools, toolDescriptor{
			Name:        entry.tool.Name,
			Description: entry.tool.Description,
			InputSchema: entry.tool.InputSchema,
		})
	}
	return listToolsResult{Tools: tools}
}

func (d *Dispatcher) callTool(ctx context.Context, rawParams json.RawMessage) (any, error) {
	var params callToolParams
	if err := decodeParams(rawParams, &params); err != nil {
		return nil, err
	}

	entry, ok := d.registry.findTool(params.Name)
	if !ok {
		return nil, &protocolError{code: mcp.INVALID_PARAMS, message: "Tool not found: " + params.Name}
	}

	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}

	d.logger.Debug("calling tool", logging.Tool(params.Name))
	result, err := entry.handler(ctx, args)
	if err != nil {
		return nil, err
	}

	text, err := resultText(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result of tool %s: %w", params.Name, err)
	}
	return callToolResult{Content: []mcp.TextContent{mcp.NewTextContent(text)}}, nil
}

// resultText passes strings through and JSON encodes everything else.
func resultText(result any) (string, error) {
	if s, ok := result.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (d *Dispatcher) listResources() listResourcesResult {
	resources := make([]resourceDescriptor, 0, len(d.registry.resources))
	for _, entry := range d.registry.resources {
		resources = append(resources, resourceDescriptor{
			URI:         entry.resource.URI,
			Name:        entry.resource.Name,
			Description: entry.resource.Description,
			MIMEType:    entry.resource.MIMEType,
		})
	}
	return listResourcesResult{Resources: resources}
}

func (d *Dispatcher) readResource(ctx context.Context, rawParams json.RawMessage) (any, error) {
	var params readResourceParams
	if err := decodeParams(rawParams, &params); err != nil {
		return nil, err
	}

	entry, ok := d.registry.findResource(params.URI)
	if !ok {
		return nil, &protocolError{code: mcp.INVALID_PARAMS, message: "Resource not found: " + params.URI}
	}

	text, err := entry.handler(ctx)
	if err != nil {
		return nil, err
	}

	mimeType := entry.resource.MIMEType
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return readResourceResult{
		Contents: []mcp.TextResourceContents{{
			URI:      entry.resource.URI,
			MIMEType: mimeType,
			Text:     text,
		}},
	}, nil
}

// decodeParams decodes request params. Absent or null params decode to the
// zero value.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
