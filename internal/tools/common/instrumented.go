package common

import (
	"context"
	"errors"

	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/rpc"
	"github.com/teemow/tickmcp/internal/server"
)

// Outcome is implemented by tool results that can carry a failure reported
// to the host as a normal result.
type Outcome interface {
	// FailureMessage returns the reported error, or "" on success.
	FailureMessage() string
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics and audit
// logging. Both returned errors and failure results count as errors.
//
// Usage:
//
//	reg.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler rpc.ToolHandler) rpc.ToolHandler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithArguments(args)

		result, err := handler(ctx, args)

		switch {
		case err != nil:
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case failureMessage(result) != "":
			msg := failureMessage(result)
			invocation.Complete(false, msg)
			instrumentation.SetSpanError(span, errors.New(msg))
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}

		metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.Duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

func failureMessage(result any) string {
	if outcome, ok := result.(Outcome); ok {
		return outcome.FailureMessage()
	}
	return ""
}
