package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/tickmcp/internal/instrumentation"
	"github.com/teemow/tickmcp/internal/server"
)

type fakeOutcome struct {
	err string
}

func (f fakeOutcome) FailureMessage() string { return f.err }

func newAuditedContext(t *testing.T) (*server.ServerContext, *bytes.Buffer) {
	t.Helper()

	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := instrumentation.NewMetrics(meter)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, nil))
	sc := server.NewServerContext(context.Background(), nil,
		server.WithMetrics(metrics),
		server.WithAuditLogger(instrumentation.NewAuditLogger(logger)),
	)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, buf
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	ctx := context.Background()

	// A context without metrics or audit logger
	sc := server.NewServerContext(ctx, nil)
	defer sc.Shutdown()

	called := false
	handler := func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		called = true
		return "success", nil
	}

	wrapped := InstrumentedToolHandler("test_tool", sc, handler)
	result, err := wrapped(ctx, map[string]interface{}{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
	if result != "success" {
		t.Errorf("expected result to pass through, got %v", result)
	}
}

func TestInstrumentedToolHandler_Error(t *testing.T) {
	sc, buf := newAuditedContext(t)

	expectedErr := errors.New("test error")
	handler := func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return nil, expectedErr
	}

	_, err := InstrumentedToolHandler("test_tool", sc, handler)(context.Background(), nil)

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	if !strings.Contains(buf.String(), "tool_failed") {
		t.Errorf("expected tool_failed audit line, got %q", buf.String())
	}
}

func TestInstrumentedToolHandler_FailureResult(t *testing.T) {
	sc, buf := newAuditedContext(t)

	handler := func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return fakeOutcome{err: "API Error"}, nil
	}

	result, err := InstrumentedToolHandler("list_tasks", sc, handler)(context.Background(), map[string]interface{}{})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if _, ok := result.(fakeOutcome); !ok {
		t.Errorf("expected result to pass through, got %T", result)
	}
	out := buf.String()
	if !strings.Contains(out, "tool_failed") || !strings.Contains(out, "API Error") {
		t.Errorf("expected failure audit line, got %q", out)
	}
}

func TestInstrumentedToolHandler_SuccessResultAudited(t *testing.T) {
	sc, buf := newAuditedContext(t)

	handler := func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		// Simulate some work
		time.Sleep(time.Millisecond)
		return fakeOutcome{}, nil
	}

	_, err := InstrumentedToolHandler("list_projects", sc, handler)(context.Background(), map[string]interface{}{"title": "secret"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "tool_executed") || !strings.Contains(out, "tool=list_projects") {
		t.Errorf("expected success audit line, got %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Errorf("argument values must not be logged, got %q", out)
	}
}
