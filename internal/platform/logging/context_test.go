package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]zap.Field {
	fields := make(map[string]zap.Field, len(entry.Context))
	for _, f := range entry.Context {
		fields[f.Key] = f
	}
	return fields
}

func TestTraceIDFromContext(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty trace ID, got %q", got)
	}
	ctx := contextWithTraceID(context.Background(), "trace-abc")
	if got := TraceIDFromContext(ctx); got != "trace-abc" {
		t.Fatalf("expected trace-abc, got %q", got)
	}
}

func TestContextWithTraceIDEmptyLeavesContext(t *testing.T) {
	ctx := context.Background()
	if got := contextWithTraceID(ctx, ""); got != ctx {
		t.Fatal("expected unchanged context for empty trace ID")
	}
}

func TestLogInfoWritesEntry(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogInfo(ctx, "info message", zap.String("foo", "bar"))

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Message != "info message" || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("unexpected entry: %+v", entries[0].Entry)
	}
	if f, ok := fieldMap(entries[0])["foo"]; !ok || f.String != "bar" {
		t.Fatalf("expected foo field, got %+v", entries[0].Context)
	}
}

func TestLogWarnWritesEntry(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogWarn(ctx, "slow")

	entries := recorded.All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected one warn entry, got %+v", entries)
	}
}

func TestLogErrorAppendsErrorField(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogError(ctx, "failed", errors.New("boom"), zap.String("foo", "bar"))

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := fieldMap(entries[0])
	if f, ok := fields["error"]; !ok || f.Type != zapcore.ErrorType {
		t.Fatalf("expected error field, got %+v", fields)
	}
	if _, ok := fields["foo"]; !ok {
		t.Fatalf("expected foo field, got %+v", fields)
	}
}

func TestLogErrorNilErrorOmitsField(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	ctx := WithLogger(context.Background(), zap.New(core))

	LogError(ctx, "failed", nil)

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if _, ok := fieldMap(entries[0])["error"]; ok {
		t.Fatal("did not expect error field")
	}
}

func TestLoggerFromContextFallsBackToGlobal(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if LoggerFromContext(nil) != Logger() {
		t.Fatal("expected global logger for nil context")
	}
	if LoggerFromContext(context.Background()) != Logger() {
		t.Fatal("expected global logger for empty context")
	}
}

func TestWithLoggerNilLoggerLeavesContext(t *testing.T) {
	ctx := context.Background()
	if got := WithLogger(ctx, nil); got != ctx {
		t.Fatal("expected unchanged context for nil logger")
	}
}
