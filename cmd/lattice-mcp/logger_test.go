// ABOUTME: Tests for the colorized slog handler
// ABOUTME: Captures output via an injected writer

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestColorHandler_WritesToInjectedWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newColorHandler(&buf, slog.LevelDebug))

	logger.Info("server started", "addr", ":8080")

	out := buf.String()
	if !strings.Contains(out, "INF ") {
		t.Errorf("expected level tag in output: %q", out)
	}
	if !strings.Contains(out, "server started") {
		t.Errorf("expected message in output: %q", out)
	}
	if !strings.Contains(out, "addr=") || !strings.Contains(out, ":8080") {
		t.Errorf("expected attr in output: %q", out)
	}
}

func TestColorHandler_LevelTags(t *testing.T) {
	tests := []struct {
		level slog.Level
		tag   string
	}{
		{slog.LevelDebug, "DBG "},
		{slog.LevelInfo, "INF "},
		{slog.LevelWarn, "WRN "},
		{slog.LevelError, "ERR "},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := slog.New(newColorHandler(&buf, slog.LevelDebug))
		logger.Log(context.Background(), tt.level, "m")
		if !strings.Contains(buf.String(), tt.tag) {
			t.Errorf("level %v: expected tag %q in %q", tt.level, tt.tag, buf.String())
		}
	}
}

func TestColorHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newColorHandler(&buf, slog.LevelInfo)).With("component", "http")

	logger.Warn("slow request")

	out := buf.String()
	if !strings.Contains(out, "component=") || !strings.Contains(out, "http") {
		t.Errorf("expected handler-level attr in output: %q", out)
	}
}

func TestColorHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newColorHandler(&buf, slog.LevelInfo)).WithGroup("req")

	logger.Info("done", "id", "7")

	if !strings.Contains(buf.String(), "req.id=") {
		t.Errorf("expected group-prefixed attr in output: %q", buf.String())
	}
}

func TestColorHandler_Enabled(t *testing.T) {
	h := newColorHandler(io.Discard, slog.LevelWarn)

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}
