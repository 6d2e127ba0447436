package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	buf := &bytes.Buffer{}
	SetLogger(NewTestLogger(buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return buf
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_JSONOutput(t *testing.T) {
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	buf := &bytes.Buffer{}
	Init(Config{Level: "info", Format: "json", Output: buf})

	Debug().Msg("hidden")
	Info().Str("session_id", "s1").Msg("session created")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug message to be filtered at info level")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &entry); err != nil {
		t.Fatalf("Expected one json line, got %q: %v", out, err)
	}
	if entry["session_id"] != "s1" || entry["message"] != "session created" {
		t.Errorf("Unexpected entry %v", entry)
	}
}

func TestErr_IncludesError(t *testing.T) {
	buf := captureLogs(t)
	Err(errors.New("boom")).Msg("write failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("Expected error field, got %s", buf.String())
	}
}

func TestCtx_AddsRequestID(t *testing.T) {
	buf := captureLogs(t)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("Expected req-42, got %s", got)
	}

	Ctx(ctx).Info().Msg("handled")
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("Expected request id in log, got %s", buf.String())
	}

	buf.Reset()
	Ctx(context.Background()).Info().Msg("bare")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("Expected no request id, got %s", buf.String())
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("Expected unique request ids")
	}
}
