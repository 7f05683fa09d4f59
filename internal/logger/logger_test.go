package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsCredentialKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("calling llm", "api_key", "sk-123", "model", "gpt-4", "Authorization", "Bearer x")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["api_key"] != "[REDACTED]" {
		t.Errorf("api_key not redacted: %v", fields["api_key"])
	}
	if fields["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization not redacted: %v", fields["Authorization"])
	}
	if fields["model"] != "gpt-4" {
		t.Errorf("model should pass through, got %v", fields["model"])
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := (&Logger{SugaredLogger: zap.New(core).Sugar()}).With("stage", "enhance")
	l.Warn("skipped", "remedy", "Ginger")

	fields := logs.All()[0].ContextMap()
	if fields["stage"] != "enhance" || fields["remedy"] != "Ginger" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Debug("ignored", "k", 1)
	l.Sync()
}
