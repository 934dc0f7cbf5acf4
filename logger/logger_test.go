package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSecretKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Info("login", "user_id", "u-1", "access_token", "abc.def.ghi", "OPENAI_API_KEY", "sk-1")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "u-1", fields["user_id"])
		assert.Equal(t, "[REDACTED]", fields["access_token"])
		assert.Equal(t, "[REDACTED]", fields["OPENAI_API_KEY"])
	}
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := (&Logger{SugaredLogger: zap.New(core).Sugar()}).With("component", "graph")

	l.Warn("slow query", "ms", 1200)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "graph", entries[0].ContextMap()["component"])
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	}
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop()
	l.Error("ignored", "k")
	l.Sync()
}

func TestRedactionMatchesWholeWords(t *testing.T) {
	for key, want := range map[string]bool{
		"access_token":     true,
		"refresh-token":    true,
		"db_password":      true,
		"Authorization":    true,
		"OPENAI_API_KEY":   true,
		"apikey":           true,
		"max_input_tokens": false,
		"tokens":           false,
		"user_id":          false,
	} {
		assert.Equal(t, want, secretKey(key), key)
	}
}

func TestBudgetFieldsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Debug("article text truncated", "max_input_tokens", 12000)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.EqualValues(t, 12000, entries[0].ContextMap()["max_input_tokens"])
	}
}
