package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"Debug", "debug", slog.LevelDebug},
		{"UpperCase", "DEBUG", slog.LevelDebug},
		{"Info", "info", slog.LevelInfo},
		{"Warn", "warn", slog.LevelWarn},
		{"WarningAlias", " warning ", slog.LevelWarn},
		{"Error", "error", slog.LevelError},
		{"UnknownToInfo", "verbose", slog.LevelInfo},
		{"EmptyToInfo", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.input))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "ledger-worker", Env: "test"},
		Logging:     config.LoggingConfig{Level: "warn", Format: "json"},
	}

	log := newLogger(cfg, &buf)
	require.NotNil(t, log)
	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))

	log.Info("dropped")
	log.Warn("cache drift", "funding_source", "ACCOUNT:1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "only the warning is written")
	assert.Equal(t, "cache drift", record["msg"])
	assert.Equal(t, "ledger-worker", record["app"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "ACCOUNT:1", record["funding_source"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "recalculate"},
		Logging:     config.LoggingConfig{Level: "info", Format: "TEXT"},
	}

	newLogger(cfg, &buf).Info("done", "checked", 3)

	out := buf.String()
	assert.Contains(t, out, "msg=done")
	assert.Contains(t, out, "app=recalculate")
	assert.Contains(t, out, "checked=3")
}
