package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wonny/freightcast/backend/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug level", "debug", zerolog.DebugLevel},
		{"info level", "info", zerolog.InfoLevel},
		{"warn level", "warn", zerolog.WarnLevel},
		{"error level", "error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"}, &buf)
			if logger == nil {
				t.Fatal("Expected logger to be created")
			}

			if zerolog.GlobalLevel() != tt.wantLevel {
				t.Errorf("Expected global level %v, got %v", tt.wantLevel, zerolog.GlobalLevel())
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{Env: "staging", LogLevel: "debug", LogFormat: "json"}, &buf)

	logger.Infof("loaded %d shipments", 42)

	entry := decode(t, &buf)
	if entry["service"] != ServiceName {
		t.Errorf("Expected service %q, got %v", ServiceName, entry["service"])
	}
	if entry["env"] != "staging" {
		t.Errorf("Expected env staging, got %v", entry["env"])
	}
	if entry["message"] != "loaded 42 shipments" {
		t.Errorf("Unexpected message %v", entry["message"])
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}, &buf)

	tests := []struct {
		name      string
		logFunc   func()
		wantLevel string
	}{
		{"debug", func() { logger.Debug("m") }, "debug"},
		{"info", func() { logger.Info("m") }, "info"},
		{"warn", func() { logger.Warn("m") }, "warn"},
		{"error", func() { logger.Error("m") }, "error"},
		{"warnf", func() { logger.Warnf("%s", "m") }, "warn"},
		{"errorf", func() { logger.Errorf("%s", "m") }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			entry := decode(t, &buf)
			if entry["level"] != tt.wantLevel {
				t.Errorf("Expected level %q, got %q", tt.wantLevel, entry["level"])
			}
			if entry["message"] != "m" {
				t.Errorf("Expected message m, got %v", entry["message"])
			}
		})
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{LogLevel: "debug"}, &buf)

	logger.WithField("route", "SEA-LAX").
		WithFields(map[string]interface{}{
			"records": 1200,
			"carrier": "Maersk",
		}).
		Info("pipeline step")

	entry := decode(t, &buf)
	if entry["route"] != "SEA-LAX" {
		t.Errorf("Expected route SEA-LAX, got %v", entry["route"])
	}
	if entry["records"] != float64(1200) {
		t.Errorf("Expected records 1200, got %v", entry["records"])
	}
	if entry["carrier"] != "Maersk" {
		t.Errorf("Expected carrier Maersk, got %v", entry["carrier"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{LogLevel: "debug"}, &buf)

	logger.WithError(errors.New("s3 download failed")).Error("extract failed")

	entry := decode(t, &buf)
	if entry["error"] != "s3 download failed" {
		t.Errorf("Expected error field, got %v", entry["error"])
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&config.Config{LogLevel: "debug"}, &buf)

	zl := logger.Component("etl.pipeline")
	zl.Info().Msg("started")

	entry := decode(t, &buf)
	if entry["component"] != "etl.pipeline" {
		t.Errorf("Expected component etl.pipeline, got %v", entry["component"])
	}
}

func TestConsoleFormat(t *testing.T) {
	for _, format := range []string{"console", "pretty"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: format}, &buf)
			logger.Info("test message")

			if !strings.Contains(buf.String(), "test message") {
				t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
			}
			if json.Valid(bytes.TrimSpace(buf.Bytes())) {
				t.Error("Expected non-JSON console output")
			}
		})
	}
}
