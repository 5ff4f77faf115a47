package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gametrack/internal/config"
	"gametrack/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon starting")

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon starting") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:  "console",
		Level:   "debug",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", content)
	}
	if strings.Contains(lines[0], ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", lines[1])
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-subject.log")
	logger, err := logging.New(logging.Options{Format: "console", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithSessionID(context.Background(), "0123456789abcdef")
	ctx = logging.WithRowID(ctx, "row-7")
	ctx = logging.WithStage(ctx, "vendor")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "runner")).Info("row claimed", logging.String("title", "Hades II"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "runner: [01234567/row-7/vendor] row claimed") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, `title="Hades II"`) {
		t.Fatalf("expected quoted title attribute, got %q", line)
	}
}

func TestJSONLoggerWritesStructuredFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Outputs: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(logger, "price lookup failed", "provider_gave_up", logging.String(logging.FieldProvider, "price"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(content, &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, content)
	}
	if payload["level"] != "warn" || payload[logging.FieldEventType] != "provider_gave_up" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload[logging.FieldErrorHint]; !ok {
		t.Fatalf("expected default error hint, got %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestStreamReceivesRecords(t *testing.T) {
	hub := logging.NewStreamHub(8)
	logger, err := logging.New(logging.Options{Format: "console", Outputs: []string{filepath.Join(t.TempDir(), "x.log")}, Stream: hub})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello")
	events, _ := hub.Tail(1)
	if len(events) != 1 || events[0].Message != "hello" {
		t.Fatalf("expected hub to receive record, got %+v", events)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range cases {
		if got := logging.ParseLevel(name); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
