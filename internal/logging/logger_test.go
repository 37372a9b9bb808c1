package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gapipe/internal/logging"
	"gapipe/internal/services"
)

func TestNewWritesConsoleFormatToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "gapipe.log")

	logger, closer, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	logger.Info("step completed",
		logging.String(logging.FieldComponent, "engine"),
		logging.String(logging.FieldStep, "rvfit"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO engine: step completed") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "step=rvfit") {
		t.Fatalf("expected step attribute, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewForRunDefersLogFileUntilDirectoryExists(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "work", "log", "run.log")

	logger, closer, err := logging.NewForRun("info", "console", logPath)
	if err != nil {
		t.Fatalf("NewForRun returned error: %v", err)
	}

	logger.Info("before workdir")
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Fatal("log file must not appear before its directory exists")
	}
	if _, err := os.Stat(filepath.Dir(logPath)); !os.IsNotExist(err) {
		t.Fatal("logger must never create the working directory")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatal(err)
	}
	logger.Info("after workdir")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log files: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "before workdir") {
		t.Fatalf("dropped lines must not reappear:\n%s", data)
	}
	if !strings.Contains(string(data), "after workdir") {
		t.Fatalf("lines after directory creation must land in the file:\n%s", data)
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "run-42")
	ctx = services.WithStep(ctx, "load")

	fields := logging.ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	logger := logging.WithContext(ctx, logging.NewNop())
	if logger == nil {
		t.Fatal("WithContext returned nil logger")
	}
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("nil logger should fall back to no-op")
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("no-op logger should not be enabled")
	}
}
