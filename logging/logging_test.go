package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Options{Level: "warn", Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown", "actor_id", "u1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["msg"] != "shown" || record["actor_id"] != "u1" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestOpenTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.log")
	var buf bytes.Buffer

	logger, closeFn, err := Open(Options{File: path, Output: &buf})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	logger.Info("bug created", "target_id", "b1")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "bug created") || !strings.Contains(buf.String(), "bug created") {
		t.Fatalf("expected record in both sinks")
	}
}

func TestOpenFailsOnMissingDirectory(t *testing.T) {
	_, _, err := Open(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	if err == nil {
		t.Fatalf("expected error")
	}
}
