package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"MarketLedger/internal/config"
)

func TestBuild_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, flush, err := build(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	log.Infow("dropped", "k", 1)
	log.Warnw("kept", "symbol", "TCS")
	flush()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "kept" || entry["symbol"] != "TCS" || entry["level"] != "WARN" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestBuild_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.log")
	var buf bytes.Buffer
	log, flush, err := build(config.LogConfig{Level: "info", Format: "console", File: path, MaxSizeMB: 1}, &buf)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	log.Infow("processed", "rows", 3)
	flush()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"rows":3`) {
		t.Errorf("file log missing entry: %s", data)
	}
	if !strings.Contains(buf.String(), "processed") {
		t.Errorf("console log missing entry: %s", buf.String())
	}
}

func TestBuild_BadLevel(t *testing.T) {
	if _, _, err := build(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
}
