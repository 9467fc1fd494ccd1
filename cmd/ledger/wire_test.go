package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"MarketLedger/internal/collector"
	"MarketLedger/internal/config"
	"MarketLedger/internal/fundamentals"
	"MarketLedger/internal/indicator"
	"MarketLedger/internal/model"

	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("DATA_PROVIDER", "mock")
	c, err := config.Load("missing.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestBuildFetcher(t *testing.T) {
	c := testConfig(t)
	log := zap.NewNop().Sugar()

	tests := []struct {
		provider string
		name     string
		wantErr  bool
	}{
		{"mock", "mock", false},
		{"yahoo", "yahoo", false},
		{"rest", "rest", false},
		{"ftp", "", true},
	}
	for _, tt := range tests {
		c.DataSource.Provider = tt.provider
		f, err := buildFetcher(c, log)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.provider, err)
			continue
		}
		if err == nil && f.Name() != tt.name {
			t.Errorf("%s: name = %s", tt.provider, f.Name())
		}
	}

	c.DataSource.Provider = "yahoo"
	f, _ := buildFetcher(c, log)
	if _, ok := f.(*collector.Resilient); !ok {
		t.Errorf("network fetchers should be wrapped, got %T", f)
	}
}

func TestIndicatorConfig_Defaults(t *testing.T) {
	c := testConfig(t)
	if got := indicatorConfig(c.Indicators); got != indicator.DefaultConfig() {
		t.Errorf("indicatorConfig = %+v, want %+v", got, indicator.DefaultConfig())
	}
}

func TestBuildFundamentals(t *testing.T) {
	log := zap.NewNop().Sugar()
	src, err := buildFundamentals("", log)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(fundamentals.None); !ok {
		t.Errorf("empty path should give None, got %T", src)
	}
	src, err = buildFundamentals(filepath.Join(t.TempDir(), "absent.yaml"), log)
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if _, ok := src.(*fundamentals.File); !ok {
		t.Errorf("got %T", src)
	}
}

func TestBuildProcessor_MemoryAndMock(t *testing.T) {
	c := testConfig(t)
	p, err := buildProcessor(context.Background(), c, zap.NewNop().Sugar(), nil)
	if err != nil {
		t.Fatalf("buildProcessor: %v", err)
	}
	defer p.release()

	res := p.Process(context.Background(), []string{"tcs", "infy"}, "NSE", 120)
	if !res.OK() || res.Rows != 240 {
		t.Errorf("result ok=%v rows=%d failed=%v", res.OK(), res.Rows, res.Failed)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_SQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("DATA_PROVIDER", "mock")
	t.Setenv("LOG_LEVEL", "error")
	cfgFile := filepath.Join(dir, "config.yaml")

	if _, err := run(t, "--config", cfgFile, "setup"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	out, err := run(t, "--config", cfgFile, "process", "reliance", "--bars", "60")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, "1 ok") {
		t.Errorf("report = %q", out)
	}

	today := model.DateKey(model.DateOf(time.Now()))
	out, err = run(t, "--config", cfgFile, "query", "RELIANCE", "--date", today)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !strings.Contains(out, "RELIANCE "+today) {
		t.Errorf("query output = %q", out)
	}

	out, err = run(t, "--config", cfgFile, "query", "RELIANCE", "--date", "1999-01-04")
	if err != nil || !strings.Contains(out, "not found") {
		t.Errorf("miss: out=%q err=%v", out, err)
	}

	out, err = run(t, "--config", cfgFile, "stats")
	if err != nil || !strings.Contains(out, "Rows: 60") {
		t.Errorf("stats: out=%q err=%v", out, err)
	}

	if _, err := run(t, "--config", cfgFile, "drop"); err == nil {
		t.Error("drop without --yes should fail")
	}
	if _, err := run(t, "--config", cfgFile, "drop", "--yes"); err != nil {
		t.Errorf("drop --yes: %v", err)
	}
}
