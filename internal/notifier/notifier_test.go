package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"MarketLedger/internal/model"
	"MarketLedger/internal/pipeline"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"go.uber.org/zap"
)

func TestMoney(t *testing.T) {
	tests := map[float64]string{
		194.5:     "194.50",
		1.005:     "1.01",
		-2.345:    "-2.35",
		100.12499: "100.12",
		0:         "0.00",
	}
	for in, want := range tests {
		if got := Money(in); got != want {
			t.Errorf("Money(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestFormatRow(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	row := &model.StockRow{
		Bar: model.Bar{Symbol: "RELIANCE", Exchange: "NSE", Date: d, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 99},
		Indicators: model.IndicatorRecord{
			DMA10:         null.FloatFrom(194.5),
			IsAllTimeHigh: true,
			TScore:        null.FloatFrom(87.25),
		},
	}
	out := FormatRow(row)
	for _, want := range []string{"RELIANCE 2024-01-02 (NSE)", "DMA 194.50", "T-Score: 87.3", "F-Score: -", "all-time high/low: yes/no"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatRow missing %q:\n%s", want, out)
		}
	}
}

func TestFormatBatchReport(t *testing.T) {
	res := &pipeline.BatchResult{
		RunID:     uuid.MustParse("0b4f4a36-1111-4222-8333-444455556666"),
		Succeeded: map[string]int{"TCS": 400},
		Failed:    map[string]error{"BAD": errors.New("boom")},
		Skipped:   []string{"LATE"},
		Order:     []string{"TCS", "BAD", "LATE"},
		Rows:      400,
		Duration:  1500 * time.Millisecond,
	}
	out := FormatBatchReport(res)
	for _, want := range []string{"Run 0b4f4a36", "1 ok, 1 failed, 1 skipped, 400 rows", "failed  BAD", "skipped LATE"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatStats(t *testing.T) {
	empty := FormatStats(model.Stats{}, nil)
	if !strings.Contains(empty, "Date range: -") {
		t.Errorf("empty stats: %s", empty)
	}
	st := model.Stats{
		SymbolCount: 2, RowCount: 10,
		FirstDate: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		LastDate:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	out := FormatStats(st, []string{"TCS", "INFY"})
	if !strings.Contains(out, "2023-01-02 to 2024-01-02") || !strings.Contains(out, "INFY, TCS") {
		t.Errorf("stats: %s", out)
	}
}

func TestTelegram_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("TOKEN", "42", "", zap.NewNop().Sugar())
	n.BaseURL = srv.URL
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" {
		t.Errorf("payload = %v", got)
	}
}

func TestTelegram_Retry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("T", "1", "", zap.NewNop().Sugar())
	n.BaseURL = srv.URL
	fast := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	if err := n.sendWithBackOff(context.Background(), "x", fast); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	calls = -100
	fast = backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 1)
	if err := n.sendWithBackOff(context.Background(), "x", fast); err == nil {
		t.Error("expected failure once retries are exhausted")
	}
}

func TestTelegram_ClientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		status int
		calls  int
	}{
		{http.StatusUnauthorized, 1},
		{http.StatusBadRequest, 1},
		{http.StatusTooManyRequests, 3},
	}
	for _, tt := range tests {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(tt.status)
		}))

		n := NewTelegramNotifier("BAD", "1", "", zap.NewNop().Sugar())
		n.BaseURL = srv.URL
		fast := backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
		err := n.sendWithBackOff(context.Background(), "x", fast)
		srv.Close()

		var ae *APIError
		if !errors.As(err, &ae) || ae.StatusCode != tt.status {
			t.Errorf("status %d: err = %v", tt.status, err)
		}
		if calls != tt.calls {
			t.Errorf("status %d: calls = %d, want %d", tt.status, calls, tt.calls)
		}
	}
}
