package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.Symbol("ok")
	m.Symbol("ok")
	m.Symbol("failed")
	m.Bars(400)
	m.Rows(399)
	m.Stage("compute")()

	if got := testutil.ToFloat64(m.SymbolsProcessed.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.BarsFetched); got != 400 {
		t.Errorf("bars = %v, want 400", got)
	}
	if got := testutil.CollectAndCount(m.StageDuration); got != 1 {
		t.Errorf("stage series = %d, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "ledger_rows_upserted_total 399") {
		t.Errorf("exposition missing rows counter:\n%s", rec.Body.String())
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Symbol("ok")
	m.Bars(1)
	m.Rows(1)
	m.Cache("hit")
	m.Stage("fetch")()
}
