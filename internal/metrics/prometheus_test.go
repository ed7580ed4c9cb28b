package metrics

import (
	"testing"
	"time"

	"RiskSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.AlertForwarded(model.AlertOverbought)
	r.AlertForwarded(model.AlertOverbought)
	r.AlertSuppressed(model.AlertHighVolume)
	r.SymbolSkipped("timeout")
	r.SinkFailed("telegram")
	r.JobRun("daily_report")
	r.ObservePass(250 * time.Millisecond)

	if got := testutil.ToFloat64(r.alertsForwarded.WithLabelValues("OVERBOUGHT")); got != 2 {
		t.Errorf("forwarded = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.alertsSuppressed.WithLabelValues("HIGH_VOLUME")); got != 1 {
		t.Errorf("suppressed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.symbolsSkipped.WithLabelValues("timeout")); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(r.passDuration); got != 1 {
		t.Errorf("pass histogram series = %d, want 1", got)
	}
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	// Each registry owns its own collectors, so two recorders must not clash.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
