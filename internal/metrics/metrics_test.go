package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	t.Parallel()

	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncRun("publish", OutcomeSuccess)
	r.IncRun("publish", OutcomeSuccess)
	r.IncInline(OutcomeFailed)
	r.IncCSSFetchFailure("custom")
	r.IncPublish("prod", OutcomeFailed)
	r.ObserveStage("bundle", 20*time.Millisecond)

	tests := []struct {
		name string
		c    prom.Collector
		want float64
	}{
		{"runs", r.runs.WithLabelValues("publish", "success"), 2},
		{"inlines", r.inlines.WithLabelValues("failed"), 1},
		{"css fetch failures", r.cssFetchFailure.WithLabelValues("custom"), 1},
		{"publishes", r.publishes.WithLabelValues("prod", "failed"), 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
	if got := testutil.CollectAndCount(r.stageDuration); got != 1 {
		t.Errorf("stage duration series = %d, want 1", got)
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("nil recorder panicked: %v", r)
		}
	}()

	var r *PrometheusRecorder
	r.ObserveStage("x", time.Second)
	r.IncRun("preview", OutcomeSuccess)
	r.IncInline(OutcomeSuccess)
	r.IncCSSFetchFailure("markdown")
	r.IncPublish("t", OutcomeSuccess)
}

func TestHTTPHandler(t *testing.T) {
	t.Parallel()

	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.IncRun("preview", OutcomeSuccess)

	srv := httptest.NewServer(HTTPHandler(reg))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !strings.Contains(string(body), "mdpublish_runs_total") {
		t.Errorf("body missing mdpublish_runs_total:\n%s", body)
	}
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	if got := OutcomeOf(nil); got != OutcomeSuccess {
		t.Errorf("OutcomeOf(nil) = %q, want %q", got, OutcomeSuccess)
	}
	if got := OutcomeOf(errors.New("x")); got != OutcomeFailed {
		t.Errorf("OutcomeOf(err) = %q, want %q", got, OutcomeFailed)
	}
}
