package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mdpublish"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	runs            *prom.CounterVec
	inlines         *prom.CounterVec
	cssFetchFailure *prom.CounterVec
	publishes       *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers metrics on reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by render target and outcome",
		}, []string{"target", "outcome"}),
		inlines: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "inline_resources_total",
			Help:      "Resources considered for inlining by outcome",
		}, []string{"outcome"}),
		cssFetchFailure: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "css_fetch_failures_total",
			Help:      "Stylesheet fetches that degraded to empty content",
		}, []string{"section"}),
		publishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Publish boundary calls by target and outcome",
		}, []string{"target", "outcome"}),
	}
	reg.MustRegister(pr.stageDuration, pr.runs, pr.inlines, pr.cssFetchFailure, pr.publishes)
	return pr
}

func (p *PrometheusRecorder) ObserveStage(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRun(target string, outcome Outcome) {
	if p == nil || p.runs == nil {
		return
	}
	p.runs.WithLabelValues(target, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncInline(outcome Outcome) {
	if p == nil || p.inlines == nil {
		return
	}
	p.inlines.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCSSFetchFailure(section string) {
	if p == nil || p.cssFetchFailure == nil {
		return
	}
	p.cssFetchFailure.WithLabelValues(section).Inc()
}

func (p *PrometheusRecorder) IncPublish(target string, outcome Outcome) {
	if p == nil || p.publishes == nil {
		return
	}
	p.publishes.WithLabelValues(target, string(outcome)).Inc()
}

// HTTPHandler serves the metrics registered on reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

var _ Recorder = (*PrometheusRecorder)(nil)
