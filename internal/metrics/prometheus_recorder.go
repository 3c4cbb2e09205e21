package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	generateDuration *prom.HistogramVec
	directiveResults *prom.CounterVec
	cacheLookups     *prom.CounterVec
	pageResults      *prom.CounterVec
	buildDuration    prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.generateDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "umlgen",
			Name:      "generate_duration_seconds",
			Help:      "Duration of external diagram generator invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"module", "result"})
		pr.directiveResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "umlgen",
			Name:      "directive_results_total",
			Help:      "Directive outcomes by result",
		}, []string{"result"})
		pr.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "umlgen",
			Name:      "cache_lookups_total",
			Help:      "Diagram cache lookups by hit/miss",
		}, []string{"result"})
		pr.pageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "umlgen",
			Name:      "page_results_total",
			Help:      "Rendered page outcomes by result",
		}, []string{"result"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "umlgen",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.generateDuration, pr.directiveResults, pr.cacheLookups, pr.pageResults, pr.buildDuration)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveGenerateDuration(module string, d time.Duration, success bool) {
	if p == nil || p.generateDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.generateDuration.WithLabelValues(module, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDirectiveResult(result ResultLabel) {
	if p == nil || p.directiveResults == nil {
		return
	}
	p.directiveResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncCacheLookup(hit bool) {
	if p == nil || p.cacheLookups == nil {
		return
	}
	res := "miss"
	if hit {
		res = "hit"
	}
	p.cacheLookups.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncPageResult(result ResultLabel) {
	if p == nil || p.pageResults == nil {
		return
	}
	p.pageResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}
