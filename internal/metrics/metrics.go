// Package metrics exposes extraction counters through Prometheus.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/linkmark/internal/models"
)

const namespace = "linkmark"

// Recorder records extraction metrics. A nil *Recorder is valid and records
// nothing, so callers never need to check for one.
type Recorder struct {
	reg        *prom.Registry
	documents  prom.Counter
	links      *prom.CounterVec
	unresolved prom.Counter
	duration   prom.Histogram
}

// New registers the linkmark collectors (plus Go and process collectors) on a
// fresh registry.
func New() *Recorder {
	reg := prom.NewRegistry()
	r := &Recorder{
		reg: reg,
		documents: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Markdown documents processed",
		}),
		links: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "links_total",
			Help:      "Link records extracted by kind",
		}, []string{"kind"}),
		unresolved: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_links_total",
			Help:      "Link records whose reference or footnote has no definition",
		}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Time to parse and walk one document",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(r.documents, r.links, r.unresolved, r.duration)
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return r
}

// ObserveDocument records one extracted document.
func (r *Recorder) ObserveDocument(records []models.LinkRecord, d time.Duration) {
	if r == nil {
		return
	}
	r.documents.Inc()
	r.duration.Observe(d.Seconds())
	for _, rec := range records {
		r.links.WithLabelValues(string(rec.Kind)).Inc()
		if !rec.Resolved {
			r.unresolved.Inc()
		}
	}
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
