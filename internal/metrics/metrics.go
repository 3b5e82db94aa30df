// Package metrics records Prometheus metrics for uploads, chat turns and AI
// edits.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so that several recorders can coexist in
// one process. A nil *Recorder records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	uploadsTotal  *prometheus.CounterVec
	chatTurnTotal *prometheus.CounterVec
	editsTotal    *prometheus.CounterVec
	editDuration  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfill_uploads_total",
				Help: "Uploaded templates by result",
			},
			[]string{"result"},
		),
		chatTurnTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfill_chat_turns_total",
				Help: "Chat requests by dispatched action",
			},
			[]string{"action"},
		),
		editsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfill_ai_edits_total",
				Help: "AI edits by outcome",
			},
			[]string{"outcome"},
		),
		editDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docfill_ai_edit_duration_seconds",
				Help:    "Duration of AI edit generator calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docfill_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (r *Recorder) ObserveUpload(result string) {
	if r == nil {
		return
	}
	r.uploadsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) ObserveChatTurn(action string) {
	if r == nil {
		return
	}
	r.chatTurnTotal.WithLabelValues(action).Inc()
}

func (r *Recorder) ObserveEdit(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.editsTotal.WithLabelValues(outcome).Inc()
	r.editDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (r *Recorder) ObserveHTTP(method, route string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
