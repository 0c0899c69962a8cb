package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kakaocal/internal/pipeline"
)

// metrics is a per-server registry so several servers can coexist in one
// process.
type metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	parsed   prometheus.Counter
	events   prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kakaocal",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kakaocal",
			Name:      "http_request_duration_seconds",
			Help:      "Time spent serving HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		parsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kakaocal",
			Name:      "messages_parsed_total",
			Help:      "Chat messages parsed from uploads",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kakaocal",
			Name:      "events_converted_total",
			Help:      "Calendar events produced from uploads",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.parsed, m.events)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe records the outcome of one conversion.
func (m *metrics) observe(res pipeline.Result) {
	m.parsed.Add(float64(res.Parsed))
	m.events.Add(float64(len(res.Groups)))
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
