package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Quotes records every calculation in Prometheus metrics.
type Quotes struct {
	gatherer prometheus.Gatherer
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
	clients  prometheus.Gauge
}

// NewQuotes registers the quote metrics on reg, a new registry when reg is nil.
// Collectors already registered on reg are reused.
func NewQuotes(reg *prometheus.Registry) (*Quotes, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	total, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarquote_quotes_total",
		Help: "Number of quote calculations by outcome",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solarquote_quote_duration_seconds",
		Help:    "Time spent calculating a quote",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	reloads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solarquote_config_reloads_total",
		Help: "Configuration reloads by result",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}
	clients, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "solarquote_websocket_clients",
		Help: "Connected websocket clients",
	}))
	if err != nil {
		return nil, err
	}

	return &Quotes{gatherer: reg, total: total, duration: duration, reloads: reloads, clients: clients}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveQuote matches the callback of quote.Engine.
func (q *Quotes) ObserveQuote(outcome string, elapsed time.Duration) {
	q.total.WithLabelValues(outcome).Inc()
	q.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (q *Quotes) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	q.reloads.WithLabelValues(result).Inc()
}

func (q *Quotes) SetClients(n int) {
	q.clients.Set(float64(n))
}

// Handler serves the registry for /metrics.
func (q *Quotes) Handler() http.Handler {
	return promhttp.HandlerFor(q.gatherer, promhttp.HandlerOpts{})
}
