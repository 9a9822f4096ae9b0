package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// MetricsCollector counts what the traffic logger does. All methods are
// safe on a nil receiver, which disables collection.
type MetricsCollector struct {
	AppName string

	registry         *prometheus.Registry
	ActiveExchanges  prometheus.Gauge
	ExchangeDuration *prometheus.HistogramVec
	LineCounter      *prometheus.CounterVec
	CaptureFailures  prometheus.Counter
	SinkFailures     *prometheus.CounterVec
	ErrorRecords     *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
}

type MetricsResponse struct {
	AppName   string                 `json:"app_name"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// NewMetricsCollector registers the collectors on a private registry so
// several instances (tests, embedded servers) never clash.
func NewMetricsCollector(namespace, appName string) *MetricsCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{"app": appName}

	return &MetricsCollector{
		AppName:  appName,
		registry: reg,

		ActiveExchanges: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "active_exchanges",
				Help:        "Number of request/response exchanges in flight",
				ConstLabels: constLabels,
			},
		),

		ExchangeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   namespace,
				Name:        "exchange_duration_seconds",
				Help:        "Time from request entry to response line",
				Buckets:     []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
				ConstLabels: constLabels,
			},
			[]string{"method", "status"},
		),

		LineCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "log_lines_total",
				Help:        "Traffic log lines emitted",
				ConstLabels: constLabels,
			},
			[]string{"type", "level", "body"},
		),

		CaptureFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "capture_failures_total",
				Help:        "Request bodies that could not be buffered for logging",
				ConstLabels: constLabels,
			},
		),

		SinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "sink_failures_total",
				Help:        "Recovered panics while writing traffic log lines",
				ConstLabels: constLabels,
			},
			[]string{"stage"},
		),

		ErrorRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "error_records_total",
				Help:        "Error records emitted, by status class",
				ConstLabels: constLabels,
			},
			[]string{"class"},
		),

		RateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Name:        "rate_limited_total",
				Help:        "Requests rejected by the rate limiter",
				ConstLabels: constLabels,
			},
			[]string{"route"},
		),
	}
}

func (m *MetricsCollector) IncActiveExchanges() {
	if m == nil {
		return
	}
	m.ActiveExchanges.Inc()
}

func (m *MetricsCollector) DecActiveExchanges() {
	if m == nil {
		return
	}
	m.ActiveExchanges.Dec()
}

func (m *MetricsCollector) ObserveExchange(method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExchangeDuration.With(prometheus.Labels{
		"method": method,
		"status": fmt.Sprint(status),
	}).Observe(duration.Seconds())
}

// IncLine counts one emitted line. body is the body mode, or "none" for
// lines without a body.
func (m *MetricsCollector) IncLine(lineType, level, body string) {
	if m == nil {
		return
	}
	m.LineCounter.With(prometheus.Labels{
		"type":  lineType,
		"level": level,
		"body":  body,
	}).Inc()
}

func (m *MetricsCollector) IncCaptureFailure() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

func (m *MetricsCollector) IncSinkFailure(stage string) {
	if m == nil {
		return
	}
	m.SinkFailures.With(prometheus.Labels{"stage": stage}).Inc()
}

// IncErrorRecord counts an error record under its status class
// ("4xx", "5xx", ...), or "none" when the value carried no status.
func (m *MetricsCollector) IncErrorRecord(status *int) {
	if m == nil {
		return
	}
	m.ErrorRecords.With(prometheus.Labels{"class": StatusClass(status)}).Inc()
}

func (m *MetricsCollector) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.RateLimited.With(prometheus.Labels{"route": route}).Inc()
}

func StatusClass(status *int) string {
	if status == nil || *status < 100 || *status > 999 {
		return "none"
	}
	return fmt.Sprintf("%dxx", *status/100)
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (m *MetricsCollector) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GetMetricsJSON returns a flattened JSON view of every family in the
// registry, keyed by family name then by label set.
func (m *MetricsCollector) GetMetricsJSON() ([]byte, error) {
	if m == nil {
		return json.Marshal(MetricsResponse{Timestamp: time.Now(), Metrics: map[string]interface{}{}})
	}

	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	out := make(map[string]interface{}, len(families))
	for _, family := range families {
		values := make(map[string]float64)
		for _, metric := range family.GetMetric() {
			name := labelKey(metric)
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				values[name] = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				values[name] = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				hist := metric.GetHistogram()
				values[name+"|count"] = float64(hist.GetSampleCount())
				values[name+"|sum"] = hist.GetSampleSum()
			}
		}
		out[family.GetName()] = values
	}

	return json.Marshal(MetricsResponse{
		AppName:   m.AppName,
		Timestamp: time.Now(),
		Metrics:   out,
	})
}

func labelKey(metric *dto.Metric) string {
	var labels []string
	for _, label := range metric.GetLabel() {
		labels = append(labels, fmt.Sprintf("%s=%s", label.GetName(), label.GetValue()))
	}
	return strings.Join(labels, ",")
}
