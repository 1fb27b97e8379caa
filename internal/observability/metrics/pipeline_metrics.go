package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics instruments the webhook reconciliation pipeline and the
// giveaway draw engine.
type PipelineMetrics struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration prometheus.Histogram
	giveawayDraws   *prometheus.CounterVec
	notifyDropped   prometheus.Counter
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the process-wide pipeline metrics, registering them on
// first use.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func newPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "helpinghands"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	webhookEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "helpinghands_webhook_events_total",
			Help:        "Inbound processor webhook deliveries by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // applied | duplicate | ignored | orphan | rejected
	)

	webhookDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "helpinghands_webhook_handle_seconds",
			Help:        "End-to-end webhook handling latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			ConstLabels: constLabels,
		},
	)

	giveawayDraws := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "helpinghands_giveaway_draws_total",
			Help:        "Executed giveaway draws by selection mode.",
			ConstLabels: constLabels,
		},
		[]string{"mode"},
	)

	notifyDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "helpinghands_realtime_notify_dropped_total",
			Help:        "Realtime deltas dropped because a publish timed out or no hub was attached.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		webhookEvents,
		webhookDuration,
		giveawayDraws,
		notifyDropped,
	)

	return &PipelineMetrics{
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		giveawayDraws:   giveawayDraws,
		notifyDropped:   notifyDropped,
	}
}

func (m *PipelineMetrics) IncWebhookEvent(result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) ObserveWebhookDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.webhookDuration.Observe(d.Seconds())
}

func (m *PipelineMetrics) IncGiveawayDraw(mode string) {
	if m == nil {
		return
	}
	m.giveawayDraws.WithLabelValues(mode).Inc()
}

func (m *PipelineMetrics) IncNotifyDropped() {
	if m == nil {
		return
	}
	m.notifyDropped.Inc()
}
