package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// Relay session metrics
	SessionsActive     prometheus.Gauge
	SessionsTotal      prometheus.Counter
	FramesSentTotal    prometheus.Counter
	FramesDroppedTotal prometheus.Counter
	BargeInsTotal      prometheus.Counter

	// Webhook metrics
	WebhooksTotal *prometheus.CounterVec

	// External collaborator metrics
	CRMErrorsTotal *prometheus.CounterVec
)

// Init registers all gateway metrics on a private registry.
// Safe to call more than once.
func Init() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_relay_sessions_active",
			Help: "Number of media relay sessions currently open",
		})
		SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_relay_sessions_total",
			Help: "Total number of media relay sessions accepted",
		})
		FramesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_relay_frames_sent_total",
			Help: "Total outbound media frames sent to the telephony provider",
		})
		FramesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_relay_frames_dropped_total",
			Help: "Outbound frames dropped before the media stream was ready",
		})
		BargeInsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_relay_barge_ins_total",
			Help: "Playbacks truncated because the caller started speaking",
		})

		WebhooksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_webhooks_total",
			Help: "Telephony webhooks received, by kind and outcome",
		}, []string{"kind", "outcome"})

		CRMErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_crm_errors_total",
			Help: "Best-effort CRM calls that failed, by operation",
		}, []string{"operation"})

		registry.MustRegister(
			SessionsActive,
			SessionsTotal,
			FramesSentTotal,
			FramesDroppedTotal,
			BargeInsTotal,
			WebhooksTotal,
			CRMErrorsTotal,
		)
	})
}

// Handler exposes the registry for the /metrics route.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
