package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	signalsCreated *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	ordersPlaced   *prometheus.CounterVec
	rollbacks      *prometheus.CounterVec
	expiries       prometheus.Counter
	effectiveCash  *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_signals_created_total",
				Help: "Total signals persisted by the validator",
			},
			[]string{"portfolio", "side"},
		),
		notifications: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_notifications_total",
				Help: "Signal deliveries by result",
			},
			[]string{"result"},
		),
		ordersPlaced: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_orders_placed_total",
				Help: "Gateway order placements by result",
			},
			[]string{"result"},
		),
		rollbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_rollbacks_total",
				Help: "Signals rolled back to pending by reason",
			},
			[]string{"reason"},
		),
		expiries: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "signaldesk_expiries_total",
				Help: "Signals retired by the expiry sweeper",
			},
		),
		effectiveCash: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signaldesk_effective_cash",
				Help: "Last computed effective cash per portfolio",
			},
			[]string{"portfolio"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_operation_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignalCreated(portfolio, side string) {
	r.signalsCreated.WithLabelValues(portfolio, side).Inc()
}

func (r *Recorder) RecordNotification(result string) {
	r.notifications.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordOrderPlaced(result string) {
	r.ordersPlaced.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordRollback(reason string) {
	r.rollbacks.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordExpiry() {
	r.expiries.Inc()
}

func (r *Recorder) RecordEffectiveCash(portfolio string, amount float64) {
	r.effectiveCash.WithLabelValues(portfolio).Set(amount)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
