package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics covers stock movements, payment transitions and the
// best-effort fan-out that follows them.
type EngineMetrics struct {
	stockDeductions   *prometheus.CounterVec
	stockDeductTime   prometheus.Histogram
	paymentTransition *prometheus.CounterVec
	sideEffects       *prometheus.CounterVec
	sideEffectTime    *prometheus.HistogramVec
	notifications     *prometheus.CounterVec
	subscriberUp      prometheus.Gauge
}

func NewEngineMetrics() *EngineMetrics {
	return NewEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		stockDeductions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopbot_stock_deductions_total",
			Help: "Stock deductions by outcome",
		}, []string{"outcome"}),
		stockDeductTime: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "shopbot_stock_deduct_duration_seconds",
			Help:    "Time spent holding the ledger row lock during a deduction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		paymentTransition: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopbot_payment_transitions_total",
			Help: "Payment status transitions by target status and verification method",
		}, []string{"status", "method"}),
		sideEffects: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopbot_side_effects_total",
			Help: "Post-commit side effects by name and outcome",
		}, []string{"name", "outcome"}),
		sideEffectTime: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shopbot_side_effect_duration_seconds",
			Help:    "Duration of post-commit side effects",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
		notifications: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopbot_admin_notifications_total",
			Help: "Admin notification deliveries by event type and outcome",
		}, []string{"event_type", "outcome"}),
		subscriberUp: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "shopbot_stock_subscriber_up",
			Help: "1 while the stock update subscriber holds a live subscription",
		}),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *EngineMetrics) RecordDeduction(ok bool, held time.Duration) {
	if m == nil {
		return
	}
	m.stockDeductions.WithLabelValues(outcome(ok)).Inc()
	m.stockDeductTime.Observe(held.Seconds())
}

func (m *EngineMetrics) RecordPaymentTransition(status, method string) {
	if m == nil {
		return
	}
	m.paymentTransition.WithLabelValues(status, method).Inc()
}

func (m *EngineMetrics) RecordSideEffect(name string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(name, outcome(ok)).Inc()
	m.sideEffectTime.WithLabelValues(name).Observe(d.Seconds())
}

func (m *EngineMetrics) RecordNotification(eventType string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType, outcome(ok)).Inc()
}

func (m *EngineMetrics) SetSubscriberUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.subscriberUp.Set(1)
		return
	}
	m.subscriberUp.Set(0)
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
