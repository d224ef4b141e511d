package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/shopbot-engine/internal/metrics"
)

var _ = Describe("EngineMetrics", func() {
	var (
		registry *prometheus.Registry
		m        *metrics.EngineMetrics
	)

	BeforeEach(func() {
		registry = prometheus.NewRegistry()
		m = metrics.NewEngineMetricsWithRegisterer(registry)
	})

	It("counts deductions by outcome", func() {
		m.RecordDeduction(true, 2*time.Millisecond)
		m.RecordDeduction(false, time.Millisecond)
		m.RecordDeduction(false, time.Millisecond)

		count, err := testutil.GatherAndCount(registry, "shopbot_stock_deductions_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
	})

	It("reuses collectors when registered twice", func() {
		again := metrics.NewEngineMetricsWithRegisterer(registry)
		m.RecordSideEffect("stock_publish", true, time.Millisecond)
		again.RecordSideEffect("stock_publish", true, time.Millisecond)

		count, err := testutil.GatherAndCount(registry, "shopbot_side_effects_total")
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})

	It("tolerates a nil receiver", func() {
		var none *metrics.EngineMetrics
		Expect(func() {
			none.RecordPaymentTransition("verified", "automatic")
			none.SetSubscriberUp(true)
		}).NotTo(Panic())
	})
})
