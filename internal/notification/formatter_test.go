package notification_test

import (
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Formatter", func() {
	DescribeTable("FormatIDR",
		func(amount int64, expected string) {
			Expect(notification.FormatIDR(amount)).To(Equal(expected))
		},
		Entry("zero", int64(0), "Rp 0"),
		Entry("hundreds", int64(500), "Rp 500"),
		Entry("thousands", int64(85000), "Rp 85.000"),
		Entry("millions", int64(1250000), "Rp 1.250.000"),
		Entry("negative", int64(-4500), "-Rp 4.500"),
	)

	It("renders a new order with a view button", func() {
		msg, err := notification.Format(notification.TypeNewOrder, map[string]interface{}{
			"order_id":       int64(42),
			"customer_id":    "cust-9",
			"product_name":   "Kopi Gayo",
			"quantity":       2,
			"total_amount":   int64(170000),
			"payment_method": "qris",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Text).To(ContainSubstring("New order #42"))
		Expect(msg.Text).To(ContainSubstring("Kopi Gayo x2"))
		Expect(msg.Text).To(ContainSubstring("Rp 170.000"))
		Expect(msg.Text).To(ContainSubstring("QRIS"))
		Expect(msg.Markup.InlineKeyboard[0][0].CallbackData).To(Equal("order:view:42"))
	})

	It("offers verify and reject for payment proofs", func() {
		msg, err := notification.Format(notification.TypePaymentProof, map[string]interface{}{
			"payment_id":      float64(7),
			"order_id":        float64(42),
			"amount":          float64(50000),
			"proof_reference": "proof/abc.jpg",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Text).To(ContainSubstring("payment #7"))

		row := msg.Markup.InlineKeyboard[0]
		Expect(row).To(HaveLen(2))
		Expect(row[0].CallbackData).To(Equal("payment:verify:7"))
		Expect(row[1].CallbackData).To(Equal("payment:reject:7"))
	})

	DescribeTable("verification and failure notices",
		func(eventType string, fragment string) {
			msg, err := notification.Format(eventType, map[string]interface{}{
				"order_id":       int64(5),
				"payment_id":     int64(3),
				"amount":         int64(10000),
				"transaction_id": "TXN-1",
				"verified_by":    int64(2),
				"failure_reason": "expired",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.Text).To(ContainSubstring(fragment))
			Expect(msg.Markup).NotTo(BeNil())
		},
		Entry("qris", notification.TypeQRISVerified, "Transaction: TXN-1"),
		Entry("manual", notification.TypeManualVerified, "Verified by admin #2"),
		Entry("failed", notification.TypePaymentFailed, "Reason: expired"),
	)

	It("escapes user supplied text", func() {
		msg, err := notification.Format(notification.TypeNewOrder, map[string]interface{}{
			"product_name": "<b>Fake</b>",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Text).To(ContainSubstring("&lt;b&gt;Fake&lt;/b&gt;"))
	})

	It("rejects unknown types", func() {
		_, err := notification.Format("stock_low", nil)
		Expect(err).To(MatchError(notification.ErrUnknownEventType))
	})

	It("writes customer notices without markup", func() {
		verified := notification.FormatCustomerVerified(map[string]interface{}{"order_id": int64(9), "amount": int64(25000)})
		Expect(verified.Text).To(ContainSubstring("Rp 25.000"))
		Expect(verified.Markup).To(BeNil())

		failed := notification.FormatCustomerFailed(map[string]interface{}{"order_id": int64(9)})
		Expect(failed.Text).To(ContainSubstring("order #9"))
		Expect(failed.Text).NotTo(ContainSubstring("Reason"))
	})
})
