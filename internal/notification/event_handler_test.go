package notification_test

import (
	"context"
	"sync"

	"github.com/frahmantamala/shopbot-engine/internal/core/events"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type dispatchCall struct {
	Type string
	Data map[string]interface{}
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *recordingDispatcher) SendToAllAdmins(_ context.Context, eventType string, data map[string]interface{}) ([]notification.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{Type: eventType, Data: data})
	return []notification.Result{{AdminID: 1, Success: true}}, nil
}

func (d *recordingDispatcher) Types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]string, 0, len(d.calls))
	for _, c := range d.calls {
		types = append(types, c.Type)
	}
	return types
}

var _ = Describe("EventHandler", func() {
	var (
		ctx        context.Context
		bus        *events.EventBus
		dispatcher *recordingDispatcher
		queue      *fakeQueue
	)

	BeforeEach(func() {
		ctx = context.Background()
		bus = events.NewEventBus(quietLogger())
		dispatcher = &recordingDispatcher{}
		queue = &fakeQueue{}

		handler := notification.NewEventHandler(dispatcher, notification.NewCustomerNotifier(queue, quietLogger()), quietLogger())
		handler.RegisterEventHandlers(bus)
	})

	It("announces new orders to admins only", func() {
		Expect(bus.Publish(ctx, events.NewOrderPlacedEvent(1, "cust-1", 7, "Kopi", 2, 170000, payment.MethodQRIS))).To(Succeed())
		bus.Wait()

		Expect(dispatcher.Types()).To(Equal([]string{notification.TypeNewOrder}))
		Expect(queue.Jobs()).To(BeEmpty())
	})

	It("routes proofs to admins", func() {
		Expect(bus.Publish(ctx, events.NewPaymentProofSubmittedEvent(3, 1, "cust-1", 50000, "proof.jpg"))).To(Succeed())
		bus.Wait()

		Expect(dispatcher.Types()).To(Equal([]string{notification.TypePaymentProof}))
	})

	It("picks the admin template by verification method and tells the customer", func() {
		Expect(bus.Publish(ctx, events.NewPaymentVerifiedEvent(3, 1, "cust-1", 50000, payment.VerificationAutomatic, "TXN-1", 0))).To(Succeed())
		Expect(bus.Publish(ctx, events.NewPaymentVerifiedEvent(4, 2, "cust-2", 50000, payment.VerificationManual, "", 9))).To(Succeed())
		bus.Wait()

		Expect(dispatcher.Types()).To(ConsistOf(notification.TypeQRISVerified, notification.TypeManualVerified))

		jobs := queue.Jobs()
		Expect(jobs).To(HaveLen(2))
		chats := []string{jobs[0].ChatID, jobs[1].ChatID}
		Expect(chats).To(ConsistOf("cust-1", "cust-2"))
	})

	It("notifies both sides of a failed payment", func() {
		Expect(bus.Publish(ctx, events.NewPaymentFailedEvent(3, 1, "cust-1", 50000, "expired"))).To(Succeed())
		bus.Wait()

		Expect(dispatcher.Types()).To(Equal([]string{notification.TypePaymentFailed}))
		jobs := queue.Jobs()
		Expect(jobs).To(HaveLen(1))
		Expect(jobs[0].Message.Text).To(ContainSubstring("expired"))
	})
})
