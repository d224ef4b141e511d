package stocknotify_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/shopbot-engine/internal/stocknotify"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

type eventSink struct {
	mu     sync.Mutex
	events []stocknotify.Event
}

func (s *eventSink) record(_ context.Context, e stocknotify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSink) Events() []stocknotify.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stocknotify.Event(nil), s.events...)
}

var _ = Describe("Stock update pub/sub", func() {
	const channel = "stock_updates_test"

	var (
		ctx        context.Context
		mr         *miniredis.Miniredis
		rdb        *redis.Client
		logger     *slog.Logger
		publisher  *stocknotify.Publisher
		subscriber *stocknotify.Subscriber
	)

	waitForSubscribers := func(n int64) {
		Eventually(func() int64 {
			counts, err := rdb.PubSubNumSub(ctx, channel).Result()
			if err != nil {
				return -1
			}
			return counts[channel]
		}, 2*time.Second, 10*time.Millisecond).Should(Equal(n))
	}

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		publisher = stocknotify.NewPublisher(rdb, channel, 200*time.Millisecond, logger)
		subscriber = stocknotify.NewSubscriber(
			redis.NewClient(&redis.Options{Addr: mr.Addr()}),
			stocknotify.SubscriberConfig{Channel: channel, MaxRetries: 2, Backoff: 10 * time.Millisecond},
			nil,
			logger,
		)
	})

	AfterEach(func() {
		subscriber.Stop()
		_ = rdb.Close()
	})

	It("delivers each published change to every live callback", func() {
		first, second := &eventSink{}, &eventSink{}
		subscriber.SubscribeToUpdates(first.record)
		subscriber.SubscribeToUpdates(second.record)

		Expect(subscriber.Start(ctx)).To(Succeed())
		waitForSubscribers(1)

		result := publisher.NotifyStockUpdate(ctx, 7, 5, 3, "admin:1")
		Expect(result.OK()).To(BeTrue())
		Expect(result.Name).To(Equal("stock_publish"))

		Eventually(first.Events).Should(HaveLen(1))
		Eventually(second.Events).Should(HaveLen(1))

		event := first.Events()[0]
		Expect(event.ProductID).To(Equal(int64(7)))
		Expect(event.PreviousQuantity).To(Equal(5))
		Expect(event.NewQuantity).To(Equal(3))
		Expect(event.ActorID).To(Equal("admin:1"))
		Expect(event.Timestamp).NotTo(BeZero())
	})

	It("stops delivering after unsubscribe", func() {
		sink := &eventSink{}
		unsubscribe := subscriber.SubscribeToUpdates(sink.record)

		Expect(subscriber.Start(ctx)).To(Succeed())
		waitForSubscribers(1)

		publisher.NotifyStockUpdate(ctx, 1, 2, 1, "system")
		Eventually(sink.Events).Should(HaveLen(1))

		unsubscribe()
		unsubscribe()

		publisher.NotifyStockUpdate(ctx, 1, 1, 0, "system")
		Consistently(sink.Events, 100*time.Millisecond).Should(HaveLen(1))
	})

	It("skips malformed payloads and survives panicking callbacks", func() {
		sink := &eventSink{}
		subscriber.SubscribeToUpdates(func(context.Context, stocknotify.Event) { panic("boom") })
		subscriber.SubscribeToUpdates(sink.record)

		Expect(subscriber.Start(ctx)).To(Succeed())
		waitForSubscribers(1)

		Expect(rdb.Publish(ctx, channel, "not-json").Err()).To(Succeed())
		publisher.NotifyStockUpdate(ctx, 3, 10, 9, "system")

		Eventually(sink.Events).Should(HaveLen(1))
		Expect(sink.Events()[0].ProductID).To(Equal(int64(3)))
	})

	It("refuses a second start while running", func() {
		Expect(subscriber.Start(ctx)).To(Succeed())
		Expect(subscriber.Start(ctx)).To(MatchError(stocknotify.ErrAlreadyRunning))
	})

	It("exits cleanly on stop without reporting an error", func() {
		Expect(subscriber.Start(ctx)).To(Succeed())
		waitForSubscribers(1)

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			subscriber.Stop()
		}()

		Eventually(stopped, time.Second).Should(BeClosed())
		Expect(subscriber.Done()).To(BeClosed())
		Expect(subscriber.Err()).NotTo(HaveOccurred())
	})

	It("exits when the start context is cancelled on a quiet channel", func() {
		runCtx, cancel := context.WithCancel(ctx)
		Expect(subscriber.Start(runCtx)).To(Succeed())
		waitForSubscribers(1)

		cancel()

		Eventually(subscriber.Done(), time.Second).Should(BeClosed())
		Expect(subscriber.Err()).NotTo(HaveOccurred())
	})

	It("gives up after the bounded number of reconnect attempts", func() {
		Expect(subscriber.Start(ctx)).To(Succeed())
		waitForSubscribers(1)

		mr.Close()

		Eventually(subscriber.Done(), 5*time.Second).Should(BeClosed())
		Expect(subscriber.Err()).To(MatchError(ContainSubstring("giving up")))
	})

	It("reports a failed publish as a result instead of an error", func() {
		mr.Close()

		result := publisher.NotifyStockUpdate(ctx, 1, 1, 0, "system")
		Expect(result.OK()).To(BeFalse())
		Expect(result.Err).To(HaveOccurred())
	})

	It("publishes even when the caller's context is already cancelled", func() {
		sink := &eventSink{}
		subscriber.SubscribeToUpdates(sink.record)
		Expect(subscriber.Start(ctx)).To(Succeed())
		waitForSubscribers(1)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		Expect(publisher.NotifyStockUpdate(cancelled, 4, 1, 0, "system").OK()).To(BeTrue())
		Eventually(sink.Events).Should(HaveLen(1))
	})
})
