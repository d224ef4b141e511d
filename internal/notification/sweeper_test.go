package notification_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
	notificationDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/notification"
	"github.com/frahmantamala/shopbot-engine/internal/core/testdb"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"github.com/frahmantamala/shopbot-engine/internal/notification/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/datatypes"
)

var _ = Describe("Sweeper", func() {
	var (
		ctx     context.Context
		db      *testdb.DB
		sender  *fakeSender
		sweeper *notification.Sweeper
		now     time.Time
	)

	seedFailed := func(chatID string, attempts int, nextAt *time.Time) int64 {
		payload, err := json.Marshal(chattransport.Message{Text: "retry me"})
		Expect(err).NotTo(HaveOccurred())

		reason := "chat unreachable"
		d := &notificationDatamodel.Delivery{
			AdminID:       1,
			ChatID:        chatID,
			EventType:     notification.TypeNewOrder,
			Payload:       datatypes.JSON(payload),
			Status:        notificationDatamodel.DeliveryFailed,
			Attempts:      attempts,
			LastError:     &reason,
			NextAttemptAt: nextAt,
		}
		Expect(db.Gorm.Create(d).Error).To(Succeed())
		return d.ID
	}

	reload := func(id int64) notificationDatamodel.Delivery {
		var d notificationDatamodel.Delivery
		Expect(db.Gorm.First(&d, id).Error).To(Succeed())
		return d
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		now = time.Now().UTC()
		sender = newFakeSender()
		sweeper = notification.NewSweeper(
			postgres.NewNotificationRepository(db.Gorm),
			sender,
			100*time.Millisecond,
			3,
			nil,
			quietLogger(),
		)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("resends due deliveries and marks them sent", func() {
		past := now.Add(-time.Minute)
		id := seedFailed("chat-1", 1, &past)

		stats, err := sweeper.SweepAt(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).To(Equal(notification.SweepStats{Scanned: 1, Resent: 1}))

		d := reload(id)
		Expect(d.Status).To(Equal(notificationDatamodel.DeliverySent))
		Expect(d.Attempts).To(Equal(2))
		Expect(d.MessageID).NotTo(BeNil())
		Expect(d.LastError).To(BeNil())
		Expect(sender.Sent()[0].Message.Text).To(Equal("retry me"))
	})

	It("leaves deliveries that are not yet due", func() {
		future := now.Add(time.Hour)
		seedFailed("chat-1", 1, &future)

		stats, err := sweeper.SweepAt(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Scanned).To(Equal(0))
		Expect(sender.Sent()).To(BeEmpty())
	})

	It("reschedules a failed retry and abandons it at the attempt limit", func() {
		sender.setFailing("chat-down", true)
		id := seedFailed("chat-down", 1, nil)

		stats, err := sweeper.SweepAt(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Failed).To(Equal(1))

		d := reload(id)
		Expect(d.Status).To(Equal(notificationDatamodel.DeliveryFailed))
		Expect(d.Attempts).To(Equal(2))
		Expect(d.NextAttemptAt).NotTo(BeNil())

		stats, err = sweeper.SweepAt(ctx, d.NextAttemptAt.Add(time.Second))
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Abandoned).To(Equal(1))

		d = reload(id)
		Expect(d.Status).To(Equal(notificationDatamodel.DeliveryAbandoned))
		Expect(d.Attempts).To(Equal(3))
	})

	It("abandons deliveries that already exhausted their attempts", func() {
		id := seedFailed("chat-1", 3, nil)

		stats, err := sweeper.SweepAt(ctx, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Abandoned).To(Equal(1))
		Expect(stats.Scanned).To(Equal(0))
		Expect(reload(id).Status).To(Equal(notificationDatamodel.DeliveryAbandoned))
	})

	It("runs as an asynq task", func() {
		seedFailed("chat-1", 1, nil)

		task := notification.NewRetryDeliveriesTask()
		Expect(task.Type()).To(Equal(notification.TaskRetryDeliveries))
		Expect(sweeper.ProcessTask(ctx, task)).To(Succeed())
		Expect(sender.Sent()).To(HaveLen(1))
	})
})
