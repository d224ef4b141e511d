package stock_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	stockDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
	"github.com/frahmantamala/shopbot-engine/internal/core/sideeffect"
	"github.com/frahmantamala/shopbot-engine/internal/core/testdb"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	"github.com/frahmantamala/shopbot-engine/internal/stock/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type publishedUpdate struct {
	ProductID int64
	Previous  int
	New       int
	ActorID   string
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []publishedUpdate
	err     error
}

func (p *recordingPublisher) NotifyStockUpdate(_ context.Context, productID int64, prev, next int, actorID string) sideeffect.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, publishedUpdate{productID, prev, next, actorID})
	return sideeffect.Result{Name: "stock_publish", Err: p.err}
}

func (p *recordingPublisher) Updates() []publishedUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedUpdate(nil), p.updates...)
}

type tracingRepo struct {
	stock.RepositoryAPI
	mu    *sync.Mutex
	calls *[]string
}

func newTracingRepo(inner stock.RepositoryAPI) *tracingRepo {
	return &tracingRepo{RepositoryAPI: inner, mu: &sync.Mutex{}, calls: &[]string{}}
}

func (r *tracingRepo) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*r.calls = append(*r.calls, call)
}

func (r *tracingRepo) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), *r.calls...)
}

func (r *tracingRepo) WithTx(tx *gorm.DB) stock.RepositoryAPI {
	return &tracingRepo{RepositoryAPI: r.RepositoryAPI.WithTx(tx), mu: r.mu, calls: r.calls}
}

func (r *tracingRepo) LockLedger(ctx context.Context, productID int64) (*stockDatamodel.Ledger, error) {
	r.record("lock")
	return r.RepositoryAPI.LockLedger(ctx, productID)
}

func (r *tracingRepo) DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error) {
	r.record("decrement")
	return r.RepositoryAPI.DecrementIfAvailable(ctx, productID, qty)
}

func (r *tracingRepo) SetQuantity(ctx context.Context, productID int64, qty int) error {
	r.record("set")
	return r.RepositoryAPI.SetQuantity(ctx, productID, qty)
}

func (r *tracingRepo) AppendHistory(ctx context.Context, h *stockDatamodel.History) error {
	r.record("history")
	return r.RepositoryAPI.AppendHistory(ctx, h)
}

var _ = Describe("Service", func() {
	var (
		ctx       context.Context
		db        *testdb.DB
		publisher *recordingPublisher
		service   *stock.Service
	)

	deduct := func(productID int64, qty int) (*stock.Change, error) {
		var change *stock.Change
		err := db.Gorm.Transaction(func(tx *gorm.DB) error {
			var err error
			change, err = service.DeductWithLock(ctx, tx, productID, qty, "customer:1")
			return err
		})
		return change, err
	}

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		publisher = &recordingPublisher{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = stock.NewService(
			db.Gorm,
			postgres.NewLedgerRepository(db.Gorm),
			postgres.NewQueryRepository(db.Sqlx),
			publisher,
			nil,
			logger,
		)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("DeductWithLock", func() {
		BeforeEach(func() {
			Expect(db.SeedProduct(42, "Kopi Gayo 250g", 50000, 3)).To(Succeed())
		})

		It("decrements the ledger and mirrors the product quantity", func() {
			change, err := deduct(42, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(change.PreviousQuantity).To(Equal(3))
			Expect(change.NewQuantity).To(Equal(2))
			Expect(change.AvailabilityStatus).To(Equal(productDatamodel.StatusAvailable))

			ledger, err := db.Ledger(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.CurrentQuantity).To(Equal(2))

			product, err := db.Product(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(product.StockQuantity).To(Equal(2))
		})

		It("appends a history entry", func() {
			_, err := deduct(42, 2)
			Expect(err).NotTo(HaveOccurred())

			entries, err := service.History(ctx, 42, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].PreviousQuantity).To(Equal(3))
			Expect(entries[0].NewQuantity).To(Equal(1))
			Expect(entries[0].ActorID).To(Equal("customer:1"))
			Expect(entries[0].Reason).To(Equal(stock.ReasonSale))
		})

		It("flips the product to out_of_stock at zero", func() {
			change, err := deduct(42, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(change.NewQuantity).To(Equal(0))
			Expect(change.AvailabilityStatus).To(Equal(productDatamodel.StatusOutOfStock))

			product, err := db.Product(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(product.AvailabilityStatus).To(Equal(productDatamodel.StatusOutOfStock))
		})

		It("rejects a deduction larger than the ledger and leaves it unchanged", func() {
			_, err := deduct(42, 4)
			Expect(errors.Is(err, apperrors.ErrInsufficientStock)).To(BeTrue())

			ledger, err := db.Ledger(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.CurrentQuantity).To(Equal(3))
		})

		It("rejects non-positive quantities", func() {
			_, err := deduct(42, 0)
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
		})

		It("returns not found for a product without a ledger", func() {
			_, err := deduct(999, 1)
			Expect(errors.Is(err, apperrors.ErrStockNotFound)).To(BeTrue())
		})

		It("refuses to run without a transaction", func() {
			_, err := service.DeductWithLock(ctx, nil, 42, 1, "customer:1")
			Expect(err).To(HaveOccurred())
		})

		It("does not publish on its own", func() {
			_, err := deduct(42, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.Updates()).To(BeEmpty())
		})

		It("locks the ledger row before reading or writing it", func() {
			repo := newTracingRepo(postgres.NewLedgerRepository(db.Gorm))
			service = stock.NewService(db.Gorm, repo, postgres.NewQueryRepository(db.Sqlx), publisher, nil,
				slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))

			_, err := deduct(42, 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.UpdateQuantity(ctx, nil, 42, 10, "admin:1")
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.Calls()).To(Equal([]string{
				"lock", "decrement", "history",
				"lock", "set", "history",
			}))
		})

		It("does not decrement when the locked read shows too few units", func() {
			repo := newTracingRepo(postgres.NewLedgerRepository(db.Gorm))
			service = stock.NewService(db.Gorm, repo, postgres.NewQueryRepository(db.Sqlx), publisher, nil,
				slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})))

			_, err := deduct(42, 1000)
			Expect(errors.Is(err, apperrors.ErrInsufficientStock)).To(BeTrue())
			Expect(repo.Calls()).To(Equal([]string{"lock"}))
		})

		It("never oversells under concurrent deductions", func() {
			Expect(db.SeedProduct(5, "Teh Tarik Sachet", 15000, 5)).To(Succeed())

			var (
				wg           sync.WaitGroup
				mu           sync.Mutex
				successes    int
				insufficient int
			)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := deduct(5, 1)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						successes++
					case errors.Is(err, apperrors.ErrInsufficientStock):
						insufficient++
					default:
						Fail("unexpected error: " + err.Error())
					}
				}()
			}
			wg.Wait()

			Expect(successes).To(Equal(5))
			Expect(insufficient).To(Equal(5))

			ledger, err := db.Ledger(5)
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.CurrentQuantity).To(Equal(0))
		})

		It("lets exactly one of two buyers take the last unit", func() {
			Expect(db.SeedProduct(7, "Sambal Roa", 35000, 1)).To(Succeed())

			results := make(chan error, 2)
			for i := 0; i < 2; i++ {
				go func() {
					_, err := deduct(7, 1)
					results <- err
				}()
			}
			errs := []error{<-results, <-results}

			failures := 0
			for _, err := range errs {
				if err != nil {
					Expect(errors.Is(err, apperrors.ErrInsufficientStock)).To(BeTrue())
					failures++
				}
			}
			Expect(failures).To(Equal(1))

			product, err := db.Product(7)
			Expect(err).NotTo(HaveOccurred())
			Expect(product.StockQuantity).To(Equal(0))
			Expect(product.AvailabilityStatus).To(Equal(productDatamodel.StatusOutOfStock))
		})
	})

	Describe("UpdateQuantity", func() {
		BeforeEach(func() {
			Expect(db.SeedProduct(42, "Kopi Gayo 250g", 50000, 3)).To(Succeed())
		})

		It("rejects a negative target and leaves the ledger unchanged", func() {
			_, err := service.UpdateQuantity(ctx, nil, 42, -1, "admin:9")
			Expect(errors.Is(err, apperrors.ErrNegativeStock)).To(BeTrue())

			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(apperrors.ErrorTypeConflict))

			ledger, err := db.Ledger(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.CurrentQuantity).To(Equal(3))
			Expect(publisher.Updates()).To(BeEmpty())
		})

		It("sets the quantity, flips availability and publishes after commit", func() {
			change, err := service.UpdateQuantity(ctx, nil, 42, 0, "admin:9")
			Expect(err).NotTo(HaveOccurred())
			Expect(change.AvailabilityStatus).To(Equal(productDatamodel.StatusOutOfStock))

			change, err = service.UpdateQuantity(ctx, nil, 42, 10, "admin:9")
			Expect(err).NotTo(HaveOccurred())
			Expect(change.PreviousQuantity).To(Equal(0))
			Expect(change.AvailabilityStatus).To(Equal(productDatamodel.StatusAvailable))

			Expect(publisher.Updates()).To(Equal([]publishedUpdate{
				{ProductID: 42, Previous: 3, New: 0, ActorID: "admin:9"},
				{ProductID: 42, Previous: 0, New: 10, ActorID: "admin:9"},
			}))

			entries, err := service.History(ctx, 42, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Reason).To(Equal(stock.ReasonRestock))
			Expect(entries[1].Reason).To(Equal(stock.ReasonAdminSet))
		})

		It("keeps discontinued products discontinued", func() {
			Expect(db.Gorm.Model(&productDatamodel.Product{}).Where("id = ?", 42).
				Update("availability_status", productDatamodel.StatusDiscontinued).Error).To(Succeed())

			change, err := service.UpdateQuantity(ctx, nil, 42, 0, "admin:9")
			Expect(err).NotTo(HaveOccurred())
			Expect(change.AvailabilityStatus).To(Equal(productDatamodel.StatusDiscontinued))
		})

		It("leaves publication to the caller when given a transaction", func() {
			err := db.Gorm.Transaction(func(tx *gorm.DB) error {
				_, err := service.UpdateQuantity(ctx, tx, 42, 8, "admin:9")
				return err
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.Updates()).To(BeEmpty())

			ledger, err := db.Ledger(42)
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.CurrentQuantity).To(Equal(8))
		})

		It("still succeeds when publishing fails", func() {
			publisher.err = errors.New("redis: connection refused")

			change, err := service.UpdateQuantity(ctx, nil, 42, 1, "admin:9")
			Expect(err).NotTo(HaveOccurred())
			Expect(change.NewQuantity).To(Equal(1))
		})
	})

	Describe("reads", func() {
		BeforeEach(func() {
			Expect(db.SeedProduct(1, "Kopi Gayo 250g", 50000, 12)).To(Succeed())
			Expect(db.SeedProduct(2, "Sambal Roa", 35000, 2)).To(Succeed())
			Expect(db.SeedProduct(3, "Keripik Tempe", 12000, 0)).To(Succeed())
			Expect(db.Gorm.Model(&stockDatamodel.Ledger{}).Where("product_id = ?", 2).
				Update("reserved_quantity", 5).Error).To(Succeed())
		})

		It("reports available quantity floored at zero", func() {
			level, err := service.GetStock(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(level.ProductName).To(Equal("Sambal Roa"))
			Expect(level.CurrentQuantity).To(Equal(2))
			Expect(level.AvailableQuantity).To(Equal(0))
		})

		It("returns not found for unknown products", func() {
			_, err := service.GetStock(ctx, 404)
			Expect(errors.Is(err, apperrors.ErrStockNotFound)).To(BeTrue())
		})

		It("lists products at or below the threshold, lowest first", func() {
			levels, err := service.ListLowStock(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(levels).To(HaveLen(2))
			Expect(levels[0].ProductID).To(Equal(int64(3)))
			Expect(levels[1].ProductID).To(Equal(int64(2)))
		})

		It("rejects a negative threshold", func() {
			_, err := service.ListLowStock(ctx, -1)
			Expect(err).To(HaveOccurred())
		})
	})
})
