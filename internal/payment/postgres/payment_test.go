package postgres_test

import (
	"context"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/core/testdb"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
	"github.com/frahmantamala/shopbot-engine/internal/payment/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PaymentRepository SQL", func() {
	var (
		ctx   context.Context
		stmts *testdb.Statements
		repo  payment.RepositoryAPI
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, recorded, err := testdb.DryRunPostgres()
		Expect(err).NotTo(HaveOccurred())
		stmts = recorded
		repo = postgres.NewPaymentRepository(db).WithTx(db)
	})

	It("locks by order id", func() {
		_, _ = repo.LockByOrderID(ctx, 7)

		Expect(stmts.Last()).To(ContainSubstring(`FROM "payments"`))
		Expect(stmts.Last()).To(MatchRegexp(`WHERE order_id = \$1 .*FOR UPDATE$`))
	})

	It("locks by payment id", func() {
		_, _ = repo.LockByID(ctx, 3)

		Expect(stmts.Last()).To(MatchRegexp(`WHERE id = \$1 .*FOR UPDATE$`))
	})

	It("reads without a lock outside the Lock methods", func() {
		_, _ = repo.GetByID(ctx, 3)
		_, _ = repo.GetByOrderID(ctx, 7)

		all := stmts.All()
		Expect(all).To(HaveLen(2))
		for _, sql := range all {
			Expect(sql).NotTo(ContainSubstring("FOR UPDATE"))
		}
	})

	It("only transitions pending rows", func() {
		_ = repo.MarkVerified(ctx, 3, payment.VerificationAutomatic, nil, nil, time.Now())

		Expect(stmts.Last()).To(ContainSubstring(`UPDATE "payments" SET`))
		Expect(stmts.Last()).To(MatchRegexp(`WHERE id = \$\d+ AND status = \$\d+`))
	})
})
