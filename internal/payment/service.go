package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/core/common/validation"
	paymentDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/payment"
	"github.com/frahmantamala/shopbot-engine/internal/core/events"
	"github.com/frahmantamala/shopbot-engine/internal/metrics"
	"github.com/frahmantamala/shopbot-engine/internal/order"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	"gorm.io/gorm"
)

// RepositoryAPI is the payment store. Lock* methods must be called on a
// repository bound to an open transaction.
type RepositoryAPI interface {
	WithTx(tx *gorm.DB) RepositoryAPI
	Create(ctx context.Context, p *paymentDatamodel.Payment) error
	GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error)
	GetByOrderID(ctx context.Context, orderID int64) (*paymentDatamodel.Payment, error)
	LockByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error)
	LockByOrderID(ctx context.Context, orderID int64) (*paymentDatamodel.Payment, error)
	MarkVerified(ctx context.Context, id int64, method string, transactionID *string, verifiedBy *int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	AttachProof(ctx context.Context, id int64, proofRef string) error
}

// OrderCoupler advances order status from payment outcomes.
type OrderCoupler interface {
	UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, orderID int64, paymentStatus string) (*order.Order, error)
	GetOrder(ctx context.Context, id int64) (*order.Order, error)
}

// StockLedger takes units for a verified payment and broadcasts the change once committed.
type StockLedger interface {
	DeductWithLock(ctx context.Context, tx *gorm.DB, productID int64, qty int, actorID string) (*stock.Change, error)
	PublishChange(ctx context.Context, change *stock.Change)
}

type ServiceAPI interface {
	CreatePayment(ctx context.Context, orderID int64, method string, amount int64) (*Payment, error)
	VerifyAutomatic(ctx context.Context, orderID int64, transactionID string) (*Payment, error)
	VerifyManual(ctx context.Context, paymentID int64, adminID int64) (*Payment, error)
	MarkFailed(ctx context.Context, paymentID int64, reason string) (*Payment, error)
	AttachProof(ctx context.Context, paymentID int64, proofRef string) (*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*Payment, error)
}

type Service struct {
	db      *gorm.DB
	repo    RepositoryAPI
	orders  OrderCoupler
	ledger  StockLedger
	bus     events.Publisher
	metrics *metrics.EngineMetrics
	logger  *slog.Logger
}

func NewService(db *gorm.DB, repo RepositoryAPI, orders OrderCoupler, ledger StockLedger, bus events.Publisher, m *metrics.EngineMetrics, logger *slog.Logger) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		orders:  orders,
		ledger:  ledger,
		bus:     bus,
		metrics: m,
		logger:  logger,
	}
}

// verification is what a committed verification leaves for the post-commit side effects.
type verification struct {
	payment *paymentDatamodel.Payment
	order   *order.Order
	change  *stock.Change
	noop    bool
}

// OpenPayment inserts a pending payment on the caller's transaction.
func (s *Service) OpenPayment(ctx context.Context, tx *gorm.DB, orderID int64, method string, amount int64) (int64, error) {
	p, err := s.create(ctx, s.repo.WithTx(tx), orderID, method, amount)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

func (s *Service) CreatePayment(ctx context.Context, orderID int64, method string, amount int64) (*Payment, error) {
	var created *paymentDatamodel.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.create(ctx, s.repo.WithTx(tx), orderID, method, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromDataModel(created), nil
}

func (s *Service) create(ctx context.Context, repo RepositoryAPI, orderID int64, method string, amount int64) (*paymentDatamodel.Payment, error) {
	if verr := validation.ValidatePaymentMethod(method); verr != nil {
		return nil, verr
	}
	if verr := validation.ValidateAmount(amount); verr != nil {
		return nil, verr
	}

	if _, err := repo.GetByOrderID(ctx, orderID); err == nil {
		return nil, errors.ErrPaymentExists
	} else if !isNotFound(err) {
		return nil, errors.NewInternalError("failed to check existing payment", err)
	}

	p := &paymentDatamodel.Payment{
		OrderID:       orderID,
		PaymentMethod: method,
		Amount:        amount,
		Status:        StatusPending,
	}
	if err := repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create payment record", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to create payment", err)
	}

	s.logger.Info("payment record created",
		"payment_id", p.ID,
		"order_id", orderID,
		"payment_method", method,
		"amount", amount)
	return p, nil
}

// VerifyAutomatic applies an authenticated gateway confirmation. Repeated calls
// for the same order return the verified record without taking stock again.
func (s *Service) VerifyAutomatic(ctx context.Context, orderID int64, transactionID string) (*Payment, error) {
	if transactionID == "" {
		return nil, errors.NewValidationFieldError("transaction_id", "transaction_id is required", errors.ErrCodeValidationFailed)
	}

	var result verification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.LockByOrderID(ctx, orderID)
		if err != nil {
			return err
		}

		result, err = s.verifyLocked(ctx, tx, repo, p, VerificationAutomatic, &transactionID, nil, "gateway:"+transactionID)
		return err
	})
	if err != nil {
		s.logger.Error("automatic verification failed", "error", err, "order_id", orderID, "transaction_id", transactionID)
		return nil, err
	}

	if result.noop {
		s.logger.Info("payment already verified, skipping", "order_id", orderID, "transaction_id", transactionID)
		return FromDataModel(result.payment), nil
	}

	s.afterVerified(ctx, result, transactionID, 0)
	return FromDataModel(result.payment), nil
}

// VerifyManual applies an admin's confirmation of a bank transfer. The caller
// has already established that adminID may verify payments.
func (s *Service) VerifyManual(ctx context.Context, paymentID int64, adminID int64) (*Payment, error) {
	var result verification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.PaymentMethod != MethodManualTransfer {
			return errors.ErrMethodMismatch
		}

		result, err = s.verifyLocked(ctx, tx, repo, p, VerificationManual, nil, &adminID, stock.AdminActor(fmt.Sprintf("%d", adminID)))
		return err
	})
	if err != nil {
		s.logger.Error("manual verification failed", "error", err, "payment_id", paymentID, "admin_id", adminID)
		return nil, err
	}

	if result.noop {
		s.logger.Info("payment already verified, skipping", "payment_id", paymentID, "admin_id", adminID)
		return FromDataModel(result.payment), nil
	}

	s.afterVerified(ctx, result, "", adminID)
	return FromDataModel(result.payment), nil
}

// verifyLocked runs with the payment row locked. The status read here is
// authoritative: a concurrent verifier waits on the lock and then sees verified.
func (s *Service) verifyLocked(ctx context.Context, tx *gorm.DB, repo RepositoryAPI, p *paymentDatamodel.Payment, method string, transactionID *string, verifiedBy *int64, actorID string) (verification, error) {
	switch p.Status {
	case StatusVerified:
		return verification{payment: p, noop: true}, nil
	case StatusFailed:
		return verification{}, errors.ErrInvalidTransition
	}

	ord, err := s.orders.UpdatePaymentStatus(ctx, tx, p.OrderID, StatusVerified)
	if err != nil {
		return verification{}, err
	}

	change, err := s.ledger.DeductWithLock(ctx, tx, ord.ProductID, ord.Quantity, actorID)
	if err != nil {
		return verification{}, err
	}

	if err := repo.MarkVerified(ctx, p.ID, method, transactionID, verifiedBy, time.Now().UTC()); err != nil {
		return verification{}, err
	}

	// respond with the stored row so a repeat call returns the same record
	verified, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		return verification{}, err
	}

	return verification{payment: verified, order: ord, change: change}, nil
}

// afterVerified runs the post-commit side effects. None of them can fail the verification.
func (s *Service) afterVerified(ctx context.Context, v verification, transactionID string, adminID int64) {
	method := *v.payment.VerificationMethod
	s.metrics.RecordPaymentTransition(StatusVerified, method)

	s.logger.Info("payment verified",
		"payment_id", v.payment.ID,
		"order_id", v.payment.OrderID,
		"verification_method", method,
		"transaction_id", transactionID,
		"verified_by", adminID,
		"new_quantity", v.change.NewQuantity)

	s.ledger.PublishChange(ctx, v.change)

	if s.bus != nil {
		event := events.NewPaymentVerifiedEvent(v.payment.ID, v.payment.OrderID, v.order.CustomerID,
			v.payment.Amount, method, transactionID, adminID)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish payment verified event", "error", err, "payment_id", v.payment.ID)
		}
	}
}

// MarkFailed moves a pending payment to failed. It never touches stock.
func (s *Service) MarkFailed(ctx context.Context, paymentID int64, reason string) (*Payment, error) {
	if verr := (FailRequest{Reason: reason}).Validate(); verr != nil {
		return nil, verr
	}

	var (
		failed *paymentDatamodel.Payment
		ord    *order.Order
		noop   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return err
		}

		switch p.Status {
		case StatusFailed:
			failed, noop = p, true
			return nil
		case StatusVerified:
			return errors.ErrInvalidTransition
		}

		if err := repo.MarkFailed(ctx, p.ID, reason); err != nil {
			return err
		}

		ord, err = s.orders.UpdatePaymentStatus(ctx, tx, p.OrderID, StatusFailed)
		if err != nil {
			return err
		}

		failed, err = repo.GetByID(ctx, p.ID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to mark payment failed", "error", err, "payment_id", paymentID)
		return nil, err
	}

	if noop {
		s.logger.Info("payment already failed, skipping", "payment_id", paymentID)
		return FromDataModel(failed), nil
	}

	s.metrics.RecordPaymentTransition(StatusFailed, failed.PaymentMethod)
	s.logger.Info("payment marked failed",
		"payment_id", failed.ID,
		"order_id", failed.OrderID,
		"order_status", ord.OrderStatus,
		"reason", reason)

	if s.bus != nil {
		event := events.NewPaymentFailedEvent(failed.ID, failed.OrderID, ord.CustomerID, failed.Amount, reason)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish payment failed event", "error", err, "payment_id", failed.ID)
		}
	}

	return FromDataModel(failed), nil
}

// AttachProof records a customer's transfer proof against a pending manual payment.
func (s *Service) AttachProof(ctx context.Context, paymentID int64, proofRef string) (*Payment, error) {
	if verr := (ProofRequest{ProofReference: proofRef}).Validate(); verr != nil {
		return nil, verr
	}

	var updated *paymentDatamodel.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.LockByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.PaymentMethod != MethodManualTransfer {
			return errors.ErrMethodMismatch
		}
		if IsTerminal(p.Status) {
			return errors.ErrInvalidTransition
		}

		if err := repo.AttachProof(ctx, p.ID, proofRef); err != nil {
			return errors.NewInternalError("failed to attach proof", err)
		}

		updated, err = repo.GetByID(ctx, p.ID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to attach payment proof", "error", err, "payment_id", paymentID)
		return nil, err
	}

	s.logger.Info("payment proof attached", "payment_id", updated.ID, "order_id", updated.OrderID)

	if s.bus != nil {
		customerID := ""
		if ord, err := s.orders.GetOrder(ctx, updated.OrderID); err == nil {
			customerID = ord.CustomerID
		} else {
			s.logger.Warn("failed to load order for proof notification", "error", err, "order_id", updated.OrderID)
		}
		event := events.NewPaymentProofSubmittedEvent(updated.ID, updated.OrderID, customerID, updated.Amount, proofRef)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish proof submitted event", "error", err, "payment_id", updated.ID)
		}
	}

	return FromDataModel(updated), nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(p), nil
}

func (s *Service) GetPaymentByOrderID(ctx context.Context, orderID int64) (*Payment, error) {
	p, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return FromDataModel(p), nil
}

func isNotFound(err error) bool {
	appErr, ok := errors.IsAppError(err)
	return ok && appErr.Type == errors.ErrorTypeNotFound
}
