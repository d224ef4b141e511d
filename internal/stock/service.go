package stock

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/core/common/validation"
	stockDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
	"github.com/frahmantamala/shopbot-engine/internal/core/sideeffect"
	"github.com/frahmantamala/shopbot-engine/internal/metrics"
	"gorm.io/gorm"
)

// RepositoryAPI is the write side of the ledger. Implementations bound with
// WithTx run every statement on that transaction.
type RepositoryAPI interface {
	WithTx(tx *gorm.DB) RepositoryAPI
	LockLedger(ctx context.Context, productID int64) (*stockDatamodel.Ledger, error)
	DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error)
	SetQuantity(ctx context.Context, productID int64, qty int) error
	AppendHistory(ctx context.Context, h *stockDatamodel.History) error
	SyncProduct(ctx context.Context, productID int64, qty int) (string, error)
	ListHistory(ctx context.Context, productID int64, limit int) ([]*stockDatamodel.History, error)
}

// QueryAPI is the read model over products joined with their ledgers.
type QueryAPI interface {
	GetLevel(ctx context.Context, productID int64) (*Level, error)
	ListAtOrBelow(ctx context.Context, threshold int) ([]*Level, error)
}

// UpdatePublisher broadcasts committed ledger changes.
type UpdatePublisher interface {
	NotifyStockUpdate(ctx context.Context, productID int64, previousQty, newQty int, actorID string) sideeffect.Result
}

type ServiceAPI interface {
	DeductWithLock(ctx context.Context, tx *gorm.DB, productID int64, qty int, actorID string) (*Change, error)
	UpdateQuantity(ctx context.Context, tx *gorm.DB, productID int64, newQty int, actorID string) (*Change, error)
	GetStock(ctx context.Context, productID int64) (*Level, error)
	ListLowStock(ctx context.Context, threshold int) ([]*Level, error)
	History(ctx context.Context, productID int64, limit int) ([]*HistoryEntry, error)
}

type Service struct {
	db        *gorm.DB
	repo      RepositoryAPI
	query     QueryAPI
	publisher UpdatePublisher
	metrics   *metrics.EngineMetrics
	logger    *slog.Logger
}

func NewService(db *gorm.DB, repo RepositoryAPI, query QueryAPI, publisher UpdatePublisher, m *metrics.EngineMetrics, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		query:     query,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// DeductWithLock removes qty units inside the caller's transaction. The ledger
// row is locked before it is read, so concurrent callers serialize on it and
// the quantity can never drop below zero. The caller publishes after commit.
func (s *Service) DeductWithLock(ctx context.Context, tx *gorm.DB, productID int64, qty int, actorID string) (*Change, error) {
	if tx == nil {
		return nil, errors.NewInternalError("stock deduction requires an open transaction", nil)
	}
	if verr := validation.ValidateQuantity("quantity", qty); verr != nil {
		return nil, verr
	}

	start := time.Now()
	change, err := s.deduct(ctx, s.repo.WithTx(tx), productID, qty, actorID)
	s.metrics.RecordDeduction(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock deducted",
		"product_id", productID,
		"quantity", qty,
		"previous_quantity", change.PreviousQuantity,
		"new_quantity", change.NewQuantity,
		"availability_status", change.AvailabilityStatus,
		"actor_id", actorID)
	return change, nil
}

func (s *Service) deduct(ctx context.Context, repo RepositoryAPI, productID int64, qty int, actorID string) (*Change, error) {
	ledger, err := repo.LockLedger(ctx, productID)
	if err != nil {
		return nil, err
	}

	if ledger.CurrentQuantity < qty {
		s.logger.Warn("insufficient stock",
			"product_id", productID,
			"requested", qty,
			"available", ledger.CurrentQuantity)
		return nil, errors.Wrap(errors.ErrInsufficientStock, nil).WithDetails(map[string]int{
			"requested": qty,
			"available": ledger.CurrentQuantity,
		})
	}

	ok, err := repo.DecrementIfAvailable(ctx, productID, qty)
	if err != nil {
		s.logger.Error("failed to decrement ledger", "error", err, "product_id", productID)
		return nil, errors.NewInternalError("failed to update stock", err)
	}
	if !ok {
		return nil, errors.ErrInsufficientStock
	}

	newQty := ledger.CurrentQuantity - qty
	return s.record(ctx, repo, productID, ledger.CurrentQuantity, newQty, actorID, ReasonSale)
}

// UpdateQuantity sets an absolute quantity. With a nil tx it runs its own
// transaction and publishes the change once committed; with a caller tx the
// caller owns commit and publication.
func (s *Service) UpdateQuantity(ctx context.Context, tx *gorm.DB, productID int64, newQty int, actorID string) (*Change, error) {
	if newQty < 0 {
		s.logger.Warn("rejected negative stock quantity", "product_id", productID, "quantity", newQty, "actor_id", actorID)
		return nil, errors.ErrNegativeStock
	}

	if tx != nil {
		return s.setQuantity(ctx, s.repo.WithTx(tx), productID, newQty, actorID)
	}

	var change *Change
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = s.setQuantity(ctx, s.repo.WithTx(tx), productID, newQty, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.PublishChange(ctx, change)
	return change, nil
}

func (s *Service) setQuantity(ctx context.Context, repo RepositoryAPI, productID int64, newQty int, actorID string) (*Change, error) {
	ledger, err := repo.LockLedger(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := repo.SetQuantity(ctx, productID, newQty); err != nil {
		s.logger.Error("failed to set ledger quantity", "error", err, "product_id", productID)
		return nil, errors.NewInternalError("failed to update stock", err)
	}

	reason := ReasonAdminSet
	if newQty > ledger.CurrentQuantity {
		reason = ReasonRestock
	}

	change, err := s.record(ctx, repo, productID, ledger.CurrentQuantity, newQty, actorID, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock quantity set",
		"product_id", productID,
		"previous_quantity", change.PreviousQuantity,
		"new_quantity", change.NewQuantity,
		"availability_status", change.AvailabilityStatus,
		"actor_id", actorID)
	return change, nil
}

// record appends history and mirrors the quantity onto the product row,
// flipping availability inline.
func (s *Service) record(ctx context.Context, repo RepositoryAPI, productID int64, prev, next int, actorID, reason string) (*Change, error) {
	if actorID == "" {
		actorID = ActorSystem
	}

	if err := repo.AppendHistory(ctx, &stockDatamodel.History{
		ProductID:        productID,
		PreviousQuantity: prev,
		NewQuantity:      next,
		ActorID:          actorID,
		Reason:           reason,
	}); err != nil {
		s.logger.Error("failed to append stock history", "error", err, "product_id", productID)
		return nil, errors.NewInternalError("failed to record stock history", err)
	}

	status, err := repo.SyncProduct(ctx, productID, next)
	if err != nil {
		return nil, err
	}

	return &Change{
		ProductID:          productID,
		PreviousQuantity:   prev,
		NewQuantity:        next,
		ActorID:            actorID,
		AvailabilityStatus: status,
		ChangedAt:          time.Now(),
	}, nil
}

// PublishChange broadcasts a committed change. Failures are logged only.
func (s *Service) PublishChange(ctx context.Context, change *Change) {
	if s.publisher == nil || change == nil {
		return
	}
	res := s.publisher.NotifyStockUpdate(ctx, change.ProductID, change.PreviousQuantity, change.NewQuantity, change.ActorID)
	s.metrics.RecordSideEffect(res.Name, res.OK(), res.Duration)
	sideeffect.Log(s.logger, res, "product_id", change.ProductID)
}

func (s *Service) GetStock(ctx context.Context, productID int64) (*Level, error) {
	level, err := s.query.GetLevel(ctx, productID)
	if err != nil {
		return nil, err
	}
	level.computeAvailable()
	return level, nil
}

func (s *Service) ListLowStock(ctx context.Context, threshold int) ([]*Level, error) {
	if threshold < 0 {
		return nil, errors.NewValidationFieldError("threshold", "threshold must not be negative", errors.ErrCodeInvalidQuantity)
	}
	levels, err := s.query.ListAtOrBelow(ctx, threshold)
	if err != nil {
		s.logger.Error("failed to list low stock", "error", err, "threshold", threshold)
		return nil, errors.NewInternalError("failed to list low stock", err)
	}
	for _, l := range levels {
		l.computeAvailable()
	}
	return levels, nil
}

func (s *Service) History(ctx context.Context, productID int64, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryN
	}
	if limit > MaxHistoryN {
		limit = MaxHistoryN
	}
	rows, err := s.repo.ListHistory(ctx, productID, limit)
	if err != nil {
		s.logger.Error("failed to list stock history", "error", err, "product_id", productID)
		return nil, errors.NewInternalError("failed to list stock history", err)
	}
	entries := make([]*HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, HistoryFromDataModel(r))
	}
	return entries, nil
}
