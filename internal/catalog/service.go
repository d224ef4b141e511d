package catalog

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/shopbot-engine/internal/stocknotify"
)

type RepositoryAPI interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ListAvailable(ctx context.Context) ([]*Product, error)
	// SyncAvailability re-reads ledger quantity and status and applies
	// TargetStatus with a conditional update.
	SyncAvailability(ctx context.Context, productID int64) (*SyncResult, error)
}

// CacheAPI is best-effort: a miss is (nil, nil) and callers log, never fail, on errors.
type CacheAPI interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	SetProduct(ctx context.Context, p *Product) error
	GetList(ctx context.Context) ([]*Product, error)
	SetList(ctx context.Context, products []*Product) error
	Invalidate(ctx context.Context, productID int64) error
}

type ServiceAPI interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ListAvailable(ctx context.Context) ([]*Product, error)
	HandleStockUpdate(ctx context.Context, event stocknotify.Event)
}

// UpdateSource is satisfied by *stocknotify.Subscriber.
type UpdateSource interface {
	SubscribeToUpdates(cb stocknotify.Callback) (unsubscribe func())
}

type Service struct {
	repo   RepositoryAPI
	cache  CacheAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, cache CacheAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Attach registers the synchronizer on src.
func (s *Service) Attach(src UpdateSource) (detach func()) {
	return src.SubscribeToUpdates(s.HandleStockUpdate)
}

func (s *Service) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	if cached, err := s.cache.GetProduct(ctx, productID); err != nil {
		s.logger.Warn("catalog cache read failed", "error", err, "product_id", productID)
	} else if cached != nil {
		return cached, nil
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warn("catalog cache write failed", "error", err, "product_id", productID)
	}
	return product, nil
}

func (s *Service) ListAvailable(ctx context.Context) ([]*Product, error) {
	if cached, err := s.cache.GetList(ctx); err != nil {
		s.logger.Warn("catalog list cache read failed", "error", err)
	} else if cached != nil {
		return cached, nil
	}

	products, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetList(ctx, products); err != nil {
		s.logger.Warn("catalog list cache write failed", "error", err)
	}
	return products, nil
}

// HandleStockUpdate is the synchronizer callback. Cache invalidation happens
// first and failures there do not stop the availability check.
func (s *Service) HandleStockUpdate(ctx context.Context, event stocknotify.Event) {
	if err := s.cache.Invalidate(ctx, event.ProductID); err != nil {
		s.logger.Warn("catalog cache invalidation failed", "error", err, "product_id", event.ProductID)
	}

	result, err := s.repo.SyncAvailability(ctx, event.ProductID)
	if err != nil {
		s.logger.Error("catalog sync failed", "error", err, "product_id", event.ProductID)
		return
	}

	if result.Flipped() {
		s.logger.Info("product availability changed",
			"product_id", result.ProductID,
			"quantity", result.Quantity,
			"from", result.PreviousStatus,
			"to", result.Status,
			"actor_id", event.ActorID)

		// the list may have been repopulated between invalidate and flip
		if err := s.cache.Invalidate(ctx, event.ProductID); err != nil {
			s.logger.Warn("catalog cache invalidation failed", "error", err, "product_id", event.ProductID)
		}
	}
}
