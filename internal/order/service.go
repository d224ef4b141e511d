package order

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	orderDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/order"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	"github.com/frahmantamala/shopbot-engine/internal/core/events"
	"gorm.io/gorm"
)

type RepositoryAPI interface {
	WithTx(tx *gorm.DB) RepositoryAPI
	Create(ctx context.Context, o *orderDatamodel.Order) error
	GetByID(ctx context.Context, id int64) (*orderDatamodel.Order, error)
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*orderDatamodel.Order, error)
	UpdateStatuses(ctx context.Context, id int64, paymentStatus, orderStatus string) error
	GetProduct(ctx context.Context, productID int64) (*productDatamodel.Product, error)
}

// PaymentOpener creates the pending payment that accompanies a new order.
type PaymentOpener interface {
	OpenPayment(ctx context.Context, tx *gorm.DB, orderID int64, method string, amount int64) (int64, error)
}

type ServiceAPI interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
	UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, orderID int64, paymentStatus string) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListCustomerOrders(ctx context.Context, customerID string, limit, offset int) ([]*Order, error)
}

type Service struct {
	db              *gorm.DB
	repo            RepositoryAPI
	payments        PaymentOpener
	bus             events.Publisher
	cancelOnFailure bool
	logger          *slog.Logger
}

func NewService(db *gorm.DB, repo RepositoryAPI, bus events.Publisher, cancelOnFailure bool, logger *slog.Logger) *Service {
	return &Service{
		db:              db,
		repo:            repo,
		bus:             bus,
		cancelOnFailure: cancelOnFailure,
		logger:          logger,
	}
}

// SetPaymentOpener wires the payment side after both services exist.
func (s *Service) SetPaymentOpener(p PaymentOpener) {
	s.payments = p
}

// UpdatePaymentStatus is the only path by which a payment outcome changes an
// order's status. It runs on the caller's transaction and never touches stock.
func (s *Service) UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, orderID int64, paymentStatus string) (*Order, error) {
	if tx == nil {
		return nil, errors.NewInternalError("order status update requires an open transaction", nil)
	}
	repo := s.repo.WithTx(tx)

	current, err := repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next := NextStatus(current.OrderStatus, paymentStatus, s.cancelOnFailure)
	if err := repo.UpdateStatuses(ctx, orderID, paymentStatus, next); err != nil {
		s.logger.Error("failed to update order status", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to update order", err)
	}

	s.logger.Info("order payment status updated",
		"order_id", orderID,
		"payment_status", paymentStatus,
		"previous_order_status", current.OrderStatus,
		"order_status", next)

	current.PaymentStatus = paymentStatus
	current.OrderStatus = next
	return FromDataModel(current), nil
}

// Checkout creates an order and its pending payment in one transaction.
// Availability is checked at read time only; stock is taken on verification.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}
	if s.payments == nil {
		return nil, errors.NewInternalError("checkout is not wired to payments", nil)
	}

	var (
		created   *orderDatamodel.Order
		product   *productDatamodel.Product
		paymentID int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		product, err = repo.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if product.AvailabilityStatus != productDatamodel.StatusAvailable {
			return errors.ErrProductUnavailable
		}
		if product.StockQuantity < req.Quantity {
			return errors.Wrap(errors.ErrInsufficientStock, nil).WithDetails(map[string]int{
				"requested": req.Quantity,
				"available": product.StockQuantity,
			})
		}

		created = &orderDatamodel.Order{
			CustomerID:    req.CustomerID,
			ProductID:     req.ProductID,
			Quantity:      req.Quantity,
			TotalAmount:   product.PriceIDR * int64(req.Quantity),
			PaymentMethod: req.PaymentMethod,
			PaymentStatus: PaymentStatusPending,
			OrderStatus:   StatusPending,
		}
		if err := repo.Create(ctx, created); err != nil {
			return errors.NewInternalError("failed to create order", err)
		}

		paymentID, err = s.payments.OpenPayment(ctx, tx, created.ID, req.PaymentMethod, created.TotalAmount)
		return err
	})
	if err != nil {
		s.logger.Error("checkout failed", "error", err, "customer_id", req.CustomerID, "product_id", req.ProductID)
		return nil, err
	}

	s.logger.Info("order placed",
		"order_id", created.ID,
		"payment_id", paymentID,
		"customer_id", created.CustomerID,
		"product_id", created.ProductID,
		"quantity", created.Quantity,
		"total_amount", created.TotalAmount)

	if s.bus != nil {
		event := events.NewOrderPlacedEvent(created.ID, created.CustomerID, product.ID, product.Name,
			created.Quantity, created.TotalAmount, created.PaymentMethod)
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish order placed event", "error", err, "order_id", created.ID)
		}
	}

	return &CheckoutResponse{Order: FromDataModel(created), PaymentID: paymentID}, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(o), nil
}

func (s *Service) ListCustomerOrders(ctx context.Context, customerID string, limit, offset int) ([]*Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repo.ListByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list customer orders", "error", err, "customer_id", customerID)
		return nil, errors.NewInternalError("failed to list orders", err)
	}
	orders := make([]*Order, 0, len(rows))
	for _, r := range rows {
		orders = append(orders, FromDataModel(r))
	}
	return orders, nil
}
