package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/catalog"
	catalogCache "github.com/frahmantamala/shopbot-engine/internal/catalog/cache"
	catalogPostgres "github.com/frahmantamala/shopbot-engine/internal/catalog/postgres"
	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
	"github.com/frahmantamala/shopbot-engine/internal/core/events"
	"github.com/frahmantamala/shopbot-engine/internal/core/redisx"
	"github.com/frahmantamala/shopbot-engine/internal/metrics"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	notificationPostgres "github.com/frahmantamala/shopbot-engine/internal/notification/postgres"
	"github.com/frahmantamala/shopbot-engine/internal/order"
	orderPostgres "github.com/frahmantamala/shopbot-engine/internal/order/postgres"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
	paymentPostgres "github.com/frahmantamala/shopbot-engine/internal/payment/postgres"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	stockPostgres "github.com/frahmantamala/shopbot-engine/internal/stock/postgres"
	"github.com/frahmantamala/shopbot-engine/internal/stocknotify"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Engine holds the wired services shared by the server and the workers.
type Engine struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Gorm    *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.EngineMetrics
	Bus     *events.EventBus
	Logger  *slog.Logger

	Publisher  *stocknotify.Publisher
	Subscriber *stocknotify.Subscriber
	Chat       *chattransport.Client

	Stock            *stock.Service
	Orders           *order.Service
	Payments         *payment.Service
	Catalog          *catalog.Service
	NotificationRepo notification.RepositoryAPI
}

func buildEngine(ctx context.Context, cfg *internal.Config, lg *slog.Logger) (*Engine, error) {
	db, gdb, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb := redisx.New(cfg.Redis)
	if err := redisx.Ping(ctx, rdb); err != nil {
		_ = db.Close()
		return nil, err
	}

	m := metrics.NewEngineMetrics()
	bus := events.NewEventBus(lg)

	publisher := stocknotify.NewPublisher(rdb, cfg.Stock.UpdateChannel, cfg.Stock.PublishTimeout, lg)
	subscriber := stocknotify.NewSubscriber(rdb, stocknotify.SubscriberConfig{
		Channel:    cfg.Stock.UpdateChannel,
		MaxRetries: cfg.Stock.SubscribeMaxRetries,
		Backoff:    cfg.Stock.SubscribeBackoff,
	}, m, lg)

	chat := chattransport.NewClient(chattransport.Config{
		BaseURL:      cfg.Notification.TransportURL,
		Token:        cfg.Notification.TransportToken,
		Timeout:      cfg.Notification.DeliveryTimeout,
		MaxWorkers:   cfg.Notification.TransportWorkers,
		JobQueueSize: cfg.Notification.TransportQueue,
	}, lg)

	stockSvc := stock.NewService(gdb, stockPostgres.NewLedgerRepository(gdb), stockPostgres.NewQueryRepository(db), publisher, m, lg)
	orderSvc := order.NewService(gdb, orderPostgres.NewOrderRepository(gdb), bus, cfg.Order.CancelOnPaymentFailure, lg)
	paymentSvc := payment.NewService(gdb, paymentPostgres.NewPaymentRepository(gdb), orderSvc, stockSvc, bus, m, lg)
	orderSvc.SetPaymentOpener(paymentSvc)

	catalogSvc := catalog.NewService(
		catalogPostgres.NewCatalogRepository(gdb, db),
		catalogCache.NewRedisCache(rdb, cfg.Catalog.CacheTTL),
		lg,
	)

	return &Engine{
		Config:           cfg,
		DB:               db,
		Gorm:             gdb,
		Redis:            rdb,
		Metrics:          m,
		Bus:              bus,
		Logger:           lg,
		Publisher:        publisher,
		Subscriber:       subscriber,
		Chat:             chat,
		Stock:            stockSvc,
		Orders:           orderSvc,
		Payments:         paymentSvc,
		Catalog:          catalogSvc,
		NotificationRepo: notificationPostgres.NewNotificationRepository(gdb),
	}, nil
}

// registerNotifications routes domain events to admins and customers.
func (e *Engine) registerNotifications() {
	dispatcher := notification.NewDispatcher(e.NotificationRepo, e.Chat, e.Config.Notification.DeliveryTimeout, e.Metrics, e.Logger)
	customers := notification.NewCustomerNotifier(e.Chat, e.Logger)
	notification.NewEventHandler(dispatcher, customers, e.Logger).RegisterEventHandlers(e.Bus)
}

func (e *Engine) Close() {
	e.Subscriber.Stop()
	e.Bus.Wait()
	e.Chat.Shutdown()

	if err := e.Redis.Close(); err != nil {
		e.Logger.Error("redis close error", "error", err)
	}
	if err := e.DB.Close(); err != nil {
		e.Logger.Error("database close error", "error", err)
	}
}

// initDB opens one pgx pool and shares it between sqlx reads and gorm transactions.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, *gorm.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		_ = dbConn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return dbConn, gdb, nil
}
