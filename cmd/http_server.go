package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/auth"
	"github.com/frahmantamala/shopbot-engine/internal/catalog"
	"github.com/frahmantamala/shopbot-engine/internal/core/redisx"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"github.com/frahmantamala/shopbot-engine/internal/order"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	"github.com/frahmantamala/shopbot-engine/internal/transport/rest"
	"github.com/frahmantamala/shopbot-engine/internal/transport/stream"
	"github.com/frahmantamala/shopbot-engine/internal/transport/swagger"
	"github.com/frahmantamala/shopbot-engine/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const openAPIPath = "./api/openapi.yml"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server, the stock update subscriber and the notification pipeline`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Engine     *Engine
	Router     *chi.Mux
	Hub        *stream.Hub
	ReadStatus notification.ReadStatusStore
	detach     []func()
}

func startHTTPServer() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	cfg := deps.Engine.Config
	lg := deps.Engine.Logger

	if err := deps.Engine.Subscriber.Start(ctx); err != nil {
		lg.Error("failed to start stock subscriber", "error", err)
		os.Exit(1)
	}
	go watchSubscriber(ctx, deps, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		lg.Info("Starting HTTP server", "address", addr)
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		lg.Info("Received signal, shutting down...")
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Server shutdown error", "error", err)
	}
	deps.Close()

	lg.Info("Server stopped")
}

// watchSubscriber reports when the subscriber gives up; the catalog and the
// live stream stop receiving updates until restart.
func watchSubscriber(ctx context.Context, deps *Dependencies, lg *slog.Logger) {
	select {
	case <-ctx.Done():
	case <-deps.Engine.Subscriber.Done():
		if err := deps.Engine.Subscriber.Err(); err != nil {
			lg.Error("stock subscriber exhausted retries; catalog sync halted", "error", err)
		}
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	if config.Security.JWTPublicKey == "" {
		return nil, errors.New("security.jwt_public_key is required to serve authenticated routes")
	}
	publicKey, err := config.Security.GetPublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt public key: %w", err)
	}

	engine, err := buildEngine(ctx, config, lg)
	if err != nil {
		return nil, err
	}
	engine.registerNotifications()
	engine.Chat.Start()

	var readStatus notification.ReadStatusStore
	if config.Notification.ReadStatusBackend == "redis" {
		readStatus = notification.NewRedisReadStatusStore(engine.Redis, config.Notification.ReadStatusTTL)
	} else {
		readStatus = notification.NewMemoryReadStatusStore(config.Notification.ReadStatusTTL)
	}

	hub := stream.NewHub(lg)
	deps := &Dependencies{
		Engine:     engine,
		Router:     chi.NewRouter(),
		Hub:        hub,
		ReadStatus: readStatus,
	}
	deps.detach = append(deps.detach,
		engine.Catalog.Attach(engine.Subscriber),
		hub.Attach(engine.Subscriber),
	)

	handlers := rest.Handlers{
		Auth:         auth.NewHandler(auth.NewVerifier(publicKey, config.Security.Issuer), lg),
		Order:        order.NewHandler(engine.Orders, lg),
		Payment:      payment.NewHandler(engine.Payments, lg),
		Webhook:      payment.NewWebhookHandler(engine.Payments, lg),
		Stock:        stock.NewHandler(engine.Stock, config.Stock.LowStockThreshold, lg),
		Catalog:      catalog.NewHandler(engine.Catalog, lg),
		Notification: notification.NewHandler(readStatus, lg),
		Stream:       stream.NewHandler(hub, config.Server.AllowedOrigins, lg),
		Health: rest.NewHealthHandler(map[string]rest.Checker{
			"postgres": engine.DB.PingContext,
			"redis": func(ctx context.Context) error {
				return redisx.Ping(ctx, engine.Redis)
			},
		}),
		CORSOrigins: config.Server.AllowedOrigins,
	}

	if spec, err := swagger.SpecHandler(ctx, openAPIPath); err != nil {
		lg.Warn("openapi document unavailable; swagger routes disabled", "error", err)
	} else {
		handlers.Spec = spec
	}

	if config.Observability.Metrics.Enabled {
		handlers.Metrics = promhttp.Handler()
		handlers.MetricsPath = config.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(deps.Router, handlers, lg)
	return deps, nil
}

func (d *Dependencies) Close() {
	for _, detach := range d.detach {
		detach()
	}
	d.Hub.Close()
	d.Engine.Close()
	if err := d.ReadStatus.Close(); err != nil {
		d.Engine.Logger.Error("read status store close error", "error", err)
	}
}
