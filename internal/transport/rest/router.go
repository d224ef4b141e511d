package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/shopbot-engine/internal/auth"
	"github.com/frahmantamala/shopbot-engine/internal/catalog"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"github.com/frahmantamala/shopbot-engine/internal/order"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	"github.com/frahmantamala/shopbot-engine/internal/transport/middleware"
	"github.com/frahmantamala/shopbot-engine/internal/transport/stream"
	"github.com/frahmantamala/shopbot-engine/internal/transport/swagger"
	"github.com/go-chi/chi"
)

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	Auth         *auth.Handler
	Order        *order.Handler
	Payment      *payment.Handler
	Webhook      *payment.WebhookHandler
	Stock        *stock.Handler
	Catalog      *catalog.Handler
	Notification *notification.Handler
	Stream       *stream.Handler
	Health       *HealthHandler

	// Spec serves the OpenAPI document; Metrics is the Prometheus scrape endpoint.
	Spec        http.Handler
	Metrics     http.Handler
	MetricsPath string
	CORSOrigins string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, logger *slog.Logger) {
	router.Use(middleware.CORS(h.CORSOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if h.Spec != nil {
		router.Handle("/openapi.yml", h.Spec)
		router.Handle("/swagger/*", swagger.Handler())
	}
	if h.Metrics != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, h.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Webhook != nil {
			r.Post("/payment/callback", h.Webhook.HandlePaymentCallback)
		}

		// Public browsing for the bot front end
		if h.Catalog != nil {
			r.Get("/catalog", h.Catalog.ListAvailable)
			r.Get("/catalog/{productID}", h.Catalog.GetProduct)
		}
		if h.Stream != nil {
			r.Get("/stock/stream", h.Stream.StockStream)
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Order != nil {
				pr.Post("/checkout", h.Order.Checkout)
				pr.Get("/orders/{orderID}", h.Order.GetOrder)
				pr.Get("/customers/{customerID}/orders", h.Order.ListCustomerOrders)
			}
			if h.Payment != nil {
				pr.Get("/orders/{orderID}/payment", h.Payment.GetOrderPayment)
				pr.Get("/payments/{paymentID}", h.Payment.GetPayment)
				pr.Post("/payments/{paymentID}/proof", h.Payment.SubmitProof)
			}
			if h.Stock != nil {
				pr.Get("/products/{productID}/stock", h.Stock.GetStock)
			}

			// Admin only
			pr.Group(func(ar chi.Router) {
				ar.Use(h.Auth.RequireRole(auth.RoleAdmin))

				if h.Payment != nil {
					ar.Post("/payments/{paymentID}/verify", h.Payment.VerifyPayment)
					ar.Post("/payments/{paymentID}/fail", h.Payment.RejectPayment)
				}
				if h.Stock != nil {
					ar.Put("/products/{productID}/stock", h.Stock.SetQuantity)
					ar.Get("/products/{productID}/stock/history", h.Stock.GetHistory)
					ar.Get("/stock/low", h.Stock.ListLowStock)
				}
				if h.Notification != nil {
					ar.Get("/notifications/{messageID}", h.Notification.GetReadStatus)
					ar.Post("/notifications/{messageID}/read", h.Notification.MarkRead)
				}
			})
		})
	})
}
