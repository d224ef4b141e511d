package rest_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/auth"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"github.com/frahmantamala/shopbot-engine/internal/transport/middleware"
	"github.com/frahmantamala/shopbot-engine/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubValidator map[string]*auth.Claims

func (s stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, apperrors.ErrInvalidToken
}

func claims(subject, role string) *auth.Claims {
	return &auth.Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: subject}}
}

var _ = Describe("Router", func() {
	var (
		router  *chi.Mux
		store   *notification.MemoryReadStatusStore
		redisUp bool
	)

	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		store = notification.NewMemoryReadStatusStore(time.Hour)
		DeferCleanup(store.Close)
		redisUp = true

		validator := stubValidator{
			"admin-token":    claims("7", auth.RoleAdmin),
			"customer-token": claims("chat-991", auth.RoleCustomer),
		}

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Auth:         auth.NewHandler(validator, lg),
			Notification: notification.NewHandler(store, lg),
			Health: rest.NewHealthHandler(map[string]rest.Checker{
				"postgres": func(context.Context) error { return nil },
				"redis": func(context.Context) error {
					if redisUp {
						return nil
					}
					return fmt.Errorf("connection refused")
				},
			}),
			Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("# metrics"))
			}),
			MetricsPath: "/internal/metrics",
		}, lg)
	})

	It("answers ping with a request id", func() {
		rec := do(http.MethodGet, "/api/v1/ping", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
	})

	It("reports every health component", func() {
		rec := do(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(rest.HealthHealthy))
		Expect(resp.Components).To(HaveKey("postgres"))
		Expect(resp.Components).To(HaveKey("redis"))
	})

	It("goes unhealthy when one dependency is down", func() {
		redisUp = false
		rec := do(http.MethodGet, "/api/v1/health", "")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(rest.HealthUnhealthy))
		Expect(resp.Components["redis"].Message).To(Equal("connection refused"))
		Expect(resp.Components["postgres"].Status).To(Equal(rest.HealthHealthy))
	})

	It("mounts metrics on the configured path", func() {
		rec := do(http.MethodGet, "/internal/metrics", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("# metrics"))
	})

	Describe("admin routes", func() {
		It("require a token", func() {
			Expect(do(http.MethodPost, "/api/v1/notifications/m-1/read", "").Code).To(Equal(http.StatusUnauthorized))
			Expect(do(http.MethodPost, "/api/v1/notifications/m-1/read", "forged").Code).To(Equal(http.StatusUnauthorized))
		})

		It("refuse customers", func() {
			Expect(do(http.MethodPost, "/api/v1/notifications/m-1/read", "customer-token").Code).To(Equal(http.StatusForbidden))
		})

		It("let an admin mark a notification read", func() {
			rec := do(http.MethodPost, "/api/v1/notifications/m-1/read", "admin-token")
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodGet, "/api/v1/notifications/m-1", "admin-token")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var status notification.ReadStatus
			Expect(json.Unmarshal(rec.Body.Bytes(), &status)).To(Succeed())
			Expect(status.AdminID).To(Equal(int64(7)))
		})
	})

	It("leaves unmounted handlers off the tree", func() {
		Expect(do(http.MethodGet, "/api/v1/catalog", "").Code).To(Equal(http.StatusNotFound))
	})
})
