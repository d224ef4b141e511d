package internal_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func validConfig() *internal.Config {
	cfg := &internal.Config{
		Server:   internal.ServerConfig{Port: 8080, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second},
		Database: internal.DatabaseConfig{Source: "postgres://localhost/shopbot", MaxOpenConns: 10, MaxIdleConns: 2},
		Redis:    internal.RedisConfig{Addr: "localhost:6379"},
	}
	cfg.ApplyDefaults()
	return cfg
}

var _ = Describe("Config", func() {
	Describe("ApplyDefaults", func() {
		It("fills every tunable left at zero", func() {
			cfg := &internal.Config{}
			cfg.ApplyDefaults()

			Expect(cfg.Stock.UpdateChannel).To(Equal("stock_updates"))
			Expect(cfg.Stock.PublishTimeout).To(Equal(500 * time.Millisecond))
			Expect(cfg.Stock.SubscribeMaxRetries).To(Equal(3))
			Expect(cfg.Stock.SubscribeBackoff).To(Equal(time.Second))
			Expect(cfg.Catalog.CacheTTL).To(Equal(10 * time.Minute))
			Expect(cfg.Notification.MaxAttempts).To(Equal(3))
			Expect(cfg.Notification.ReadStatusTTL).To(Equal(24 * time.Hour))
			Expect(cfg.Notification.ReadStatusBackend).To(Equal("memory"))
			Expect(cfg.Observability.Metrics.Path).To(Equal("/metrics"))
		})

		It("keeps explicit values", func() {
			cfg := &internal.Config{Stock: internal.StockConfig{UpdateChannel: "inventory", SubscribeMaxRetries: 7}}
			cfg.ApplyDefaults()

			Expect(cfg.Stock.UpdateChannel).To(Equal("inventory"))
			Expect(cfg.Stock.SubscribeMaxRetries).To(Equal(7))
		})
	})

	Describe("Validate", func() {
		It("accepts a minimal config", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		It("reports every broken section at once", func() {
			cfg := validConfig()
			cfg.Database.Source = ""
			cfg.Redis.Addr = ""
			cfg.Notification.ReadStatusBackend = "memcached"

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database config"))
			Expect(err.Error()).To(ContainSubstring("redis config"))
			Expect(err.Error()).To(ContainSubstring("notification config"))
		})

		It("rejects a read timeout shorter than the header timeout", func() {
			cfg := validConfig()
			cfg.Server.ReadTimeout = time.Millisecond
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("rejects an unknown log level", func() {
			cfg := validConfig()
			cfg.Observability.Logging.Level = "verbose"
			Expect(cfg.Validate()).NotTo(Succeed())
		})
	})

	Describe("SecurityConfig.GetPublicKey", func() {
		It("decodes a base64 PEM RSA key", func() {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			Expect(err).NotTo(HaveOccurred())
			der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
			Expect(err).NotTo(HaveOccurred())
			encoded := base64.StdEncoding.EncodeToString(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

			sec := internal.SecurityConfig{JWTPublicKey: encoded}
			Expect(sec.Validate()).To(Succeed())

			pub, err := sec.GetPublicKey()
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.N).To(Equal(key.PublicKey.N))
		})

		It("rejects garbage", func() {
			sec := internal.SecurityConfig{JWTPublicKey: base64.StdEncoding.EncodeToString([]byte("not a pem"))}
			Expect(sec.Validate()).NotTo(Succeed())
		})
	})

	Describe("LoadConfigFromEnv", func() {
		It("reads prefixed variables and applies defaults", func() {
			GinkgoT().Setenv("DATABASE_SOURCE", "postgres://db/shopbot")
			GinkgoT().Setenv("REDIS_ADDR", "redis:6379")
			GinkgoT().Setenv("STOCK_UPDATE_CHANNEL", "stock_events")
			GinkgoT().Setenv("ORDER_CANCEL_ON_PAYMENT_FAILURE", "false")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Database.Source).To(Equal("postgres://db/shopbot"))
			Expect(cfg.Redis.Addr).To(Equal("redis:6379"))
			Expect(cfg.Stock.UpdateChannel).To(Equal("stock_events"))
			Expect(cfg.Order.CancelOnPaymentFailure).To(BeFalse())
			Expect(cfg.Stock.PublishTimeout).To(Equal(500 * time.Millisecond))
		})
	})
})
