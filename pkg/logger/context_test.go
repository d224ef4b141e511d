package logger_test

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/frahmantamala/shopbot-engine/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("request-scoped logger", func() {
	var (
		buf      *bytes.Buffer
		fallback *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		fallback = slog.New(slog.NewTextHandler(buf, nil))
	})

	It("returns the fallback when nothing was attached", func() {
		Expect(logger.FromOr(context.Background(), fallback)).To(BeIdenticalTo(fallback))
	})

	It("uses slog.Default for a nil fallback", func() {
		Expect(logger.FromOr(context.Background(), nil)).To(BeIdenticalTo(slog.Default()))
	})

	It("accumulates fields across nested With calls", func() {
		ctx := logger.With(context.Background(), "request_id", "req-1")
		ctx = logger.With(ctx, "actor_id", "admin-7")

		l := logger.FromOr(ctx, fallback)
		Expect(l).NotTo(BeIdenticalTo(fallback))
		Expect(logger.From(ctx)).To(BeIdenticalTo(l))
	})

	It("derives from the process logger level", func() {
		logger.Init("production", "json", "")
		ctx := logger.With(context.Background(), "request_id", "req-2")
		Expect(logger.From(ctx).Enabled(ctx, slog.LevelDebug)).To(BeFalse())
		Expect(logger.From(ctx).Enabled(ctx, slog.LevelInfo)).To(BeTrue())
	})
})
