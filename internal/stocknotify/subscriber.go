package stocknotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
	maxBackoff        = 30 * time.Second
)

var ErrAlreadyRunning = errors.New("stock subscriber already running")

// Callback receives each decoded event once. It runs on the subscriber's
// goroutine, so slow callbacks delay later events.
type Callback func(ctx context.Context, event Event)

type SubscriberConfig struct {
	Channel    string
	MaxRetries int
	Backoff    time.Duration
}

// Subscriber owns a dedicated subscription and fans events out to registered callbacks.
type Subscriber struct {
	rdb     redis.UniversalClient
	cfg     SubscriberConfig
	logger  *slog.Logger
	metrics *metrics.EngineMetrics

	mu        sync.RWMutex
	callbacks map[uint64]Callback
	nextID    uint64

	runMu   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

func NewSubscriber(rdb redis.UniversalClient, cfg SubscriberConfig, m *metrics.EngineMetrics, logger *slog.Logger) *Subscriber {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Subscriber{
		rdb:       rdb,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		callbacks: make(map[uint64]Callback),
	}
}

// SubscribeToUpdates registers cb and returns a func that removes it.
func (s *Subscriber) SubscribeToUpdates(cb Callback) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.callbacks[id] = cb
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.callbacks, id)
			s.mu.Unlock()
		})
	}
}

// Start launches the receive loop. The loop ends on Stop, on cancellation of
// ctx, or after MaxRetries consecutive failed (re)subscriptions.
func (s *Subscriber) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.done != nil {
		select {
		case <-s.done:
		default:
			return ErrAlreadyRunning
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.lastErr = nil

	go func(done chan struct{}) {
		defer close(done)
		err := s.run(runCtx)
		s.runMu.Lock()
		s.lastErr = err
		s.runMu.Unlock()
		if err != nil {
			s.logger.Error("stock subscriber stopped", "error", err, "channel", s.cfg.Channel)
		}
	}(s.done)

	s.logger.Info("stock subscriber started", "channel", s.cfg.Channel)
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (s *Subscriber) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("stock subscriber stopped", "channel", s.cfg.Channel)
}

// Done is closed when the receive loop exits.
func (s *Subscriber) Done() <-chan struct{} {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.done
}

// Err reports why the loop exited; nil after a requested stop.
func (s *Subscriber) Err() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.lastErr
}

func (s *Subscriber) run(ctx context.Context) error {
	failures := 0
	for {
		subscribed, err := s.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			failures = 0
		}
		failures++

		if failures > s.cfg.MaxRetries {
			return fmt.Errorf("giving up after %d consecutive failures: %w", failures, err)
		}

		delay := s.backoff(failures)
		s.logger.Warn("stock subscription lost, retrying",
			"error", err,
			"attempt", failures,
			"max_retries", s.cfg.MaxRetries,
			"retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (s *Subscriber) backoff(attempt int) time.Duration {
	d := s.cfg.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// session subscribes and receives until an error. subscribed reports whether
// the subscription was confirmed before the error.
func (s *Subscriber) session(ctx context.Context) (subscribed bool, err error) {
	ps := s.rdb.Subscribe(ctx, s.cfg.Channel)
	defer ps.Close()

	// Reads on the pubsub connection ignore ctx; closing it unblocks them.
	release := context.AfterFunc(ctx, func() { _ = ps.Close() })
	defer release()

	if _, err := ps.Receive(ctx); err != nil {
		return false, err
	}

	s.metrics.SetSubscriberUp(true)
	defer s.metrics.SetSubscriberUp(false)
	s.logger.Debug("stock subscription confirmed", "channel", s.cfg.Channel)

	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			return true, err
		}
		s.dispatch(ctx, msg.Payload)
	}
}

func (s *Subscriber) dispatch(ctx context.Context, payload string) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.logger.Warn("dropping malformed stock event", "error", err, "payload", payload)
		return
	}

	s.mu.RLock()
	callbacks := make([]Callback, 0, len(s.callbacks))
	for _, cb := range s.callbacks {
		callbacks = append(callbacks, cb)
	}
	s.mu.RUnlock()

	for _, cb := range callbacks {
		s.invoke(ctx, cb, event)
	}
}

func (s *Subscriber) invoke(ctx context.Context, cb Callback, event Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stock update callback panicked", "panic", r, "product_id", event.ProductID)
		}
	}()
	cb(ctx, event)
}
