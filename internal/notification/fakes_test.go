package notification_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type sentMessage struct {
	ChatID  string
	Message chattransport.Message
}

// fakeSender succeeds unless the chat id is listed as failing or slow.
type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failing map[string]bool
	slow    map[string]time.Duration
	counter int
}

func newFakeSender() *fakeSender {
	return &fakeSender{failing: map[string]bool{}, slow: map[string]time.Duration{}}
}

func (f *fakeSender) Send(ctx context.Context, chatID string, msg chattransport.Message) (string, error) {
	f.mu.Lock()
	delay := f.slow[chatID]
	fail := f.failing[chatID]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail {
		return "", errors.New("chat unreachable")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Message: msg})
	return fmt.Sprintf("msg-%d", f.counter), nil
}

func (f *fakeSender) setFailing(chatID string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[chatID] = fail
}

func (f *fakeSender) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []chattransport.Job
}

func (q *fakeQueue) Enqueue(job chattransport.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Jobs() []chattransport.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]chattransport.Job(nil), q.jobs...)
}
