package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/core/redisx"
	"github.com/redis/go-redis/v9"
)

type ReadStatus struct {
	MessageID string    `json:"message_id"`
	AdminID   int64     `json:"admin_id"`
	ReadAt    time.Time `json:"read_at"`
}

// ReadStatusStore records which admin first opened a notification. Entries
// expire after the store's TTL.
type ReadStatusStore interface {
	MarkRead(ctx context.Context, messageID string, adminID int64) (*ReadStatus, error)
	Get(ctx context.Context, messageID string) (*ReadStatus, error)
	Close() error
}

type memoryEntry struct {
	status    ReadStatus
	expiresAt time.Time
}

// MemoryReadStatusStore keeps entries in process. A janitor goroutine purges
// expired entries until Close.
type MemoryReadStatusStore struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]memoryEntry
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

func NewMemoryReadStatusStore(ttl time.Duration) *MemoryReadStatusStore {
	if ttl <= 0 {
		ttl = redisx.TTLReadStatus
	}
	s := &MemoryReadStatusStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go s.janitor(janitorInterval(ttl))
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// MarkRead keeps the first reader; later calls return the existing entry.
func (s *MemoryReadStatusStore) MarkRead(_ context.Context, messageID string, adminID int64) (*ReadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[messageID]; ok && now.Before(e.expiresAt) {
		status := e.status
		return &status, nil
	}

	status := ReadStatus{MessageID: messageID, AdminID: adminID, ReadAt: now.UTC()}
	s.entries[messageID] = memoryEntry{status: status, expiresAt: now.Add(s.ttl)}
	return &status, nil
}

func (s *MemoryReadStatusStore) Get(_ context.Context, messageID string) (*ReadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[messageID]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, apperrors.ErrNotificationMissing
	}
	status := e.status
	return &status, nil
}

func (s *MemoryReadStatusStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryReadStatusStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryReadStatusStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *MemoryReadStatusStore) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// RedisReadStatusStore shares read receipts across processes.
type RedisReadStatusStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisReadStatusStore(rdb redis.UniversalClient, ttl time.Duration) *RedisReadStatusStore {
	if ttl <= 0 {
		ttl = redisx.TTLReadStatus
	}
	return &RedisReadStatusStore{rdb: rdb, ttl: ttl}
}

func (s *RedisReadStatusStore) MarkRead(ctx context.Context, messageID string, adminID int64) (*ReadStatus, error) {
	status := ReadStatus{MessageID: messageID, AdminID: adminID, ReadAt: time.Now().UTC()}
	raw, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}

	created, err := s.rdb.SetNX(ctx, redisx.NotificationReadKey(messageID), raw, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if created {
		return &status, nil
	}
	return s.Get(ctx, messageID)
}

func (s *RedisReadStatusStore) Get(ctx context.Context, messageID string) (*ReadStatus, error) {
	raw, err := s.rdb.Get(ctx, redisx.NotificationReadKey(messageID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotificationMissing
	}
	if err != nil {
		return nil, err
	}

	var status ReadStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Close is a no-op; the client is owned by the caller.
func (s *RedisReadStatusStore) Close() error {
	return nil
}
