package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// inMemoryCache is a process-local fallback that satisfies Valkey when the
// external cache is unavailable. Best-effort only: data is not shared
// across replicas and is lost on restart.
type inMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	logger  logger.Logger
}

type memEntry struct {
	data      []byte
	counter   int64
	expiresAt time.Time
}

// NewInMemory returns the in-memory fallback cache.
func NewInMemory(log logger.Logger) Valkey {
	log.Warn("Valkey unavailable; using in-memory fallback cache")
	return &inMemoryCache{entries: make(map[string]memEntry), logger: log}
}

func (c *inMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || expired(e) {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	return e.data, nil
}

func (c *inMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := encodeValue(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = memEntry{data: b, expiresAt: deadline(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *inMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *inMemoryCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || expired(e) {
		e = memEntry{expiresAt: deadline(ttl)}
	}
	e.counter++
	c.entries[key] = e
	return e.counter, nil
}

func (c *inMemoryCache) GetSession(ctx context.Context, sessionID string) (*models.UserSession, error) {
	data, err := c.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, err
	}
	var session models.UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (c *inMemoryCache) SetSession(ctx context.Context, session *models.UserSession) error {
	session.LastActivity = time.Now()
	return c.Set(ctx, sessionKey(session.ID), session, 24*time.Hour)
}

func (c *inMemoryCache) InvalidateSession(ctx context.Context, sessionID string) error {
	return c.Delete(ctx, sessionKey(sessionID))
}

func expired(e memEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

func deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
