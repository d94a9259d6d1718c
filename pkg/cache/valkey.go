package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// Valkey is the caching surface used by CALLCOACH-CORE: session storage,
// per-caller rate limiting and query-result caching. All access is
// stateless client calls; no cross-request mutable state lives here.
type Valkey interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Incr increments a counter and applies ttl on first increment.
	// Used by the rate limiter.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	GetSession(ctx context.Context, sessionID string) (*models.UserSession, error)
	SetSession(ctx context.Context, session *models.UserSession) error
	InvalidateSession(ctx context.Context, sessionID string) error
}

type valkeyImpl struct {
	client *redis.Client
	logger logger.Logger
	ttl    time.Duration
}

// New connects to a single Valkey/Redis node. Callers should fall back to
// NewInMemory when this returns an error.
func New(addr string, defaultTTL time.Duration, log logger.Logger) (Valkey, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey at %s: %w", addr, err)
	}

	return &valkeyImpl{client: client, logger: log, ttl: defaultTTL}, nil
}

func (v *valkeyImpl) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := v.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (v *valkeyImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := encodeValue(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	return v.client.Set(ctx, key, b, ttl).Err()
}

func (v *valkeyImpl) Delete(ctx context.Context, key string) error {
	return v.client.Del(ctx, key).Err()
}

func (v *valkeyImpl) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := v.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = v.client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

func (v *valkeyImpl) GetSession(ctx context.Context, sessionID string) (*models.UserSession, error) {
	data, err := v.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, err
	}
	var session models.UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (v *valkeyImpl) SetSession(ctx context.Context, session *models.UserSession) error {
	session.LastActivity = time.Now()
	return v.Set(ctx, sessionKey(session.ID), session, 24*time.Hour)
}

func (v *valkeyImpl) InvalidateSession(ctx context.Context, sessionID string) error {
	return v.Delete(ctx, sessionKey(sessionID))
}

func sessionKey(id string) string { return fmt.Sprintf("session:%s", id) }

func encodeValue(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		return json.Marshal(val)
	}
}
