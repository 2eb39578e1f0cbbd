// Package idempotency suppresses duplicate order requests within a rolling
// dedup window keyed by a stable request fingerprint.
package idempotency

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// DedupWindow is how long a processed fingerprint blocks resubmission.
const DedupWindow = 5 * time.Minute

const keyPrefix = "ordercore:dedup:"

// KV is the dedup key backend. Get returns ("", nil) on a miss.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

type Guard struct {
	kv     KV
	logger *zap.Logger
}

func NewGuard(kv KV, logger *zap.Logger) *Guard {
	return &Guard{kv: kv, logger: logger}
}

// Fingerprint computes a deterministic 16-hex-digit digest over the fields
// that identify a logical order. Absent side and strategy collapse to fixed
// placeholders so manual and partial requests still hash stably.
func Fingerprint(req *model.OrderRequest) string {
	side := string(req.Side)
	if side == "" {
		side = "UNKNOWN"
	}
	strategy := req.StrategyID
	if strategy == "" {
		strategy = "manual"
	}

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", req.Symbol, side, req.Type, req.Quantity.String(), strategy)
	return fmt.Sprintf("%016x", h.Sum64())
}

// IsUnique reports whether the request's fingerprint is not in the dedup
// window. A backend failure fails open: blocking legitimate orders is worse
// than letting the broker reject a true duplicate.
func (g *Guard) IsUnique(ctx context.Context, req *model.OrderRequest) bool {
	key := keyPrefix + Fingerprint(req)
	val, err := g.kv.Get(ctx, key)
	if err != nil {
		g.logger.Warn("dedup lookup failed, failing open",
			zap.String("key", key), zap.Error(err))
		return true
	}
	return val == ""
}

// MarkProcessed stores the fingerprint for the dedup window. Callers invoke
// it only after successful admission and, at the dispatcher, after the
// broker accepted the order.
func (g *Guard) MarkProcessed(ctx context.Context, req *model.OrderRequest) {
	key := keyPrefix + Fingerprint(req)
	if err := g.kv.SetTTL(ctx, key, "1", DedupWindow); err != nil {
		g.logger.Warn("dedup mark failed", zap.String("key", key), zap.Error(err))
	}
}

// RedisKV backs the guard with redis; the TTL is enforced server-side.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisKV) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// MemoryKV is an in-process backend for dev mode and tests.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value    string
	expireAt time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expireAt) {
		return "", nil
	}
	return e.value, nil
}

func (m *MemoryKV) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expireAt: time.Now().Add(ttl)}
	return nil
}
