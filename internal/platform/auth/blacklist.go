package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
)

// Blacklist records revoked token IDs until the token would have expired
// anyway. After expiry the signature check rejects the token on its own,
// so entries never need to outlive it.
type Blacklist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryBlacklist keeps revocations in a map, dropping expired entries
// lazily on lookup and on each revoke.
type MemoryBlacklist struct {
	clk clock.Clock

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryBlacklist(clk clock.Clock) *MemoryBlacklist {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &MemoryBlacklist{clk: clk, revoked: make(map[string]time.Time)}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked()
	b.revoked[tokenID] = until.UTC()
	return nil
}

func (b *MemoryBlacklist) Revoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !until.After(b.clk.Now().UTC()) {
		delete(b.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (b *MemoryBlacklist) pruneLocked() {
	now := b.clk.Now().UTC()
	for id, until := range b.revoked {
		if !until.After(now) {
			delete(b.revoked, id)
		}
	}
}

// RedisBlacklist shares revocations across instances. Redis expires the
// keys itself via the TTL set on revoke.
type RedisBlacklist struct {
	client *redis.Client
	clk    clock.Clock
}

func NewRedisBlacklist(client *redis.Client, clk clock.Clock) *RedisBlacklist {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &RedisBlacklist{client: client, clk: clk}
}

func blacklistKey(tokenID string) string {
	return "wallet:revoked:" + tokenID
}

func (b *RedisBlacklist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(b.clk.Now().UTC())
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(tokenID), "1", ttl).Err()
}

func (b *RedisBlacklist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var (
	_ Blacklist = (*MemoryBlacklist)(nil)
	_ Blacklist = (*RedisBlacklist)(nil)
)
