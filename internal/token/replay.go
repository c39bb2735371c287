package token

import (
	"context"
	"sync"
	"time"
)

// ReplayCache records consumed token signatures for a fixed window so a
// captured token cannot be replayed as a fresh first use. Seen must be an
// atomic check-then-set: of two concurrent calls with the same signature,
// exactly one observes false.
type ReplayCache interface {
	Seen(ctx context.Context, signature string) (bool, error)
}

// MemoryReplay is a process-wide expiring set guarded by a mutex. Entries are
// evicted by a time-driven janitor, so memory stays bounded even when request
// volume stops.
type MemoryReplay struct {
	ttl  time.Duration
	mu   sync.Mutex
	seen map[string]time.Time
	stop chan struct{}
	once sync.Once
}

// NewMemoryReplay creates the cache and starts its janitor sweep.
func NewMemoryReplay(ttl time.Duration) *MemoryReplay {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	c := &MemoryReplay{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		stop: make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Seen marks the signature consumed and reports whether it was already held.
// Expired entries count as absent even if the janitor has not swept them yet.
func (c *MemoryReplay) Seen(_ context.Context, signature string) (bool, error) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if at, ok := c.seen[signature]; ok && now.Sub(at) < c.ttl {
		return true, nil
	}
	c.seen[signature] = now
	return false, nil
}

// Stop halts the janitor. The cache remains usable afterwards.
func (c *MemoryReplay) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryReplay) janitor() {
	ticker := time.NewTicker(c.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep(time.Now())
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryReplay) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sig, at := range c.seen {
		if now.Sub(at) >= c.ttl {
			delete(c.seen, sig)
		}
	}
}

// KeyClaimer atomically claims a key for a TTL, reporting whether this call
// created it. store.Redis satisfies it via SET NX EX.
type KeyClaimer interface {
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisReplay stores consumption markers in Redis with a TTL, sharing the
// window across replicas.
type RedisReplay struct {
	claim  KeyClaimer
	prefix string
	ttl    time.Duration
}

// NewRedisReplay builds a replay cache on an existing claimer.
func NewRedisReplay(claim KeyClaimer, ttl time.Duration) *RedisReplay {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisReplay{claim: claim, prefix: "attendance:replay:", ttl: ttl}
}

// Seen claims the signature and reports a prior claim.
func (c *RedisReplay) Seen(ctx context.Context, signature string) (bool, error) {
	created, err := c.claim.SetIfAbsent(ctx, c.prefix+signature, c.ttl)
	if err != nil {
		return false, err
	}
	return !created, nil
}
