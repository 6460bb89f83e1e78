package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ordermgr/internal/cache"
)

// Result is the outcome of one counted request.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store counts requests per key.
type Store interface {
	Take(ctx context.Context, key string, limit Limit) (Result, error)
}

// RedisStore implements fixed windows with INCR and PEXPIRE, shared by every instance.
type RedisStore struct {
	cache *cache.Client
}

// NewRedisStore creates a Redis backed store.
func NewRedisStore(c *cache.Client) *RedisStore {
	return &RedisStore{cache: c}
}

// Take counts one request against key.
func (s *RedisStore) Take(ctx context.Context, key string, limit Limit) (Result, error) {
	redisKey := "ratelimit:" + key + ":" + strconv.FormatInt(int64(limit.Period/time.Millisecond), 10)
	count, ttl, err := s.cache.Incr(ctx, redisKey, limit.Period)
	if err != nil {
		return Result{Allowed: true}, err
	}
	if count > int64(limit.Count) {
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: limit.Count - int(count)}, nil
}

const sweepThreshold = 10000

type memoryEntry struct {
	limiter  *rate.Limiter
	period   time.Duration
	lastSeen time.Time
}

// MemoryStore keeps a token bucket per key in process memory. A bucket holds Count
// tokens and refills one token every Period/Count.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Take counts one request against key.
func (s *MemoryStore) Take(_ context.Context, key string, limit Limit) (Result, error) {
	now := s.now()
	lim := s.limiter(key, limit, now)

	if lim.AllowN(now, 1) {
		return Result{Allowed: true, Remaining: int(lim.TokensAt(now))}, nil
	}

	reservation := lim.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	reservation.CancelAt(now)
	return Result{Allowed: false, RetryAfter: delay}, nil
}

func (s *MemoryStore) limiter(key string, limit Limit, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= sweepThreshold {
		s.sweepLocked(now)
	}

	fullKey := key + "|" + limit.String()
	e, ok := s.entries[fullKey]
	if !ok {
		every := limit.Period / time.Duration(limit.Count)
		e = &memoryEntry{
			limiter: rate.NewLimiter(rate.Every(every), limit.Count),
			period:  limit.Period,
		}
		s.entries[fullKey] = e
	}
	e.lastSeen = now
	return e.limiter
}

// sweepLocked drops buckets idle for longer than their period; those are full again.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for k, e := range s.entries {
		if now.Sub(e.lastSeen) > e.period {
			delete(s.entries, k)
		}
	}
}

// Len reports the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
