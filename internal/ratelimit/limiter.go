package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket that also remembers when it was last used
type Limiter struct {
	bucket   *rate.Limiter
	lastUsed time.Time
	mu       sync.Mutex
}

// NewLimiter creates a new rate limiter with the given rate and burst
func NewLimiter(r float64, burst int) *Limiter {
	return newLimiterAt(r, burst, time.Now())
}

func newLimiterAt(r float64, burst int, now time.Time) *Limiter {
	bucket := rate.NewLimiter(rate.Limit(r), burst)
	// Anchor the bucket at now so refills are measured from creation.
	bucket.AllowN(now, 0)
	return &Limiter{bucket: bucket, lastUsed: now}
}

// Allow checks if a request is allowed based on the rate limit
func (l *Limiter) Allow() bool {
	return l.allowAt(time.Now())
}

func (l *Limiter) allowAt(now time.Time) bool {
	l.mu.Lock()
	if now.After(l.lastUsed) {
		l.lastUsed = now
	}
	l.mu.Unlock()

	return l.bucket.AllowN(now, 1)
}

// Tokens returns the tokens available as of the last request
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket.TokensAt(l.lastUsed)
}

func (l *Limiter) idleSince(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return now.Sub(l.lastUsed)
}

// DefaultIdleTTL is how long an unused limiter is kept.
const DefaultIdleTTL = 5 * time.Minute

// Store manages rate limiters for multiple clients
type Store struct {
	limiters map[string]*Limiter
	rate     float64
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	mu       sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a new rate limiter store. A positive cleanupInterval
// starts a goroutine evicting limiters idle for longer than DefaultIdleTTL;
// Close stops it.
func NewStore(perSecond float64, burst int, cleanupInterval time.Duration) *Store {
	store := &Store{
		limiters: make(map[string]*Limiter),
		rate:     perSecond,
		burst:    burst,
		idleTTL:  DefaultIdleTTL,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go store.cleanupLoop(cleanupInterval)
	}

	return store
}

// GetLimiter gets or creates a limiter for the given key
func (s *Store) GetLimiter(key string) *Limiter {
	s.mu.RLock()
	limiter, exists := s.limiters[key]
	s.mu.RUnlock()

	if exists {
		return limiter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := s.limiters[key]; exists {
		return limiter
	}

	limiter = newLimiterAt(s.rate, s.burst, s.now())
	s.limiters[key] = limiter
	return limiter
}

// Allow checks if a request from the given key is allowed
func (s *Store) Allow(key string) bool {
	return s.GetLimiter(key).allowAt(s.now())
}

// Count returns the number of tracked limiters
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limiters)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

// cleanupExpired removes limiters that haven't been used recently
func (s *Store) cleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, limiter := range s.limiters {
		if limiter.idleSince(now) > s.idleTTL {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}
