// Package ratelimit enforces a fixed cooldown between calls sharing an identifier.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultMaxKeys = 1024

// Config configures a Limiter.
type Config struct {
	Cooldown time.Duration    // minimum gap between allowed calls per key; <= 0 disables limiting
	MaxKeys  int              // bound on tracked identifiers (default: 1024)
	Now      func() time.Time // clock, overridable in tests
}

// Limiter tracks one single-token bucket per identifier.
type Limiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	maxKeys  int
	now      func() time.Time
	entries  map[string]*entry
}

type entry struct {
	lim  *rate.Limiter
	last time.Time // last allowed call
}

func New(cfg Config) *Limiter {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = defaultMaxKeys
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Limiter{
		cooldown: cfg.Cooldown,
		maxKeys:  cfg.MaxKeys,
		now:      cfg.Now,
		entries:  make(map[string]*entry),
	}
}

// Enabled reports whether the limiter rejects anything at all.
func (l *Limiter) Enabled() bool { return l.cooldown > 0 }

// Cooldown returns the configured window.
func (l *Limiter) Cooldown() time.Duration { return l.cooldown }

// Allow reports whether a call for key may proceed. When it may not, the
// returned duration is how long until the key's cooldown elapses.
// Rejected calls do not reset the window.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if !l.Enabled() {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		l.makeRoom(now)
		e = &entry{lim: rate.NewLimiter(rate.Every(l.cooldown), 1)}
		l.entries[key] = e
	}

	if !e.lim.AllowN(now, 1) {
		wait := l.cooldown - now.Sub(e.last)
		if wait < 0 {
			wait = 0
		}
		return false, wait
	}
	e.last = now
	return true, 0
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// makeRoom drops expired entries once the key bound is reached, then the
// least recently allowed one if that was not enough. Caller holds l.mu.
func (l *Limiter) makeRoom(now time.Time) {
	if len(l.entries) < l.maxKeys {
		return
	}
	for k, e := range l.entries {
		if now.Sub(e.last) >= l.cooldown {
			delete(l.entries, k)
		}
	}
	if len(l.entries) < l.maxKeys {
		return
	}
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range l.entries {
		if oldestKey == "" || e.last.Before(oldest) {
			oldestKey, oldest = k, e.last
		}
	}
	delete(l.entries, oldestKey)
}
