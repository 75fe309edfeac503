package ratelimit

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// KeyedLimiter rejects repeated operations for the same logical key inside a
// cool-down window. Admission state is purely in-memory and expires on its own.
type KeyedLimiter struct {
	window  time.Duration
	entries *cache.Cache
}

// NewKeyedLimiter creates a limiter with the given cool-down window.
func NewKeyedLimiter(window time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		window:  window,
		entries: cache.New(window, 2*window),
	}
}

// Admit records an entry for (operation, key) and returns true, unless a
// non-expired entry already exists, in which case it returns false. The
// check-and-record is atomic with respect to concurrent callers.
func (l *KeyedLimiter) Admit(operation, key string) bool {
	return l.entries.Add(operation+"|"+key, struct{}{}, l.window) == nil
}

// Window returns the configured cool-down window.
func (l *KeyedLimiter) Window() time.Duration {
	return l.window
}
