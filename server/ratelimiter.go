package server

import (
	"fmt"
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"golang.org/x/term"
)

const loginAttemptInterval = 10 * time.Second

// loginRateLimiter tracks failed login attempts per username for rate
// limiting. Entries expire after one interval, so even an attacker
// spamming unique usernames keeps the cache bounded.
type loginRateLimiter struct {
	interval time.Duration
	attempts cache.Cache[string, time.Time]
}

func newLoginRateLimiter(interval time.Duration) *loginRateLimiter {
	return &loginRateLimiter{
		interval: interval,
		attempts: cache.NewCache[string, time.Time]().WithTTL(interval).WithMaxKeys(16384),
	}
}

// waitIfNeeded blocks if a recent failed attempt exists for the username.
func (l *loginRateLimiter) waitIfNeeded(username string, term *term.Terminal) {
	if last, ok := l.attempts.Get(username); ok {
		if wait := l.interval - time.Since(last); wait > 0 {
			fmt.Fprintf(term, "Please wait %v before trying again.\n", wait.Round(time.Second))
			time.Sleep(wait)
		}
	}
}

// recordFailure records a failed login attempt for rate limiting.
func (l *loginRateLimiter) recordFailure(username string) {
	l.attempts.Set(username, time.Now(), 0)
}

// clearFailure removes the rate limit entry on successful login.
func (l *loginRateLimiter) clearFailure(username string) {
	l.attempts.Invalidate(username)
}
