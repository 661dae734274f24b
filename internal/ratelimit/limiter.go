// Package ratelimit bounds how often a single client may hit a guarded action
// (login, registration, admin re-verification). Counters are process-local
// fixed windows keyed by (action, client) and are lost on restart.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Action names a guarded endpoint. Each action has its own budget and its
// own counters, so exhausting login attempts does not block registration.
type Action string

const (
	ActionLogin       Action = "login"
	ActionRegister    Action = "register"
	ActionAdminVerify Action = "admin_verify"
)

// Rule is the request budget for one action: at most Limit requests per
// client within Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// key identifies one counter.
type key struct {
	action Action
	client string
}

// entry tracks request counts for a single client within a time window.
type entry struct {
	count       int
	windowStart time.Time
}

// Limiter is safe for concurrent use. The zero value is not usable; call New.
type Limiter struct {
	mu      sync.Mutex
	rules   map[Action]Rule
	entries map[key]*entry
	now     func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock. Tests use it to step through windows.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter enforcing the given per-action rules. Actions with
// no rule are never limited.
func New(rules map[Action]Rule, opts ...Option) *Limiter {
	l := &Limiter{
		rules:   make(map[Action]Rule, len(rules)),
		entries: make(map[key]*entry),
		now:     time.Now,
	}
	for action, rule := range rules {
		l.rules[action] = rule
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decision is the outcome of one request against a rule.
type Decision struct {
	// Allowed reports whether the request fits in the current window.
	Allowed bool

	// FirstRejection is true only for the request that first went over the
	// limit in this window. Callers use it to record a flood once.
	FirstRejection bool
}

// Take records one request from client against action. The (Limit+1)th
// request inside a window is rejected; the first request after the window
// elapses starts a new one. Rejected requests still count, so hammering
// does not shorten the wait.
func (l *Limiter) Take(action Action, client string) Decision {
	rule, ok := l.rules[action]
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.now()
	k := key{action: action, client: client}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, exists := l.entries[k]
	if !exists || now.Sub(e.windowStart) >= rule.Window {
		l.entries[k] = &entry{count: 1, windowStart: now}
		return Decision{Allowed: true}
	}

	e.count++
	if e.count <= rule.Limit {
		return Decision{Allowed: true}
	}
	return Decision{FirstRejection: e.count == rule.Limit+1}
}

// Allow is Take without the rejection detail.
func (l *Limiter) Allow(action Action, client string) bool {
	return l.Take(action, client).Allowed
}

// Sweep drops counters whose window has fully elapsed. Returns how many
// entries were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.entries {
		if now.Sub(e.windowStart) >= l.rules[k.action].Window {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// Run sweeps expired counters every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Len returns the number of live counters.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
