package progression

import (
	"sync"
	"time"
)

// grantStamp is one remembered XP grant inside the rolling window.
type grantStamp struct {
	at     time.Time
	amount int64
}

// RateLimiter bounds action XP per agent over a rolling window. It is a
// best-effort anti-abuse measure: counters live in memory and reset on
// process restart.
type RateLimiter struct {
	mu      sync.Mutex
	cap     int64
	window  time.Duration
	byAgent map[string][]grantStamp

	now func() time.Time
}

// NewRateLimiter creates a limiter allowing cap XP per agent per window.
// A non-positive cap allows nothing.
func NewRateLimiter(cap int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cap:     cap,
		window:  window,
		byAgent: make(map[string][]grantStamp, 256),
		now:     time.Now,
	}
}

// SetNow overrides the clock. Test hook.
func (r *RateLimiter) SetNow(now func() time.Time) { r.now = now }

// Allow reserves up to amount XP for the agent and returns the granted
// portion, clamped to the remaining window headroom. Zero when the cap
// is exhausted — the caller's action still succeeds, the grant is just
// silently nothing.
func (r *RateLimiter) Allow(agentID string, amount int64) int64 {
	if amount <= 0 || r.cap <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	stamps := r.byAgent[agentID]
	pruned := stamps[:0]
	var used int64
	for _, s := range stamps {
		if s.at.After(cutoff) {
			pruned = append(pruned, s)
			used += s.amount
		}
	}

	granted := min(amount, r.cap-used)
	if granted <= 0 {
		r.byAgent[agentID] = pruned
		return 0
	}

	r.byAgent[agentID] = append(pruned, grantStamp{at: now, amount: granted})
	return granted
}

// Refund returns previously reserved budget, newest grants first. Called
// when the write the reservation was made for did not land.
func (r *RateLimiter) Refund(agentID string, amount int64) {
	if amount <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stamps := r.byAgent[agentID]
	for i := len(stamps) - 1; i >= 0 && amount > 0; i-- {
		take := min(amount, stamps[i].amount)
		stamps[i].amount -= take
		amount -= take
	}
	for len(stamps) > 0 && stamps[len(stamps)-1].amount == 0 {
		stamps = stamps[:len(stamps)-1]
	}
	r.byAgent[agentID] = stamps
}

// Remaining returns the agent's unused headroom in the current window.
func (r *RateLimiter) Remaining(agentID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	var used int64
	for _, s := range r.byAgent[agentID] {
		if s.at.After(cutoff) {
			used += s.amount
		}
	}
	if used >= r.cap {
		return 0
	}
	return r.cap - used
}
