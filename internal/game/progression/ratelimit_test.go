package progression

import (
	"testing"
	"time"
)

func TestRateLimiter_ClampsToHeadroom(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(500, time.Hour)

	if got := r.Allow("agent-1", 300); got != 300 {
		t.Errorf("first grant = %d; want 300", got)
	}
	// 300 asked, 200 headroom left.
	if got := r.Allow("agent-1", 300); got != 200 {
		t.Errorf("second grant = %d; want 200 (clamped)", got)
	}
	// Exhausted.
	if got := r.Allow("agent-1", 1); got != 0 {
		t.Errorf("grant at cap = %d; want 0", got)
	}
	if got := r.Remaining("agent-1"); got != 0 {
		t.Errorf("Remaining = %d; want 0", got)
	}
}

func TestRateLimiter_PerAgent(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(500, time.Hour)
	r.Allow("agent-1", 500)

	if got := r.Allow("agent-2", 100); got != 100 {
		t.Errorf("agent-2 grant = %d; agent-1's usage must not count", got)
	}
}

func TestRateLimiter_RollingWindow(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(500, time.Hour)
	base := time.Now()
	now := base
	r.SetNow(func() time.Time { return now })

	r.Allow("agent-1", 300)

	// Half an hour later: the first grant still counts.
	now = base.Add(30 * time.Minute)
	if got := r.Allow("agent-1", 300); got != 200 {
		t.Errorf("grant at +30m = %d; want 200", got)
	}

	// 61 minutes after the first grant it ages out; the +30m grant of 200
	// is still inside the window.
	now = base.Add(61 * time.Minute)
	if got := r.Remaining("agent-1"); got != 300 {
		t.Errorf("Remaining at +61m = %d; want 300", got)
	}
	if got := r.Allow("agent-1", 500); got != 300 {
		t.Errorf("grant at +61m = %d; want 300", got)
	}

	// Everything ages out eventually.
	now = base.Add(3 * time.Hour)
	if got := r.Remaining("agent-1"); got != 500 {
		t.Errorf("Remaining at +3h = %d; want full 500", got)
	}
}

func TestRateLimiter_Refund(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(500, time.Hour)
	r.Allow("agent-1", 200)
	r.Allow("agent-1", 300)

	// A full reservation returned: headroom reopens.
	r.Refund("agent-1", 300)
	if got := r.Remaining("agent-1"); got != 300 {
		t.Errorf("Remaining after refund = %d; want 300", got)
	}

	// Partial refund of an earlier reservation.
	r.Refund("agent-1", 150)
	if got := r.Remaining("agent-1"); got != 450 {
		t.Errorf("Remaining after partial refund = %d; want 450", got)
	}

	// Over-refund clamps at an empty window rather than going negative.
	r.Refund("agent-1", 1000)
	if got := r.Remaining("agent-1"); got != 500 {
		t.Errorf("Remaining after over-refund = %d; want full 500", got)
	}

	// No-ops.
	r.Refund("agent-1", 0)
	r.Refund("stranger", 100)
	if got := r.Remaining("stranger"); got != 500 {
		t.Errorf("Remaining for untouched agent = %d; want 500", got)
	}
}

func TestRateLimiter_Degenerate(t *testing.T) {
	t.Parallel()

	r := NewRateLimiter(500, time.Hour)
	if got := r.Allow("agent-1", 0); got != 0 {
		t.Errorf("Allow(0) = %d; want 0", got)
	}
	if got := r.Allow("agent-1", -10); got != 0 {
		t.Errorf("Allow(-10) = %d; want 0", got)
	}

	// Non-positive cap allows nothing.
	r = NewRateLimiter(0, time.Hour)
	if got := r.Allow("agent-1", 100); got != 0 {
		t.Errorf("Allow with zero cap = %d; want 0", got)
	}
}
