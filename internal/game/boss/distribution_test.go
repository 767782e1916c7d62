package boss

import (
	"testing"

	"github.com/shopspring/decimal"
)

func defaultSplit() PoolSplit {
	return NewPoolSplit(0.6, 0.4)
}

func TestComputePlan_TwoParticipants(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Damage: map[string]int64{"x": 40, "y": 60},
		Wallets: map[string]string{
			"x": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"y": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		},
	}

	plan := ComputePlan(snap, decimal.NewFromInt(10), defaultSplit())

	if len(plan.Entries) != 2 {
		t.Fatalf("entries = %d; want 2", len(plan.Entries))
	}
	if plan.TotalDamage != 100 {
		t.Errorf("TotalDamage = %d; want 100", plan.TotalDamage)
	}

	// Equal pool 6 split two ways = 3 each; damage pool 4 weighted
	// 40/100 and 60/100 = 1.6 and 2.4.
	wantX := decimal.RequireFromString("4.6")
	wantY := decimal.RequireFromString("5.4")
	if !plan.Entries[0].Amount.Equal(wantX) {
		t.Errorf("x amount = %s; want %s", plan.Entries[0].Amount, wantX)
	}
	if !plan.Entries[1].Amount.Equal(wantY) {
		t.Errorf("y amount = %s; want %s", plan.Entries[1].Amount, wantY)
	}
	if !plan.Unallocated.IsZero() {
		t.Errorf("Unallocated = %s; want 0", plan.Unallocated)
	}
}

func TestComputePlan_WalletlessShareIsUnallocated(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Damage: map[string]int64{"x": 50, "y": 50},
		Wallets: map[string]string{
			"x": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		},
	}

	plan := ComputePlan(snap, decimal.NewFromInt(10), defaultSplit())

	if len(plan.Entries) != 1 {
		t.Fatalf("entries = %d; want 1 (walletless excluded)", len(plan.Entries))
	}
	// Both shares are 5; y's share goes to the unallocated bucket, not to x.
	want := decimal.NewFromInt(5)
	if !plan.Entries[0].Amount.Equal(want) {
		t.Errorf("x amount = %s; want %s (never inflated by y's share)",
			plan.Entries[0].Amount, want)
	}
	if !plan.Unallocated.Equal(want) {
		t.Errorf("Unallocated = %s; want %s", plan.Unallocated, want)
	}
}

func TestComputePlan_NoAttribution(t *testing.T) {
	t.Parallel()

	plan := ComputePlan(Snapshot{
		Damage:  map[string]int64{},
		Wallets: map[string]string{},
	}, decimal.NewFromInt(10), defaultSplit())

	if !plan.Empty() {
		t.Error("plan with no contributions not Empty()")
	}
	if !plan.Unallocated.IsZero() {
		t.Errorf("Unallocated = %s; want 0", plan.Unallocated)
	}
}

func TestComputePlan_ZeroBalance(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Damage:  map[string]int64{"x": 100},
		Wallets: map[string]string{"x": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
	}

	plan := ComputePlan(snap, decimal.Zero, defaultSplit())
	if !plan.Empty() {
		t.Error("plan with zero balance not Empty()")
	}
}

func TestComputePlan_EntriesOrderedByParticipant(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Damage: map[string]int64{"c": 10, "a": 10, "b": 10},
		Wallets: map[string]string{
			"a": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"b": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			"c": "0xcccccccccccccccccccccccccccccccccccccccc",
		},
	}

	plan := ComputePlan(snap, decimal.NewFromInt(30), defaultSplit())
	got := []string{plan.Entries[0].Participant, plan.Entries[1].Participant, plan.Entries[2].Participant}
	if got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("entry order = %v; want [a b c]", got)
	}
}

func TestComputePlan_SharesSumToBalance(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Damage: map[string]int64{"a": 7, "b": 13, "c": 17},
		Wallets: map[string]string{
			"a": "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			"b": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			"c": "0xcccccccccccccccccccccccccccccccccccccccc",
		},
	}
	balance := decimal.RequireFromString("123.456789")

	plan := ComputePlan(snap, balance, defaultSplit())

	total := plan.Unallocated
	for _, e := range plan.Entries {
		total = total.Add(e.Amount)
	}
	// Non-terminating damage weights round at decimal's division
	// precision; the drift must stay negligible either way.
	drift := total.Sub(balance).Abs()
	if drift.Cmp(decimal.RequireFromString("0.000000001")) > 0 {
		t.Errorf("distributed %s drifts from balance %s by %s", total, balance, drift)
	}
}
