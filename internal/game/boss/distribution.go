package boss

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PoolSplit divides the live pool balance between the equal share and
// the damage-weighted share.
type PoolSplit struct {
	Equal  decimal.Decimal
	Damage decimal.Decimal
}

// NewPoolSplit builds a PoolSplit from config fractions.
func NewPoolSplit(equal, damage float64) PoolSplit {
	return PoolSplit{
		Equal:  decimal.NewFromFloat(equal),
		Damage: decimal.NewFromFloat(damage),
	}
}

// PayoutEntry is one participant's computed share.
type PayoutEntry struct {
	Participant string
	Wallet      string
	Amount      decimal.Decimal
}

// PayoutPlan is the per-death distribution of the live pool balance.
// Ephemeral: computed once per boss death, re-derivable deterministically
// from the persisted ledger, persisted only as an audit entry after
// settlement succeeds.
type PayoutPlan struct {
	Entries []PayoutEntry // wallet-resolvable participants, ordered by id
	// Unallocated is the summed share of participants without a payout
	// identity. Reported for operator visibility, never redistributed —
	// folding it into other shares would distort the incentive.
	Unallocated decimal.Decimal
	Balance     decimal.Decimal
	TotalDamage int64
}

// Empty reports whether the plan distributes nothing.
func (p PayoutPlan) Empty() bool {
	return len(p.Entries) == 0
}

// ComputePlan converts a ledger snapshot plus the live pool balance into
// per-participant payout amounts:
//
//	amount = equalPool/participants + damagePool × damage/totalDamage
//
// The balance must be the live one from the settlement boundary — the
// pool can change during a fight, and a cached value risks paying out
// against funds that are no longer (or newly) custodied.
//
// A boss that died with no attribution yields an empty plan; that is a
// valid outcome, not an error.
func ComputePlan(snap Snapshot, balance decimal.Decimal, split PoolSplit) PayoutPlan {
	plan := PayoutPlan{
		Balance:     balance,
		Unallocated: decimal.Zero,
	}

	participants := make([]string, 0, len(snap.Damage))
	for p, d := range snap.Damage {
		if d <= 0 {
			continue
		}
		participants = append(participants, p)
		plan.TotalDamage += d
	}
	if len(participants) == 0 || plan.TotalDamage == 0 || !balance.IsPositive() {
		return plan
	}
	sort.Strings(participants)

	count := decimal.NewFromInt(int64(len(participants)))
	totalDamage := decimal.NewFromInt(plan.TotalDamage)
	equalShare := balance.Mul(split.Equal).Div(count)
	damagePool := balance.Mul(split.Damage)

	for _, p := range participants {
		damage := decimal.NewFromInt(snap.Damage[p])
		amount := equalShare.Add(damagePool.Mul(damage).Div(totalDamage))

		wallet := snap.Wallets[p]
		if wallet == "" {
			plan.Unallocated = plan.Unallocated.Add(amount)
			continue
		}
		plan.Entries = append(plan.Entries, PayoutEntry{
			Participant: p,
			Wallet:      wallet,
			Amount:      amount,
		})
	}

	return plan
}
