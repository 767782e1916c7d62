package boss

import (
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/thereef/reef-server/internal/settlement"
)

// ErrBasisPointsOverflow means the computed instruction sums above 10000
// basis points. That is a computation bug, never a data condition:
// dispatch is aborted and the boss stays parked for manual intervention.
var ErrBasisPointsOverflow = errors.New("basis points sum exceeds 10000")

var tenThousand = decimal.NewFromInt(10000)

// Instruction is the validated order the settlement boundary accepts:
// two parallel arrays of identities and integer basis points.
type Instruction struct {
	Identities  []string
	BasisPoints []int64
	// Sum is Σ BasisPoints. Permitted to fall short of 10000 by rounding
	// (bounded by the participant count) plus any unallocated share.
	Sum int64
	// UnallocatedBps is the floor-rounded share excluded for missing or
	// malformed identities.
	UnallocatedBps int64
}

// Empty reports whether there is nothing to dispatch. An empty
// instruction is expected when the boss died with no attribution; the
// fight is then marked skipped, not failed.
func (in Instruction) Empty() bool {
	return len(in.Identities) == 0
}

// FormatInstruction converts a payout plan into a settlement instruction.
// Each entry's basis points are floor(amount / balance × 10000); floor
// guarantees the sum never exceeds 10000 at the cost of a bounded
// shortfall. Malformed identities are dropped with a warning, their share
// moved to the unallocated bucket.
func FormatInstruction(plan PayoutPlan) (Instruction, error) {
	instr := Instruction{}
	if plan.Empty() || !plan.Balance.IsPositive() {
		instr.UnallocatedBps = floorBps(plan.Unallocated, plan.Balance)
		return instr, nil
	}

	for _, entry := range plan.Entries {
		bps := floorBps(entry.Amount, plan.Balance)
		if !settlement.IsWellFormedAddress(entry.Wallet) {
			slog.Warn("dropping malformed payout identity",
				"participant", entry.Participant,
				"wallet", entry.Wallet,
				"basisPoints", bps)
			instr.UnallocatedBps += bps
			continue
		}
		if bps <= 0 {
			// Rounding loss swallowed the share entirely.
			slog.Debug("payout share rounds to zero",
				"participant", entry.Participant,
				"amount", entry.Amount.String())
			continue
		}
		instr.Identities = append(instr.Identities, entry.Wallet)
		instr.BasisPoints = append(instr.BasisPoints, bps)
		instr.Sum += bps
	}
	instr.UnallocatedBps += floorBps(plan.Unallocated, plan.Balance)

	if instr.Sum > 10000 {
		return Instruction{}, ErrBasisPointsOverflow
	}
	return instr, nil
}

// floorBps returns floor(amount / balance × 10000), 0 for a non-positive
// balance.
func floorBps(amount, balance decimal.Decimal) int64 {
	if !balance.IsPositive() || amount.IsZero() {
		return 0
	}
	return amount.Div(balance).Mul(tenThousand).Floor().IntPart()
}
