package model

import "fmt"

// BossKind identifies one of the fixed set of world bosses.
type BossKind string

const (
	BossLeviathan BossKind = "the_leviathan"
	BossKraken    BossKind = "kraken_of_the_deep"
	BossTideTitan BossKind = "tide_titan"
)

// AllBossKinds lists every known world boss kind.
// Exactly one live instance exists per kind at any time.
var AllBossKinds = []BossKind{BossLeviathan, BossKraken, BossTideTitan}

// Valid reports whether k is a known boss kind.
func (k BossKind) Valid() bool {
	switch k {
	case BossLeviathan, BossKraken, BossTideTitan:
		return true
	}
	return false
}

// LifecycleState represents the engagement state of a world boss.
// Managed externally by boss.Manager (not by the instance itself).
type LifecycleState int16

const (
	// BossDormant: no HP tracking; a spawn tick threshold triggers Warning.
	BossDormant LifecycleState = 0
	// BossWarning: spawn broadcast fired; HP initializes after a fixed delay.
	BossWarning LifecycleState = 1
	// BossActive: the only state that accepts damage events.
	BossActive LifecycleState = 2
	// BossDying: transient; entered the instant HP reaches zero.
	BossDying LifecycleState = 3
	// BossSettling: payout in progress; blocks new damage and new spawns.
	BossSettling LifecycleState = 4
)

// String implements fmt.Stringer for log output.
func (s LifecycleState) String() string {
	switch s {
	case BossDormant:
		return "dormant"
	case BossWarning:
		return "warning"
	case BossActive:
		return "active"
	case BossDying:
		return "dying"
	case BossSettling:
		return "settling"
	}
	return fmt.Sprintf("unknown(%d)", int16(s))
}

// AcceptsDamage reports whether damage events are applied in this state.
// Damage outside Active is rejected as a benign no-op, never an error.
func (s LifecycleState) AcceptsDamage() bool {
	return s == BossActive
}

// BossStatus is a read-only view of a boss instance for status queries
// and the observer feed.
type BossStatus struct {
	Kind          BossKind       `json:"kind"`
	State         LifecycleState `json:"state"`
	StateName     string         `json:"stateName"`
	HP            int64          `json:"hp"`
	MaxHP         int64          `json:"maxHp"`
	SpawnTick     int64          `json:"spawnTick"`
	NextSpawnTick int64          `json:"nextSpawnTick,omitempty"`
	Participants  int            `json:"participants"`
}
