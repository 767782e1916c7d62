package model

// Faction identifies the faction an agent belongs to.
// Factions carry an XP rate multiplier (see progression config).
type Faction string

const (
	FactionDrift   Faction = "drift"
	FactionCurrent Faction = "current"
	FactionAbyss   Faction = "abyss"
	// FactionNone is the default for unaffiliated agents (x1 rate).
	FactionNone Faction = ""
)

// ProgressionRecord holds an agent's cumulative experience and faction.
// Experience is monotonic non-decreasing; level and derived stats are
// always recomputed from experience, never stored independently.
type ProgressionRecord struct {
	AgentID    string
	Faction    Faction
	Experience int64
}

// DerivedStats are the level-derived agent stats.
type DerivedStats struct {
	Level          int32
	MaxHP          int32
	MaxEnergy      int32
	InventorySlots int32
}
