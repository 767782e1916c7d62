package progression

import (
	"math"

	"github.com/thereef/reef-server/internal/model"
)

// Base stats at level 1; each level adds a fixed increment. The derived
// values feed the agent snapshot served by the action API.
const (
	baseMaxHP      = 100
	hpPerLevel     = 10
	baseMaxEnergy  = 50
	energyPerLevel = 5
	baseSlots      = 10
)

// xpUnit is the quadratic curve coefficient: reaching level L requires
// xpUnit × (L-1)² experience.
const xpUnit = 100

// LevelForXP returns the level derived from cumulative experience.
// Closed form, so level is never stored independently of XP.
func LevelForXP(xp int64) int32 {
	if xp <= 0 {
		return 1
	}
	return 1 + int32(math.Sqrt(float64(xp)/xpUnit))
}

// XPForLevel returns the cumulative experience required for a level.
func XPForLevel(level int32) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return xpUnit * n * n
}

// StatsForLevel recomputes the level-derived stats. slotInterval grants
// one inventory slot every N levels; zero disables the bonus.
func StatsForLevel(level, slotInterval int32) model.DerivedStats {
	if level < 1 {
		level = 1
	}
	stats := model.DerivedStats{
		Level:          level,
		MaxHP:          baseMaxHP + hpPerLevel*(level-1),
		MaxEnergy:      baseMaxEnergy + energyPerLevel*(level-1),
		InventorySlots: baseSlots,
	}
	if slotInterval > 0 {
		stats.InventorySlots += level / slotInterval
	}
	return stats
}

// killTaper maps (agentLevel - mobLevel) to an XP multiplier. Full
// reward at or below parity, tapering to a nominal minimum at 5+ levels
// above, so trivial content cannot be farmed at full rate.
var killTaper = [...]float64{1.0, 0.8, 0.6, 0.4, 0.2}

const killTaperFloor = 0.05

// KillMultiplier returns the level-gap XP multiplier for a mob kill.
func KillMultiplier(agentLevel, mobLevel int32) float64 {
	diff := agentLevel - mobLevel
	if diff <= 0 {
		return 1.0
	}
	if int(diff) < len(killTaper) {
		return killTaper[diff]
	}
	return killTaperFloor
}
