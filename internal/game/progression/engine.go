// Package progression converts combat, gather, and quest events into
// experience and level changes. It taps the same event stream as the
// boss engine but is independent of it.
package progression

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thereef/reef-server/internal/model"
)

// Reason classifies an XP grant.
type Reason string

const (
	ReasonMobKill   Reason = "mob_kill"
	ReasonBossFight Reason = "boss_fight"
	ReasonGather    Reason = "gather"
	ReasonQuest     Reason = "quest"
	// Action reasons are rate-limited per agent per rolling hour.
	ReasonMove      Reason = "move"
	ReasonBroadcast Reason = "broadcast"
)

// rateLimited reports whether a reason falls under the action XP cap.
func (r Reason) rateLimited() bool {
	return r == ReasonMove || r == ReasonBroadcast
}

// Store provides DB persistence for progression records.
type Store interface {
	GetProgression(ctx context.Context, agentID string) (*Row, error)
	SaveProgression(ctx context.Context, row Row) error
}

// Row mirrors db.ProgressionRow for decoupling.
type Row struct {
	AgentID    string
	Faction    string
	Experience int64
}

// Result reports the outcome of an XP grant.
type Result struct {
	// Awarded is the XP added after multipliers and rate limiting.
	// Zero with RateLimited set is a success: the action itself is
	// never failed by the cap.
	Awarded     int64
	RateLimited bool
	TotalXP     int64
	LeveledUp   bool
	Stats       model.DerivedStats
}

// Engine manages agent experience, levels, and derived stats.
// Records are cached in memory and written through on every grant.
type Engine struct {
	store Store

	mu    sync.Mutex
	cache map[string]*model.ProgressionRecord

	factionRates map[string]float64
	limiter      *RateLimiter
	slotInterval int32
}

// NewEngine creates a progression engine. factionRates maps faction name
// to XP multiplier (unlisted factions earn x1); actionCap bounds action
// XP per agent per rolling hour.
func NewEngine(store Store, factionRates map[string]float64, actionCap int64, slotInterval int32) *Engine {
	return &Engine{
		store:        store,
		cache:        make(map[string]*model.ProgressionRecord, 256),
		factionRates: factionRates,
		limiter:      NewRateLimiter(actionCap, time.Hour),
		slotInterval: slotInterval,
	}
}

// Limiter exposes the action XP limiter. Test hook.
func (e *Engine) Limiter() *RateLimiter { return e.limiter }

// GrantXP applies a faction-scaled XP grant to an agent and returns the
// new level state. Rate-limited grants return success with zero awarded.
func (e *Engine) GrantXP(ctx context.Context, agentID string, amount int64, reason Reason) (Result, error) {
	return e.grant(ctx, agentID, amount, reason, 0)
}

// GrantKillXP is GrantXP for mob kills: on top of the faction rate, the
// reward tapers by the step table when the agent outlevels the mob.
func (e *Engine) GrantKillXP(ctx context.Context, agentID string, amount int64, mobLevel int32) (Result, error) {
	return e.grant(ctx, agentID, amount, ReasonMobKill, mobLevel)
}

func (e *Engine) grant(ctx context.Context, agentID string, amount int64, reason Reason, mobLevel int32) (Result, error) {
	if amount < 0 {
		return Result{}, fmt.Errorf("negative xp grant for %s: %d", agentID, amount)
	}

	rec, err := e.load(ctx, agentID)
	if err != nil {
		return Result{}, err
	}

	// Snapshot under the lock: concurrent grants to the same agent
	// mutate the shared cached record.
	e.mu.Lock()
	baseXP := rec.Experience
	faction := rec.Faction
	e.mu.Unlock()

	oldLevel := LevelForXP(baseXP)

	scaled := int64(float64(amount) * e.factionRate(faction))
	if reason == ReasonMobKill && mobLevel > 0 {
		scaled = int64(float64(scaled) * KillMultiplier(oldLevel, mobLevel))
	}

	result := Result{RateLimited: false}
	if reason.rateLimited() {
		granted := e.limiter.Allow(agentID, scaled)
		result.RateLimited = granted < scaled
		scaled = granted
	}

	if scaled > 0 {
		e.mu.Lock()
		rec.Experience += scaled
		total := rec.Experience
		faction = rec.Faction
		e.mu.Unlock()

		if err := e.store.SaveProgression(ctx, Row{
			AgentID:    agentID,
			Faction:    string(faction),
			Experience: total,
		}); err != nil {
			// Nothing was acknowledged: undo the grant and return the
			// debited action budget, so a failed write never burns the
			// agent's hourly cap.
			e.mu.Lock()
			rec.Experience -= scaled
			e.mu.Unlock()
			if reason.rateLimited() {
				e.limiter.Refund(agentID, scaled)
			}
			return Result{}, fmt.Errorf("persist progression %s: %w", agentID, err)
		}
	}

	e.mu.Lock()
	total := rec.Experience
	e.mu.Unlock()

	newLevel := LevelForXP(total)
	result.Awarded = scaled
	result.TotalXP = total
	result.LeveledUp = newLevel > oldLevel
	result.Stats = StatsForLevel(newLevel, e.slotInterval)

	if result.LeveledUp {
		slog.Info("agent leveled up",
			"agent", agentID,
			"oldLevel", oldLevel,
			"newLevel", newLevel,
			"xp", total,
			"maxHp", result.Stats.MaxHP,
			"maxEnergy", result.Stats.MaxEnergy,
			"inventorySlots", result.Stats.InventorySlots)
	}

	return result, nil
}

// SetFaction assigns an agent's faction and persists it.
func (e *Engine) SetFaction(ctx context.Context, agentID string, faction model.Faction) error {
	rec, err := e.load(ctx, agentID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	rec.Faction = faction
	total := rec.Experience
	e.mu.Unlock()

	if err := e.store.SaveProgression(ctx, Row{
		AgentID:    agentID,
		Faction:    string(faction),
		Experience: total,
	}); err != nil {
		return fmt.Errorf("persist faction %s: %w", agentID, err)
	}
	return nil
}

// Stats returns an agent's current level-derived stats.
func (e *Engine) Stats(ctx context.Context, agentID string) (model.DerivedStats, error) {
	rec, err := e.load(ctx, agentID)
	if err != nil {
		return model.DerivedStats{}, err
	}

	e.mu.Lock()
	total := rec.Experience
	e.mu.Unlock()

	return StatsForLevel(LevelForXP(total), e.slotInterval), nil
}

// load returns the cached record for an agent, reading through to the
// store on first touch. Unknown agents start fresh at zero XP.
func (e *Engine) load(ctx context.Context, agentID string) (*model.ProgressionRecord, error) {
	e.mu.Lock()
	if rec, ok := e.cache[agentID]; ok {
		e.mu.Unlock()
		return rec, nil
	}
	e.mu.Unlock()

	row, err := e.store.GetProgression(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load progression %s: %w", agentID, err)
	}

	rec := &model.ProgressionRecord{AgentID: agentID}
	if row != nil {
		rec.Faction = model.Faction(row.Faction)
		rec.Experience = row.Experience
	}

	e.mu.Lock()
	// Another goroutine may have loaded it meanwhile; keep the winner.
	if existing, ok := e.cache[agentID]; ok {
		rec = existing
	} else {
		e.cache[agentID] = rec
	}
	e.mu.Unlock()

	return rec, nil
}

func (e *Engine) factionRate(f model.Faction) float64 {
	if rate, ok := e.factionRates[string(f)]; ok && rate > 0 {
		return rate
	}
	return 1.0
}
