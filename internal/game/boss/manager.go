// Package boss implements the world-boss engagement lifecycle: spawn
// scheduling, the contribution ledger, death settlement, and payout
// dispatch to the external settlement boundary.
package boss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thereef/reef-server/internal/events"
	"github.com/thereef/reef-server/internal/model"
	"github.com/thereef/reef-server/internal/settlement"
)

var (
	// ErrUnknownBoss means the boss kind is not configured.
	ErrUnknownBoss = errors.New("unknown boss kind")
	// ErrNotSettling means a settlement retry was requested for a boss
	// that is not parked in the settling state.
	ErrNotSettling = errors.New("boss is not settling")
	// ErrSettlementInFlight guards the single-attempt contract: a second
	// settlement trigger while one is outstanding is rejected, not queued.
	ErrSettlementInFlight = errors.New("settlement already in flight")
	// ErrUnknownParticipant means a wallet correction referenced a
	// participant with no recorded damage.
	ErrUnknownParticipant = errors.New("participant has no recorded damage")
)

// Store provides DB persistence for boss state and contributions.
type Store interface {
	LoadAllBossStates(ctx context.Context) ([]StateRow, error)
	SaveBossState(ctx context.Context, row StateRow) error
	LoadContributions(ctx context.Context, bossKind string) ([]ContributionRow, error)
	UpsertContribution(ctx context.Context, row ContributionRow) error
	DeleteContributions(ctx context.Context, bossKind string) (int64, error)
}

// StateRow mirrors db.BossStateRow for decoupling.
type StateRow struct {
	BossKind       string
	HP             int64
	MaxHP          int64
	LifecycleState int16
	SpawnTick      int64
	NextSpawnTick  *int64
}

// ContributionRow mirrors db.ContributionRow for decoupling.
type ContributionRow struct {
	BossKind    string
	Participant string
	Damage      int64
	Wallet      string
}

// Boundary is the consumed slice of the external settlement system:
// a live balance oracle and a payout sink.
type Boundary interface {
	PoolBalance(ctx context.Context, bossKind string) (decimal.Decimal, error)
	SubmitPayout(ctx context.Context, req settlement.PayoutRequest) (string, error)
}

// AuditSink records one durable row per completed settlement attempt.
type AuditSink interface {
	RecordSettlement(ctx context.Context, rec AuditRecord) error
}

// AuditRecord is the settlement audit entry.
type AuditRecord struct {
	BossKind    string
	TxReference string
	Identities  []string
	BasisPoints []int64
	TotalAmount decimal.Decimal
	PoolBefore  decimal.Decimal
	PoolAfter   decimal.Decimal
	At          time.Time
}

// Tuning holds per-kind boss parameters. Ticks are Unix seconds, so
// spawn schedules survive restarts without a separate tick counter.
type Tuning struct {
	Kind              model.BossKind
	MaxHP             int64
	DamageCap         int64 // per-participant cumulative damage cap
	WarningDelayTicks int64
	CooldownMinTicks  int64
	CooldownMaxTicks  int64
}

// bossEntry tracks in-memory state for a single world boss. All field
// access goes through mu — damage application and the death-transition
// check are one atomic unit, so two near-simultaneous killing blows
// produce exactly one settlement.
type bossEntry struct {
	mu sync.Mutex

	tuning Tuning
	state  model.LifecycleState
	hp     int64
	// spawnTick is when the current instance became active.
	spawnTick int64
	// nextSpawnTick is the next eligible spawn while dormant. During
	// Warning it holds the activation tick instead, so a restart
	// mid-warning resumes the countdown.
	nextSpawnTick int64

	ledger *Ledger

	// settlementInFlight enforces a single outstanding settlement
	// attempt per boss.
	settlementInFlight bool
}

// Manager owns every world boss instance and its contribution ledger.
//
// Lifecycle per boss:
//
//	Dormant → Warning → Active → Dying → Settling → Dormant(cooldown)
//
// Damage is accepted only while Active. Death triggers exactly one
// settlement; on exhausted retries the boss parks in Settling until an
// operator calls RetrySettlement. The payout plan is re-derivable
// deterministically from the persisted ledger, so parking loses nothing.
type Manager struct {
	store    Store
	boundary Boundary
	audit    AuditSink
	split    PoolSplit

	// entries is built once in New and never mutated afterwards; the
	// per-entry mutex is the only lock needed.
	entries map[model.BossKind]*bossEntry

	deathCh chan model.BossKind

	// publish broadcasts observer events. Nil-safe.
	publish func(events.Event)

	// now is injectable for tests.
	now func() time.Time
}

// NewManager creates a boss manager for the configured boss kinds.
func NewManager(store Store, boundary Boundary, audit AuditSink, split PoolSplit, tunings []Tuning, publish func(events.Event)) *Manager {
	m := &Manager{
		store:    store,
		boundary: boundary,
		audit:    audit,
		split:    split,
		entries:  make(map[model.BossKind]*bossEntry, len(tunings)),
		deathCh:  make(chan model.BossKind, len(tunings)+4),
		publish:  publish,
		now:      time.Now,
	}
	for _, t := range tunings {
		m.entries[t.Kind] = &bossEntry{
			tuning: t,
			state:  model.BossDormant,
			ledger: NewLedger(),
		}
	}
	return m
}

// SetNow overrides the clock. Test hook.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

func (m *Manager) tick() int64 { return m.now().Unix() }

func (m *Manager) emit(evt events.Event) {
	if m.publish != nil {
		m.publish(evt)
	}
}

// Init restores boss state and contribution ledgers from the store.
// Must complete before any combat traffic is accepted: a fight in
// progress at crash time resumes with its full contribution history and
// is never mistaken for a fresh dormant boss.
func (m *Manager) Init(ctx context.Context) error {
	rows, err := m.store.LoadAllBossStates(ctx)
	if err != nil {
		return fmt.Errorf("load boss states: %w", err)
	}

	seen := make(map[model.BossKind]bool, len(rows))
	restored := 0
	for _, row := range rows {
		kind := model.BossKind(row.BossKind)
		entry, ok := m.entries[kind]
		if !ok {
			slog.Warn("persisted state for unconfigured boss kind", "bossKind", row.BossKind)
			continue
		}
		seen[kind] = true

		entry.mu.Lock()
		entry.state = model.LifecycleState(row.LifecycleState)
		if entry.state == model.BossDying {
			// Dying is transient and never persisted on purpose;
			// coerce a crash artifact into the parked state.
			entry.state = model.BossSettling
		}
		entry.hp = row.HP
		entry.spawnTick = row.SpawnTick
		if row.NextSpawnTick != nil {
			entry.nextSpawnTick = *row.NextSpawnTick
		}

		contribs, err := m.store.LoadContributions(ctx, row.BossKind)
		if err != nil {
			entry.mu.Unlock()
			return fmt.Errorf("load contributions %s: %w", row.BossKind, err)
		}
		for _, c := range contribs {
			entry.ledger.Restore(c.Participant, c.Damage, c.Wallet)
		}
		state := entry.state
		participants := entry.ledger.Participants()
		entry.mu.Unlock()

		restored++
		if state == model.BossSettling {
			slog.Warn("boss restored in settling state, awaiting operator retry",
				"bossKind", kind, "participants", participants)
		}
	}

	// First boot for any boss without a persisted row: schedule a spawn.
	scheduled := 0
	for kind, entry := range m.entries {
		if seen[kind] {
			continue
		}
		entry.mu.Lock()
		entry.state = model.BossDormant
		entry.nextSpawnTick = m.tick() + entry.cooldown()
		row := entry.stateRow()
		entry.mu.Unlock()

		if err := m.store.SaveBossState(ctx, row); err != nil {
			return fmt.Errorf("init boss state %s: %w", kind, err)
		}
		scheduled++
	}

	slog.Info("boss manager initialized", "restored", restored, "scheduled", scheduled)
	return nil
}

// DamageResult reports the outcome of a damage application.
type DamageResult struct {
	// Accepted is false when the boss was not active — a benign no-op,
	// never an error, so pre-spawn and post-mortem hits cannot pollute
	// the ledger.
	Accepted bool
	// Applied is the damage actually recorded after clamping to the
	// participant cap headroom and the remaining HP. HP is reduced by
	// this amount only, never by the raw request.
	Applied     int64
	Truncated   int64
	HPRemaining int64
	// Killed is true for exactly one blow per instance.
	Killed bool
	// PayoutEligible is false while the participant has no resolvable
	// wallet. The contribution still counts; the share is reported as
	// unallocated at settlement unless an identity arrives first.
	PayoutEligible bool
}

// ApplyDamage records a combat hit against a boss. The write-through to
// the store completes before return, so an acknowledged contribution
// survives a crash.
func (m *Manager) ApplyDamage(ctx context.Context, kind model.BossKind, participant, wallet string, amount int64) (DamageResult, error) {
	entry, ok := m.entries[kind]
	if !ok {
		return DamageResult{}, fmt.Errorf("%w: %s", ErrUnknownBoss, kind)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.state.AcceptsDamage() || amount <= 0 {
		return DamageResult{Accepted: false, HPRemaining: entry.hp}, nil
	}

	headroom := entry.tuning.DamageCap - entry.ledger.Damage(participant)
	applied := min(amount, headroom, entry.hp)
	if applied < 0 {
		applied = 0
	}

	if applied == 0 {
		// Cap reached: truncated to nothing, HP untouched.
		return DamageResult{
			Accepted:       true,
			Truncated:      amount,
			HPRemaining:    entry.hp,
			PayoutEligible: entry.ledger.Wallet(participant) != "",
		}, nil
	}

	firstContribution := entry.ledger.Damage(participant) == 0
	walletMissing := entry.ledger.Add(participant, applied, wallet)
	if walletMissing && firstContribution {
		slog.Warn("contribution recorded without payout identity",
			"bossKind", kind, "participant", participant, "damage", applied)
	}

	entry.hp -= applied
	result := DamageResult{
		Accepted:       true,
		Applied:        applied,
		Truncated:      amount - applied,
		HPRemaining:    entry.hp,
		PayoutEligible: !walletMissing,
	}

	if entry.hp == 0 {
		// Atomic with the damage application: exactly one blow observes
		// the Dying transition.
		entry.state = model.BossDying
		result.Killed = true
	}

	// Dying is transient: settlement begins before the lock is released.
	if result.Killed {
		entry.state = model.BossSettling
		entry.settlementInFlight = true
	}

	// Write-through while holding the entry lock keeps the persisted
	// boss row and contribution ordered with the mutation they ack. A
	// persist failure is returned so the caller's ack fails, but the
	// in-memory mutation stands and a killing blow still settles.
	var persistErr error
	if err := m.store.UpsertContribution(ctx, ContributionRow{
		BossKind:    string(kind),
		Participant: participant,
		Damage:      entry.ledger.Damage(participant),
		Wallet:      entry.ledger.Wallet(participant),
	}); err != nil {
		persistErr = fmt.Errorf("persist contribution: %w", err)
	} else if err := m.store.SaveBossState(ctx, entry.stateRow()); err != nil {
		persistErr = fmt.Errorf("persist boss state: %w", err)
	}

	if result.Killed {
		slog.Info("boss died", "bossKind", kind,
			"participants", entry.ledger.Participants(),
			"killingBlow", participant)
		m.emit(events.Event{
			Type:     events.BossDied,
			BossKind: string(kind),
			Detail:   map[string]any{"killingBlow": participant},
		})
		m.deathCh <- kind
	}

	return result, persistErr
}

// CorrectWallet is the explicit identity-correction path: it overwrites a
// participant's payout identity and persists the change. Unlike capture
// on first damage, corrections are allowed at any point before the
// ledger is cleared, including while parked in Settling.
func (m *Manager) CorrectWallet(ctx context.Context, kind model.BossKind, participant, wallet string) error {
	entry, ok := m.entries[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBoss, kind)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.ledger.SetWallet(participant, wallet) {
		return fmt.Errorf("%w: %s on %s", ErrUnknownParticipant, participant, kind)
	}
	if err := m.store.UpsertContribution(ctx, ContributionRow{
		BossKind:    string(kind),
		Participant: participant,
		Damage:      entry.ledger.Damage(participant),
		Wallet:      wallet,
	}); err != nil {
		return fmt.Errorf("persist wallet correction: %w", err)
	}

	slog.Info("payout identity corrected", "bossKind", kind, "participant", participant)
	return nil
}

// Snapshot returns an immutable copy of the boss's contribution ledger.
func (m *Manager) Snapshot(kind model.BossKind) (Snapshot, error) {
	entry, ok := m.entries[kind]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownBoss, kind)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.ledger.Snapshot(), nil
}

// Status returns a read-only view of one boss.
func (m *Manager) Status(kind model.BossKind) (model.BossStatus, error) {
	entry, ok := m.entries[kind]
	if !ok {
		return model.BossStatus{}, fmt.Errorf("%w: %s", ErrUnknownBoss, kind)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return model.BossStatus{
		Kind:          kind,
		State:         entry.state,
		StateName:     entry.state.String(),
		HP:            entry.hp,
		MaxHP:         entry.tuning.MaxHP,
		SpawnTick:     entry.spawnTick,
		NextSpawnTick: entry.nextSpawnTick,
		Participants:  entry.ledger.Participants(),
	}, nil
}

// StatusAll returns views for every configured boss.
func (m *Manager) StatusAll() []model.BossStatus {
	result := make([]model.BossStatus, 0, len(m.entries))
	for kind := range m.entries {
		status, err := m.Status(kind)
		if err != nil {
			continue
		}
		result = append(result, status)
	}
	return result
}

// TopContributors returns the n highest contributors to the current
// instance of a boss.
func (m *Manager) TopContributors(kind model.BossKind, n int) ([]Contribution, error) {
	snap, err := m.Snapshot(kind)
	if err != nil {
		return nil, err
	}
	return snap.Top(n), nil
}

// RetrySettlement re-triggers settlement for a boss parked in Settling.
// The plan is re-derived from the ledger, which is still intact.
func (m *Manager) RetrySettlement(kind model.BossKind) error {
	entry, ok := m.entries[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBoss, kind)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.state != model.BossSettling {
		return fmt.Errorf("%w: %s is %s", ErrNotSettling, kind, entry.state)
	}
	if entry.settlementInFlight {
		return fmt.Errorf("%w: %s", ErrSettlementInFlight, kind)
	}
	entry.settlementInFlight = true
	m.deathCh <- kind

	slog.Info("settlement retry requested", "bossKind", kind)
	return nil
}

// RunTickLoop advances spawn scheduling once per second.
// Blocks until context is canceled.
func (m *Manager) RunTickLoop(ctx context.Context) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	slog.Info("boss tick loop started", "bosses", len(m.entries))

	for {
		select {
		case <-ctx.Done():
			slog.Info("boss tick loop stopping")
			return ctx.Err()
		case <-ticker.C:
			m.Advance(ctx)
		}
	}
}

// Advance runs one scheduling pass over every boss. Exposed separately
// from RunTickLoop so tests can drive ticks directly.
func (m *Manager) Advance(ctx context.Context) {
	now := m.tick()
	for kind, entry := range m.entries {
		entry.mu.Lock()
		switch entry.state {
		case model.BossDormant:
			if entry.nextSpawnTick > 0 && now >= entry.nextSpawnTick {
				entry.state = model.BossWarning
				entry.nextSpawnTick = now + entry.tuning.WarningDelayTicks
				m.persistLocked(ctx, kind, entry)
				entry.mu.Unlock()

				slog.Info("boss warning broadcast", "bossKind", kind,
					"activeIn", entry.tuning.WarningDelayTicks)
				m.emit(events.Event{
					Type:     events.BossWarning,
					BossKind: string(kind),
					Detail:   map[string]any{"activeInTicks": entry.tuning.WarningDelayTicks},
				})
				continue
			}
		case model.BossWarning:
			if now >= entry.nextSpawnTick {
				entry.state = model.BossActive
				entry.hp = entry.tuning.MaxHP
				entry.spawnTick = now
				entry.nextSpawnTick = 0
				m.persistLocked(ctx, kind, entry)
				entry.mu.Unlock()

				slog.Info("boss spawned", "bossKind", kind, "maxHP", entry.tuning.MaxHP)
				m.emit(events.Event{
					Type:     events.BossSpawned,
					BossKind: string(kind),
					Detail:   map[string]any{"maxHp": entry.tuning.MaxHP},
				})
				continue
			}
		}
		entry.mu.Unlock()
	}
}

// RunSettlementLoop consumes death events and settles them one at a
// time. Blocks until context is canceled.
func (m *Manager) RunSettlementLoop(ctx context.Context) error {
	slog.Info("settlement loop started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("settlement loop stopping")
			return ctx.Err()
		case kind := <-m.deathCh:
			m.settle(ctx, kind)
		}
	}
}

// RunSaveLoop periodically persists boss states, and once more on
// shutdown. Write-through already covers every mutation; this bounds
// drift if a write-through failed and was surfaced to a caller that
// retried without re-reading.
func (m *Manager) RunSaveLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("boss save loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			m.saveAll(context.WithoutCancel(ctx))
			slog.Info("boss save loop stopping")
			return ctx.Err()
		case <-ticker.C:
			m.saveAll(ctx)
		}
	}
}

// settle runs one settlement attempt for a dead boss: live balance →
// distribution → instruction → dispatch → audit → reset. Any transient
// failure parks the boss in Settling for operator retry.
func (m *Manager) settle(ctx context.Context, kind model.BossKind) {
	entry := m.entries[kind]

	entry.mu.Lock()
	if entry.state != model.BossSettling {
		entry.settlementInFlight = false
		entry.mu.Unlock()
		return
	}
	snap := entry.ledger.Snapshot()
	entry.mu.Unlock()

	balance, err := m.boundary.PoolBalance(ctx, string(kind))
	if err != nil {
		m.park(ctx, kind, "pool balance unavailable", err)
		return
	}

	plan := ComputePlan(snap, balance, m.split)
	if plan.Unallocated.IsPositive() {
		slog.Warn("payout shares excluded for missing identity",
			"bossKind", kind, "unallocated", plan.Unallocated.String())
	}

	instr, err := FormatInstruction(plan)
	if err != nil {
		// Fatal invariant: never partially pay out.
		m.park(ctx, kind, "settlement instruction invalid", err)
		return
	}

	if instr.Empty() {
		slog.Info("settlement skipped, no attributable contributions",
			"bossKind", kind, "balance", balance.String())
		m.emit(events.Event{Type: events.SettlementSkipped, BossKind: string(kind)})
		m.finishSettlement(ctx, kind)
		return
	}

	txRef, err := m.boundary.SubmitPayout(ctx, settlement.PayoutRequest{
		BossKind:       string(kind),
		Identities:     instr.Identities,
		BasisPoints:    instr.BasisPoints,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		m.park(ctx, kind, "payout dispatch failed", err)
		return
	}

	paid := balance.Mul(decimal.NewFromInt(instr.Sum)).Div(tenThousand)
	if m.audit != nil {
		rec := AuditRecord{
			BossKind:    string(kind),
			TxReference: txRef,
			Identities:  instr.Identities,
			BasisPoints: instr.BasisPoints,
			TotalAmount: paid,
			PoolBefore:  balance,
			PoolAfter:   balance.Sub(paid),
			At:          m.now(),
		}
		if err := m.audit.RecordSettlement(ctx, rec); err != nil {
			// Funds already moved; an audit gap is operator-facing, not
			// grounds to retry the payout.
			slog.Error("settlement audit write failed",
				"bossKind", kind, "txReference", txRef, "error", err)
		}
	}

	slog.Info("settlement completed",
		"bossKind", kind,
		"txReference", txRef,
		"recipients", len(instr.Identities),
		"basisPoints", instr.Sum,
		"unallocatedBps", instr.UnallocatedBps,
		"paid", paid.String())
	m.emit(events.Event{
		Type:     events.SettlementCompleted,
		BossKind: string(kind),
		Detail: map[string]any{
			"txReference": txRef,
			"recipients":  len(instr.Identities),
			"paid":        paid.String(),
		},
	})

	m.finishSettlement(ctx, kind)
}

// park leaves the boss in Settling with no attempt in flight, so an
// operator can re-trigger without re-deriving anything.
func (m *Manager) park(ctx context.Context, kind model.BossKind, reason string, cause error) {
	entry := m.entries[kind]
	entry.mu.Lock()
	entry.settlementInFlight = false
	entry.mu.Unlock()

	slog.Error("settlement parked", "bossKind", kind, "reason", reason, "error", cause)
	m.emit(events.Event{
		Type:     events.SettlementParked,
		BossKind: string(kind),
		Detail:   map[string]any{"reason": reason},
	})
}

// finishSettlement clears the ledger and returns the boss to Dormant
// with the next spawn scheduled.
func (m *Manager) finishSettlement(ctx context.Context, kind model.BossKind) {
	entry := m.entries[kind]

	entry.mu.Lock()
	entry.ledger.Clear()
	entry.state = model.BossDormant
	entry.hp = 0
	entry.nextSpawnTick = m.tick() + entry.cooldown()
	entry.settlementInFlight = false
	next := entry.nextSpawnTick
	m.persistLocked(ctx, kind, entry)
	entry.mu.Unlock()

	if _, err := m.store.DeleteContributions(ctx, string(kind)); err != nil {
		slog.Error("clear persisted contributions", "bossKind", kind, "error", err)
	}

	slog.Info("boss dormant until next spawn", "bossKind", kind, "nextSpawnTick", next)
}

// saveAll persists every boss state row.
func (m *Manager) saveAll(ctx context.Context) {
	saved := 0
	for kind, entry := range m.entries {
		entry.mu.Lock()
		row := entry.stateRow()
		entry.mu.Unlock()

		if err := m.store.SaveBossState(ctx, row); err != nil {
			slog.Error("save boss state", "bossKind", kind, "error", err)
			continue
		}
		saved++
	}
	if saved > 0 {
		slog.Debug("boss states saved", "count", saved)
	}
}

// persistLocked saves the entry's state row; callers hold entry.mu.
func (m *Manager) persistLocked(ctx context.Context, kind model.BossKind, entry *bossEntry) {
	if err := m.store.SaveBossState(ctx, entry.stateRow()); err != nil {
		slog.Error("persist boss state", "bossKind", kind, "error", err)
	}
}

// stateRow builds the persistence row; callers hold entry.mu.
func (e *bossEntry) stateRow() StateRow {
	row := StateRow{
		BossKind:       string(e.tuning.Kind),
		HP:             e.hp,
		MaxHP:          e.tuning.MaxHP,
		LifecycleState: int16(e.state),
		SpawnTick:      e.spawnTick,
	}
	if e.nextSpawnTick > 0 {
		next := e.nextSpawnTick
		row.NextSpawnTick = &next
	}
	return row
}

// cooldown returns a spawn cooldown in ticks within [min, max].
func (e *bossEntry) cooldown() int64 {
	min, max := e.tuning.CooldownMinTicks, e.tuning.CooldownMaxTicks
	if max <= min {
		return min
	}
	return min + rand.Int64N(max-min+1)
}
