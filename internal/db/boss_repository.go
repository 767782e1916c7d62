package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BossStateRow represents a row from boss_state.
type BossStateRow struct {
	BossKind       string
	HP             int64
	MaxHP          int64
	LifecycleState int16
	SpawnTick      int64
	NextSpawnTick  *int64 // nil when no spawn is scheduled
}

// ContributionRow represents a row from boss_contribution.
type ContributionRow struct {
	BossKind    string
	Participant string
	Damage      int64
	Wallet      string
}

// BossRepository provides CRUD for world boss state and contributions.
type BossRepository struct {
	pool *pgxpool.Pool
}

// NewBossRepository creates a new BossRepository.
func NewBossRepository(pool *pgxpool.Pool) *BossRepository {
	return &BossRepository{pool: pool}
}

// --- boss_state ---

// LoadAllBossStates loads every boss state record. Called once at startup
// before combat traffic is accepted, so a fight in progress at crash time
// resumes instead of being mistaken for a fresh dormant boss.
func (r *BossRepository) LoadAllBossStates(ctx context.Context) ([]BossStateRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT boss_kind, hp, max_hp, lifecycle_state, spawn_tick, next_spawn_tick
		 FROM boss_state`)
	if err != nil {
		return nil, fmt.Errorf("query boss_state: %w", err)
	}
	defer rows.Close()

	var result []BossStateRow
	for rows.Next() {
		var row BossStateRow
		if err := rows.Scan(
			&row.BossKind, &row.HP, &row.MaxHP,
			&row.LifecycleState, &row.SpawnTick, &row.NextSpawnTick,
		); err != nil {
			return nil, fmt.Errorf("scan boss_state: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// SaveBossState inserts or updates a boss state record.
func (r *BossRepository) SaveBossState(ctx context.Context, row BossStateRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO boss_state (boss_kind, hp, max_hp, lifecycle_state, spawn_tick, next_spawn_tick)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (boss_kind) DO UPDATE SET
		   hp              = EXCLUDED.hp,
		   max_hp          = EXCLUDED.max_hp,
		   lifecycle_state = EXCLUDED.lifecycle_state,
		   spawn_tick      = EXCLUDED.spawn_tick,
		   next_spawn_tick = EXCLUDED.next_spawn_tick`,
		row.BossKind, row.HP, row.MaxHP, row.LifecycleState, row.SpawnTick, row.NextSpawnTick)
	if err != nil {
		return fmt.Errorf("upsert boss_state %s: %w", row.BossKind, err)
	}
	return nil
}

// GetBossState loads a single boss state record.
// Returns nil, nil if the boss has never been persisted.
func (r *BossRepository) GetBossState(ctx context.Context, bossKind string) (*BossStateRow, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT boss_kind, hp, max_hp, lifecycle_state, spawn_tick, next_spawn_tick
		 FROM boss_state WHERE boss_kind = $1`, bossKind)

	var bs BossStateRow
	err := row.Scan(&bs.BossKind, &bs.HP, &bs.MaxHP, &bs.LifecycleState, &bs.SpawnTick, &bs.NextSpawnTick)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get boss_state %s: %w", bossKind, err)
	}
	return &bs, nil
}

// --- boss_contribution ---

// LoadContributions loads all contribution rows for a boss kind.
func (r *BossRepository) LoadContributions(ctx context.Context, bossKind string) ([]ContributionRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT boss_kind, participant, damage, wallet
		 FROM boss_contribution WHERE boss_kind = $1`, bossKind)
	if err != nil {
		return nil, fmt.Errorf("query boss_contribution %s: %w", bossKind, err)
	}
	defer rows.Close()

	var result []ContributionRow
	for rows.Next() {
		var row ContributionRow
		if err := rows.Scan(&row.BossKind, &row.Participant, &row.Damage, &row.Wallet); err != nil {
			return nil, fmt.Errorf("scan boss_contribution: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// UpsertContribution writes the cumulative damage and wallet for one
// participant. The in-memory ledger is the source of truth; the stored
// value is replaced, not summed, so retried writes are idempotent.
func (r *BossRepository) UpsertContribution(ctx context.Context, row ContributionRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO boss_contribution (boss_kind, participant, damage, wallet)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (boss_kind, participant) DO UPDATE SET
		   damage = EXCLUDED.damage,
		   wallet = EXCLUDED.wallet`,
		row.BossKind, row.Participant, row.Damage, row.Wallet)
	if err != nil {
		return fmt.Errorf("upsert boss_contribution %s/%s: %w", row.BossKind, row.Participant, err)
	}
	return nil
}

// DeleteContributions removes every contribution row for a boss kind.
// Called when the ledger is cleared after settlement.
func (r *BossRepository) DeleteContributions(ctx context.Context, bossKind string) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM boss_contribution WHERE boss_kind = $1`, bossKind)
	if err != nil {
		return 0, fmt.Errorf("delete boss_contribution %s: %w", bossKind, err)
	}
	return result.RowsAffected(), nil
}
