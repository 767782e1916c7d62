package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressionRow represents a row from agent_progression.
type ProgressionRow struct {
	AgentID    string
	Faction    string
	Experience int64
}

// ProgressionRepository provides CRUD for agent progression records.
type ProgressionRepository struct {
	pool *pgxpool.Pool
}

// NewProgressionRepository creates a new ProgressionRepository.
func NewProgressionRepository(pool *pgxpool.Pool) *ProgressionRepository {
	return &ProgressionRepository{pool: pool}
}

// GetProgression loads a single agent's progression record.
// Returns nil, nil if the agent has no record yet.
func (r *ProgressionRepository) GetProgression(ctx context.Context, agentID string) (*ProgressionRow, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT agent_id, faction, experience
		 FROM agent_progression WHERE agent_id = $1`, agentID)

	var p ProgressionRow
	err := row.Scan(&p.AgentID, &p.Faction, &p.Experience)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent_progression %s: %w", agentID, err)
	}
	return &p, nil
}

// SaveProgression inserts or updates an agent's progression record.
// Experience never decreases; the GREATEST guard keeps a stale writer
// from rolling back a concurrent grant.
func (r *ProgressionRepository) SaveProgression(ctx context.Context, row ProgressionRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO agent_progression (agent_id, faction, experience)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (agent_id) DO UPDATE SET
		   faction    = EXCLUDED.faction,
		   experience = GREATEST(agent_progression.experience, EXCLUDED.experience)`,
		row.AgentID, row.Faction, row.Experience)
	if err != nil {
		return fmt.Errorf("upsert agent_progression %s: %w", row.AgentID, err)
	}
	return nil
}

// TopByExperience returns the N most experienced agents.
func (r *ProgressionRepository) TopByExperience(ctx context.Context, limit int) ([]ProgressionRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT agent_id, faction, experience
		 FROM agent_progression
		 ORDER BY experience DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top agent_progression: %w", err)
	}
	defer rows.Close()

	var result []ProgressionRow
	for rows.Next() {
		var row ProgressionRow
		if err := rows.Scan(&row.AgentID, &row.Faction, &row.Experience); err != nil {
			return nil, fmt.Errorf("scan agent_progression: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
