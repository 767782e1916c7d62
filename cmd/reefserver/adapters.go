package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/thereef/reef-server/internal/db"
	"github.com/thereef/reef-server/internal/game/boss"
	"github.com/thereef/reef-server/internal/game/progression"
)

// bossStoreAdapter adapts db.BossRepository to boss.Store.
type bossStoreAdapter struct {
	repo *db.BossRepository
}

func (a *bossStoreAdapter) LoadAllBossStates(ctx context.Context) ([]boss.StateRow, error) {
	rows, err := a.repo.LoadAllBossStates(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]boss.StateRow, 0, len(rows))
	for _, r := range rows {
		result = append(result, boss.StateRow{
			BossKind:       r.BossKind,
			HP:             r.HP,
			MaxHP:          r.MaxHP,
			LifecycleState: r.LifecycleState,
			SpawnTick:      r.SpawnTick,
			NextSpawnTick:  r.NextSpawnTick,
		})
	}
	return result, nil
}

func (a *bossStoreAdapter) SaveBossState(ctx context.Context, row boss.StateRow) error {
	return a.repo.SaveBossState(ctx, db.BossStateRow{
		BossKind:       row.BossKind,
		HP:             row.HP,
		MaxHP:          row.MaxHP,
		LifecycleState: row.LifecycleState,
		SpawnTick:      row.SpawnTick,
		NextSpawnTick:  row.NextSpawnTick,
	})
}

func (a *bossStoreAdapter) LoadContributions(ctx context.Context, bossKind string) ([]boss.ContributionRow, error) {
	rows, err := a.repo.LoadContributions(ctx, bossKind)
	if err != nil {
		return nil, err
	}
	result := make([]boss.ContributionRow, 0, len(rows))
	for _, r := range rows {
		result = append(result, boss.ContributionRow{
			BossKind:    r.BossKind,
			Participant: r.Participant,
			Damage:      r.Damage,
			Wallet:      r.Wallet,
		})
	}
	return result, nil
}

func (a *bossStoreAdapter) UpsertContribution(ctx context.Context, row boss.ContributionRow) error {
	return a.repo.UpsertContribution(ctx, db.ContributionRow{
		BossKind:    row.BossKind,
		Participant: row.Participant,
		Damage:      row.Damage,
		Wallet:      row.Wallet,
	})
}

func (a *bossStoreAdapter) DeleteContributions(ctx context.Context, bossKind string) (int64, error) {
	return a.repo.DeleteContributions(ctx, bossKind)
}

// auditSinkAdapter adapts db.AuditRepository to boss.AuditSink.
type auditSinkAdapter struct {
	repo *db.AuditRepository
}

func (a *auditSinkAdapter) RecordSettlement(ctx context.Context, rec boss.AuditRecord) error {
	recipients := make([]db.AuditRecipient, 0, len(rec.Identities))
	for i, id := range rec.Identities {
		recipients = append(recipients, db.AuditRecipient{
			Identity:    id,
			BasisPoints: rec.BasisPoints[i],
		})
	}
	return a.repo.Insert(ctx, db.AuditRow{
		ID:          uuid.New(),
		BossKind:    rec.BossKind,
		TxReference: rec.TxReference,
		Recipients:  recipients,
		TotalAmount: rec.TotalAmount.String(),
		PoolBefore:  rec.PoolBefore.String(),
		PoolAfter:   rec.PoolAfter.String(),
		CreatedAt:   rec.At,
	})
}

// progressionStoreAdapter adapts db.ProgressionRepository to
// progression.Store.
type progressionStoreAdapter struct {
	repo *db.ProgressionRepository
}

func (a *progressionStoreAdapter) GetProgression(ctx context.Context, agentID string) (*progression.Row, error) {
	row, err := a.repo.GetProgression(ctx, agentID)
	if err != nil || row == nil {
		return nil, err
	}
	return &progression.Row{
		AgentID:    row.AgentID,
		Faction:    row.Faction,
		Experience: row.Experience,
	}, nil
}

func (a *progressionStoreAdapter) SaveProgression(ctx context.Context, row progression.Row) error {
	return a.repo.SaveProgression(ctx, db.ProgressionRow{
		AgentID:    row.AgentID,
		Faction:    row.Faction,
		Experience: row.Experience,
	})
}

func (a *progressionStoreAdapter) TopByExperience(ctx context.Context, limit int) ([]progression.Row, error) {
	rows, err := a.repo.TopByExperience(ctx, limit)
	if err != nil {
		return nil, err
	}
	result := make([]progression.Row, 0, len(rows))
	for _, r := range rows {
		result = append(result, progression.Row{
			AgentID:    r.AgentID,
			Faction:    r.Faction,
			Experience: r.Experience,
		})
	}
	return result, nil
}
