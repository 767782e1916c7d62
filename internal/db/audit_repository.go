package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRow represents a row from settlement_audit — one durable record
// per completed settlement attempt.
type AuditRow struct {
	ID          uuid.UUID
	BossKind    string
	TxReference string
	Recipients  []AuditRecipient
	TotalAmount string // decimal string, exact
	PoolBefore  string
	PoolAfter   string
	CreatedAt   time.Time
}

// AuditRecipient is one (identity, basisPoints) pair of a dispatched payout.
type AuditRecipient struct {
	Identity    string `json:"identity"`
	BasisPoints int64  `json:"basisPoints"`
}

// AuditRepository provides the settlement audit log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert records a completed settlement attempt.
func (r *AuditRepository) Insert(ctx context.Context, row AuditRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO settlement_audit
		   (id, boss_kind, tx_reference, recipients, total_amount, pool_before, pool_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.BossKind, row.TxReference, row.Recipients,
		row.TotalAmount, row.PoolBefore, row.PoolAfter, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert settlement_audit %s: %w", row.TxReference, err)
	}
	return nil
}

// ListByBoss returns recent settlement audit rows for one boss kind,
// newest first.
func (r *AuditRepository) ListByBoss(ctx context.Context, bossKind string, limit int) ([]AuditRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, boss_kind, tx_reference, recipients,
		        total_amount::text, pool_before::text, pool_after::text, created_at
		 FROM settlement_audit
		 WHERE boss_kind = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, bossKind, limit)
	if err != nil {
		return nil, fmt.Errorf("query settlement_audit %s: %w", bossKind, err)
	}
	defer rows.Close()

	var result []AuditRow
	for rows.Next() {
		var row AuditRow
		if err := rows.Scan(
			&row.ID, &row.BossKind, &row.TxReference, &row.Recipients,
			&row.TotalAmount, &row.PoolBefore, &row.PoolAfter, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan settlement_audit: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
