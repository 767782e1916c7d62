package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/thereef/reef-server/internal/testutil"
)

func TestAuditRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool := testutil.SetupTestDB(t)
	repo := NewAuditRepository(pool)
	ctx := context.Background()

	row := AuditRow{
		ID:          uuid.New(),
		BossKind:    "kraken_of_the_deep",
		TxReference: "0xdeadbeef",
		Recipients: []AuditRecipient{
			{Identity: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", BasisPoints: 4600},
			{Identity: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", BasisPoints: 5400},
		},
		// Decimal strings survive exactly, no float round-trip.
		TotalAmount: "10.000000000000000001",
		PoolBefore:  "10.000000000000000001",
		PoolAfter:   "0",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, row))

	t.Run("ListByBoss", func(t *testing.T) {
		got, err := repo.ListByBoss(ctx, "kraken_of_the_deep", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, row.ID, got[0].ID)
		require.Equal(t, "0xdeadbeef", got[0].TxReference)
		require.Equal(t, row.Recipients, got[0].Recipients)
		require.Equal(t, "10.000000000000000001", got[0].TotalAmount)
	})

	t.Run("ListByBossFiltersKind", func(t *testing.T) {
		got, err := repo.ListByBoss(ctx, "tide_titan", 10)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("NewestFirst", func(t *testing.T) {
		later := AuditRow{
			ID:          uuid.New(),
			BossKind:    "kraken_of_the_deep",
			TxReference: "0xcafe",
			Recipients:  []AuditRecipient{{Identity: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", BasisPoints: 10000}},
			TotalAmount: "5",
			PoolBefore:  "5",
			PoolAfter:   "0",
			CreatedAt:   row.CreatedAt.Add(time.Minute),
		}
		require.NoError(t, repo.Insert(ctx, later))

		got, err := repo.ListByBoss(ctx, "kraken_of_the_deep", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "0xcafe", got[0].TxReference)
	})
}
