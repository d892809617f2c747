package repository

import (
	"context"
	"testing"
	"time"

	"farisight/models"
	"farisight/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(computedAt time.Time) *models.Snapshot {
	return &models.Snapshot{
		ComputedAt:        computedAt,
		TotalTransactions: 3,
		TotalAmountUSD:    decimal.RequireFromString("180.00"),
		TotalAmountRM:     decimal.RequireFromString("761.40"),
		DebitCount:        2,
		CreditCount:       1,
		SuccessCount:      2,
		FailedCount:       1,
		FailureRate:       decimal.RequireFromString("33.33"),
		TotalBankCharges:  decimal.RequireFromString("7.00"),
		PerCustomer: map[string]models.CustomerKPI{
			"223345": {Count: 2, AmountUSD: decimal.RequireFromString("150.00")},
			"445566": {Count: 1, AmountUSD: decimal.RequireFromString("30.00")},
		},
		TypeBreakdown: map[models.TransactionType]models.TypeKPI{
			models.TransactionTypeTransfer: {
				Count:       2,
				Amount:      decimal.RequireFromString("150.00"),
				FailedCount: 1,
				FailureRate: decimal.RequireFromString("50.00"),
			},
			models.TransactionTypeDeposit: {
				Count:  1,
				Amount: decimal.RequireFromString("30.00"),
			},
		},
	}
}

func TestSnapshotRepository_LatestOnEmptyTable(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSnapshotRepository(testDB.DB)

	snapshot, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSnapshotRepository_ReplaceAndLatest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	original := testSnapshot(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Replace(ctx, original))
	assert.NotZero(t, original.ID)

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, int64(3), got.TotalTransactions)
	assert.Equal(t, int64(2), got.DebitCount)
	assert.Equal(t, int64(1), got.CreditCount)
	assert.True(t, got.TotalAmountUSD.Equal(decimal.RequireFromString("180.00")))
	assert.True(t, got.TotalAmountRM.Equal(decimal.RequireFromString("761.40")))
	assert.True(t, got.FailureRate.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, got.TotalBankCharges.Equal(decimal.RequireFromString("7.00")))

	// The persisted breakdown carries the full detail back
	require.Len(t, got.PerCustomer, 2)
	assert.Equal(t, int64(2), got.PerCustomer["223345"].Count)
	assert.True(t, got.PerCustomer["223345"].AmountUSD.Equal(decimal.RequireFromString("150.00")))

	require.Len(t, got.TypeBreakdown, 2)
	transfer := got.TypeBreakdown[models.TransactionTypeTransfer]
	assert.Equal(t, int64(2), transfer.Count)
	assert.Equal(t, int64(1), transfer.FailedCount)
	assert.True(t, transfer.FailureRate.Equal(decimal.RequireFromString("50.00")))
}

func TestSnapshotRepository_ReplaceLeavesSingleRow(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snapshot := testSnapshot(time.Date(2026, 8, 31, 10, i, 0, 0, time.UTC))
		snapshot.TotalTransactions = int64(i + 1)
		require.NoError(t, repo.Replace(ctx, snapshot))
	}

	var count int64
	err := testDB.DB.QueryRow(ctx, `SELECT COUNT(*) FROM kpi_snapshots`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "each replace must leave exactly one snapshot row")

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.TotalTransactions, "the surviving row is the most recent one")
}

func TestSnapshotRepository_EmptyBreakdowns(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSnapshotRepository(testDB.DB)
	ctx := context.Background()

	snapshot := &models.Snapshot{
		ComputedAt:       time.Now().UTC(),
		FailureRate:      decimal.Zero,
		TotalAmountUSD:   decimal.Zero,
		TotalAmountRM:    decimal.Zero,
		TotalBankCharges: decimal.Zero,
	}
	require.NoError(t, repo.Replace(ctx, snapshot))

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(0), got.TotalTransactions)
	assert.Empty(t, got.PerCustomer)
	assert.Empty(t, got.TypeBreakdown)
}
