package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"farisight/database"
	"farisight/models"

	"github.com/jackc/pgx/v5"
)

// SnapshotRepository implements the SnapshotRepository interface. The
// kpi_snapshots table holds at most one row; Replace must run inside a unit
// of work so readers see either the old or the new snapshot, never the gap.
type SnapshotRepository struct {
	q queryable
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *database.DB) *SnapshotRepository {
	return &SnapshotRepository{q: db.Pool}
}

// newSnapshotRepositoryWithTx creates a new snapshot repository with a transaction
func newSnapshotRepositoryWithTx(tx queryable) *SnapshotRepository {
	return &SnapshotRepository{q: tx}
}

// Replace deletes the existing snapshot row (if any) and inserts the new one
func (r *SnapshotRepository) Replace(ctx context.Context, snapshot *models.Snapshot) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM kpi_snapshots`); err != nil {
		return fmt.Errorf("failed to delete prior snapshot: %w", err)
	}

	perCustomerJSON, err := json.Marshal(snapshot.PerCustomer)
	if err != nil {
		return fmt.Errorf("failed to marshal per-customer rollup: %w", err)
	}
	typeBreakdownJSON, err := json.Marshal(snapshot.TypeBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal type breakdown: %w", err)
	}

	query := `
		INSERT INTO kpi_snapshots (
			computed_at, total_transactions, total_amount_usd, total_amount_rm,
			dr_count, cr_count, success_count, failed_count, failure_rate,
			total_bank_charges, per_customer, type_breakdown
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err = r.q.QueryRow(ctx, query,
		snapshot.ComputedAt,
		snapshot.TotalTransactions,
		snapshot.TotalAmountUSD,
		snapshot.TotalAmountRM,
		snapshot.DebitCount,
		snapshot.CreditCount,
		snapshot.SuccessCount,
		snapshot.FailedCount,
		snapshot.FailureRate,
		snapshot.TotalBankCharges,
		perCustomerJSON,
		typeBreakdownJSON,
	).Scan(&snapshot.ID)

	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// Latest returns the current snapshot, or nil when none has been computed yet
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.Snapshot, error) {
	query := `
		SELECT id, computed_at, total_transactions, total_amount_usd, total_amount_rm,
		       dr_count, cr_count, success_count, failed_count, failure_rate,
		       total_bank_charges, per_customer, type_breakdown
		FROM kpi_snapshots
		ORDER BY computed_at DESC
		LIMIT 1
	`

	var snapshot models.Snapshot
	var perCustomerJSON, typeBreakdownJSON []byte

	err := r.q.QueryRow(ctx, query).Scan(
		&snapshot.ID,
		&snapshot.ComputedAt,
		&snapshot.TotalTransactions,
		&snapshot.TotalAmountUSD,
		&snapshot.TotalAmountRM,
		&snapshot.DebitCount,
		&snapshot.CreditCount,
		&snapshot.SuccessCount,
		&snapshot.FailedCount,
		&snapshot.FailureRate,
		&snapshot.TotalBankCharges,
		&perCustomerJSON,
		&typeBreakdownJSON,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if err := json.Unmarshal(perCustomerJSON, &snapshot.PerCustomer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal per-customer rollup: %w", err)
	}
	if err := json.Unmarshal(typeBreakdownJSON, &snapshot.TypeBreakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal type breakdown: %w", err)
	}

	return &snapshot, nil
}
