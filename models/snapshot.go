package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerKPI is one customer's rollup, merged across currencies into the
// primary reporting currency
type CustomerKPI struct {
	Count     int64           `json:"count"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
}

// TypeKPI is the per-transaction-type breakdown. Amount is summed in each
// transaction's native currency, not cross-converted.
type TypeKPI struct {
	Count       int64           `json:"count"`
	Amount      decimal.Decimal `json:"amount"`
	FailedCount int64           `json:"fail_count"`
	FailureRate decimal.Decimal `json:"failure_rate"`
}

// Snapshot is a point-in-time KPI aggregate over the full ledger. At most one
// snapshot row exists in storage at any time; each computation replaces the
// prior one.
type Snapshot struct {
	ID                int64                       `db:"id"`
	ComputedAt        time.Time                   `db:"computed_at"`
	TotalTransactions int64                       `db:"total_transactions"`
	TotalAmountUSD    decimal.Decimal             `db:"total_amount_usd"`
	TotalAmountRM     decimal.Decimal             `db:"total_amount_rm"`
	DebitCount        int64                       `db:"dr_count"`
	CreditCount       int64                       `db:"cr_count"`
	SuccessCount      int64                       `db:"success_count"`
	FailedCount       int64                       `db:"failed_count"`
	FailureRate       decimal.Decimal             `db:"failure_rate"`
	TotalBankCharges  decimal.Decimal             `db:"total_bank_charges"`
	PerCustomer       map[string]CustomerKPI      `db:"per_customer"`
	TypeBreakdown     map[TransactionType]TypeKPI `db:"type_breakdown"`
}
