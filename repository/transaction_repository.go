package repository

import (
	"context"
	"fmt"
	"time"

	"farisight/database"
	"farisight/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements the TransactionRepository interface.
// Transactions are append-only; there is no update or delete path.
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepositoryWithTx creates a new transaction repository with a transaction
func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Create appends a new ledger entry
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			trn_ref, account_no, customer_id, trn_date, description,
			direction, amount, currency, account_currency,
			opening_balance, closing_balance, running_balance,
			trn_type, bank_charges, status,
			counterparty_account, counterparty_currency
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		txn.TrnRef,
		txn.AccountNo,
		txn.CustomerID,
		txn.TrnDate,
		txn.Description,
		txn.Direction,
		txn.Amount,
		txn.Currency,
		txn.AccountCurrency,
		txn.OpeningBalance,
		txn.ClosingBalance,
		txn.RunningBalance,
		txn.Type,
		txn.BankCharges,
		txn.Status,
		txn.CounterpartyAccount,
		txn.CounterpartyCurrency,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create transaction %s: %w", txn.TrnRef, err)
	}

	return nil
}

// GetByTrnRef retrieves a transaction by its unique reference
func (r *TransactionRepository) GetByTrnRef(ctx context.Context, trnRef string) (*models.Transaction, error) {
	query := `
		SELECT id, trn_ref, account_no, customer_id, trn_date, description,
		       direction, amount, currency, account_currency,
		       opening_balance, closing_balance, running_balance,
		       trn_type, bank_charges, status,
		       counterparty_account, counterparty_currency, created_at
		FROM transactions
		WHERE trn_ref = $1
	`

	var txn models.Transaction
	err := r.q.QueryRow(ctx, query, trnRef).Scan(
		&txn.ID,
		&txn.TrnRef,
		&txn.AccountNo,
		&txn.CustomerID,
		&txn.TrnDate,
		&txn.Description,
		&txn.Direction,
		&txn.Amount,
		&txn.Currency,
		&txn.AccountCurrency,
		&txn.OpeningBalance,
		&txn.ClosingBalance,
		&txn.RunningBalance,
		&txn.Type,
		&txn.BankCharges,
		&txn.Status,
		&txn.CounterpartyAccount,
		&txn.CounterpartyCurrency,
		&txn.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", trnRef, err)
	}

	return &txn, nil
}

// ListByDateRange returns all transactions within a time window, oldest first
func (r *TransactionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT id, trn_ref, account_no, customer_id, trn_date, description,
		       direction, amount, currency, account_currency,
		       opening_balance, closing_balance, running_balance,
		       trn_type, bank_charges, status,
		       counterparty_account, counterparty_currency, created_at
		FROM transactions
		WHERE trn_date >= $1 AND trn_date < $2
		ORDER BY trn_date
	`

	rows, err := r.q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions between %v and %v: %w", from, to, err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var txn models.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.TrnRef,
			&txn.AccountNo,
			&txn.CustomerID,
			&txn.TrnDate,
			&txn.Description,
			&txn.Direction,
			&txn.Amount,
			&txn.Currency,
			&txn.AccountCurrency,
			&txn.OpeningBalance,
			&txn.ClosingBalance,
			&txn.RunningBalance,
			&txn.Type,
			&txn.BankCharges,
			&txn.Status,
			&txn.CounterpartyAccount,
			&txn.CounterpartyCurrency,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// Totals returns the plain counts over the whole ledger in one scan
func (r *TransactionRepository) Totals(ctx context.Context) (*models.TransactionTotals, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE direction = 'DR'),
			COUNT(*) FILTER (WHERE direction = 'CR'),
			COUNT(*) FILTER (WHERE status = 'SUCCESS'),
			COUNT(*) FILTER (WHERE status = 'FAILED')
		FROM transactions
	`

	var totals models.TransactionTotals
	err := r.q.QueryRow(ctx, query).Scan(
		&totals.Total,
		&totals.Debits,
		&totals.Credits,
		&totals.Successes,
		&totals.Failures,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	return &totals, nil
}

// SumSuccessfulBankCharges sums bank charges over successful transactions only
func (r *TransactionRepository) SumSuccessfulBankCharges(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(bank_charges), 0)
		FROM transactions
		WHERE status = 'SUCCESS'
	`

	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum bank charges: %w", err)
	}

	return sum, nil
}

// ListAmounts returns every transaction's amount with its currency, for the
// reporting-currency total scan
func (r *TransactionRepository) ListAmounts(ctx context.Context) ([]models.AmountByCurrency, error) {
	query := `SELECT amount, currency FROM transactions`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction amounts: %w", err)
	}
	defer rows.Close()

	var amounts []models.AmountByCurrency
	for rows.Next() {
		var a models.AmountByCurrency
		if err := rows.Scan(&a.Amount, &a.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		amounts = append(amounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate amounts: %w", err)
	}

	return amounts, nil
}

// SumByCustomerAndCurrency returns counts and amount sums grouped by
// (customer, transaction currency)
func (r *TransactionRepository) SumByCustomerAndCurrency(ctx context.Context) ([]models.CustomerCurrencySum, error) {
	query := `
		SELECT customer_id, currency, COUNT(*), COALESCE(SUM(amount), 0)
		FROM transactions
		GROUP BY customer_id, currency
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by customer and currency: %w", err)
	}
	defer rows.Close()

	var sums []models.CustomerCurrencySum
	for rows.Next() {
		var s models.CustomerCurrencySum
		if err := rows.Scan(&s.CustomerID, &s.Currency, &s.Count, &s.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan customer sum: %w", err)
		}
		sums = append(sums, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer sums: %w", err)
	}

	return sums, nil
}

// SumByType returns counts, amount sums and failure counts grouped by
// transaction type
func (r *TransactionRepository) SumByType(ctx context.Context) ([]models.TypeSum, error) {
	query := `
		SELECT trn_type, COUNT(*), COALESCE(SUM(amount), 0),
		       COUNT(*) FILTER (WHERE status = 'FAILED')
		FROM transactions
		GROUP BY trn_type
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by type: %w", err)
	}
	defer rows.Close()

	var sums []models.TypeSum
	for rows.Next() {
		var s models.TypeSum
		if err := rows.Scan(&s.Type, &s.Count, &s.Amount, &s.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan type sum: %w", err)
		}
		sums = append(sums, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate type sums: %w", err)
	}

	return sums, nil
}
