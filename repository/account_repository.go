package repository

import (
	"context"
	"fmt"

	"farisight/database"
	"farisight/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Create creates a new account with the given seed balance
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (account_no, customer_id, currency, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		account.AccountNo,
		account.CustomerID,
		account.Currency,
		account.Balance,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.AccountNo, err)
	}

	return nil
}

// GetByAccountNo retrieves an account by its account number
func (r *AccountRepository) GetByAccountNo(ctx context.Context, accountNo string) (*models.Account, error) {
	query := `
		SELECT id, account_no, customer_id, currency, balance, created_at, updated_at
		FROM accounts
		WHERE account_no = $1
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, accountNo).Scan(
		&account.ID,
		&account.AccountNo,
		&account.CustomerID,
		&account.Currency,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountNo, err)
	}

	return &account, nil
}

// PickRandomForUpdate selects one account uniformly at random and locks its
// row for the remainder of the transaction, serializing concurrent balance
// updates against the same account. Returns nil when no accounts exist.
func (r *AccountRepository) PickRandomForUpdate(ctx context.Context) (*models.Account, error) {
	query := `
		SELECT id, account_no, customer_id, currency, balance, created_at, updated_at
		FROM accounts
		ORDER BY random()
		LIMIT 1
		FOR UPDATE
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query).Scan(
		&account.ID,
		&account.AccountNo,
		&account.CustomerID,
		&account.Currency,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick random account: %w", err)
	}

	return &account, nil
}

// UpdateBalance sets an account's balance
func (r *AccountRepository) UpdateBalance(ctx context.Context, accountNo string, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE account_no = $2
	`

	result, err := r.q.Exec(ctx, query, balance, accountNo)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %s: %w", accountNo, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s not found", accountNo)
	}

	return nil
}

// GetAll returns all accounts
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT id, account_no, customer_id, currency, balance, created_at, updated_at
		FROM accounts
		ORDER BY customer_id, currency
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var account models.Account
		err := rows.Scan(
			&account.ID,
			&account.AccountNo,
			&account.CustomerID,
			&account.Currency,
			&account.Balance,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}
