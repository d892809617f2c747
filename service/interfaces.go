package service

import (
	"context"
	"time"

	"farisight/events"
	"farisight/models"

	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// Create creates a new account with its seed balance
	Create(ctx context.Context, account *models.Account) error

	// GetByAccountNo retrieves an account by its account number
	GetByAccountNo(ctx context.Context, accountNo string) (*models.Account, error)

	// PickRandomForUpdate selects one account uniformly at random and locks
	// its row until the enclosing transaction ends
	PickRandomForUpdate(ctx context.Context) (*models.Account, error)

	// UpdateBalance sets an account's balance
	UpdateBalance(ctx context.Context, accountNo string, balance decimal.Decimal) error

	// GetAll returns all accounts
	GetAll(ctx context.Context) ([]*models.Account, error)
}

// TransactionRepository defines the interface for ledger entry data access
type TransactionRepository interface {
	// Create appends a new ledger entry
	Create(ctx context.Context, txn *models.Transaction) error

	// GetByTrnRef retrieves a transaction by its unique reference
	GetByTrnRef(ctx context.Context, trnRef string) (*models.Transaction, error)

	// ListByDateRange returns all transactions within a time window
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error)

	// Totals returns the plain counts over the whole ledger
	Totals(ctx context.Context) (*models.TransactionTotals, error)

	// SumSuccessfulBankCharges sums bank charges over successful transactions only
	SumSuccessfulBankCharges(ctx context.Context) (decimal.Decimal, error)

	// ListAmounts returns every transaction's amount with its currency
	ListAmounts(ctx context.Context) ([]models.AmountByCurrency, error)

	// SumByCustomerAndCurrency returns aggregates grouped by (customer, currency)
	SumByCustomerAndCurrency(ctx context.Context) ([]models.CustomerCurrencySum, error)

	// SumByType returns aggregates grouped by transaction type
	SumByType(ctx context.Context) ([]models.TypeSum, error)
}

// SnapshotRepository defines the interface for the single KPI snapshot row
type SnapshotRepository interface {
	// Replace deletes the existing snapshot (if any) and inserts the new one
	Replace(ctx context.Context, snapshot *models.Snapshot) error

	// Latest returns the current snapshot, or nil when none exists
	Latest(ctx context.Context) (*models.Snapshot, error)
}

// GeneratorService defines the interface for the synthetic ledger generator
type GeneratorService interface {
	// EnsureAccounts creates one account per (customer, currency) pair if absent
	EnsureAccounts(ctx context.Context) error

	// GenerateOne advances the simulated ledger by one transaction
	GenerateOne(ctx context.Context) error
}

// KPIService defines the interface for KPI snapshot operations
type KPIService interface {
	// Compute recomputes a snapshot from the full ledger, persists it and
	// returns the detailed result
	Compute(ctx context.Context) (*models.Snapshot, error)

	// Latest reads the single persisted snapshot; ErrNoSnapshot when none
	// has been computed yet
	Latest(ctx context.Context) (*models.Snapshot, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	TransactionRepository() TransactionRepository
	SnapshotRepository() SnapshotRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
