package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether a transaction debits or credits the account
type Direction string

const (
	DirectionDebit  Direction = "DR"
	DirectionCredit Direction = "CR"
)

// TransactionType represents the business category of a transaction
type TransactionType string

const (
	TransactionTypeTransfer    TransactionType = "TRANSFER"
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeLoanPayment TransactionType = "LOAN_PAYMENT"
	TransactionTypeBillPayment TransactionType = "BILL_PAYMENT"
)

// TransactionStatus is the business outcome of a transaction. A failed
// transaction is a normal outcome (insufficient funds or a simulated fault),
// not a storage error.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// Transaction represents a single immutable ledger entry. Amount is in the
// transaction's own currency; all balances are in the account's currency.
type Transaction struct {
	ID              int64             `db:"id"`
	TrnRef          string            `db:"trn_ref"`
	AccountNo       string            `db:"account_no"`
	CustomerID      string            `db:"customer_id"`
	TrnDate         time.Time         `db:"trn_date"`
	Description     string            `db:"description"`
	Direction       Direction         `db:"direction"`
	Amount          decimal.Decimal   `db:"amount"`
	Currency        string            `db:"currency"`
	AccountCurrency string            `db:"account_currency"`
	OpeningBalance  decimal.Decimal   `db:"opening_balance"`
	ClosingBalance  decimal.Decimal   `db:"closing_balance"`
	RunningBalance  decimal.Decimal   `db:"running_balance"`
	Type            TransactionType   `db:"trn_type"`
	BankCharges     decimal.Decimal   `db:"bank_charges"`
	Status          TransactionStatus `db:"status"`

	// Optional counterparty details
	CounterpartyAccount  *string `db:"counterparty_account"`
	CounterpartyCurrency *string `db:"counterparty_currency"`

	CreatedAt time.Time `db:"created_at"`
}

// TransactionTotals holds the plain counts over the whole ledger
type TransactionTotals struct {
	Total     int64
	Debits    int64
	Credits   int64
	Successes int64
	Failures  int64
}

// AmountByCurrency is one transaction's amount with its currency, used by the
// reporting-currency total scan
type AmountByCurrency struct {
	Amount   decimal.Decimal
	Currency string
}

// CustomerCurrencySum is the per-(customer, currency) aggregate row
type CustomerCurrencySum struct {
	CustomerID string
	Currency   string
	Count      int64
	Amount     decimal.Decimal
}

// TypeSum is the per-transaction-type aggregate row
type TypeSum struct {
	Type   TransactionType
	Count  int64
	Amount decimal.Decimal
	Failed int64
}
