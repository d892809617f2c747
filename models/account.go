package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a customer ledger account. Balance is always expressed
// in the account's own currency.
type Account struct {
	ID         int64           `db:"id"`
	AccountNo  string          `db:"account_no"`
	CustomerID string          `db:"customer_id"`
	Currency   string          `db:"currency"`
	Balance    decimal.Decimal `db:"balance"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}
