package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"farisight/models"

	"github.com/shopspring/decimal"
)

var refCounter atomic.Int64

// CreateTestAccount builds an account with a balance for insertion
func CreateTestAccount(accountNo, customerID, currency, balance string) *models.Account {
	return &models.Account{
		AccountNo:  accountNo,
		CustomerID: customerID,
		Currency:   currency,
		Balance:    decimal.RequireFromString(balance),
	}
}

// CreateTestTransaction builds a successful ledger entry against an account.
// Each call gets a unique transaction reference.
func CreateTestTransaction(account *models.Account, direction models.Direction, amount string) *models.Transaction {
	ref := refCounter.Add(1)
	amt := decimal.RequireFromString(amount)

	closing := account.Balance.Add(amt)
	if direction == models.DirectionDebit {
		closing = account.Balance.Sub(amt)
	}

	counterparty := "CPT-TEST-001"
	counterpartyCcy := account.Currency

	return &models.Transaction{
		TrnRef:               fmt.Sprintf("TRN-TEST%016d", ref),
		AccountNo:            account.AccountNo,
		CustomerID:           account.CustomerID,
		TrnDate:              time.Now().UTC(),
		Description:          "Treasury Settlement",
		Direction:            direction,
		Amount:               amt,
		Currency:             account.Currency,
		AccountCurrency:      account.Currency,
		OpeningBalance:       account.Balance,
		ClosingBalance:       closing,
		RunningBalance:       closing,
		Type:                 models.TransactionTypeTransfer,
		BankCharges:          decimal.RequireFromString("2.00"),
		Status:               models.StatusSuccess,
		CounterpartyAccount:  &counterparty,
		CounterpartyCurrency: &counterpartyCcy,
	}
}

// CreateFailedTestTransaction builds a failed entry: the balance does not move
// and no charges apply
func CreateFailedTestTransaction(account *models.Account, direction models.Direction, amount string) *models.Transaction {
	txn := CreateTestTransaction(account, direction, amount)
	txn.Status = models.StatusFailed
	txn.ClosingBalance = account.Balance
	txn.RunningBalance = account.Balance
	txn.BankCharges = decimal.Zero
	return txn
}
