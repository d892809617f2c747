package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"farisight/fx"
	"farisight/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// The config singleton refuses to load without a database URL outside of
	// test mode
	os.Setenv("ENVIRONMENT", "test")
	os.Exit(m.Run())
}

// fixedQuoter quotes constant rates so conversion arithmetic is exact
type fixedQuoter struct {
	usdToRM decimal.Decimal
	rmToUSD decimal.Decimal
}

func (q fixedQuoter) Rate(base, quote string) decimal.Decimal {
	switch {
	case base == fx.USD && quote == fx.RM:
		return q.usdToRM
	case base == fx.RM && quote == fx.USD:
		return q.rmToUSD
	}
	return decimal.NewFromInt(1)
}

func testAccount(balance string) *models.Account {
	return &models.Account{
		ID:         1,
		AccountNo:  "700000000011",
		CustomerID: "223345",
		Currency:   fx.USD,
		Balance:    decimal.RequireFromString(balance),
	}
}

func baseDraw(amount string, direction models.Direction) draw {
	return draw{
		currency:        fx.USD,
		amount:          decimal.RequireFromString(amount),
		direction:       direction,
		trnType:         models.TransactionTypeDeposit,
		description:     "Treasury Settlement",
		counterparty:    "CPT-ACME-001",
		counterpartyCcy: fx.USD,
	}
}

func TestComposeTransaction_InsufficientFundsFailsDebit(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{}}
	account := testAccount("40.00")

	txn := svc.composeTransaction(account, baseDraw("50.00", models.DirectionDebit))

	assert.Equal(t, models.StatusFailed, txn.Status)
	assert.True(t, txn.OpeningBalance.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, txn.ClosingBalance.Equal(decimal.RequireFromString("40.00")), "failed debit must leave the balance untouched")
	assert.True(t, txn.BankCharges.IsZero(), "failed transactions never incur charges")
}

func TestComposeTransaction_DebitSuccess(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{}}
	account := testAccount("100.00")

	txn := svc.composeTransaction(account, baseDraw("30.00", models.DirectionDebit))

	assert.Equal(t, models.StatusSuccess, txn.Status)
	assert.True(t, txn.ClosingBalance.Equal(decimal.RequireFromString("70.00")))
	assert.True(t, txn.RunningBalance.Equal(txn.ClosingBalance))
}

func TestComposeTransaction_CreditSuccess(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{}}
	account := testAccount("100.00")

	txn := svc.composeTransaction(account, baseDraw("30.00", models.DirectionCredit))

	assert.Equal(t, models.StatusSuccess, txn.Status)
	assert.True(t, txn.ClosingBalance.Equal(decimal.RequireFromString("130.00")))
}

func TestComposeTransaction_DebitEqualToBalanceSucceeds(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{}}
	account := testAccount("50.00")

	txn := svc.composeTransaction(account, baseDraw("50.00", models.DirectionDebit))

	assert.Equal(t, models.StatusSuccess, txn.Status)
	assert.True(t, txn.ClosingBalance.IsZero())
}

func TestComposeTransaction_SimulatedFault(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{}}
	account := testAccount("1000.00")

	d := baseDraw("30.00", models.DirectionCredit)
	d.fault = true
	txn := svc.composeTransaction(account, d)

	assert.Equal(t, models.StatusFailed, txn.Status)
	assert.True(t, txn.ClosingBalance.Equal(account.Balance))
	assert.True(t, txn.BankCharges.IsZero())
}

func TestComposeTransaction_CrossCurrencyConversion(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{rmToUSD: decimal.RequireFromString("0.25")}}
	account := testAccount("100.00")

	d := baseDraw("100.00", models.DirectionDebit)
	d.currency = fx.RM
	txn := svc.composeTransaction(account, d)

	// 100 RM at 0.25 debits 25 USD from the account
	assert.Equal(t, models.StatusSuccess, txn.Status)
	assert.Equal(t, fx.RM, txn.Currency)
	assert.Equal(t, fx.USD, txn.AccountCurrency)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("100.00")), "amount stays in the transaction's own currency")
	assert.True(t, txn.ClosingBalance.Equal(decimal.RequireFromString("75.00")))
}

func TestComposeTransaction_CrossCurrencyInsufficientAfterConversion(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{rmToUSD: decimal.RequireFromString("0.25")}}
	account := testAccount("20.00")

	d := baseDraw("100.00", models.DirectionDebit)
	d.currency = fx.RM
	txn := svc.composeTransaction(account, d)

	// 25 USD converted exceeds the 20 USD balance
	assert.Equal(t, models.StatusFailed, txn.Status)
	assert.True(t, txn.ClosingBalance.Equal(decimal.RequireFromString("20.00")))
}

func TestComposeTransaction_TrnRefFormat(t *testing.T) {
	svc := &generatorService{quoter: fixedQuoter{}}
	account := testAccount("100.00")

	txn := svc.composeTransaction(account, baseDraw("10.00", models.DirectionCredit))

	assert.True(t, strings.HasPrefix(txn.TrnRef, "TRN-"))
	assert.Len(t, txn.TrnRef, len("TRN-")+20)
	assert.Equal(t, strings.ToUpper(txn.TrnRef), txn.TrnRef)
}

func TestBankCharges(t *testing.T) {
	tests := []struct {
		name     string
		trnType  models.TransactionType
		amount   string
		status   models.TransactionStatus
		expected string
	}{
		{"transfer percentage", models.TransactionTypeTransfer, "10000.00", models.StatusSuccess, "20.00"},
		{"transfer floor", models.TransactionTypeTransfer, "500.00", models.StatusSuccess, "2.00"},
		{"transfer ceiling", models.TransactionTypeTransfer, "200000.00", models.StatusSuccess, "200.00"},
		{"loan payment flat", models.TransactionTypeLoanPayment, "5000.00", models.StatusSuccess, "10.00"},
		{"bill payment flat", models.TransactionTypeBillPayment, "5000.00", models.StatusSuccess, "5.00"},
		{"deposit free", models.TransactionTypeDeposit, "5000.00", models.StatusSuccess, "0"},
		{"failed transfer free", models.TransactionTypeTransfer, "10000.00", models.StatusFailed, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge := bankCharges(tt.trnType, decimal.RequireFromString(tt.amount), tt.status)
			assert.True(t, charge.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, charge)
		})
	}
}

func TestDeriveAccountNo(t *testing.T) {
	usd := deriveAccountNo("223345", fx.USD)
	rm := deriveAccountNo("223345", fx.RM)

	assert.Len(t, usd, 12)
	assert.Len(t, rm, 12)
	assert.True(t, strings.HasPrefix(usd, "7"))
	assert.True(t, strings.HasSuffix(usd, "1"))
	assert.True(t, strings.HasSuffix(rm, "2"))
	assert.Equal(t, usd[:11], rm[:11], "same customer shares the numeric part")

	// Stable across calls, distinct across customers
	assert.Equal(t, usd, deriveAccountNo("223345", fx.USD))
	assert.NotEqual(t, usd, deriveAccountNo("445566", fx.USD))
}

func TestGenerateOne_NoAccountsIsNoOp(t *testing.T) {
	mockAccounts := new(MockAccountRepository)
	mockTxns := new(MockTransactionRepository)
	mockUow := new(MockUnitOfWork)
	mockUow.SetRepositories(mockAccounts, mockTxns, new(MockSnapshotRepository))
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUow)

	mockUow.On("Begin", mock.Anything).Return(nil)
	mockUow.On("Rollback").Return(nil)
	mockAccounts.On("PickRandomForUpdate", mock.Anything).Return(nil, nil)

	svc := NewGeneratorService(mockFactory, fixedQuoter{})
	err := svc.GenerateOne(context.Background())

	require.NoError(t, err)
	mockTxns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockUow.AssertNotCalled(t, "Commit")
}

func TestGenerateOne_CommitsEntryAndBalanceTogether(t *testing.T) {
	account := testAccount("100000.00")

	mockAccounts := new(MockAccountRepository)
	mockTxns := new(MockTransactionRepository)
	mockUow := new(MockUnitOfWork)
	mockUow.SetRepositories(mockAccounts, mockTxns, new(MockSnapshotRepository))
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUow)

	mockUow.On("Begin", mock.Anything).Return(nil)
	mockUow.On("Commit").Return(nil)
	mockUow.On("Rollback").Return(nil)
	mockAccounts.On("PickRandomForUpdate", mock.Anything).Return(account, nil)

	var created *models.Transaction
	mockTxns.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*models.Transaction)
	}).Return(nil)
	mockAccounts.On("UpdateBalance", mock.Anything, account.AccountNo, mock.Anything).Return(nil).Maybe()

	svc := NewGeneratorService(mockFactory, fixedQuoter{
		usdToRM: decimal.RequireFromString("4.23"),
		rmToUSD: decimal.RequireFromString("0.2364"),
	})
	err := svc.GenerateOne(context.Background())

	require.NoError(t, err)
	require.NotNil(t, created)
	mockUow.AssertCalled(t, "Commit")

	if created.Status == models.StatusSuccess {
		mockAccounts.AssertCalled(t, "UpdateBalance", mock.Anything, account.AccountNo, created.ClosingBalance)
	} else {
		mockAccounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestGenerateOne_CreateErrorRollsBack(t *testing.T) {
	account := testAccount("100.00")

	mockAccounts := new(MockAccountRepository)
	mockTxns := new(MockTransactionRepository)
	mockUow := new(MockUnitOfWork)
	mockUow.SetRepositories(mockAccounts, mockTxns, new(MockSnapshotRepository))
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUow)

	mockUow.On("Begin", mock.Anything).Return(nil)
	mockUow.On("Rollback").Return(nil)
	mockAccounts.On("PickRandomForUpdate", mock.Anything).Return(account, nil)
	mockTxns.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	svc := NewGeneratorService(mockFactory, fixedQuoter{})
	err := svc.GenerateOne(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create transaction")
	mockUow.AssertNotCalled(t, "Commit")
	mockUow.AssertCalled(t, "Rollback")
	mockAccounts.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureAccounts_SeedsMissingPairs(t *testing.T) {
	mockAccounts := new(MockAccountRepository)
	mockUow := new(MockUnitOfWork)
	mockUow.SetRepositories(mockAccounts, new(MockTransactionRepository), new(MockSnapshotRepository))
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUow)

	mockUow.On("Begin", mock.Anything).Return(nil)
	mockUow.On("Commit").Return(nil)
	mockUow.On("Rollback").Return(nil)
	mockAccounts.On("GetByAccountNo", mock.Anything, mock.Anything).Return(nil, nil)

	var seeded []*models.Account
	mockAccounts.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		seeded = append(seeded, args.Get(1).(*models.Account))
	}).Return(nil)

	svc := NewGeneratorService(mockFactory, fixedQuoter{})
	err := svc.EnsureAccounts(context.Background())

	require.NoError(t, err)
	// One account per (customer, currency) pair
	require.Len(t, seeded, 12)
	byCurrency := map[string]int{}
	for _, a := range seeded {
		byCurrency[a.Currency]++
		assert.True(t, a.Balance.IsPositive())
	}
	assert.Equal(t, 6, byCurrency[fx.USD])
	assert.Equal(t, 6, byCurrency[fx.RM])
	mockUow.AssertCalled(t, "Commit")
}

func TestEnsureAccounts_IdempotentWhenAccountsExist(t *testing.T) {
	mockAccounts := new(MockAccountRepository)
	mockUow := new(MockUnitOfWork)
	mockUow.SetRepositories(mockAccounts, new(MockTransactionRepository), new(MockSnapshotRepository))
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUow)

	mockUow.On("Begin", mock.Anything).Return(nil)
	mockUow.On("Commit").Return(nil)
	mockUow.On("Rollback").Return(nil)
	mockAccounts.On("GetByAccountNo", mock.Anything, mock.Anything).Return(testAccount("100.00"), nil)

	svc := NewGeneratorService(mockFactory, fixedQuoter{})
	err := svc.EnsureAccounts(context.Background())

	require.NoError(t, err)
	mockAccounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSeedBalanceRanges(t *testing.T) {
	for i := 0; i < 200; i++ {
		usd := seedBalance(fx.USD)
		assert.True(t, usd.GreaterThanOrEqual(decimal.NewFromInt(80)))
		assert.True(t, usd.LessThanOrEqual(decimal.NewFromInt(35000)))

		rm := seedBalance(fx.RM)
		assert.True(t, rm.GreaterThanOrEqual(decimal.NewFromInt(30)))
		assert.True(t, rm.LessThanOrEqual(decimal.NewFromInt(15000)))
	}
}

func TestDrawTransactionTypeCoversAllTypes(t *testing.T) {
	seen := map[models.TransactionType]bool{}
	for i := 0; i < 1000; i++ {
		seen[drawTransactionType()] = true
	}
	assert.Len(t, seen, 4)
}
