package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"farisight/config"
	"farisight/events"
	"farisight/fx"
	"farisight/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var transactionDescriptions = []string{
	"Treasury Settlement",
	"Trade Finance Payment",
	"Corporate Loan Disbursal",
	"Cross-border Payment",
	"Payroll Batch",
	"Vendor AP Payment",
	"Card Settlement",
	"Fee/Charges",
}

var counterparties = []string{
	"CPT-ACME-001",
	"CPT-GLOBEX-017",
	"CPT-INITECH-233",
	"CPT-UMBRELLA-559",
	"CPT-WAYNE-882",
	"CPT-STARK-312",
}

const (
	// Credit/debit split: credits weighted 55, debits 45
	creditWeight = 55

	// Chance that a transaction is drawn in the other reporting currency
	// and needs conversion into the account's currency
	crossCurrencyChance = 0.20

	// Chance of a simulated fault (timeout etc.) even with sufficient funds
	randomFailureChance = 0.02
)

var (
	transferChargeRate  = decimal.NewFromFloat(0.002)
	transferChargeFloor = decimal.NewFromInt(2)
	transferChargeCeil  = decimal.NewFromInt(200)
	loanPaymentCharge   = decimal.RequireFromString("10.00")
	billPaymentCharge   = decimal.RequireFromString("5.00")
)

// draw holds everything random about one generated transaction, separated
// from the ledger arithmetic so the arithmetic stays deterministic
type draw struct {
	currency        string
	amount          decimal.Decimal
	direction       models.Direction
	trnType         models.TransactionType
	description     string
	counterparty    string
	counterpartyCcy string
	fault           bool
}

// generatorService implements the GeneratorService interface
type generatorService struct {
	uowFactory UnitOfWorkFactory
	quoter     fx.Quoter
}

// NewGeneratorService creates a new ledger generator service
func NewGeneratorService(uowFactory UnitOfWorkFactory, quoter fx.Quoter) GeneratorService {
	return &generatorService{
		uowFactory: uowFactory,
		quoter:     quoter,
	}
}

// EnsureAccounts creates one account per (customer, currency) pair if absent.
// Safe to call repeatedly; existing accounts are left untouched.
func (s *generatorService) EnsureAccounts(ctx context.Context) error {
	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	for _, customerID := range cfg.TargetCustomers {
		for _, currency := range []string{fx.USD, fx.RM} {
			accountNo := deriveAccountNo(customerID, currency)

			existing, err := uow.AccountRepository().GetByAccountNo(ctx, accountNo)
			if err != nil {
				return fmt.Errorf("failed to check account %s: %w", accountNo, err)
			}
			if existing != nil {
				continue
			}

			account := &models.Account{
				AccountNo:  accountNo,
				CustomerID: customerID,
				Currency:   currency,
				Balance:    seedBalance(currency),
			}
			if err := uow.AccountRepository().Create(ctx, account); err != nil {
				return fmt.Errorf("failed to seed account %s: %w", accountNo, err)
			}

			uow.EventBus().Publish(events.AccountSeededEvent{
				AccountNo:  account.AccountNo,
				CustomerID: account.CustomerID,
				Currency:   account.Currency,
				Balance:    account.Balance,
			})
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GenerateOne emits one plausible transaction against a randomly chosen
// account. The transaction insert and the balance update commit as one unit;
// the selected account row stays locked until commit, so concurrent
// generations against the same account serialize.
func (s *generatorService) GenerateOne(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().PickRandomForUpdate(ctx)
	if err != nil {
		return fmt.Errorf("failed to pick account: %w", err)
	}
	if account == nil {
		// No accounts seeded yet
		return nil
	}

	txn := s.composeTransaction(account, randomDraw(account))

	if err := uow.TransactionRepository().Create(ctx, txn); err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	// The balance moves only on success, in the same database transaction
	// as the ledger entry
	if txn.Status == models.StatusSuccess {
		if err := uow.AccountRepository().UpdateBalance(ctx, account.AccountNo, txn.ClosingBalance); err != nil {
			return fmt.Errorf("failed to update account balance: %w", err)
		}
	}

	uow.EventBus().Publish(events.TransactionRecordedEvent{
		TrnRef:     txn.TrnRef,
		AccountNo:  txn.AccountNo,
		CustomerID: txn.CustomerID,
		Direction:  txn.Direction,
		Amount:     txn.Amount,
		Currency:   txn.Currency,
		Status:     txn.Status,
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"trnRef":    txn.TrnRef,
		"accountNo": txn.AccountNo,
		"direction": txn.Direction,
		"amount":    txn.Amount,
		"currency":  txn.Currency,
		"status":    txn.Status,
	}).Debug("Generated transaction")

	return nil
}

// randomDraw rolls all random choices for one transaction against an account
func randomDraw(account *models.Account) draw {
	currency := account.Currency
	if rand.Float64() < crossCurrencyChance {
		currency = otherCurrency(currency)
	}

	direction := models.DirectionCredit
	if rand.Intn(100) >= creditWeight {
		direction = models.DirectionDebit
	}

	return draw{
		currency:        currency,
		amount:          drawAmount(currency),
		direction:       direction,
		trnType:         drawTransactionType(),
		description:     transactionDescriptions[rand.Intn(len(transactionDescriptions))],
		counterparty:    counterparties[rand.Intn(len(counterparties))],
		counterpartyCcy: []string{fx.USD, fx.RM}[rand.Intn(2)],
		fault:           rand.Float64() < randomFailureChance,
	}
}

// composeTransaction applies the ledger rules to a draw: currency conversion,
// the absolute insufficient-funds rule, balance movement and bank charges.
// A failed outcome leaves the balance untouched.
func (s *generatorService) composeTransaction(account *models.Account, d draw) *models.Transaction {
	// Convert into the account's currency if the draw was cross-currency
	converted := d.amount
	if d.currency != account.Currency {
		rate := s.quoter.Rate(d.currency, account.Currency)
		converted = fx.Round2(d.amount.Mul(rate))
	}

	opening := account.Balance

	// Insufficient funds is an absolute rule for debits; the simulated
	// fault applies on top even with sufficient funds. Both are business
	// outcomes, not errors.
	status := models.StatusSuccess
	if d.direction == models.DirectionDebit && converted.GreaterThan(opening) {
		status = models.StatusFailed
	} else if d.fault {
		status = models.StatusFailed
	}

	closing := opening
	if status == models.StatusSuccess {
		if d.direction == models.DirectionCredit {
			closing = opening.Add(converted)
		} else {
			closing = opening.Sub(converted)
		}
	}
	closing = fx.Round2(closing)

	counterparty := d.counterparty
	counterpartyCcy := d.counterpartyCcy

	return &models.Transaction{
		TrnRef:               newTrnRef(),
		AccountNo:            account.AccountNo,
		CustomerID:           account.CustomerID,
		TrnDate:              time.Now().UTC(),
		Description:          d.description,
		Direction:            d.direction,
		Amount:               fx.Round2(d.amount),
		Currency:             d.currency,
		AccountCurrency:      account.Currency,
		OpeningBalance:       fx.Round2(opening),
		ClosingBalance:       closing,
		RunningBalance:       closing,
		Type:                 d.trnType,
		BankCharges:          bankCharges(d.trnType, converted, status),
		Status:               status,
		CounterpartyAccount:  &counterparty,
		CounterpartyCurrency: &counterpartyCcy,
	}
}

// deriveAccountNo derives a stable 12-character account number from the
// customer id and currency, so seeding stays idempotent across restarts
func deriveAccountNo(customerID, currency string) string {
	suffix := "1"
	if currency == fx.RM {
		suffix = "2"
	}

	h := fnv.New64a()
	h.Write([]byte(customerID))
	n := h.Sum64() % 10_000_000_000

	return fmt.Sprintf("7%010d%s", n, suffix)
}

func seedBalance(currency string) decimal.Decimal {
	if currency == fx.USD {
		return decimal.NewFromInt(int64(rand.Intn(35000-80+1) + 80))
	}
	return decimal.NewFromInt(int64(rand.Intn(15000-30+1) + 30))
}

func drawAmount(currency string) decimal.Decimal {
	if currency == fx.USD {
		return decimal.NewFromInt(int64(rand.Intn(10000-10+1) + 10))
	}
	return decimal.NewFromInt(int64(rand.Intn(40000-40+1) + 40))
}

func otherCurrency(currency string) string {
	if currency == fx.USD {
		return fx.RM
	}
	return fx.USD
}

// drawTransactionType draws from the fixed weighted distribution:
// transfer 40, deposit 20, loan payment 10, bill payment 30
func drawTransactionType() models.TransactionType {
	n := rand.Intn(100)
	switch {
	case n < 40:
		return models.TransactionTypeTransfer
	case n < 60:
		return models.TransactionTypeDeposit
	case n < 70:
		return models.TransactionTypeLoanPayment
	default:
		return models.TransactionTypeBillPayment
	}
}

// bankCharges computes the charge for a transaction in the account's
// currency. Failed transactions never incur charges.
func bankCharges(trnType models.TransactionType, converted decimal.Decimal, status models.TransactionStatus) decimal.Decimal {
	if status != models.StatusSuccess {
		return decimal.Zero
	}

	switch trnType {
	case models.TransactionTypeTransfer:
		charge := converted.Mul(transferChargeRate)
		if charge.LessThan(transferChargeFloor) {
			charge = transferChargeFloor
		}
		if charge.GreaterThan(transferChargeCeil) {
			charge = transferChargeCeil
		}
		return fx.Round2(charge)
	case models.TransactionTypeLoanPayment:
		return loanPaymentCharge
	case models.TransactionTypeBillPayment:
		return billPaymentCharge
	default:
		return decimal.Zero
	}
}

func newTrnRef() string {
	id := uuid.New()
	return "TRN-" + strings.ToUpper(hex.EncodeToString(id[:])[:20])
}
