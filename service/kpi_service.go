package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farisight/events"
	"farisight/fx"
	"farisight/models"

	"github.com/shopspring/decimal"
)

// ErrNoSnapshot is returned by Latest when no snapshot has been computed yet.
// This is a legitimate empty state, not a storage failure; callers should
// wait for the scheduler's first tick.
var ErrNoSnapshot = errors.New("no snapshot computed yet")

var hundred = decimal.NewFromInt(100)

// kpiService implements the KPIService interface. Every computation is a full
// rescan of the ledger; there is no incremental path.
type kpiService struct {
	uowFactory UnitOfWorkFactory
	newQuoter  func() fx.Quoter
}

// NewKPIService creates a new KPI aggregation service. newQuoter is invoked
// once per computation, so a frozen quoter holds one rate set per snapshot
// while a jitter quoter re-draws on every conversion.
func NewKPIService(uowFactory UnitOfWorkFactory, newQuoter func() fx.Quoter) KPIService {
	return &kpiService{
		uowFactory: uowFactory,
		newQuoter:  newQuoter,
	}
}

// Compute aggregates the full transaction set into one snapshot, replaces the
// persisted snapshot row and returns the detailed result
func (s *kpiService) Compute(ctx context.Context) (*models.Snapshot, error) {
	quoter := s.newQuoter()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txnRepo := uow.TransactionRepository()

	totals, err := txnRepo.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction totals: %w", err)
	}

	failureRate := decimal.Zero
	if totals.Total > 0 {
		failureRate = decimal.NewFromInt(totals.Failures).
			Div(decimal.NewFromInt(totals.Total)).
			Mul(hundred).
			Round(2)
	}

	bankCharges, err := txnRepo.SumSuccessfulBankCharges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum bank charges: %w", err)
	}

	totalUSD, totalRM, err := s.reportingTotals(ctx, txnRepo, quoter)
	if err != nil {
		return nil, err
	}

	perCustomer, err := s.customerRollup(ctx, txnRepo, quoter)
	if err != nil {
		return nil, err
	}

	typeBreakdown, err := s.typeBreakdown(ctx, txnRepo)
	if err != nil {
		return nil, err
	}

	snapshot := &models.Snapshot{
		ComputedAt:        time.Now().UTC(),
		TotalTransactions: totals.Total,
		TotalAmountUSD:    totalUSD,
		TotalAmountRM:     totalRM,
		DebitCount:        totals.Debits,
		CreditCount:       totals.Credits,
		SuccessCount:      totals.Successes,
		FailedCount:       totals.Failures,
		FailureRate:       failureRate,
		TotalBankCharges:  fx.Round2(bankCharges),
		PerCustomer:       perCustomer,
		TypeBreakdown:     typeBreakdown,
	}

	if err := uow.SnapshotRepository().Replace(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to replace snapshot: %w", err)
	}

	uow.EventBus().Publish(events.SnapshotComputedEvent{
		ComputedAt:        snapshot.ComputedAt,
		TotalTransactions: snapshot.TotalTransactions,
		FailureRate:       snapshot.FailureRate,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return snapshot, nil
}

// reportingTotals folds every transaction into both reporting currencies.
// Each transaction contributes its amount directly to its own currency's
// total and an FX-converted value to the other; with a jitter quoter the two
// totals are not required to reconcile through any single rate.
func (s *kpiService) reportingTotals(ctx context.Context, txnRepo TransactionRepository, quoter fx.Quoter) (decimal.Decimal, decimal.Decimal, error) {
	amounts, err := txnRepo.ListAmounts(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to list amounts: %w", err)
	}

	totalUSD := decimal.Zero
	totalRM := decimal.Zero

	for _, a := range amounts {
		switch a.Currency {
		case fx.USD:
			totalUSD = totalUSD.Add(a.Amount)
			totalRM = totalRM.Add(a.Amount.Mul(quoter.Rate(fx.USD, fx.RM)))
		case fx.RM:
			totalRM = totalRM.Add(a.Amount)
			totalUSD = totalUSD.Add(a.Amount.Mul(quoter.Rate(fx.RM, fx.USD)))
		}
	}

	return fx.Round2(totalUSD), fx.Round2(totalRM), nil
}

// customerRollup groups by (customer, transaction currency), converts
// non-USD sums into USD and merges across currencies per customer
func (s *kpiService) customerRollup(ctx context.Context, txnRepo TransactionRepository, quoter fx.Quoter) (map[string]models.CustomerKPI, error) {
	rows, err := txnRepo.SumByCustomerAndCurrency(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by customer: %w", err)
	}

	counts := make(map[string]int64)
	amounts := make(map[string]decimal.Decimal)

	for _, row := range rows {
		amountUSD := row.Amount
		if row.Currency != fx.USD {
			amountUSD = row.Amount.Mul(quoter.Rate(row.Currency, fx.USD))
		}

		counts[row.CustomerID] += row.Count
		amounts[row.CustomerID] = amounts[row.CustomerID].Add(amountUSD)
	}

	perCustomer := make(map[string]models.CustomerKPI, len(counts))
	for customerID, count := range counts {
		perCustomer[customerID] = models.CustomerKPI{
			Count:     count,
			AmountUSD: fx.Round2(amounts[customerID]),
		}
	}

	return perCustomer, nil
}

// typeBreakdown groups by transaction type. Amounts stay in each
// transaction's native currency.
func (s *kpiService) typeBreakdown(ctx context.Context, txnRepo TransactionRepository) (map[models.TransactionType]models.TypeKPI, error) {
	rows, err := txnRepo.SumByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by type: %w", err)
	}

	breakdown := make(map[models.TransactionType]models.TypeKPI, len(rows))
	for _, row := range rows {
		rate := decimal.Zero
		if row.Count > 0 {
			rate = decimal.NewFromInt(row.Failed).
				Div(decimal.NewFromInt(row.Count)).
				Mul(hundred).
				Round(2)
		}

		breakdown[row.Type] = models.TypeKPI{
			Count:       row.Count,
			Amount:      fx.Round2(row.Amount),
			FailedCount: row.Failed,
			FailureRate: rate,
		}
	}

	return breakdown, nil
}

// Latest reads the single persisted snapshot row
func (s *kpiService) Latest(ctx context.Context) (*models.Snapshot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	snapshot, err := uow.SnapshotRepository().Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	return snapshot, nil
}
