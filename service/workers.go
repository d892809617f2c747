package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// SnapshotWorker recomputes the KPI snapshot once at start-up and thereafter
// on a fixed interval. A failed tick is logged and swallowed; it never stops
// the schedule.
type SnapshotWorker struct {
	kpiService KPIService
	interval   time.Duration
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(kpiService KPIService, interval time.Duration) *SnapshotWorker {
	return &SnapshotWorker{
		kpiService: kpiService,
		interval:   interval,
	}
}

// Start runs the worker in the background and returns a cleanup function to
// stop it gracefully
func (w *SnapshotWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})

	computeOnce := func() {
		snapshot, err := w.kpiService.Compute(ctx)
		if err != nil {
			log.Errorf("Error computing KPI snapshot: %v", err)
			return
		}
		log.WithFields(log.Fields{
			"computedAt":   snapshot.ComputedAt,
			"transactions": snapshot.TotalTransactions,
			"failureRate":  snapshot.FailureRate,
		}).Info("KPI snapshot computed")
	}

	go func() {
		log.Info("KPI snapshot worker started")

		// Run immediately on startup
		computeOnce()

		for {
			select {
			case <-ctx.Done():
				log.Info("KPI snapshot worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("KPI snapshot worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				computeOnce()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

// GeneratorWorker seeds the accounts and then emits one synthetic transaction
// per tick, sleeping a uniform random delay between ticks. Storage errors are
// retried with exponential backoff before giving up on the tick.
type GeneratorWorker struct {
	generator GeneratorService
	minDelay  time.Duration
	maxDelay  time.Duration
}

// NewGeneratorWorker creates a new generator worker
func NewGeneratorWorker(generator GeneratorService, minDelay, maxDelay time.Duration) *GeneratorWorker {
	return &GeneratorWorker{
		generator: generator,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
	}
}

// Start runs the worker in the background and returns a cleanup function to
// stop it gracefully
func (w *GeneratorWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Ledger generator worker started")

		if err := w.retryStorage(ctx, func() error {
			return w.generator.EnsureAccounts(ctx)
		}); err != nil {
			log.Errorf("Error seeding accounts: %v", err)
		} else {
			log.Info("Accounts ensured, starting transaction stream")
		}

		for {
			select {
			case <-ctx.Done():
				log.Info("Ledger generator worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Ledger generator worker shutting down (stop requested)...")
				return
			case <-time.After(w.nextDelay()):
			}

			if err := w.retryStorage(ctx, func() error {
				return w.generator.GenerateOne(ctx)
			}); err != nil {
				log.Errorf("Error generating transaction: %v", err)
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// InsightsWorker serves the insights cache on a fixed cadence, standing in
// for dashboard traffic. The cache's refresh policy decides when a serve
// triggers a fresh KPI computation; a failed serve is logged and swallowed.
type InsightsWorker struct {
	cache    *InsightsCache
	interval time.Duration
}

// NewInsightsWorker creates a new insights worker
func NewInsightsWorker(cache *InsightsCache, interval time.Duration) *InsightsWorker {
	return &InsightsWorker{
		cache:    cache,
		interval: interval,
	}
}

// Start runs the worker in the background and returns a cleanup function to
// stop it gracefully
func (w *InsightsWorker) Start(ctx context.Context) func() {
	ticker := time.NewTicker(w.interval)
	stopChan := make(chan struct{})

	serveOnce := func() {
		insights, err := w.cache.Get(ctx)
		if err != nil {
			log.Errorf("Error serving insights: %v", err)
			return
		}
		log.WithFields(log.Fields{
			"insights":      len(insights),
			"lastRefreshed": w.cache.LastRefreshedAt(),
		}).Debug("Insights served")
	}

	go func() {
		log.Info("Insights worker started")

		serveOnce()

		for {
			select {
			case <-ctx.Done():
				log.Info("Insights worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Insights worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				serveOnce()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}

func (w *GeneratorWorker) nextDelay() time.Duration {
	if w.maxDelay <= w.minDelay {
		return w.minDelay
	}
	return w.minDelay + time.Duration(rand.Int63n(int64(w.maxDelay-w.minDelay)))
}

func (w *GeneratorWorker) retryStorage(ctx context.Context, op func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, bo)
}
