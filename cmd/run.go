package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"farisight/config"
	"farisight/database"
	"farisight/events"
	"farisight/fx"
	"farisight/repository"
	"farisight/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting farisight core...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	log.Println("Initializing services...")
	generatorService := service.NewGeneratorService(uowFactory, fx.NewJitterQuoter())
	kpiService := service.NewKPIService(uowFactory, snapshotQuoterFactory(cfg))
	insightsCache := service.NewInsightsCache(kpiService, service.StaticInsightSource{}, service.RefreshPolicy{
		MaxAge:   cfg.InsightsMaxAge,
		MaxCalls: cfg.InsightsMaxCalls,
	})
	log.Println("Services initialized successfully")

	// Start background workers
	generatorWorker := service.NewGeneratorWorker(generatorService, cfg.GeneratorMinDelay, cfg.GeneratorMaxDelay)
	stopGenerator := generatorWorker.Start(ctx)

	snapshotWorker := service.NewSnapshotWorker(kpiService, cfg.SnapshotInterval)
	stopSnapshots := snapshotWorker.Start(ctx)

	insightsWorker := service.NewInsightsWorker(insightsCache, cfg.SnapshotInterval)
	stopInsights := insightsWorker.Start(ctx)

	// Wait for context cancellation
	log.Printf("Core is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")
	stopGenerator()
	stopSnapshots()
	stopInsights()

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

// snapshotQuoterFactory picks the FX quoting mode for snapshot computation.
// The default re-draws a jittered rate per conversion, matching the live
// generator; frozen mode holds one rate set per snapshot.
func snapshotQuoterFactory(cfg *config.Config) func() fx.Quoter {
	if cfg.FrozenSnapshotRates {
		return func() fx.Quoter { return fx.NewFrozenQuoter() }
	}
	quoter := fx.NewJitterQuoter()
	return func() fx.Quoter { return quoter }
}
