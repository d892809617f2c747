package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"farisight/models"

	log "github.com/sirupsen/logrus"
)

// RefreshPolicy bounds how stale cached insights may get: a refresh happens
// once the cached value is older than MaxAge or has been served MaxCalls
// times, whichever comes first.
type RefreshPolicy struct {
	MaxAge   time.Duration
	MaxCalls int
}

// InsightSource produces insights from a KPI snapshot. The real
// implementation delegates to an external text-generation service; only the
// input/output contract lives here.
type InsightSource interface {
	Generate(ctx context.Context, snapshot *models.Snapshot) ([]models.Insight, error)
}

// StaticInsightSource returns fixed insights. It stands in when no generation
// service is configured and doubles as the fallback content.
type StaticInsightSource struct{}

func (StaticInsightSource) Generate(ctx context.Context, snapshot *models.Snapshot) ([]models.Insight, error) {
	return []models.Insight{
		{Icon: "chart-line", Color: "#1565c0", Text: "Total transactions are steady."},
		{Icon: "triangle-exclamation", Color: "#e67e22", Text: "Failure rate requires monitoring."},
		{Icon: "arrow-up", Color: "#27ae60", Text: "Customer engagement is increasing."},
	}, nil
}

// InsightsCache serves generated insights, refreshing them through a fresh
// KPI computation according to its policy. It is an explicit collaborator
// rather than package-level state so it can be tested in isolation.
type InsightsCache struct {
	kpiService KPIService
	source     InsightSource
	policy     RefreshPolicy
	now        func() time.Time

	mu            sync.Mutex
	value         []models.Insight
	lastRefreshed time.Time
	callsSince    int
}

// NewInsightsCache creates a new insights cache
func NewInsightsCache(kpiService KPIService, source InsightSource, policy RefreshPolicy) *InsightsCache {
	return &InsightsCache{
		kpiService: kpiService,
		source:     source,
		policy:     policy,
		now:        time.Now,
	}
}

// Get returns the cached insights, refreshing them first when the policy says
// the cache is stale. A refresh failure leaves a previously cached value in
// place; only a cache that has never been filled surfaces the error.
func (c *InsightsCache) Get(ctx context.Context) ([]models.Insight, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stale() {
		c.callsSince++
		return c.value, nil
	}

	if err := c.refresh(ctx); err != nil {
		if c.lastRefreshed.IsZero() {
			return nil, err
		}
		log.Warnf("Serving stale insights after refresh failure: %v", err)
	}

	return c.value, nil
}

// LastRefreshedAt returns when the cached value was last refreshed
func (c *InsightsCache) LastRefreshedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRefreshed
}

func (c *InsightsCache) stale() bool {
	if c.lastRefreshed.IsZero() {
		return true
	}
	if c.now().Sub(c.lastRefreshed) >= c.policy.MaxAge {
		return true
	}
	return c.callsSince+1 >= c.policy.MaxCalls
}

func (c *InsightsCache) refresh(ctx context.Context) error {
	snapshot, err := c.kpiService.Compute(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute snapshot for insights: %w", err)
	}

	insights, err := c.source.Generate(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to generate insights: %w", err)
	}

	c.value = insights
	c.lastRefreshed = c.now()
	c.callsSince = 0
	return nil
}
