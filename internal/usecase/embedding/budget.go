package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/evidex/internal/domain"
	"github.com/kailas-cloud/evidex/internal/metrics"
)

// BudgetAction defines behavior when the token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the request through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the request with domain.ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// persistTimeout bounds the write-behind to the counter store.
const persistTimeout = 2 * time.Second

// BudgetStore persists usage counters.
type BudgetStore interface {
	Add(ctx context.Context, now time.Time, tokens int64) error
	Load(ctx context.Context, now time.Time) (daily, monthly int64, err error)
}

// BudgetLimits caps tokens per UTC day and month. Zero means unlimited.
type BudgetLimits struct {
	Daily   int64
	Monthly int64
	Action  BudgetAction
}

// BudgetTracker counts tokens in memory and mirrors them to an optional
// store. Check never leaves the process.
type BudgetTracker struct {
	mu       sync.Mutex
	limits   BudgetLimits
	provider string
	daily    int64
	monthly  int64
	day      time.Time
	month    time.Time
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker. A nil store keeps counters in memory
// only; otherwise the current period's usage is loaded from it.
func NewBudgetTracker(
	ctx context.Context, provider string, limits BudgetLimits, store BudgetStore, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		limits:   limits,
		provider: provider,
		store:    store,
		now:      time.Now,
		logger:   logger,
	}
	b.day, b.month = periods(b.now())
	if store != nil {
		b.load(ctx)
	}
	b.publish()
	return b
}

// WithClock replaces the clock, for tests.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	b.day, b.month = periods(now())
	return b
}

func (b *BudgetTracker) load(ctx context.Context) {
	daily, monthly, err := b.store.Load(ctx, b.now())
	if err != nil {
		b.logger.Warn("failed to load embedding budget", zap.String("provider", b.provider), zap.Error(err))
		return
	}
	b.daily, b.monthly = daily, monthly
	b.logger.Info("embedding budget loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", daily),
		zap.Int64("monthly_used", monthly),
	)
}

// Check reports whether another request may spend tokens.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()

	dailyOut := b.limits.Daily > 0 && b.daily >= b.limits.Daily
	monthlyOut := b.limits.Monthly > 0 && b.monthly >= b.limits.Monthly
	if !dailyOut && !monthlyOut {
		return nil
	}
	if b.limits.Action == BudgetActionReject {
		return fmt.Errorf("%s token budget spent: %w", b.provider, domain.ErrEmbeddingQuotaExceeded)
	}
	b.logger.Warn("embedding token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily),
		zap.Int64("daily_limit", b.limits.Daily),
		zap.Int64("monthly_used", b.monthly),
		zap.Int64("monthly_limit", b.limits.Monthly),
	)
	return nil
}

// Record adds spent tokens and persists them under persistTimeout. Store
// errors are logged, never returned.
func (b *BudgetTracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}
	b.mu.Lock()
	b.rollover()
	b.daily += tokens
	b.monthly += tokens
	now := b.now()
	b.mu.Unlock()
	b.publish()

	if b.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := b.store.Add(ctx, now, tokens); err != nil {
		b.logger.Warn("failed to persist embedding budget", zap.String("provider", b.provider), zap.Error(err))
	}
}

// Remaining returns tokens left per period, -1 for an unlimited period.
func (b *BudgetTracker) Remaining() (daily, monthly int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return remaining(b.limits.Daily, b.daily), remaining(b.limits.Monthly, b.monthly)
}

func (b *BudgetTracker) publish() {
	daily, monthly := b.Remaining()
	g := metrics.EmbeddingBudgetTokensRemaining
	g.WithLabelValues(b.provider, "daily").Set(float64(daily))
	g.WithLabelValues(b.provider, "monthly").Set(float64(monthly))
}

// rollover zeroes counters when the UTC day or month changes. Caller holds mu.
func (b *BudgetTracker) rollover() {
	day, month := periods(b.now())
	if day.After(b.day) {
		b.daily = 0
		b.day = day
	}
	if month.After(b.month) {
		b.monthly = 0
		b.month = month
	}
}

func periods(t time.Time) (day, month time.Time) {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(0, limit-used)
}

// BudgetedEmbedder refuses provider calls once the budget is spent and
// records the tokens of every call that goes through.
type BudgetedEmbedder struct {
	inner   domain.Embedder
	tracker *BudgetTracker
}

// NewBudgetedEmbedder wraps inner with budget enforcement.
func NewBudgetedEmbedder(inner domain.Embedder, tracker *BudgetTracker) *BudgetedEmbedder {
	return &BudgetedEmbedder{inner: inner, tracker: tracker}
}

// Embed checks the budget before delegating.
func (e *BudgetedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := e.tracker.Check(ctx); err != nil {
		return domain.EmbeddingResult{}, err
	}
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	e.tracker.Record(int64(res.TotalTokens))
	return res, nil
}

// BatchEmbed checks the budget once for the whole batch.
func (e *BudgetedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if err := e.tracker.Check(ctx); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	res, err := domain.EmbedAll(ctx, e.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	e.tracker.Record(int64(res.TotalTokens))
	return res, nil
}

// HealthCheck forwards to the inner embedder when it supports it.
func (e *BudgetedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
