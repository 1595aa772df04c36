package lectern

import (
	"context"
	"log/slog"
	"time"
)

// DefaultDailyLimit is how many AI requests a non-pro user may issue per
// calendar day.
const DefaultDailyLimit = 3

// Limiter is the single authority for daily AI usage. The counter is
// date-keyed: a stored date other than today reads as zero, and the reset
// is written lazily by the next successful consume — denied checks and
// peeks never mutate state.
type Limiter struct {
	store  Store
	limit  int
	now    func() time.Time
	logger *slog.Logger
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// DailyLimit overrides the per-day request budget.
func DailyLimit(n int) LimiterOption {
	return func(l *Limiter) { l.limit = n }
}

// LimiterClock overrides the time source, for tests.
func LimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// LimiterLogger sets the structured logger.
func LimiterLogger(lg *slog.Logger) LimiterOption {
	return func(l *Limiter) { l.logger = lg }
}

// NewLimiter creates a Limiter over the store's usage counter.
func NewLimiter(store Store, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  DefaultDailyLimit,
		now:    time.Now,
		logger: nopLogger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) today() string {
	return l.now().Format("2006-01-02")
}

// usage reads the effective counter for today. A stored record from a
// previous day counts as zero. Storage failures fail open (count zero)
// so a broken counter never blocks study; they are logged.
func (l *Limiter) usage(ctx context.Context) DailyUsage {
	today := l.today()
	u, err := l.store.GetUsage(ctx)
	if err != nil {
		l.logger.Warn("usage counter read failed", "error", err)
		return DailyUsage{Date: today}
	}
	if u.Date != today {
		return DailyUsage{Date: today}
	}
	return u
}

// Peek reports whether a request would currently be allowed, without
// consuming budget.
func (l *Limiter) Peek(ctx context.Context) bool {
	return l.usage(ctx).Count < l.limit
}

// Remaining returns how many requests are left today.
func (l *Limiter) Remaining(ctx context.Context) int {
	r := l.limit - l.usage(ctx).Count
	if r < 0 {
		return 0
	}
	return r
}

// TryConsume spends one unit of today's budget. It returns false, with no
// state mutated, when the budget is exhausted.
func (l *Limiter) TryConsume(ctx context.Context) bool {
	u := l.usage(ctx)
	if u.Count >= l.limit {
		return false
	}
	u.Count++
	if err := l.store.SetUsage(ctx, u); err != nil {
		l.logger.Warn("usage counter write failed", "error", err)
	}
	return true
}
