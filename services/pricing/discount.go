// Package pricing turns a course base price and an optional discount token
// into the amount a buyer is charged.
package pricing

import (
	"context"
	"strings"
	"time"

	"coursepay/models"

	"go.uber.org/zap"
)

// TokenStore returns the tokens registered under a token string. Callers
// filter them for applicability; the store only narrows by token and course.
type TokenStore interface {
	FindApplicableTokens(ctx context.Context, courseID uint, token string) ([]models.DiscountToken, error)
}

// Quote is the outcome of price resolution.
type Quote struct {
	BasePrice      int64
	EffectivePrice int64
	Token          *models.DiscountToken
}

// Discount is the amount taken off the base price.
func (q Quote) Discount() int64 {
	return q.BasePrice - q.EffectivePrice
}

type Resolver struct {
	store  TokenStore
	now    func() time.Time
	logger *zap.Logger
}

func NewResolver(store TokenStore, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, now: time.Now, logger: logger}
}

// WithClock overrides the time source used for expiry checks.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// ResolvePrice never fails. Missing, unknown and inapplicable tokens leave the
// base price untouched, and so does a store fault, which is only logged.
func (r *Resolver) ResolvePrice(ctx context.Context, courseID uint, basePrice int64, token string) Quote {
	if basePrice < 0 {
		basePrice = 0
	}
	quote := Quote{BasePrice: basePrice, EffectivePrice: basePrice}

	token = strings.TrimSpace(token)
	if token == "" {
		return quote
	}

	candidates, err := r.store.FindApplicableTokens(ctx, courseID, token)
	if err != nil {
		r.logger.Warn("discount lookup failed, charging base price",
			zap.Uint("course_id", courseID),
			zap.Error(err),
		)
		return quote
	}

	best := SelectToken(candidates, courseID, r.now())
	if best == nil {
		return quote
	}

	quote.Token = best
	quote.EffectivePrice = ApplyDiscount(basePrice, best.DiscountPercentage)
	return quote
}

// SelectToken picks the token to honour among candidates. Only tokens that
// apply to courseID at now are considered; the highest percentage wins, then
// the later expiry, then the lower id.
func SelectToken(candidates []models.DiscountToken, courseID uint, now time.Time) *models.DiscountToken {
	var best *models.DiscountToken
	for i := range candidates {
		t := &candidates[i]
		if !t.AppliesTo(courseID, now) {
			continue
		}
		if best == nil || better(t, best) {
			best = t
		}
	}
	return best
}

func better(a, b *models.DiscountToken) bool {
	if a.DiscountPercentage != b.DiscountPercentage {
		return a.DiscountPercentage > b.DiscountPercentage
	}
	if !a.ExpiresAt.Equal(b.ExpiresAt) {
		return a.ExpiresAt.After(b.ExpiresAt)
	}
	return a.ID < b.ID
}

// ApplyDiscount returns round(base * (1 - pct/100)), rounding half away from
// zero. Percentages are clamped to [0, 100].
func ApplyDiscount(base, pct int64) int64 {
	if base <= 0 {
		return 0
	}
	switch {
	case pct <= 0:
		return base
	case pct >= 100:
		return 0
	}
	return percentOf(base, 100-pct)
}

// AddTax returns the tax due on amount at a fixed percentage, rounded the same
// way as discounts. Percentages above 100 are clamped.
func AddTax(amount, pct int64) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	return percentOf(amount, min(pct, 100))
}

// percentOf returns round(amount * pct / 100) for a non-negative amount and
// pct in [0, 100], without forming the full product.
func percentOf(amount, pct int64) int64 {
	q, r := amount/100, amount%100
	return q*pct + (r*pct+50)/100
}
