// internal/domain/subscription/grace.go
package subscription

import "time"

// DefaultGraceDays is how long a lapsed premium tenant is warned before cleanup may happen.
const DefaultGraceDays = 7

const day = 24 * time.Hour

// Grace describes the window after a premium expiry.
type Grace struct {
	InGracePeriod bool
	DaysRemaining int
	EndsAt        time.Time
}

// GracePeriod reports whether now falls strictly inside (expiresAt, expiresAt+graceDays).
// DaysRemaining is graceDays minus the whole days elapsed since expiry.
func GracePeriod(expiresAt, now time.Time, graceDays int) Grace {
	if graceDays <= 0 || expiresAt.IsZero() {
		return Grace{}
	}
	elapsed := now.Sub(expiresAt)
	window := time.Duration(graceDays) * day
	if elapsed <= 0 || elapsed >= window {
		return Grace{}
	}
	return Grace{
		InGracePeriod: true,
		DaysRemaining: graceDays - int(elapsed/day),
		EndsAt:        expiresAt.Add(window),
	}
}

// Evaluation is the tier decision for one tenant at one instant.
type Evaluation struct {
	StoredTier    Tier
	EffectiveTier Tier
	Grace         Grace
}

// Evaluate degrades an expired premium tenant to free. Grace never lifts the limits; it only
// tells the caller to warn instead of truncating data.
func Evaluate(s *State, now time.Time, graceDays int) Evaluation {
	if s == nil {
		return Evaluation{StoredTier: TierFree, EffectiveTier: TierFree}
	}
	ev := Evaluation{StoredTier: s.Tier, EffectiveTier: TierFree}
	if s.IsEntitled(now) {
		ev.EffectiveTier = TierPremium
		return ev
	}
	if s.Tier == TierPremium && s.Status != StatusRevoked && s.ExpiresAt.Valid {
		ev.Grace = GracePeriod(s.ExpiresAt.Time, now, graceDays)
	}
	return ev
}
