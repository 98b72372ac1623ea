package subscription

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var expiry = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func premium(expiresAt time.Time) *State {
	return &State{
		TenantID:  uuid.New(),
		Tier:      TierPremium,
		Status:    StatusActive,
		StartedAt: sql.NullTime{Time: expiresAt.AddDate(0, -1, 0), Valid: true},
		ExpiresAt: sql.NullTime{Time: expiresAt, Valid: true},
	}
}

func TestGracePeriod_Edges(t *testing.T) {
	const g = 7

	g1 := GracePeriod(expiry, expiry.Add((g-1)*day), g)
	assert.True(t, g1.InGracePeriod)
	assert.Equal(t, 1, g1.DaysRemaining)
	assert.Equal(t, expiry.Add(g*day), g1.EndsAt)

	after := GracePeriod(expiry, expiry.Add((g+1)*day), g)
	assert.False(t, after.InGracePeriod)

	atEnd := GracePeriod(expiry, expiry.Add(g*day), g)
	assert.False(t, atEnd.InGracePeriod)

	justLapsed := GracePeriod(expiry, expiry.Add(time.Hour), g)
	assert.True(t, justLapsed.InGracePeriod)
	assert.Equal(t, g, justLapsed.DaysRemaining)

	before := GracePeriod(expiry, expiry.Add(-time.Hour), g)
	assert.False(t, before.InGracePeriod)
}

func TestEvaluate(t *testing.T) {
	const g = 7
	s := premium(expiry)

	active := Evaluate(s, expiry.Add(-day), g)
	assert.Equal(t, TierPremium, active.EffectiveTier)
	assert.False(t, active.Grace.InGracePeriod)

	inGrace := Evaluate(s, expiry.Add((g-1)*day), g)
	assert.Equal(t, TierPremium, inGrace.StoredTier)
	assert.Equal(t, TierFree, inGrace.EffectiveTier)
	assert.True(t, inGrace.Grace.InGracePeriod)
	assert.Equal(t, 1, inGrace.Grace.DaysRemaining)

	lapsed := Evaluate(s, expiry.Add((g+1)*day), g)
	assert.Equal(t, TierFree, lapsed.EffectiveTier)
	assert.False(t, lapsed.Grace.InGracePeriod)
}

func TestEvaluate_RevokedHasNoGrace(t *testing.T) {
	s := premium(expiry)
	s.Status = StatusRevoked

	ev := Evaluate(s, expiry.Add(-day), 7)
	assert.Equal(t, TierFree, ev.EffectiveTier)

	ev = Evaluate(s, expiry.Add(day), 7)
	assert.False(t, ev.Grace.InGracePeriod)
}

func TestEvaluate_CanceledKeepsPremiumUntilExpiry(t *testing.T) {
	s := premium(expiry)
	s.Status = StatusCanceled

	assert.Equal(t, TierPremium, Evaluate(s, expiry.Add(-time.Minute), 7).EffectiveTier)
	assert.Equal(t, TierFree, Evaluate(s, expiry.Add(time.Minute), 7).EffectiveTier)
}

func TestEvaluate_FreeAndMissing(t *testing.T) {
	assert.Equal(t, TierFree, Evaluate(nil, expiry, 7).EffectiveTier)
	assert.Equal(t, TierFree, Evaluate(NewFreeState(uuid.New(), expiry), expiry, 7).EffectiveTier)
}
