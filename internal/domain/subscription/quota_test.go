package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach_tracker/internal/apperrors"
)

func TestQuotaTable_Check(t *testing.T) {
	q := QuotaTable{TierFree: {ResourceOutreachRecords: 3}}

	assert.NoError(t, q.Check(TierFree, ResourceOutreachRecords, 2))

	err := q.Check(TierFree, ResourceOutreachRecords, 3)
	require.Error(t, err)
	var qe *apperrors.QuotaExceededError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 3, qe.Ceiling)
	assert.Equal(t, "FREE", qe.Tier)
	assert.Equal(t, "OUTREACH_RECORDS", qe.Resource)
}

func TestQuotaTable_UnlistedKindIsUnlimited(t *testing.T) {
	q := QuotaTable{TierFree: {ResourceOutreachRecords: 3}}

	assert.NoError(t, q.Check(TierFree, ResourceContacts, 10000))
	assert.NoError(t, q.Check(TierPremium, ResourceOutreachRecords, 10000))
}

func TestQuotaTable_Validate(t *testing.T) {
	assert.NoError(t, DefaultQuotaTable().Validate())
	assert.Error(t, QuotaTable{TierPremium: {}}.Validate())
	assert.Error(t, QuotaTable{TierFree: {ResourceContacts: -1}}.Validate())
	assert.Error(t, QuotaTable{TierFree: {}, Tier("GOLD"): {}}.Validate())
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier("premium")
	require.NoError(t, err)
	assert.Equal(t, TierPremium, tier)

	_, err = ParseTier("gold")
	assert.Error(t, err)
}
