package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSiteKey(t *testing.T) {
	key, err := ParseSiteKey("c1_s10")
	require.NoError(t, err)
	assert.Equal(t, SiteKey{CompanyID: "c1", SiteID: "s10"}, key)
	assert.Equal(t, "c1_s10", key.String())

	for _, input := range []string{"", "c1", "c1_", "_s10", "c1_s10_extra"} {
		_, err := ParseSiteKey(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestParsePairKeyBothForms(t *testing.T) {
	modern, err := ParsePairKey("pair_10_20")
	require.NoError(t, err)
	legacy, err2 := ParsePairKey("10_20")
	require.NoError(t, err2)

	// Both serializations canonicalize to the same identity.
	assert.Equal(t, modern, legacy)
	assert.Equal(t, "10_20", modern.String())

	for _, input := range []string{"", "10", "pair_10", "pair__20", "a_b_c"} {
		_, err := ParsePairKey(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestAccessScopeStripsCompanyPrefix(t *testing.T) {
	scope := NewAccessScope([]string{"c1_10", "c2_11", "bogus"}, []string{"c1_20"})
	assert.ElementsMatch(t, []string{"10", "11"}, scope.ProductionIDs())
	assert.ElementsMatch(t, []string{"20"}, scope.ConsumptionIDs())

	assert.True(t, scope.AllowsProduction("10"))
	assert.False(t, scope.AllowsProduction("20"))
	assert.True(t, scope.AllowsConsumption("20"))
	assert.False(t, scope.AllowsConsumption("10"))
}

func TestEmptyScopeIsUnrestricted(t *testing.T) {
	scope := NewAccessScope(nil, nil)
	assert.True(t, scope.AllowsProduction("anything"))
	assert.True(t, scope.AllowsConsumption("anything"))
	assert.True(t, scope.AllowsPair(PairKey{ProductionID: "1", ConsumptionID: "2"}))
}

func TestTwoSidedPairVisibility(t *testing.T) {
	scope := NewAccessScope([]string{"c_10"}, []string{"c_20"})

	visible := RawRecord{Source: SourceAllocation, Fields: map[string]any{"pk": "pair_10_20"}}
	assert.True(t, scope.VisiblePair(visible))

	// Production side accessible, consumption side not: hidden.
	hidden := RawRecord{Source: SourceAllocation, Fields: map[string]any{"pk": "pair_10_99"}}
	assert.False(t, scope.VisiblePair(hidden))

	// Consumption side accessible, production side not: also hidden.
	hidden = RawRecord{Source: SourceAllocation, Fields: map[string]any{"pk": "pair_99_20"}}
	assert.False(t, scope.VisiblePair(hidden))

	// Legacy two-segment form passes the same check.
	legacy := RawRecord{Source: SourceAllocation, Fields: map[string]any{"pk": "10_20"}}
	assert.True(t, scope.VisiblePair(legacy))
}

func TestVisibleSitePerSourceType(t *testing.T) {
	scope := NewAccessScope([]string{"c_10"}, []string{"c_20"})

	prod := RawRecord{Source: SourceProduction, Fields: map[string]any{"pk": "c_10"}}
	assert.True(t, scope.VisibleSite(prod))

	cons := RawRecord{Source: SourceConsumption, Fields: map[string]any{"pk": "c_20"}}
	assert.True(t, scope.VisibleSite(cons))

	// Consumption record checked against the consumption set, not production.
	crossed := RawRecord{Source: SourceConsumption, Fields: map[string]any{"pk": "c_10"}}
	assert.False(t, scope.VisibleSite(crossed))

	// Banking and lapse records check the production set.
	banking := RawRecord{Source: SourceBanking, Fields: map[string]any{"siteKey": "c_10"}}
	assert.True(t, scope.VisibleSite(banking))

	noKey := RawRecord{Source: SourceProduction, Fields: map[string]any{}}
	assert.False(t, scope.VisibleSite(noKey))
}
