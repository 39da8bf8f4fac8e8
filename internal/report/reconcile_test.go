package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNames() NameIndex {
	return NewNameIndex(
		[]Site{{CompanyID: "c", SiteID: "10", Name: "Solar North"}},
		[]Site{{CompanyID: "c", SiteID: "20", Name: "Mill East"}},
	)
}

func TestReconcileBuildsRowsInFYOrder(t *testing.T) {
	aggs := map[Source]Aggregation{
		SourceProduction: Aggregate([]RawRecord{
			prodRecord("c_10", "042024", 30),
			prodRecord("c_10", "032025", 5),
		}, SiteEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, testNames())

	require.Len(t, out.Rows, 12)
	assert.Equal(t, "042024", out.Rows[0].MonthKey)
	assert.Equal(t, "Apr FY2024", out.Rows[0].Month)
	assert.Equal(t, "032025", out.Rows[11].MonthKey)
	assert.Equal(t, "Mar", out.Rows[11].Month)

	require.Len(t, out.Series, 1)
	desc := out.Series[0]
	assert.Equal(t, "10_production", desc.Key)
	assert.Equal(t, "Solar North", desc.DisplayName)
	assert.Equal(t, SourceProduction, desc.Source)
	assert.Equal(t, 0, desc.ColorIndex)

	assert.Equal(t, 30.0, out.Rows[0].Values["10_production"])
	assert.Equal(t, 5.0, out.Rows[11].Values["10_production"])
	assert.Equal(t, 0.0, out.Rows[5].Values["10_production"])
}

func TestReconcileDropsAllZeroSeries(t *testing.T) {
	aggs := map[Source]Aggregation{
		SourceProduction: Aggregate([]RawRecord{
			prodRecord("c_10", "042024", 0), // discovered but all-zero
		}, SiteEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, testNames())
	assert.Empty(t, out.Series)
	assert.True(t, out.Empty())
}

func TestReconcileOrdersSourcesAndEntitiesStably(t *testing.T) {
	aggs := map[Source]Aggregation{
		SourceConsumption: Aggregate([]RawRecord{
			{Source: SourceConsumption, Fields: map[string]any{"pk": "c_20", "sk": "042024", "c1": 2.0}},
		}, SiteEntityKey, "2024-2025"),
		SourceProduction: Aggregate([]RawRecord{
			prodRecord("c_10", "042024", 1),
			prodRecord("c_11", "052024", 3),
		}, SiteEntityKey, "2024-2025"),
		SourceAllocation: Aggregate([]RawRecord{
			{Source: SourceAllocation, Fields: map[string]any{"pk": "pair_10_20", "period": "042024", "c1": 4.0}},
		}, PairEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, testNames())

	keys := make([]string, len(out.Series))
	for i, s := range out.Series {
		keys[i] = s.Key
		assert.Equal(t, i, s.ColorIndex)
	}
	// Production first in discovery order, then consumption, then allocation.
	assert.Equal(t, []string{"10_production", "11_production", "20_consumption", "10_20_allocation"}, keys)
}

func TestReconcileSeriesKeysSurviveDuplicateNames(t *testing.T) {
	// Two production sites sharing a display name stay distinct series.
	names := NewNameIndex(
		[]Site{
			{CompanyID: "c", SiteID: "10", Name: "Plant A"},
			{CompanyID: "c", SiteID: "11", Name: "Plant A"},
		},
		nil,
	)
	aggs := map[Source]Aggregation{
		SourceProduction: Aggregate([]RawRecord{
			prodRecord("c_10", "042024", 1),
			prodRecord("c_11", "042024", 2),
		}, SiteEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, names)

	require.Len(t, out.Series, 2)
	assert.NotEqual(t, out.Series[0].Key, out.Series[1].Key)
	assert.Equal(t, out.Series[0].DisplayName, out.Series[1].DisplayName)
	assert.Equal(t, 1.0, out.Rows[0].Values[out.Series[0].Key])
	assert.Equal(t, 2.0, out.Rows[0].Values[out.Series[1].Key])
}

func TestReconcilePairDisplayName(t *testing.T) {
	aggs := map[Source]Aggregation{
		SourceAllocation: Aggregate([]RawRecord{
			{Source: SourceAllocation, Fields: map[string]any{"pk": "pair_10_20", "period": "052024", "c3": 6.0}},
		}, PairEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, testNames())
	require.Len(t, out.Series, 1)
	assert.Equal(t, "Solar North / Mill East", out.Series[0].DisplayName)
}

func TestReconcileUnknownSiteFallsBackToID(t *testing.T) {
	aggs := map[Source]Aggregation{
		SourceProduction: Aggregate([]RawRecord{
			prodRecord("c_99", "042024", 1),
		}, SiteEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, testNames())
	require.Len(t, out.Series, 1)
	assert.Equal(t, "99", out.Series[0].DisplayName)
}

func TestReconcileBankingKeyedByProductionSite(t *testing.T) {
	aggs := map[Source]Aggregation{
		SourceBanking: Aggregate([]RawRecord{
			{Source: SourceBanking, Fields: map[string]any{
				"pk": "c_10", "period": "062024",
				"bankingEnabled": true, "totalBanking": 55.0,
			}},
		}, SiteEntityKey, "2024-2025"),
	}
	out := Reconcile("2024-2025", aggs, testNames())
	require.Len(t, out.Series, 1)
	assert.Equal(t, "10_banking", out.Series[0].Key)
	assert.Equal(t, "Solar North", out.Series[0].DisplayName)
	assert.Equal(t, 55.0, out.Rows[2].Values["10_banking"])
}
