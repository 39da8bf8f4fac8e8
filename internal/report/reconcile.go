package report

import (
	"github.com/enerdash/enerdash/internal/fy"
)

// NameIndex resolves site display names per site type. Missing entries fall
// back to the raw id so a renaming lag upstream never hides a series.
type NameIndex struct {
	Production  map[string]string
	Consumption map[string]string
}

// NewNameIndex builds the lookup from directory listings.
func NewNameIndex(production, consumption []Site) NameIndex {
	idx := NameIndex{
		Production:  make(map[string]string, len(production)),
		Consumption: make(map[string]string, len(consumption)),
	}
	for _, s := range production {
		idx.Production[s.SiteID] = s.Name
	}
	for _, s := range consumption {
		idx.Consumption[s.SiteID] = s.Name
	}
	return idx
}

func (n NameIndex) productionName(id string) string {
	if name, ok := n.Production[id]; ok && name != "" {
		return name
	}
	return id
}

func (n NameIndex) consumptionName(id string) string {
	if name, ok := n.Consumption[id]; ok && name != "" {
		return name
	}
	return id
}

// displayName labels a series for the legend. Series identity lives in the
// key, which is built from stable ids, so two sites sharing a display name
// still chart as two series.
func (n NameIndex) displayName(source Source, entity string) string {
	switch source {
	case SourceConsumption:
		return n.consumptionName(entity)
	case SourceAllocation:
		pair, err := ParsePairKey(entity)
		if err != nil {
			return entity
		}
		return n.productionName(pair.ProductionID) + " / " + n.consumptionName(pair.ConsumptionID)
	default:
		return n.productionName(entity)
	}
}

// seriesKey builds the stable per-series identifier: entity id plus source
// suffix. Ids, not names, so the key survives renames and name collisions.
func seriesKey(source Source, entity string) string {
	return entity + "_" + string(source)
}

// Reconcile merges per-source aggregations into one chart-ready report.
// Sources appear in reconciliation order and entities in discovery order, so
// legends are stable across re-renders of the same input. Series that are
// zero across all 12 months are dropped before charting.
func Reconcile(year string, aggs map[Source]Aggregation, names NameIndex) Report {
	months, err := fy.Months(year)
	if err != nil {
		months = nil
	}

	rows := make([]ChartRow, len(months))
	for i, m := range months {
		rows[i] = ChartRow{
			MonthKey: m,
			Month:    fy.Label(m, fy.LabelShortFY),
			Values:   make(map[string]float64),
		}
	}

	var series []SeriesDescriptor
	for _, source := range Sources {
		agg, ok := aggs[source]
		if !ok {
			continue
		}
		for _, entity := range agg.NonEmptyEntities() {
			table := agg.ByEntity[entity]
			key := seriesKey(source, entity)
			series = append(series, SeriesDescriptor{
				Key:         key,
				DisplayName: names.displayName(source, entity),
				Source:      source,
				ColorIndex:  len(series),
			})
			for i, m := range months {
				rows[i].Values[key] = table[m].Total
			}
		}
	}

	return Report{FinancialYear: year, Rows: rows, Series: series}
}
