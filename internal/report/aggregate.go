package report

import (
	"github.com/enerdash/enerdash/internal/fy"
)

// DefaultSelectionLimit caps how many non-empty entities are pre-selected
// for charting when the caller has no prior selection.
const DefaultSelectionLimit = 5

// EntityKeyFunc resolves the aggregation key of a raw record: a site id for
// unit feeds, a canonical pair key for allocations. Empty means the record
// carries no usable identity and is skipped.
type EntityKeyFunc func(rec RawRecord) string

// SiteEntityKey extracts the site id from a record's embedded site key.
func SiteEntityKey(rec RawRecord) string {
	raw := FieldString(rec.Fields, "pk", "siteKey", "key")
	if raw == "" {
		return ""
	}
	key, err := ParseSiteKey(raw)
	if err != nil {
		return ""
	}
	return key.SiteID
}

// PairEntityKey extracts and canonicalizes the pair key, collapsing the
// 3-segment and legacy 2-segment forms onto one identity.
func PairEntityKey(rec RawRecord) string {
	raw := FieldString(rec.Fields, "pk", "pairKey", "key")
	if raw == "" {
		return ""
	}
	pair, err := ParsePairKey(raw)
	if err != nil {
		return ""
	}
	return pair.String()
}

// Aggregation is the result of folding one source's records: a per-entity
// monthly aggregate plus the entities in discovery order.
type Aggregation struct {
	// Entities lists aggregation keys in first-seen order. The order is a
	// function of the input slice, not of map iteration, so repeated runs
	// over the same input produce identical output.
	Entities []string
	ByEntity map[string]MonthlyAggregate
}

// Aggregate folds raw records into per-entity, per-month category sums.
// Records without a valid month or entity key contribute nothing. Every
// surviving entity's aggregate spans all 12 financial-year months, with zero
// vectors where no record matched. Summation is commutative, so shuffling
// the input changes only the discovery order, never the aggregate values.
func Aggregate(records []RawRecord, keyFn EntityKeyFunc, year string) Aggregation {
	months, err := fy.Months(year)
	if err != nil {
		months = nil
	}
	norm := NewNormalizer(year, months)

	agg := Aggregation{ByEntity: make(map[string]MonthlyAggregate)}
	for _, rec := range records {
		entity := keyFn(rec)
		if entity == "" {
			continue
		}
		entry, ok := norm.Normalize(rec)
		if !ok {
			continue
		}
		table, exists := agg.ByEntity[entity]
		if !exists {
			table = zeroFilled(months)
			agg.ByEntity[entity] = table
			agg.Entities = append(agg.Entities, entity)
		}
		table[entry.Month] = table[entry.Month].Add(entry.Vector)
	}
	return agg
}

func zeroFilled(months []string) MonthlyAggregate {
	table := make(MonthlyAggregate, len(months))
	for _, m := range months {
		table[m] = CategoryVector{}
	}
	return table
}

// NonEmptyEntities returns, in discovery order, the entities whose aggregate
// has at least one non-zero month. All-zero entities stay in ByEntity but
// are not offered for chart selection.
func (a Aggregation) NonEmptyEntities() []string {
	out := make([]string, 0, len(a.Entities))
	for _, entity := range a.Entities {
		if table, ok := a.ByEntity[entity]; ok && !table.IsZero() {
			out = append(out, entity)
		}
	}
	return out
}

// DefaultSelection picks the first entities from the non-empty list, up to
// the given limit. A non-positive limit falls back to DefaultSelectionLimit.
func (a Aggregation) DefaultSelection(limit int) []string {
	if limit <= 0 {
		limit = DefaultSelectionLimit
	}
	nonEmpty := a.NonEmptyEntities()
	if len(nonEmpty) > limit {
		nonEmpty = nonEmpty[:limit]
	}
	return nonEmpty
}

// FilterVisible drops records failing the access filter before aggregation.
// Exclusion here is expected and frequent, so it is silent.
func FilterVisible(records []RawRecord, scope AccessScope) []RawRecord {
	out := make([]RawRecord, 0, len(records))
	for _, rec := range records {
		if rec.Source == SourceAllocation {
			if scope.VisiblePair(rec) {
				out = append(out, rec)
			}
			continue
		}
		if scope.VisibleSite(rec) {
			out = append(out, rec)
		}
	}
	return out
}
