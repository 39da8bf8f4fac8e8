// Package report implements the monthly aggregation and reconciliation
// engine behind the energy-accounting dashboard: raw production, consumption,
// allocation, banking and lapse records are normalized, access-filtered and
// folded into per-month category aggregates suitable for charting.
package report

import (
	"fmt"
	"strings"
)

// Source identifies which upstream feed a raw record came from. The feeds
// disagree on field names and key formats, so normalization is per source.
type Source string

const (
	SourceProduction  Source = "production"
	SourceConsumption Source = "consumption"
	SourceAllocation  Source = "allocation"
	SourceBanking     Source = "banking"
	SourceLapse       Source = "lapse"
)

// Sources lists every feed in reconciliation order.
var Sources = []Source{SourceProduction, SourceConsumption, SourceAllocation, SourceBanking, SourceLapse}

// Valid reports whether s names a known feed.
func (s Source) Valid() bool {
	switch s {
	case SourceProduction, SourceConsumption, SourceAllocation, SourceBanking, SourceLapse:
		return true
	}
	return false
}

// RawRecord is one upstream row before normalization. Fields carries the
// decoded payload as-is; the engine never trusts its shape.
type RawRecord struct {
	Source Source
	Fields map[string]any
}

// CategoryVector holds the five category values of one month plus their sum.
// Total is always recomputed from C1..C5, except for banking records where
// it carries the gated totalBanking scalar and the categories stay zero.
type CategoryVector struct {
	C1    float64 `json:"c1"`
	C2    float64 `json:"c2"`
	C3    float64 `json:"c3"`
	C4    float64 `json:"c4"`
	C5    float64 `json:"c5"`
	Total float64 `json:"total"`
}

// Add returns the component-wise sum of two vectors.
func (v CategoryVector) Add(o CategoryVector) CategoryVector {
	return CategoryVector{
		C1:    v.C1 + o.C1,
		C2:    v.C2 + o.C2,
		C3:    v.C3 + o.C3,
		C4:    v.C4 + o.C4,
		C5:    v.C5 + o.C5,
		Total: v.Total + o.Total,
	}
}

// IsZero reports whether every component is zero.
func (v CategoryVector) IsZero() bool {
	return v.C1 == 0 && v.C2 == 0 && v.C3 == 0 && v.C4 == 0 && v.C5 == 0 && v.Total == 0
}

// Entry is one normalized record: a month key inside the requested financial
// year and the clamped category values it contributes.
type Entry struct {
	Month  string
	Vector CategoryVector
}

// SiteKey is the composite identity of a site. Names are display metadata
// resolved separately; identity comparison is always by id pair.
type SiteKey struct {
	CompanyID string
	SiteID    string
}

// ParseSiteKey splits a "companyId_siteId" serialization.
func ParseSiteKey(s string) (SiteKey, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return SiteKey{}, fmt.Errorf("report: malformed site key %q", s)
	}
	return SiteKey{CompanyID: parts[0], SiteID: parts[1]}, nil
}

// String renders the canonical "companyId_siteId" form.
func (k SiteKey) String() string {
	return k.CompanyID + "_" + k.SiteID
}

// PairKey identifies a production/consumption allocation pair.
type PairKey struct {
	ProductionID  string
	ConsumptionID string
}

// ParsePairKey accepts both serializations seen upstream: the current
// "pair_prodId_consId" and the legacy "prodId_consId". Both normalize to the
// same two-id pair so duplicate rows under differing formats collapse.
func ParsePairKey(s string) (PairKey, error) {
	parts := strings.Split(s, "_")
	switch {
	case len(parts) == 3 && parts[0] == "pair":
		parts = parts[1:]
	case len(parts) == 2 && parts[0] != "pair":
		// A "pair" sentinel with only one id is malformed, not a legacy key.
	default:
		return PairKey{}, fmt.Errorf("report: malformed pair key %q", s)
	}
	if parts[0] == "" || parts[1] == "" {
		return PairKey{}, fmt.Errorf("report: malformed pair key %q", s)
	}
	return PairKey{ProductionID: parts[0], ConsumptionID: parts[1]}, nil
}

// String renders the canonical two-id form used for aggregation keys.
func (k PairKey) String() string {
	return k.ProductionID + "_" + k.ConsumptionID
}

// MonthlyAggregate maps every month key of the financial year to its summed
// category vector. Aggregates are total: months without data carry a zero
// vector rather than being absent.
type MonthlyAggregate map[string]CategoryVector

// IsZero reports whether no month carries a non-zero vector.
func (a MonthlyAggregate) IsZero() bool {
	for _, v := range a {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// Site describes site metadata from the directory feed.
type Site struct {
	CompanyID string `json:"companyId"`
	SiteID    string `json:"siteId"`
	Name      string `json:"name"`
}

// Key returns the site's composite identity.
func (s Site) Key() SiteKey {
	return SiteKey{CompanyID: s.CompanyID, SiteID: s.SiteID}
}

// SeriesDescriptor describes one chart series for the legend. Key is the
// stable entity-derived identifier; DisplayName is resolved at render time so
// duplicate site names never merge two series.
type SeriesDescriptor struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Source      Source `json:"source"`
	ColorIndex  int    `json:"colorIndex"`
}

// ChartRow is one month of chart data: the month key, its display label and
// one value per series key.
type ChartRow struct {
	MonthKey string             `json:"monthKey"`
	Month    string             `json:"month"`
	Values   map[string]float64 `json:"values"`
}

// Report is the chart-ready output of a reconciliation pass.
type Report struct {
	FinancialYear string             `json:"financialYear"`
	Rows          []ChartRow         `json:"rows"`
	Series        []SeriesDescriptor `json:"series"`
}

// Empty reports whether reconciliation found no non-zero series at all. Only
// this condition surfaces to the user as "no data"; partial upstream failures
// degrade to missing series instead.
func (r Report) Empty() bool {
	return len(r.Series) == 0
}
