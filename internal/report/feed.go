package report

import (
	"context"
	"errors"
)

// SiteType distinguishes the two site identity spaces.
type SiteType string

const (
	SiteTypeProduction  SiteType = "production"
	SiteTypeConsumption SiteType = "consumption"
)

// Valid reports whether t is a known site type.
func (t SiteType) Valid() bool {
	return t == SiteTypeProduction || t == SiteTypeConsumption
}

// ErrUnknownSiteType indicates a site-type value outside the two spaces.
var ErrUnknownSiteType = errors.New("report: unknown site type")

// Store is the raw-record feed contract the engine consumes: site
// directories, per-site unit records, per-month allocations, and per-site
// banking and lapse records. Implementations return upstream payloads as-is;
// normalization happens here. A nil slice with a nil error means the feed
// has no rows for the query.
type Store interface {
	Sites(ctx context.Context, siteType SiteType) ([]Site, error)
	UnitsForSite(ctx context.Context, siteType SiteType, companyID, siteID string) ([]RawRecord, error)
	AllocationsForMonth(ctx context.Context, monthKey string) ([]RawRecord, error)
	BankingForSite(ctx context.Context, siteKey string) ([]RawRecord, error)
	LapseForSite(ctx context.Context, siteKey string) ([]RawRecord, error)
}
