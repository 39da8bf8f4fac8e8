// Package sources implements the report.Store feed contract over the
// ingested raw-record tables in Postgres. Upstream payloads are stored
// verbatim as jsonb and decoded into maps; the reporting engine does its own
// field coercion.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enerdash/enerdash/internal/report"
)

// undefinedTableCode is the Postgres error code raised when an ingestion
// table has not been created yet. Treated as an empty feed, not a failure.
const undefinedTableCode = "42P01"

// Repository reads raw feed records from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repo over a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Sites lists the site directory for one site type.
func (r *Repository) Sites(ctx context.Context, siteType report.SiteType) ([]report.Site, error) {
	if !siteType.Valid() {
		return nil, report.ErrUnknownSiteType
	}
	rows, err := r.pool.Query(ctx,
		`SELECT company_id, site_id, name FROM sites WHERE site_type = $1 ORDER BY company_id, site_id`,
		string(siteType))
	if err != nil {
		if emptyFeed(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sources: list %s sites: %w", siteType, err)
	}
	defer rows.Close()

	var sites []report.Site
	for rows.Next() {
		var s report.Site
		if err := rows.Scan(&s.CompanyID, &s.SiteID, &s.Name); err != nil {
			return nil, fmt.Errorf("sources: scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// UnitsForSite returns one site's raw unit records.
func (r *Repository) UnitsForSite(ctx context.Context, siteType report.SiteType, companyID, siteID string) ([]report.RawRecord, error) {
	if !siteType.Valid() {
		return nil, report.ErrUnknownSiteType
	}
	source := report.SourceProduction
	if siteType == report.SiteTypeConsumption {
		source = report.SourceConsumption
	}
	return r.queryRecords(ctx, source,
		`SELECT payload FROM unit_records WHERE site_type = $1 AND company_id = $2 AND site_id = $3`,
		string(siteType), companyID, siteID)
}

// AllocationsForMonth returns every allocation record of one month.
func (r *Repository) AllocationsForMonth(ctx context.Context, monthKey string) ([]report.RawRecord, error) {
	return r.queryRecords(ctx, report.SourceAllocation,
		`SELECT payload FROM allocation_records WHERE month_key = $1`, monthKey)
}

// BankingForSite returns a production site's banking records.
func (r *Repository) BankingForSite(ctx context.Context, siteKey string) ([]report.RawRecord, error) {
	return r.queryRecords(ctx, report.SourceBanking,
		`SELECT payload FROM banking_records WHERE site_key = $1`, siteKey)
}

// LapseForSite returns a production site's lapse records.
func (r *Repository) LapseForSite(ctx context.Context, siteKey string) ([]report.RawRecord, error) {
	return r.queryRecords(ctx, report.SourceLapse,
		`SELECT payload FROM lapse_records WHERE site_key = $1`, siteKey)
}

func (r *Repository) queryRecords(ctx context.Context, source report.Source, sql string, args ...any) ([]report.RawRecord, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		if emptyFeed(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("sources: query %s records: %w", source, err)
	}
	defer rows.Close()

	var records []report.RawRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("sources: scan %s record: %w", source, err)
		}
		fields := make(map[string]any)
		if err := json.Unmarshal(payload, &fields); err != nil {
			// One corrupt payload must not sink the feed.
			continue
		}
		records = append(records, report.RawRecord{Source: source, Fields: fields})
	}
	return records, rows.Err()
}

func emptyFeed(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}
