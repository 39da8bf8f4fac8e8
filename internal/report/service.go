package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/enerdash/enerdash/internal/fy"
)

// DefaultFetchConcurrency bounds the per-source fan-out over sites/months.
const DefaultFetchConcurrency = 8

// DefaultFetchRetries bounds retry attempts per upstream fetch.
const DefaultFetchRetries = 2

// SourceView is the chart-ready aggregate of a single feed.
type SourceView struct {
	FinancialYear string             `json:"financialYear"`
	Source        Source             `json:"source"`
	Rows          []ChartRow         `json:"rows"`
	Series        []SeriesDescriptor `json:"series"`
	// Selected holds the default chart selection: the first non-empty
	// entities in discovery order.
	Selected []string `json:"selected"`
}

// ServiceConfig tunes the reporting service.
type ServiceConfig struct {
	FetchConcurrency int
	FetchRetries     int
	RetryInterval    time.Duration
}

// Service orchestrates a full aggregation pass: fan-out fetches per source,
// normalization, access filtering, aggregation and reconciliation. All pass
// state is local; the site directory and the redis cache are the only shared
// components.
type Service struct {
	store  Store
	dir    *SiteDirectory
	cache  *Cache
	logger *slog.Logger
	cfg    ServiceConfig

	guard *passGuard

	mu     sync.RWMutex
	latest map[string]Report
}

// NewService wires the reporting service.
func NewService(store Store, dir *SiteDirectory, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = DefaultFetchConcurrency
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = DefaultFetchRetries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		dir:    dir,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		guard:  newPassGuard(),
		latest: make(map[string]Report),
	}
}

// ScopeDigest derives a stable cache-key token from an access scope. Sorted
// before hashing so equivalent scopes share cache entries.
func ScopeDigest(scope AccessScope) string {
	prod := scope.ProductionIDs()
	cons := scope.ConsumptionIDs()
	sort.Strings(prod)
	sort.Strings(cons)
	sum := sha256.Sum256([]byte("p:" + strings.Join(prod, ",") + "|c:" + strings.Join(cons, ",")))
	return hex.EncodeToString(sum[:8])
}

// BuildSourceView aggregates one feed for the financial year and returns its
// chart view, read through the cache.
func (s *Service) BuildSourceView(ctx context.Context, scope AccessScope, year string, source Source, limit int) (SourceView, error) {
	if !source.Valid() {
		return SourceView{}, fmt.Errorf("report: unknown source %q", source)
	}
	loader := func(ctx context.Context) (interface{}, error) {
		agg, names, err := s.aggregateSource(ctx, scope, year, source)
		if err != nil {
			return nil, err
		}
		view := Reconcile(year, map[Source]Aggregation{source: agg}, names)
		return SourceView{
			FinancialYear: year,
			Source:        source,
			Rows:          view.Rows,
			Series:        view.Series,
			Selected:      agg.DefaultSelection(limit),
		}, nil
	}

	key, err := s.cache.BuildKey(ctx, keySource(source, year, ScopeDigest(scope)))
	if err != nil {
		return SourceView{}, err
	}
	var view SourceView
	if err := s.cache.FetchJSON(ctx, key, &view, loader); err != nil {
		return SourceView{}, err
	}
	return view, nil
}

// BuildCombined runs a full reconciliation pass across all five feeds. The
// five source aggregations run concurrently; each tolerates its own partial
// failures, so a dead feed yields missing series rather than an error. If a
// newer pass for the same scope and year started while this one was running,
// its result is discarded rather than published.
func (s *Service) BuildCombined(ctx context.Context, scope AccessScope, year string) (Report, error) {
	passKey := ScopeDigest(scope) + ":" + year
	gen := s.guard.begin(passKey)
	passID := uuid.NewString()
	logger := s.logger.With(
		slog.String("pass_id", passID),
		slog.String("financial_year", year),
	)
	started := time.Now()

	loader := func(ctx context.Context) (interface{}, error) {
		var (
			mu   sync.Mutex
			aggs = make(map[Source]Aggregation, len(Sources))
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, source := range Sources {
			g.Go(func() error {
				agg, _, err := s.aggregateSource(gctx, scope, year, source)
				if err != nil {
					return err
				}
				mu.Lock()
				aggs[source] = agg
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		names, err := s.nameIndex(ctx)
		if err != nil {
			return nil, err
		}
		return Reconcile(year, aggs, names), nil
	}

	key, err := s.cache.BuildKey(ctx, keyCombined(year, ScopeDigest(scope)))
	if err != nil {
		return Report{}, err
	}
	var out Report
	if err := s.cache.FetchJSON(ctx, key, &out, loader); err != nil {
		return Report{}, err
	}

	if !s.guard.commit(passKey, gen) {
		logger.Debug("discarding superseded aggregation pass")
		return out, nil
	}
	s.mu.Lock()
	s.latest[passKey] = out
	s.mu.Unlock()

	logger.Info("reconciliation pass complete",
		slog.Int("series", len(out.Series)),
		slog.Duration("duration", time.Since(started)))
	return out, nil
}

// Latest returns the most recently published combined report for a scope and
// financial year, when one exists.
func (s *Service) Latest(scope AccessScope, year string) (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out, ok := s.latest[ScopeDigest(scope)+":"+year]
	return out, ok
}

// aggregateSource fetches, filters and folds one feed. Per-entity fetch
// failures degrade to zero contributions; only directory failures propagate.
func (s *Service) aggregateSource(ctx context.Context, scope AccessScope, year string, source Source) (Aggregation, NameIndex, error) {
	names, err := s.nameIndex(ctx)
	if err != nil {
		return Aggregation{}, NameIndex{}, err
	}

	var (
		records []RawRecord
		keyFn   EntityKeyFunc
	)
	switch source {
	case SourceProduction:
		records, err = s.fetchUnits(ctx, scope, SiteTypeProduction)
		keyFn = SiteEntityKey
	case SourceConsumption:
		records, err = s.fetchUnits(ctx, scope, SiteTypeConsumption)
		keyFn = SiteEntityKey
	case SourceAllocation:
		records, err = s.fetchAllocations(ctx, year)
		keyFn = PairEntityKey
	case SourceBanking:
		records, err = s.fetchPerSite(ctx, scope, source, s.store.BankingForSite)
		keyFn = SiteEntityKey
	case SourceLapse:
		records, err = s.fetchPerSite(ctx, scope, source, s.store.LapseForSite)
		keyFn = SiteEntityKey
	default:
		return Aggregation{}, names, fmt.Errorf("report: unknown source %q", source)
	}
	if err != nil {
		return Aggregation{}, names, err
	}

	visible := FilterVisible(records, scope)
	return Aggregate(visible, keyFn, year), names, nil
}

func (s *Service) nameIndex(ctx context.Context) (NameIndex, error) {
	production, err := s.dir.Sites(ctx, SiteTypeProduction)
	if err != nil {
		return NameIndex{}, fmt.Errorf("report: production site directory: %w", err)
	}
	consumption, err := s.dir.Sites(ctx, SiteTypeConsumption)
	if err != nil {
		return NameIndex{}, fmt.Errorf("report: consumption site directory: %w", err)
	}
	return NewNameIndex(production, consumption), nil
}

// accessibleSites intersects the directory listing with the access scope.
func (s *Service) accessibleSites(ctx context.Context, scope AccessScope, siteType SiteType) ([]Site, error) {
	sites, err := s.dir.Sites(ctx, siteType)
	if err != nil {
		return nil, err
	}
	out := make([]Site, 0, len(sites))
	for _, site := range sites {
		switch siteType {
		case SiteTypeConsumption:
			if scope.AllowsConsumption(site.SiteID) {
				out = append(out, site)
			}
		default:
			if scope.AllowsProduction(site.SiteID) {
				out = append(out, site)
			}
		}
	}
	return out, nil
}

// fetchUnits fans out one unit fetch per accessible site with bounded
// concurrency. A failed site logs a warning and contributes nothing.
func (s *Service) fetchUnits(ctx context.Context, scope AccessScope, siteType SiteType) ([]RawRecord, error) {
	sites, err := s.accessibleSites(ctx, scope, siteType)
	if err != nil {
		return nil, err
	}

	results := make([][]RawRecord, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, site := range sites {
		g.Go(func() error {
			records, err := fetchWithRetry(gctx, s.cfg, func() ([]RawRecord, error) {
				return s.store.UnitsForSite(gctx, siteType, site.CompanyID, site.SiteID)
			})
			if err != nil {
				s.logger.Warn("unit fetch failed, contributing zero",
					slog.String("site_type", string(siteType)),
					slog.String("site", site.Key().String()),
					slog.Any("error", err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return flatten(results), nil
}

// fetchAllocations executes the month fetch plan for the financial year
// through the same bounded pool. A failed month contributes nothing.
func (s *Service) fetchAllocations(ctx context.Context, year string) ([]RawRecord, error) {
	months, err := fy.Months(year)
	if err != nil {
		// Malformed year: empty month list, empty feed.
		return nil, nil
	}

	results := make([][]RawRecord, len(months))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, month := range months {
		g.Go(func() error {
			records, err := fetchWithRetry(gctx, s.cfg, func() ([]RawRecord, error) {
				return s.store.AllocationsForMonth(gctx, month)
			})
			if err != nil {
				s.logger.Warn("allocation fetch failed, contributing zero",
					slog.String("month", month),
					slog.Any("error", err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return flatten(results), nil
}

// fetchPerSite issues one fetch per accessible production site. Banking and
// lapse are keyed by production site, not by pair.
func (s *Service) fetchPerSite(ctx context.Context, scope AccessScope, source Source, fetch func(context.Context, string) ([]RawRecord, error)) ([]RawRecord, error) {
	sites, err := s.accessibleSites(ctx, scope, SiteTypeProduction)
	if err != nil {
		return nil, err
	}

	results := make([][]RawRecord, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchConcurrency)
	for i, site := range sites {
		g.Go(func() error {
			records, err := fetchWithRetry(gctx, s.cfg, func() ([]RawRecord, error) {
				return fetch(gctx, site.Key().String())
			})
			if err != nil {
				s.logger.Warn("per-site fetch failed, contributing zero",
					slog.String("source", string(source)),
					slog.String("site", site.Key().String()),
					slog.Any("error", err))
				return nil
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return flatten(results), nil
}

// fetchWithRetry applies bounded exponential backoff to one upstream fetch.
func fetchWithRetry(ctx context.Context, cfg ServiceConfig, fetch func() ([]RawRecord, error)) ([]RawRecord, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.FetchRetries)), ctx)

	var records []RawRecord
	err := backoff.Retry(func() error {
		var err error
		records, err = fetch()
		return err
	}, policy)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func flatten(batches [][]RawRecord) []RawRecord {
	var total int
	for _, b := range batches {
		total += len(b)
	}
	out := make([]RawRecord, 0, total)
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}
