package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enerdash/enerdash/internal/fy"
	jobmetrics "github.com/enerdash/enerdash/internal/jobs"
	"github.com/enerdash/enerdash/internal/report"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportWarmupJob pre-builds reconciliation reports so the first dashboard
// request of the day hits a warm cache. It warms the unrestricted scope plus
// one scope per active user with site grants.
type ReportWarmupJob struct {
	Reports *report.Service
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports *report.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	years := payload.Years
	if len(years) == 0 {
		years = []string{fy.Current(j.now())}
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Any("years", years))
	logger.Info("starting report warmup")

	scopes, err := j.fetchScopes(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load warmup scopes", slog.Any("error", err))
		return resultErr
	}

	started := j.now()
	for _, year := range years {
		if _, err := fy.Parse(year); err != nil {
			logger.Warn("skipping malformed financial year", slog.String("financial_year", year))
			continue
		}
		warmed := 0
		for _, scope := range scopes {
			if err := j.warmScope(ctx, scope, year); err != nil {
				resultErr = err
				logger.Error("warm scope", slog.String("financial_year", year), slog.Any("error", err))
				return resultErr
			}
			warmed++
		}
		j.metrics().AddWarmedScopes(year, warmed)
	}

	logger.Info("completed report warmup", slog.Int("scopes", len(scopes)), slog.Duration("duration", time.Since(started)))
	return resultErr
}

func (j *ReportWarmupJob) warmScope(ctx context.Context, scope report.AccessScope, year string) error {
	if j.Reports == nil {
		return nil
	}
	scopeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := j.Reports.BuildCombined(scopeCtx, scope, year)
	return err
}

// fetchScopes returns the unrestricted scope followed by one scope per active
// user that has at least one site grant. Users whose grant sets coincide end
// up sharing a cache entry through the scope digest.
func (j *ReportWarmupJob) fetchScopes(ctx context.Context) ([]report.AccessScope, error) {
	scopes := []report.AccessScope{report.NewAccessScope(nil, nil)}
	if j.Pool == nil {
		return scopes, nil
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT g.user_id, g.site_type, g.site_key
		FROM user_site_grants g
		JOIN users u ON u.id = g.user_id
		WHERE u.is_active
		ORDER BY g.user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type grantSet struct {
		production  []string
		consumption []string
	}
	byUser := make(map[int64]*grantSet)
	order := make([]int64, 0)
	for rows.Next() {
		var userID int64
		var siteType, siteKey string
		if err := rows.Scan(&userID, &siteType, &siteKey); err != nil {
			return nil, err
		}
		set, ok := byUser[userID]
		if !ok {
			set = &grantSet{}
			byUser[userID] = set
			order = append(order, userID)
		}
		if siteType == "consumption" {
			set.consumption = append(set.consumption, siteKey)
		} else {
			set.production = append(set.production, siteKey)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, userID := range order {
		set := byUser[userID]
		scopes = append(scopes, report.NewAccessScope(set.production, set.consumption))
	}
	return scopes, nil
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
