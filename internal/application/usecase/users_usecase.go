package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/analysis"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/query"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// DefaultLookbackMonths is how many months before the end month are searched
// for earlier activity.
const DefaultLookbackMonths = 6

// OriginUsersUseCase handles the origin active/new user report.
type OriginUsersUseCase struct {
	graccRepo repository.GraccRepository
	publisher *Publisher
	config    *types.Config
	console   types.ConsoleInterface
	now       func() time.Time
}

// NewOriginUsersUseCase creates a new origin users use case.
func NewOriginUsersUseCase(
	graccRepo repository.GraccRepository,
	publisher *Publisher,
	config *types.Config,
	console types.ConsoleInterface,
) *OriginUsersUseCase {
	return &OriginUsersUseCase{
		graccRepo: graccRepo,
		publisher: publisher,
		config:    config,
		console:   console,
		now:       time.Now,
	}
}

// MonthlyIdentities returns the directory paths that transferred through the
// pool origin in each month of [start, end].
func (uc *OriginUsersUseCase) MonthlyIdentities(ctx context.Context, start, end time.Time) ([]entity.MonthIdentities, error) {
	search := query.NewSearch(uc.config.TransferIndex).
		Filter(query.Range("@timestamp").Gte(start).Lte(end)).
		Query(query.And(
			query.Match("dirname1.keyword", "/ospool"),
			query.Not(query.Match("dirname2.keyword", "/ospool/monitoring")),
		)).
		Agg("timestamp", query.DateHistogramAgg("@timestamp", "1M").
			Sub("logical_dirname", query.TermsAgg("logical_dirname.keyword", 10000)))

	aggs, err := uc.graccRepo.Aggregate(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("aggregating origin transfers: %w", err)
	}

	log := zerolog.Ctx(ctx)
	var months []entity.MonthIdentities
	for _, b := range aggs.Buckets("timestamp") {
		month, err := b.KeyTime()
		if err != nil {
			log.Warn().Err(err).Str("key", b.KeyAsString).Msg("skipping month bucket with unreadable key")
			continue
		}
		ids := map[string]struct{}{}
		for _, user := range b.Buckets("logical_dirname") {
			ids[user.KeyString()] = struct{}{}
		}
		months = append(months, entity.MonthIdentities{Month: month, Identities: ids})
	}
	return months, nil
}

// OriginUsers compares the month containing end against the lookback months
// before it. end is rounded to the last second of its month.
func (uc *OriginUsersUseCase) OriginUsers(ctx context.Context, end time.Time, lookback int) (entity.OriginUsersReport, error) {
	end = analysis.EndOfMonth(end)
	start := analysis.MonthsBefore(end, lookback)

	months, err := uc.MonthlyIdentities(ctx, start, end)
	if err != nil {
		return entity.OriginUsersReport{}, err
	}

	activity := analysis.CompareMonths(months)
	return entity.OriginUsersReport{
		ActiveUsers:  len(activity.Active),
		DateRange:    "01 " + end.Format("Jan 2006") + " - " + end.Format("02 Jan 2006"),
		NewUserPaths: activity.New,
		NewUsers:     len(activity.New),
		Monthly:      analysis.MonthlyCounts(months),
	}, nil
}

// RunOriginUsers writes the origin users report. A zero end means the
// current month. With trend set, per-month active counts are charted on the
// console.
func (uc *OriginUsersUseCase) RunOriginUsers(
	ctx context.Context,
	args *types.CLIArgs,
	end time.Time,
	lookback int,
	trend bool,
) error {
	if end.IsZero() {
		end = uc.now()
	}
	if lookback <= 0 {
		lookback = DefaultLookbackMonths
	}

	status := uc.console.Status("Aggregating origin transfers...")
	report, err := uc.OriginUsers(ctx, end, lookback)
	status.Stop()
	if err != nil {
		return err
	}

	if trend {
		counts := make([]types.MonthlyCount, 0, len(report.Monthly))
		for _, m := range report.Monthly {
			counts = append(counts, types.MonthlyCount{Month: m.Month.Format("Jan 2006"), Count: m.Count})
		}
		uc.console.DisplayTrendBars("Active origin users per month", counts)
	}

	table := entity.Table{
		Title: fmt.Sprintf("%d active users, %d new users (%s)",
			report.ActiveUsers, report.NewUsers, report.DateRange),
		Headers: []string{"New Users (directory paths)"},
	}
	for _, p := range report.NewUserPaths {
		table.AddRow(p)
	}

	return uc.publisher.Publish(ctx, args, Report{Name: "origin_users", Format: "json", Table: table, Doc: report})
}
