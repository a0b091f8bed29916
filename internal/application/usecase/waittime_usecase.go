package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/analysis"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/query"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// Wait time report modes.
const (
	ByUser    = "user"
	ByProject = "project"
)

// IdleLeadDays is how far before the period start the daily series begins,
// so that an idle run can precede the first reported day.
const IdleLeadDays = 15

// QueueSampleCoreHours is the usage replayed per episode.
const QueueSampleCoreHours = 1000

const localUserPrefix = "/OU=LocalUser/CN="

// WaitTimeUseCase handles the idle-then-burst queue wait report.
type WaitTimeUseCase struct {
	graccRepo repository.GraccRepository
	publisher *Publisher
	config    *types.Config
	console   types.ConsoleInterface
}

// NewWaitTimeUseCase creates a new wait time use case.
func NewWaitTimeUseCase(
	graccRepo repository.GraccRepository,
	publisher *Publisher,
	config *types.Config,
	console types.ConsoleInterface,
) *WaitTimeUseCase {
	return &WaitTimeUseCase{
		graccRepo: graccRepo,
		publisher: publisher,
		config:    config,
		console:   console,
	}
}

func identityField(mode string) (string, error) {
	switch mode {
	case "", ByUser:
		return "DN", nil
	case ByProject:
		return "ProjectName", nil
	default:
		return "", fmt.Errorf("unknown mode %q, expected user or project", mode)
	}
}

// DailyUsage builds the identity × day core-hour matrix from IdleLeadDays
// before the period start up to the period end. Days without records are zero.
// In user mode usage is summed over the user's projects.
func (uc *WaitTimeUseCase) DailyUsage(ctx context.Context, mode string, period types.DateRange) (entity.DailyUsage, error) {
	field, err := identityField(mode)
	if err != nil {
		return entity.DailyUsage{}, err
	}

	start := utcDate(period.Start).AddDate(0, 0, -IdleLeadDays)
	end := utcDate(period.End)

	probes := make([]query.Filter, 0, len(uc.config.AccessPoints))
	for _, ap := range uc.config.AccessPoints {
		probes = append(probes, query.Term("ProbeName", ap))
	}

	identity := query.TermsAgg(field, query.MaxBuckets)
	if field == "DN" {
		identity.Sub("ProjectName", query.TermsAgg("ProjectName", query.MaxBuckets).
			Sub("CoreHours", query.SumAgg("CoreHours").Missing(0)))
	} else {
		identity.Sub("CoreHours", query.SumAgg("CoreHours").Missing(0))
	}

	search := query.NewSearch(uc.config.SummaryIndex).
		Filter(query.And(
			query.Range("EndTime").Gte(start).Lt(end),
			query.Term("ResourceType", "Payload"),
			query.Term("VOName", "osg"),
			query.Or(probes...),
		)).
		Agg("EndTime", query.DateHistogramAgg("EndTime", "1d").Sub("Identity", identity))

	aggs, err := uc.graccRepo.Aggregate(ctx, search)
	if err != nil {
		return entity.DailyUsage{}, fmt.Errorf("aggregating daily usage: %w", err)
	}

	usage := entity.DailyUsage{Projects: map[string]map[string]struct{}{}}
	index := map[string]int{}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		index[d.Format(analysis.DateLayout)] = len(usage.Days)
		usage.Days = append(usage.Days, d)
	}

	values := map[string][]float64{}
	log := zerolog.Ctx(ctx)
	for _, day := range aggs.Buckets("EndTime") {
		t, err := day.KeyTime()
		if err != nil {
			log.Warn().Err(err).Msg("skipping day bucket with unreadable key")
			continue
		}
		i, ok := index[t.Format(analysis.DateLayout)]
		if !ok {
			continue
		}

		for _, b := range day.Buckets("Identity") {
			id := b.KeyString()
			series, ok := values[id]
			if !ok {
				series = make([]float64, len(usage.Days))
				values[id] = series
			}

			if field != "DN" {
				series[i] += b.Value("CoreHours")
				continue
			}
			for _, p := range b.Buckets("ProjectName") {
				if usage.Projects[id] == nil {
					usage.Projects[id] = map[string]struct{}{}
				}
				usage.Projects[id][p.KeyString()] = struct{}{}
				series[i] += p.Value("CoreHours")
			}
		}
	}

	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		usage.Series = append(usage.Series, entity.UsageSeries{Identity: id, Values: values[id]})
	}

	return usage, nil
}

// IdleEpisodes scans every series for bursts after long idle runs.
func IdleEpisodes(usage entity.DailyUsage) []entity.IdleEpisode {
	var episodes []entity.IdleEpisode
	for _, s := range usage.Series {
		episodes = append(episodes, analysis.DetectIdleBursts(usage.Days, s, analysis.DefaultIdleBurst)...)
	}
	return episodes
}

// SampleQueue replays the raw records of an episode in start order until
// QueueSampleCoreHours are exceeded. Episodes before QueueTimeEpoch are not
// sampled and return an empty sample.
func (uc *WaitTimeUseCase) SampleQueue(ctx context.Context, mode string, ep entity.IdleEpisode) (entity.QueueSample, error) {
	if ep.WindowStart.Before(analysis.QueueTimeEpoch) {
		return entity.QueueSample{}, nil
	}
	field, err := identityField(mode)
	if err != nil {
		return entity.QueueSample{}, err
	}

	search := query.NewSearch(uc.config.RawIndex).
		Filter(query.And(
			query.Range("EndTime").Gte(ep.WindowStart).Lt(ep.WindowEnd.AddDate(0, 0, 1)),
			query.Term("ResourceType", "Payload"),
			query.Term(field, ep.Identity),
		)).
		Sort("StartTime")

	log := zerolog.Ctx(ctx)
	sampler := analysis.NewQueueSampler(QueueSampleCoreHours)

	err = uc.graccRepo.Scan(ctx, search, func(source json.RawMessage) error {
		var job entity.JobRecord
		if err := json.Unmarshal(source, &job); err != nil {
			return fmt.Errorf("decoding raw record: %w", err)
		}

		done, err := sampler.Add(job)
		if err != nil {
			log.Warn().Err(err).Str("probe", job.ProbeName).Str("identity", ep.Identity).
				Msg("queue delay not recorded")
		}
		if done {
			return repository.ErrStopScan
		}
		return nil
	})
	if err != nil {
		return entity.QueueSample{}, fmt.Errorf("scanning records of %s: %w", ep.Identity, err)
	}

	sample := sampler.Result()
	if !sample.ReachedTarget {
		log.Info().Str("identity", ep.Identity).
			Time("start", ep.WindowStart).Time("end", ep.WindowEnd).
			Float64("core_hours", sample.CoreHours).
			Msg("episode did not reach the sampled usage")
	}
	return sample, nil
}

// WaitTime finds the idle-then-burst episodes of the period and samples
// their queue delays. Rows without sampled usage are dropped.
func (uc *WaitTimeUseCase) WaitTime(ctx context.Context, mode string, period types.DateRange) ([]entity.WaitTimeRow, error) {
	status := uc.console.Status("Aggregating daily usage...")
	usage, err := uc.DailyUsage(ctx, mode, period)
	status.Stop()
	if err != nil {
		return nil, err
	}

	episodes := IdleEpisodes(usage)
	zerolog.Ctx(ctx).Debug().Int("identities", len(usage.Series)).Int("episodes", len(episodes)).Msg("idle scan done")

	rows := []entity.WaitTimeRow{}
	if len(episodes) == 0 {
		uc.console.LogInfo("No idle-then-burst episodes between %s and %s",
			period.Start.Format(analysis.DateLayout), period.End.Format(analysis.DateLayout))
		return rows, nil
	}
	uc.console.LogInfo("Sampling queue times of %d episodes", len(episodes))

	bar := uc.console.ProgressWithTotal("Sampling queue times", len(episodes))
	defer bar.Stop()

	for _, ep := range episodes {
		sample, err := uc.SampleQueue(ctx, mode, ep)
		if err != nil {
			return nil, err
		}
		bar.Increment()

		if sample.CoreHours <= 0 {
			continue
		}
		row := entity.WaitTimeRow{Episode: ep, Sample: sample}
		if projects, ok := usage.Projects[ep.Identity]; ok {
			row.Projects = entity.SortedKeys(projects)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RunWaitTime writes the wait time report, CSV by default.
func (uc *WaitTimeUseCase) RunWaitTime(ctx context.Context, args *types.CLIArgs, mode string, period types.DateRange) error {
	if mode == "" {
		mode = ByUser
	}
	rows, err := uc.WaitTime(ctx, mode, period)
	if err != nil {
		return err
	}

	return uc.publisher.Publish(ctx, args, Report{
		Name:   mode + "_waittime",
		Format: "csv",
		Table:  WaitTimeTable(mode, rows),
		Doc:    rows,
	})
}

// WaitTimeTable lays the rows out in the report's column order.
func WaitTimeTable(mode string, rows []entity.WaitTimeRow) entity.Table {
	headers := []string{"ProjectName"}
	if mode == ByUser {
		headers = []string{"Username", "ProjectName"}
	}
	headers = append(headers,
		"Start Time",
		"End Time",
		"Days of Zero Usage",
		"Aggregate Hours In Queue",
		"Max Minutes In Queue",
		"Average Minutes In Queue",
		"Standard Deviation in Minutes",
		"90% Queue Time in Minutes",
		"Aggregate Core Hours",
		"Number of Jobs",
	)

	table := entity.Table{Headers: headers}
	for _, r := range rows {
		var cells []string
		if mode == ByUser {
			cells = append(cells, strings.ReplaceAll(r.Episode.Identity, localUserPrefix, ""), strings.Join(r.Projects, ","))
		} else {
			cells = append(cells, r.Episode.Identity)
		}
		s := r.Sample
		cells = append(cells,
			r.Episode.WindowStart.Format(analysis.DateLayout),
			r.Episode.WindowEnd.Format(analysis.DateLayout),
			strconv.Itoa(r.Episode.IdleDays),
			formatFloat(s.AggregateDelay/time.Hour.Seconds()),
			formatFloat(s.MaxDelay/time.Minute.Seconds()),
			formatFloat(s.MeanDelay/time.Minute.Seconds()),
			formatFloat(s.StdDevDelay/time.Minute.Seconds()),
			formatFloat(s.P90Delay/time.Minute.Seconds()),
			formatFloat(s.CoreHours),
			strconv.Itoa(s.Jobs),
		)
		table.AddRow(cells...)
	}
	return table
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
