package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/analysis"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/query"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// MinOSCFCoreHours is the usage a facility needs to be listed as an OSCF facility.
const MinOSCFCoreHours = 1.0

// UsageOptions selects the optional aggregations of a windowed usage query.
type UsageOptions struct {
	// CountFQDNs adds the distinct OIM_FQDN count.
	CountFQDNs bool
	// ListResources adds the sorted "<resource> (<fqdn>)" breakdown.
	ListResources bool
}

// PanelSpec is one dashboard panel: a filter and whether its count and
// resource breakdown are reported.
type PanelSpec struct {
	Name    string
	Filter  query.Filter
	Details bool
}

// UsageUseCase handles the core-hour reports built on windowed aggregation.
type UsageUseCase struct {
	graccRepo    repository.GraccRepository
	topologyRepo repository.TopologyRepository
	publisher    *Publisher
	config       *types.Config
	console      types.ConsoleInterface
	now          func() time.Time
}

// NewUsageUseCase creates a new usage use case.
func NewUsageUseCase(
	graccRepo repository.GraccRepository,
	topologyRepo repository.TopologyRepository,
	publisher *Publisher,
	config *types.Config,
	console types.ConsoleInterface,
) *UsageUseCase {
	return &UsageUseCase{
		graccRepo:    graccRepo,
		topologyRepo: topologyRepo,
		publisher:    publisher,
		config:       config,
		console:      console,
		now:          time.Now,
	}
}

// WindowedUsage runs one aggregation per window and returns the results in
// window order. A window without matching records yields zeros.
func (uc *UsageUseCase) WindowedUsage(
	ctx context.Context,
	filter query.Filter,
	windows []entity.Window,
	opts UsageOptions,
) ([]entity.WindowUsage, error) {
	results := make([]entity.WindowUsage, 0, len(windows))

	for _, w := range windows {
		search := query.NewSearch(uc.config.SummaryIndex).
			Filter(query.And(
				query.Range("EndTime").Gte(w.Start).Lt(w.End),
				filter,
			)).
			Agg("CoreHours", query.SumAgg("CoreHours"))
		if opts.CountFQDNs {
			search.Agg("FQDN_count", query.CardinalityAgg("OIM_FQDN"))
		}
		if opts.ListResources {
			search.Agg("FQDNs", query.TermsAgg("OIM_FQDN", 1000).
				Sub("Resources", query.TermsAgg("OIM_Resource", 1000)))
		}

		aggs, err := uc.graccRepo.Aggregate(ctx, search)
		if err != nil {
			return nil, fmt.Errorf("aggregating %d day window: %w", w.Days, err)
		}

		usage := entity.WindowUsage{
			Window:    w,
			CoreHours: aggs.Value("CoreHours"),
			FQDNCount: aggs.Count("FQDN_count"),
			Resources: []string{},
		}
		if opts.ListResources {
			usage.Resources = resourceBreakdown(aggs)
		}
		results = append(results, usage)
	}

	return results, nil
}

func resourceBreakdown(aggs query.Aggregations) []string {
	var resources []string
	for _, fqdn := range aggs.Buckets("FQDNs") {
		for _, res := range fqdn.Buckets("Resources") {
			resources = append(resources, fmt.Sprintf("%s (%s)", res.KeyString(), fqdn.KeyString()))
		}
	}
	sort.Strings(resources)
	if resources == nil {
		return []string{}
	}
	return resources
}

// DashboardPanels returns the panels of the usage dashboard. ccStarFQDNs
// restricts the CC* panels.
func DashboardPanels(ccStarFQDNs []string) []PanelSpec {
	payload := query.Term("ResourceType", "Payload")
	batch := query.Term("ResourceType", "Batch")
	gpus := query.Range("GPUs").Gte(1)
	ccStar := query.Terms("OIM_FQDN", ccStarFQDNs...)

	osgConnect := query.And(payload,
		query.Term("ReportableVOName", "osg"),
		query.Wildcard("OIM_Organization", "*"))
	multiInst := query.And(payload,
		query.Terms("ReportableVOName", "SBGrid", "des", "dune", "fermilab", "gluex", "icecube", "ligo", "lsst"),
		query.Wildcard("OIM_Organization", "*"))
	campusOrgs := query.And(batch,
		query.Terms("VOName", "hcc", "glow", "suragrid"))

	return []PanelSpec{
		{Name: "osg_connect", Filter: osgConnect},
		{Name: "multi_inst", Filter: multiInst},
		{Name: "campus_orgs", Filter: campusOrgs},
		{Name: "gpu_usage", Filter: query.And(payload, gpus)},
		{Name: "all_non_lhc", Filter: query.Or(osgConnect, multiInst, campusOrgs)},
		{Name: "amnh", Filter: query.And(batch, query.Term("OIM_Site", "AMNH"), ccStar), Details: true},
		{Name: "cc_star", Filter: query.And(batch, ccStar), Details: true},
		{Name: "cc_star_gpu", Filter: query.And(payload, gpus, ccStar), Details: true},
	}
}

// CPUHours evaluates every dashboard panel over the configured windows,
// ending at midnight today.
func (uc *UsageUseCase) CPUHours(ctx context.Context) (map[string]any, []entity.Panel, error) {
	now := uc.now()

	ccStar, err := CCStarFQDNs(ctx, uc.topologyRepo, "")
	if err != nil {
		return nil, nil, err
	}
	zerolog.Ctx(ctx).Debug().Int("fqdns", len(ccStar)).Msg("loaded CC* compute entry points")

	windows := analysis.Windows(analysis.Midnight(now), uc.config.PanelWindows)
	defs := DashboardPanels(ccStar)

	doc := map[string]any{
		"last_update":     now.Unix(),
		"last_update_str": now.Format("2006-01-02 15:04"),
	}
	panels := make([]entity.Panel, 0, len(defs))

	bar := uc.console.ProgressWithTotal("Querying panels", len(defs))
	defer bar.Stop()

	for _, def := range defs {
		usage, err := uc.WindowedUsage(ctx, def.Filter, windows, UsageOptions{
			CountFQDNs:    def.Details,
			ListResources: def.Details,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("panel %s: %w", def.Name, err)
		}
		panels = append(panels, entity.Panel{Name: def.Name, Windows: usage})

		hours := make([]string, len(usage))
		counts := make([]int64, len(usage))
		fqdns := make([][]string, len(usage))
		for i, u := range usage {
			hours[i] = humanize.Comma(u.Hours())
			counts[i] = u.FQDNCount
			fqdns[i] = u.Resources
		}

		if def.Details {
			doc[def.Name+"_usage"] = hours
			doc[def.Name+"_count"] = counts
			doc[def.Name+"_fqdns"] = fqdns
		} else {
			doc[def.Name] = hours
		}
		bar.Increment()
	}

	return doc, panels, nil
}

// RunCPUHours writes the dashboard panel report.
func (uc *UsageUseCase) RunCPUHours(ctx context.Context, args *types.CLIArgs) error {
	doc, panels, err := uc.CPUHours(ctx)
	if err != nil {
		return err
	}

	table := entity.Table{
		Title:   "OSG Core Hours",
		Headers: append([]string{"Panel"}, windowHeaders(uc.config.PanelWindows)...),
	}
	for _, p := range panels {
		row := []string{p.Name}
		for _, w := range p.Windows {
			row = append(row, humanize.Comma(w.Hours()))
		}
		table.AddRow(row...)
	}

	return uc.publisher.Publish(ctx, args, Report{Name: "cpu_hours", Format: "json", Table: table, Doc: doc})
}

// CCStarHours sums CC* Batch usage over the configured windows, leaving out
// placeholder sites and unknown VOs.
func (uc *UsageUseCase) CCStarHours(ctx context.Context) ([]entity.WindowUsage, error) {
	ccStar, err := CCStarFQDNs(ctx, uc.topologyRepo, "")
	if err != nil {
		return nil, err
	}

	filter := query.And(
		query.Term("ResourceType", "Batch"),
		query.Terms("OIM_FQDN", ccStar...),
		query.Not(query.Terms("SiteName", "NONE", "Generic", "Obsolete")),
		query.Not(query.Terms("VOName", "Unknown", "unknown", "other")),
	)

	windows := analysis.Windows(analysis.Midnight(uc.now()), uc.config.CCStarWindows)
	return uc.WindowedUsage(ctx, filter, windows, UsageOptions{})
}

// RunCCStarHours writes the CC* core-hours table, HTML by default.
func (uc *UsageUseCase) RunCCStarHours(ctx context.Context, args *types.CLIArgs) error {
	usage, err := uc.CCStarHours(ctx)
	if err != nil {
		return err
	}

	table := entity.Table{
		Title:   "OSG CPU Hours for CC*",
		Headers: windowHeaders(uc.config.CCStarWindows),
	}
	row := make([]string, 0, len(usage))
	for _, u := range usage {
		row = append(row, humanize.Comma(u.Hours()))
	}
	table.AddRow(row...)

	return uc.publisher.Publish(ctx, args, Report{Name: "ccstar_hours", Format: "html", Table: table})
}

// OSCFFacilities returns the facilities with at least MinOSCFCoreHours of
// Batch usage between the two dates, both inclusive.
func (uc *UsageUseCase) OSCFFacilities(ctx context.Context, period types.DateRange) ([]string, error) {
	search := query.NewSearch(uc.config.SummaryIndex).
		Filter(query.And(
			query.Range("EndTime").Gte(analysis.Midnight(period.Start)).Lte(analysis.EndOfDay(period.End)),
			query.Term("ResourceType", "Batch"),
		)).
		Agg("Facility", query.TermsAgg("OIM_Facility", 9999).
			Sub("CoreHours", query.SumAgg("CoreHours")))

	aggs, err := uc.graccRepo.Aggregate(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("aggregating facilities: %w", err)
	}

	set := map[string]struct{}{}
	for _, b := range aggs.Buckets("Facility") {
		if b.Value("CoreHours") >= MinOSCFCoreHours {
			set[b.KeyString()] = struct{}{}
		}
	}
	return entity.SortedKeys(set), nil
}

// RunOSCFFacilities writes the OSCF facility list.
func (uc *UsageUseCase) RunOSCFFacilities(ctx context.Context, args *types.CLIArgs, period types.DateRange) error {
	facilities, err := uc.OSCFFacilities(ctx, period)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%d OSCF %s for %s through %s:",
		len(facilities), facilityNoun(len(facilities)),
		period.Start.Format(analysis.DateLayout), period.End.Format(analysis.DateLayout))

	report := entity.FacilityListReport{Title: title, Facilities: facilities}
	return uc.publisher.Publish(ctx, args, Report{
		Name:   "oscf_facilities",
		Format: "text",
		Table:  facilityListTable(report),
		Doc:    report,
	})
}

func windowHeaders(days []int) []string {
	headers := make([]string, len(days))
	for i, d := range days {
		if d == 1 {
			headers[i] = "Last Day"
		} else {
			headers[i] = fmt.Sprintf("Last %d Days", d)
		}
	}
	return headers
}

func facilityNoun(n int) string {
	if n == 1 {
		return "Facility"
	}
	return "Facilities"
}

// facilityListTable renders a titled list: no headers, one name per row.
func facilityListTable(report entity.FacilityListReport) entity.Table {
	table := entity.Table{Title: report.Title}
	for _, f := range report.Facilities {
		table.AddRow(f)
	}
	return table
}
