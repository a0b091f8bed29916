package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/domain/analysis"
	"github.com/osg-htc/osg-reports/internal/domain/entity"
	"github.com/osg-htc/osg-reports/internal/domain/query"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// Grouping fields of the active campuses report.
const (
	GroupByFacility     = "facility"
	GroupByOrganization = "organization"
)

// OrganizationCaveat is shown with organization-grouped reports.
const OrganizationCaveat = "Project Organizations do not necessarily match Topology Facilities; " +
	"the CC* column may contain false negatives."

// CCStarFQDNs lists the sorted, unique FQDNs of CC*-tagged compute entry
// points. baseURL selects another registry instance; empty uses the default.
func CCStarFQDNs(ctx context.Context, topologyRepo repository.TopologyRepository, baseURL string) ([]string, error) {
	groups, err := topologyRepo.GetResourceGroups(ctx, repository.TopologyFilter{
		ComputeEntryPoints: true,
		BaseURL:            baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching compute entry points: %w", err)
	}

	fqdns := map[string]struct{}{}
	for _, g := range groups {
		for _, r := range g.Resources {
			if r.HasTag(entity.CCStarTag) && r.FQDN != "" {
				fqdns[r.FQDN] = struct{}{}
			}
		}
	}
	return entity.SortedKeys(fqdns), nil
}

// CampusUseCase handles the reports that classify facilities using the
// resource registry.
type CampusUseCase struct {
	graccRepo    repository.GraccRepository
	topologyRepo repository.TopologyRepository
	publisher    *Publisher
	config       *types.Config
	console      types.ConsoleInterface
}

// NewCampusUseCase creates a new campus use case.
func NewCampusUseCase(
	graccRepo repository.GraccRepository,
	topologyRepo repository.TopologyRepository,
	publisher *Publisher,
	config *types.Config,
	console types.ConsoleInterface,
) *CampusUseCase {
	return &CampusUseCase{
		graccRepo:    graccRepo,
		topologyRepo: topologyRepo,
		publisher:    publisher,
		config:       config,
		console:      console,
	}
}

// RunCCStarFQDNs prints the CC* FQDNs of the production registry, the ITB
// registry, or the given host.
func (uc *CampusUseCase) RunCCStarFQDNs(ctx context.Context, args *types.CLIArgs, itb bool, host string) error {
	baseURL := ""
	switch {
	case host != "":
		baseURL = host
	case itb:
		baseURL = uc.config.TopologyITBURL
	}

	fqdns, err := CCStarFQDNs(ctx, uc.topologyRepo, baseURL)
	if err != nil {
		return err
	}

	if outputFormat(args, "text") == "text" && args.Output == "" && args.ReportName == "" {
		// Bare lines so the list can be piped.
		return uc.publisher.PrintLines(fqdns)
	}

	table := entity.Table{Headers: []string{"FQDN"}}
	for _, f := range fqdns {
		table.AddRow(f)
	}
	return uc.publisher.Publish(ctx, args, Report{Name: "ccstar_fqdns", Format: "text", Table: table, Doc: fqdns})
}

// OSDFFacilities returns the sorted facilities of active resource groups
// that run a data federation cache or origin.
func (uc *CampusUseCase) OSDFFacilities(ctx context.Context) ([]string, error) {
	groups, err := uc.topologyRepo.GetResourceGroups(ctx, repository.TopologyFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("fetching resource groups: %w", err)
	}

	set := map[string]struct{}{}
	for _, g := range groups {
		if g.Facility != "" && g.HasServiceType(entity.OSDFServiceTypes...) {
			set[g.Facility] = struct{}{}
		}
	}
	return entity.SortedKeys(set), nil
}

// RunOSDFFacilities writes the OSDF facility list.
func (uc *CampusUseCase) RunOSDFFacilities(ctx context.Context, args *types.CLIArgs) error {
	facilities, err := uc.OSDFFacilities(ctx)
	if err != nil {
		return err
	}

	report := entity.FacilityListReport{
		Title:      fmt.Sprintf("%d OSDF %s:", len(facilities), facilityNoun(len(facilities))),
		Facilities: facilities,
	}
	return uc.publisher.Publish(ctx, args, Report{
		Name:   "osdf_facilities",
		Format: "text",
		Table:  facilityListTable(report),
		Doc:    report,
	})
}

// CCStarFacilities returns the facilities of active resource groups with a
// CC*-tagged resource.
func (uc *CampusUseCase) CCStarFacilities(ctx context.Context) (map[string]struct{}, error) {
	groups, err := uc.topologyRepo.GetResourceGroups(ctx, repository.TopologyFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("fetching resource groups: %w", err)
	}

	set := map[string]struct{}{}
	for _, g := range groups {
		if g.IsCCStar() {
			set[g.Facility] = struct{}{}
		}
	}
	return set, nil
}

// ActiveCampuses lists the facilities (or organizations) with Payload usage
// in the period, flagged when topology marks them CC*. Organizations are
// matched against facility names as they are; the mismatch is reported in
// the caveat rather than corrected.
func (uc *CampusUseCase) ActiveCampuses(ctx context.Context, period types.DateRange, groupBy string) (entity.ActiveCampusReport, error) {
	field := "OIM_Facility"
	switch groupBy {
	case "", GroupByFacility:
		groupBy = GroupByFacility
	case GroupByOrganization:
		field = "OIM_Organization"
	default:
		return entity.ActiveCampusReport{}, fmt.Errorf("unknown grouping %q, expected facility or organization", groupBy)
	}

	start := analysis.Midnight(period.Start)
	end := analysis.EndOfDay(period.End)

	search := query.NewSearch(uc.config.SummaryIndex).
		Filter(query.And(
			query.Range("EndTime").Gte(start).Lt(end),
			query.Term("ResourceType", "Payload"),
		)).
		Agg("Group", query.TermsAgg(field, query.MaxBuckets))

	aggs, err := uc.graccRepo.Aggregate(ctx, search)
	if err != nil {
		return entity.ActiveCampusReport{}, fmt.Errorf("aggregating %s: %w", field, err)
	}

	ccStar, err := uc.CCStarFacilities(ctx)
	if err != nil {
		return entity.ActiveCampusReport{}, err
	}

	active := map[string]struct{}{}
	for _, b := range aggs.Buckets("Group") {
		active[b.KeyString()] = struct{}{}
	}

	report := entity.ActiveCampusReport{
		Start:      start,
		End:        end,
		GroupBy:    groupBy,
		Facilities: []entity.FacilityUsage{},
	}
	for _, name := range entity.SortedKeys(active) {
		_, isCCStar := ccStar[name]
		report.Facilities = append(report.Facilities, entity.FacilityUsage{Name: name, CCStar: isCCStar})
	}
	if groupBy == GroupByOrganization {
		report.Caveat = OrganizationCaveat
	}

	zerolog.Ctx(ctx).Debug().
		Int("active", len(active)).
		Int("ccstar", len(ccStar)).
		Str("group_by", groupBy).
		Msg("active campuses")

	return report, nil
}

// RunActiveCampuses writes the active campuses report. CSV output uses
// True/False for the CC* flag; other formats mark CC* rows with "yes".
func (uc *CampusUseCase) RunActiveCampuses(
	ctx context.Context,
	args *types.CLIArgs,
	period types.DateRange,
	groupBy string,
) error {
	report, err := uc.ActiveCampuses(ctx, period, groupBy)
	if err != nil {
		return err
	}
	if report.Caveat != "" {
		uc.console.LogWarning("%s", report.Caveat)
	}

	csv := outputFormat(args, "text") == "csv"
	table := entity.Table{
		Headers: []string{"CC*", strings.ToUpper(report.GroupBy[:1]) + report.GroupBy[1:]},
	}
	for _, f := range report.Facilities {
		table.AddRow(ccStarFlag(f.CCStar, csv), f.Name)
	}

	return uc.publisher.Publish(ctx, args, Report{
		Name:   "active_campuses",
		Format: "text",
		Table:  table,
		Doc:    report,
	})
}

func ccStarFlag(ccStar, csv bool) string {
	switch {
	case csv && ccStar:
		return "True"
	case csv:
		return "False"
	case ccStar:
		return "yes"
	default:
		return ""
	}
}
