package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/osg-htc/osg-reports/internal/application/usecase"
	"github.com/osg-htc/osg-reports/internal/shared/types"
	"github.com/osg-htc/osg-reports/pkg/version"
)

func (app *CLIApp) cpuHoursCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpu-hours",
		Short: "Dashboard core-hour panels over the last day, month and year (JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accepted(cmd)
			return app.services.Usage.RunCPUHours(cmd.Context(), app.args)
		},
	}
}

func (app *CLIApp) ccStarHoursCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ccstar-hours",
		Short: "Core-hours delivered by CC* resources (HTML table)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accepted(cmd)
			return app.services.Usage.RunCCStarHours(cmd.Context(), app.args)
		},
	}
}

func (app *CLIApp) oscfFacilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oscf-facilities START END",
		Short: "Facilities that delivered Batch core-hours between two dates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := parsePeriod(args[0], args[1])
			if err != nil {
				return err
			}
			accepted(cmd)
			return app.services.Usage.RunOSCFFacilities(cmd.Context(), app.args, period)
		},
	}
}

func (app *CLIApp) activeCampusesCmd() *cobra.Command {
	var (
		asCSV   bool
		groupBy string
	)
	cmd := &cobra.Command{
		Use:   "active-campuses START END",
		Short: "Facilities or organizations with Payload usage, flagged CC*",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := parsePeriod(args[0], args[1])
			if err != nil {
				return err
			}
			accepted(cmd)
			if asCSV && app.args.Format == "" {
				app.args.Format = "csv"
			}
			return app.services.Campus.RunActiveCampuses(cmd.Context(), app.args, period, groupBy)
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV (same as --format csv)")
	cmd.Flags().StringVar(&groupBy, "by", usecase.GroupByFacility, "Group by facility or organization")
	return cmd
}

func (app *CLIApp) ccStarFQDNsCmd() *cobra.Command {
	var (
		itb  bool
		host string
	)
	cmd := &cobra.Command{
		Use:   "ccstar-fqdns",
		Short: "FQDNs of CC*-tagged compute entry points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accepted(cmd)
			return app.services.Campus.RunCCStarFQDNs(cmd.Context(), app.args, itb, host)
		},
	}
	cmd.Flags().BoolVar(&itb, "itb", false, "Query the ITB topology registry")
	cmd.Flags().StringVar(&host, "host", "", "Query this topology host")
	cmd.MarkFlagsMutuallyExclusive("itb", "host")
	return cmd
}

func (app *CLIApp) osdfFacilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "osdf-facilities",
		Short: "Facilities running OSDF caches or origins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accepted(cmd)
			return app.services.Campus.RunOSDFFacilities(cmd.Context(), app.args)
		},
	}
}

func (app *CLIApp) originUsersCmd() *cobra.Command {
	var (
		endTime string
		months  int
		trend   bool
	)
	cmd := &cobra.Command{
		Use:   "origin-users",
		Short: "Active and new OSPool origin users of a month (JSON)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var end time.Time
			if endTime != "" {
				var err error
				if end, err = parseDate(endTime); err != nil {
					return err
				}
			}
			if months <= 0 {
				return fmt.Errorf("--months must be positive, got %d", months)
			}
			accepted(cmd)
			return app.services.Users.RunOriginUsers(cmd.Context(), app.args, end, months, trend)
		},
	}
	cmd.Flags().StringVar(&endTime, "endtime", "", "Date in the report month, YYYY-MM-DD (default: this month)")
	cmd.Flags().IntVar(&months, "months", usecase.DefaultLookbackMonths, "Months of history to compare against")
	cmd.Flags().BoolVar(&trend, "trend", false, "Show active users per month as bars")
	return cmd
}

func (app *CLIApp) waitTimeCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "waittime START END",
		Short: "Queue wait of the first jobs after more than two idle weeks (CSV)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := parsePeriod(args[0], args[1])
			if err != nil {
				return err
			}
			accepted(cmd)
			return app.services.WaitTime.RunWaitTime(cmd.Context(), app.args, mode, period)
		},
	}
	cmd.Flags().StringVar(&mode, "by", usecase.ByUser, "Identity to track: user or project")
	return cmd
}

// trackerFlags adds the --startdate/--enddate/--detailed flags shared by the
// period-based tracker reports.
func trackerFlags(cmd *cobra.Command, start, end *string, detailed *bool) {
	cmd.Flags().StringVar(start, "startdate", "", "First day of the period, YYYY-MM-DD")
	cmd.Flags().StringVar(end, "enddate", "", "Last day of the period, YYYY-MM-DD")
	cmd.Flags().BoolVar(detailed, "detailed", false, "List the issues behind the totals")
	_ = cmd.MarkFlagRequired("startdate")
	_ = cmd.MarkFlagRequired("enddate")
}

func (app *CLIApp) codeReviewsCmd() *cobra.Command {
	var (
		start, end string
		detailed   bool
	)
	cmd := &cobra.Command{
		Use:   "code-reviews",
		Short: "HTCONDOR issues completed in a period and their code review rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := parsePeriod(start, end)
			if err != nil {
				return err
			}
			accepted(cmd)
			return app.services.Tracker.RunCodeReviews(cmd.Context(), app.args, types.TrackerArgs{
				Period:   period,
				Detailed: detailed,
			})
		},
	}
	trackerFlags(cmd, &start, &end, &detailed)
	return cmd
}

func (app *CLIApp) effortCmd() *cobra.Command {
	var (
		start, end  string
		detailed    bool
		effortHours int
	)
	cmd := &cobra.Command{
		Use:   "effort",
		Short: "Hours the developer roster logged to HTCONDOR improvements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := parsePeriod(start, end)
			if err != nil {
				return err
			}
			accepted(cmd)
			return app.services.Tracker.RunEffort(cmd.Context(), app.args, types.TrackerArgs{
				Period:      period,
				Detailed:    detailed,
				EffortHours: effortHours,
			})
		},
	}
	trackerFlags(cmd, &start, &end, &detailed)
	cmd.Flags().IntVar(&effortHours, "efforthours", 0, "Total effort hours available in the period")
	_ = cmd.MarkFlagRequired("efforthours")
	return cmd
}

func (app *CLIApp) staleIssuesCmd() *cobra.Command {
	var (
		date     string
		detailed bool
	)
	cmd := &cobra.Command{
		Use:   "stale-issues",
		Short: "Open issues of the roster not updated in the last 10 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asOf := time.Now().UTC().Truncate(24 * time.Hour)
			if date != "" {
				var err error
				if asOf, err = parseDate(date); err != nil {
					return err
				}
			}
			accepted(cmd)
			return app.services.Tracker.RunStaleIssues(cmd.Context(), app.args, asOf, detailed)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Report date, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "List the issues behind the totals")
	return cmd
}

func (app *CLIApp) dueDateChangesCmd() *cobra.Command {
	var projects []string
	cmd := &cobra.Command{
		Use:   "duedate-changes",
		Short: "Due date history of every non-backlog issue (CSV)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accepted(cmd)
			return app.services.Tracker.RunDueDateChanges(cmd.Context(), app.args, projects)
		},
	}
	cmd.Flags().StringSliceVar(&projects, "projects", usecase.DefaultDueDateProjects, "Jira projects to report (comma-separated)")
	return cmd
}

func (app *CLIApp) versionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayWelcomeBanner(cmd.ErrOrStderr())
			fmt.Fprintf(cmd.OutOrStdout(), "osg-reports %s\n", version.FormatVersion())
			if check {
				checkLatestVersion(cmd.Context(), cmd.ErrOrStderr(), app.version)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}
