package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/osg-htc/osg-reports/internal/application/usecase"
	"github.com/osg-htc/osg-reports/internal/domain/repository"
	"github.com/osg-htc/osg-reports/internal/shared/types"
	"github.com/osg-htc/osg-reports/pkg/version"
)

// Services bundles the use cases the subcommands run.
type Services struct {
	Usage    *usecase.UsageUseCase
	Campus   *usecase.CampusUseCase
	Users    *usecase.OriginUsersUseCase
	WaitTime *usecase.WaitTimeUseCase
	Tracker  *usecase.TrackerUseCase
}

// ServiceFactory builds the use cases once flags and configuration are resolved.
type ServiceFactory func(ctx context.Context, cfg *types.Config, args *types.CLIArgs) (*Services, error)

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd    *cobra.Command
	configRepo repository.ConfigRepository
	factory    ServiceFactory
	version    string

	args     *types.CLIArgs
	config   *types.Config
	services *Services
}

// NewCLIApp creates the CLI application.
func NewCLIApp(versionStr string, configRepo repository.ConfigRepository, factory ServiceFactory) *CLIApp {
	app := &CLIApp{
		version:    versionStr,
		configRepo: configRepo,
		factory:    factory,
	}

	rootCmd := &cobra.Command{
		Use:           "osg-reports",
		Short:         "OSG accounting, topology and issue tracker reports",
		Version:       version.FormatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.prepare(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "osg-reports version: %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	flags.String("gracc-url", "", "GRACC search endpoint (default from config)")
	flags.String("topology-url", "", "Topology registry base URL (default from config)")
	flags.String("jira-url", "", "Jira base URL (default from config)")
	flags.Int("timeout", 0, "Backend timeout in seconds (default 300)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	flags.Bool("no-color", false, "Disable colored output")
	flags.StringP("output", "o", "", "Write the report to this file instead of stdout")
	flags.StringP("format", "f", "", "Output format: text, csv, json, html, pdf")
	flags.StringP("report-name", "n", "", "Base name for timestamped report files (without extension)")
	flags.StringSliceP("report-type", "y", nil, "Report file types: text, csv, json, html, pdf")
	flags.StringP("dir", "d", "", "Directory to save the report files (default: current directory)")
	flags.String("upload", "", "Upload exported report files to s3://bucket/prefix")
	flags.String("aws-profile", "", "AWS shared config profile used for --upload")

	rootCmd.AddCommand(
		app.cpuHoursCmd(),
		app.ccStarHoursCmd(),
		app.oscfFacilitiesCmd(),
		app.activeCampusesCmd(),
		app.ccStarFQDNsCmd(),
		app.osdfFacilitiesCmd(),
		app.originUsersCmd(),
		app.waitTimeCmd(),
		app.codeReviewsCmd(),
		app.effortCmd(),
		app.staleIssuesCmd(),
		app.dueDateChangesCmd(),
		app.versionCmd(),
	)

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.ExecuteContext(context.Background())
}

// ExecuteContext runs the CLI application with ctx, which carries the logger.
// Argument errors are followed by the failing command's usage on stderr.
func (app *CLIApp) ExecuteContext(ctx context.Context) error {
	for _, sub := range app.rootCmd.Commands() {
		sub.SilenceUsage = false
	}
	cmd, err := app.rootCmd.ExecuteContextC(ctx)
	if err != nil && !cmd.SilenceUsage {
		cmd.PrintErrln(cmd.UsageString())
	}
	return err
}

// accepted marks the arguments of cmd as valid: failures from here on are
// run errors and print no usage.
func accepted(cmd *cobra.Command) {
	cmd.SilenceUsage = true
}

// SetArgs overrides os.Args, for tests.
func (app *CLIApp) SetArgs(args []string) {
	app.rootCmd.SetArgs(args)
}

// prepare resolves flags and configuration and builds the use cases. The
// version command needs neither.
func (app *CLIApp) prepare(cmd *cobra.Command) error {
	args, err := app.parseArgs(cmd)
	if err != nil {
		return err
	}
	app.args = args

	if args.NoColor {
		color.NoColor = true
		pterm.DisableColor()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if args.Verbose {
		logger := zerolog.Ctx(ctx).Level(zerolog.DebugLevel)
		ctx = logger.WithContext(ctx)
	}
	cmd.SetContext(ctx)

	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := app.resolveConfig(cmd, args)
	if err != nil {
		accepted(cmd)
		return err
	}
	app.config = cfg

	services, err := app.factory(ctx, cfg, args)
	if err != nil {
		accepted(cmd)
		return err
	}
	app.services = services
	return nil
}

// parseArgs parses the global flags into a CLIArgs struct.
func (app *CLIApp) parseArgs(cmd *cobra.Command) (*types.CLIArgs, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config-file")
	graccURL, _ := flags.GetString("gracc-url")
	topologyURL, _ := flags.GetString("topology-url")
	jiraURL, _ := flags.GetString("jira-url")
	timeout, _ := flags.GetInt("timeout")
	verbose, _ := flags.GetBool("verbose")
	noColor, _ := flags.GetBool("no-color")
	output, _ := flags.GetString("output")
	format, _ := flags.GetString("format")
	reportName, _ := flags.GetString("report-name")
	reportType, _ := flags.GetStringSlice("report-type")
	dir, _ := flags.GetString("dir")
	upload, _ := flags.GetString("upload")
	awsProfile, _ := flags.GetString("aws-profile")

	if reportName != "" {
		// Set default directory to current working directory if not specified
		if dir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			dir = cwd
		} else {
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return nil, err
			}
			dir = absDir
		}
	}

	if timeout < 0 {
		return nil, fmt.Errorf("--timeout must be positive, got %d", timeout)
	}
	if upload != "" && reportName == "" {
		return nil, fmt.Errorf("--upload requires --report-name")
	}

	return &types.CLIArgs{
		ConfigFile:  configFile,
		GraccURL:    graccURL,
		TopologyURL: topologyURL,
		JiraURL:     jiraURL,
		Timeout:     timeout,
		Verbose:     verbose,
		NoColor:     noColor,
		Output:      output,
		Format:      format,
		ReportName:  reportName,
		ReportType:  reportType,
		Dir:         dir,
		Upload:      upload,
		AWSProfile:  awsProfile,
	}, nil
}

// resolveConfig layers defaults, the config file, the environment and the
// command-line flags, later layers winning.
func (app *CLIApp) resolveConfig(cmd *cobra.Command, args *types.CLIArgs) (*types.Config, error) {
	cfg := types.DefaultConfig()

	if args.ConfigFile != "" {
		fileCfg, err := app.configRepo.LoadConfigFile(args.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
		zerolog.Ctx(cmd.Context()).Debug().Str("file", args.ConfigFile).Msg("config file loaded")
	}

	if err := app.configRepo.ApplyEnvironment(cfg); err != nil {
		return nil, err
	}

	cfg.Merge(&types.Config{
		GraccURL:       args.GraccURL,
		TopologyURL:    args.TopologyURL,
		JiraURL:        args.JiraURL,
		TimeoutSeconds: args.Timeout,
		AWSProfile:     args.AWSProfile,
	})
	return cfg, nil
}
