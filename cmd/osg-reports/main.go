package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/osg-htc/osg-reports/internal/adapter/driven/config"
	"github.com/osg-htc/osg-reports/internal/adapter/driven/export"
	"github.com/osg-htc/osg-reports/internal/adapter/driven/gracc"
	"github.com/osg-htc/osg-reports/internal/adapter/driven/jira"
	"github.com/osg-htc/osg-reports/internal/adapter/driven/storage"
	"github.com/osg-htc/osg-reports/internal/adapter/driven/topology"
	"github.com/osg-htc/osg-reports/internal/adapter/driving/cli"
	"github.com/osg-htc/osg-reports/internal/application/usecase"
	"github.com/osg-htc/osg-reports/internal/shared/types"
	"github.com/osg-htc/osg-reports/pkg/console"
	"github.com/osg-htc/osg-reports/pkg/version"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	app := cli.NewCLIApp(version.Version, config.NewConfigRepository(), buildServices)

	if err := app.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildServices wires the repositories for the resolved configuration into
// the use cases.
func buildServices(_ context.Context, cfg *types.Config, _ *types.CLIArgs) (*cli.Services, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	graccRepo, err := gracc.NewGraccRepository(cfg.GraccURL, timeout)
	if err != nil {
		return nil, err
	}
	topologyRepo := topology.NewTopologyRepository(cfg.TopologyURL, timeout)
	trackerRepo, err := jira.NewJiraRepository(cfg.JiraURL, cfg.JiraUser, cfg.JiraToken, timeout)
	if err != nil {
		return nil, err
	}

	consoleImpl := console.NewConsole()
	publisher := usecase.NewPublisher(
		export.NewExportRepository(),
		storage.NewS3Repository(cfg.AWSProfile),
		consoleImpl,
		os.Stdout,
	)

	return &cli.Services{
		Usage:    usecase.NewUsageUseCase(graccRepo, topologyRepo, publisher, cfg, consoleImpl),
		Campus:   usecase.NewCampusUseCase(graccRepo, topologyRepo, publisher, cfg, consoleImpl),
		Users:    usecase.NewOriginUsersUseCase(graccRepo, publisher, cfg, consoleImpl),
		WaitTime: usecase.NewWaitTimeUseCase(graccRepo, publisher, cfg, consoleImpl),
		Tracker:  usecase.NewTrackerUseCase(trackerRepo, publisher, cfg, consoleImpl),
	}, nil
}
