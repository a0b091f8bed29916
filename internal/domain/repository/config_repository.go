package repository

import (
	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// ConfigRepository defines the interface for loading configuration.
type ConfigRepository interface {
	LoadConfigFile(filePath string) (*types.Config, error)
	// ApplyEnvironment overlays OSG_REPORTS_* environment variables on cfg.
	ApplyEnvironment(cfg *types.Config) error
}
