package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/osg-htc/osg-reports/internal/shared/types"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "OSG_REPORTS"

// envBindings maps config keys to environment variable names. An empty name
// means the default <EnvPrefix>_<KEY>.
var envBindings = map[string]string{
	"gracc_url":       "",
	"summary_index":   "",
	"raw_index":       "",
	"transfer_index":  "",
	"topology_url":    "",
	"jira_url":        "",
	"jira_user":       "",
	"jira_token":      "",
	"timeout_seconds": EnvPrefix + "_TIMEOUT",
	"developers":      "",
	"aws_profile":     "",
}

// ApplyEnvironment overlays the OSG_REPORTS_* variables on cfg. Lists are
// comma separated.
func (r *ConfigRepositoryImpl) ApplyEnvironment(cfg *types.Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	for key, name := range envBindings {
		var err error
		if name == "" {
			err = v.BindEnv(key)
		} else {
			err = v.BindEnv(key, name)
		}
		if err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var env types.Config
	if err := v.Unmarshal(&env); err != nil {
		return fmt.Errorf("failed to parse environment config: %w", err)
	}
	cfg.Merge(&env)
	return nil
}
