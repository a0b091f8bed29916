package repository

import (
	"context"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// TopologyFilter selects which resource groups the registry returns.
type TopologyFilter struct {
	// ActiveOnly keeps only active, enabled resources.
	ActiveOnly bool
	// ComputeEntryPoints keeps only grid compute element services.
	ComputeEntryPoints bool
	// BaseURL overrides the configured registry, e.g. the ITB instance.
	BaseURL string
}

// TopologyRepository defines the interface for the resource registry.
type TopologyRepository interface {
	GetResourceGroups(ctx context.Context, filter TopologyFilter) ([]entity.ResourceGroup, error)
}
