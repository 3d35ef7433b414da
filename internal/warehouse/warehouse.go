// Package warehouse defines the star schema, the transform SQL and the
// dialect interface implemented by each supported warehouse.
package warehouse

import (
	"context"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
)

// Dialect defines what differs between warehouses: the identity column
// syntax of the fact table and how raw datasets reach the staging tables.
type Dialect interface {
	// Name returns the dialect name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// SimpleProtocol reports whether statements must use the simple query
	// protocol.
	SimpleProtocol() bool

	// SongplayTableSQL returns the CREATE statement for fact_songplay.
	SongplayTableSQL() string

	// StagingSteps returns exactly two bulk-load steps, staging_events
	// first and staging_songs second.
	StagingSteps(ctx context.Context, storage config.StorageConfig, role config.IAMRoleConfig) ([]pipeline.Step, error)
}
