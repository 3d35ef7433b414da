//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package etl

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// StageLoader bulk loads the raw datasets into the staging tables.
type StageLoader struct {
	runner  *pipeline.Runner
	dialect warehouse.Dialect
	storage config.StorageConfig
	role    config.IAMRoleConfig
}

// NewStageLoader creates a stage loader. The staging tables are expected
// to exist and be empty, which create-tables guarantees.
func NewStageLoader(runner *pipeline.Runner, dialect warehouse.Dialect, cfg config.Config) *StageLoader {
	return &StageLoader{
		runner:  runner,
		dialect: dialect,
		storage: cfg.Storage,
		role:    cfg.IAMRole,
	}
}

// LoadStaging loads staging_events and then staging_songs. A failed events
// load stops before songs are attempted.
func (l *StageLoader) LoadStaging(ctx context.Context) error {
	steps, err := l.dialect.StagingSteps(ctx, l.storage, l.role)
	if err != nil {
		return fmt.Errorf("failed to prepare staging loads: %w", err)
	}
	if len(steps) != 2 {
		return fmt.Errorf("dialect %s returned %d staging steps, expected 2",
			l.dialect.Name(), len(steps))
	}

	logging.Info().
		Str("log_data", l.storage.LogData).
		Str("song_data", l.storage.SongData).
		Msg("Loading staging tables")

	return l.runner.Run(ctx, steps)
}
