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

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// Transformer populates the fact and dimension tables from staging.
type Transformer struct {
	runner *pipeline.Runner
	cfg    config.TransformConfig
}

// NewTransformer creates a transformer.
func NewTransformer(runner *pipeline.Runner, cfg config.TransformConfig) *Transformer {
	return &Transformer{runner: runner, cfg: cfg}
}

// Steps returns the transform steps in execution order.
func (t *Transformer) Steps() []pipeline.Step {
	var steps []pipeline.Step
	for _, stmt := range warehouse.InsertStatements() {
		if stmt.Table == warehouse.DimUsers && t.cfg.RefreshUsers {
			steps = append(steps, warehouse.TruncateUsersStatement().Step())
		}
		steps = append(steps, stmt.Step())
	}
	return steps
}

// Populate runs the songplays, users, songs, artists and time inserts.
// Unless users are refreshed, running it twice over the same staging data
// fails on the dim_users primary key.
func (t *Transformer) Populate(ctx context.Context) error {
	logging.Info().
		Bool("refresh_users", t.cfg.RefreshUsers).
		Msg("Populating fact and dimension tables")
	return t.runner.Run(ctx, t.Steps())
}
