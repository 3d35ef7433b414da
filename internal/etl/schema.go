//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package etl contains the three warehouse components: the schema manager,
// the stage loader and the transformer. Each builds an ordered list of
// steps and hands it to a pipeline.Runner bound to the single warehouse
// connection.
package etl

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-dwh/internal/db"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

// SchemaManager drops and creates the seven warehouse tables.
type SchemaManager struct {
	runner  *pipeline.Runner
	dialect warehouse.Dialect
}

// TableStatus describes one managed table.
type TableStatus struct {
	Name   string
	Exists bool
	Rows   int64
}

// NewSchemaManager creates a schema manager.
func NewSchemaManager(runner *pipeline.Runner, dialect warehouse.Dialect) *SchemaManager {
	return &SchemaManager{runner: runner, dialect: dialect}
}

// DropAll drops every managed table that exists. Missing tables are not an
// error.
func (m *SchemaManager) DropAll(ctx context.Context) error {
	logging.Info().Int("tables", len(warehouse.Tables)).Msg("Dropping tables")
	return m.runner.Run(ctx, warehouse.Steps(warehouse.DropStatements()))
}

// CreateAll creates the staging, fact and dimension tables. Staging tables
// must not exist yet; the others are left untouched when present.
func (m *SchemaManager) CreateAll(ctx context.Context) error {
	logging.Info().
		Str("dialect", m.dialect.Name()).
		Int("tables", len(warehouse.Tables)).
		Msg("Creating tables")
	return m.runner.Run(ctx, warehouse.Steps(warehouse.CreateStatements(m.dialect)))
}

// Tables reports whether each managed table exists and how many rows it
// holds, in creation order.
func (m *SchemaManager) Tables(ctx context.Context) ([]TableStatus, error) {
	conn := m.runner.DB()

	out := make([]TableStatus, 0, len(warehouse.Tables))
	for _, table := range warehouse.Tables {
		status := TableStatus{Name: table}

		exists, err := db.TableExists(ctx, conn, table)
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", table, err)
		}
		status.Exists = exists

		if exists {
			if status.Rows, err = db.CountRows(ctx, conn, table); err != nil {
				return nil, err
			}
		}
		out = append(out, status)
	}
	return out, nil
}
