//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package postgres implements a PostgreSQL dialect of the warehouse for
// local runs and tests. Staging tables are bulk loaded from local JSON
// files with COPY FROM STDIN, applying the same load-time coercions as the
// Redshift COPY options.
package postgres

import (
	"context"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

const createSongplaySQL = `
CREATE TABLE IF NOT EXISTS fact_songplay (
    songplay_id bigint GENERATED BY DEFAULT AS IDENTITY
                (START WITH 0 MINVALUE 0) PRIMARY KEY NOT NULL,
    start_time  timestamp NOT NULL,
    user_id     int NOT NULL,
    level       varchar,
    song_id     varchar,
    artist_id   varchar,
    session_id  int,
    location    varchar,
    user_agent  varchar
)`

// Dialect implements warehouse.Dialect for PostgreSQL.
type Dialect struct{}

// New creates the PostgreSQL dialect.
func New() *Dialect {
	return &Dialect{}
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "postgres"
}

// Description returns a human-readable description.
func (d *Dialect) Description() string {
	return "PostgreSQL - COPY FROM STDIN of local JSON files, identity columns"
}

// SimpleProtocol reports that PostgreSQL supports the extended protocol.
func (d *Dialect) SimpleProtocol() bool {
	return false
}

// SongplayTableSQL returns the CREATE statement for fact_songplay.
func (d *Dialect) SongplayTableSQL() string {
	return createSongplaySQL
}

// StagingSteps returns the two bulk-load steps. Paths are resolved when the
// steps run; the IAM role is not used.
func (d *Dialect) StagingSteps(_ context.Context, storage config.StorageConfig, _ config.IAMRoleConfig) ([]pipeline.Step, error) {
	return []pipeline.Step{
		{
			Name:   "copy_" + warehouse.StagingEvents,
			Table:  warehouse.StagingEvents,
			LogSQL: "COPY staging_events FROM STDIN -- " + storage.LogData,
			Run: func(ctx context.Context, db pipeline.DB) (int64, error) {
				return loadEvents(ctx, db, storage.LogData, storage.LogJSONPath)
			},
		},
		{
			Name:   "copy_" + warehouse.StagingSongs,
			Table:  warehouse.StagingSongs,
			LogSQL: "COPY staging_songs FROM STDIN -- " + storage.SongData,
			Run: func(ctx context.Context, db pipeline.DB) (int64, error) {
				return loadSongs(ctx, db, storage.SongData)
			},
		},
	}, nil
}

func init() {
	warehouse.Register(New())
}
