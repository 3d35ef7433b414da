//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package redshift implements the Amazon Redshift dialect: an identity
// column for the fact table and COPY-based staging loads from S3.
package redshift

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pgEdge/pgedge-dwh/internal/awsauth"
	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
)

const createSongplaySQL = `
CREATE TABLE IF NOT EXISTS fact_songplay (
    songplay_id bigint identity(0, 1) PRIMARY KEY NOT NULL,
    start_time  timestamp NOT NULL,
    user_id     int NOT NULL,
    level       varchar,
    song_id     varchar,
    artist_id   varchar,
    session_id  int,
    location    varchar,
    user_agent  varchar
)`

// Dialect implements warehouse.Dialect for Amazon Redshift.
type Dialect struct {
	// credentials resolves access keys when the events load is configured
	// to embed them.
	credentials func(ctx context.Context, region string) (aws.CredentialsProvider, error)
}

// New creates the Redshift dialect.
func New() *Dialect {
	return &Dialect{credentials: awsauth.DefaultProvider}
}

// Name returns the dialect name.
func (d *Dialect) Name() string {
	return "redshift"
}

// Description returns a human-readable description.
func (d *Dialect) Description() string {
	return "Amazon Redshift - COPY from S3 JSON, identity(0, 1) surrogate keys"
}

// SimpleProtocol reports that Redshift needs the simple query protocol.
func (d *Dialect) SimpleProtocol() bool {
	return true
}

// SongplayTableSQL returns the CREATE statement for fact_songplay.
func (d *Dialect) SongplayTableSQL() string {
	return createSongplaySQL
}

// StagingSteps returns the two COPY steps.
func (d *Dialect) StagingSteps(ctx context.Context, storage config.StorageConfig, role config.IAMRoleConfig) ([]pipeline.Step, error) {
	events, err := d.eventsCopy(ctx, storage, role)
	if err != nil {
		return nil, err
	}
	songs := songsCopy(storage, role)

	return []pipeline.Step{
		{
			Name:   "copy_" + warehouse.StagingEvents,
			Table:  warehouse.StagingEvents,
			SQL:    events,
			LogSQL: awsauth.Redact(events),
		},
		{
			Name:  "copy_" + warehouse.StagingSongs,
			Table: warehouse.StagingSongs,
			SQL:   songs,
		},
	}, nil
}

func init() {
	warehouse.Register(New())
}
