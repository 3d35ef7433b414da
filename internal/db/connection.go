// Package db provides database connection management for pgedge-dwh.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
)

// Options controls how the warehouse connection is configured.
type Options struct {
	// SimpleProtocol sends every statement with the simple query protocol.
	// Redshift does not support the extended protocol features pgx relies on
	// for statement caching.
	SimpleProtocol bool

	// ApplicationName is reported to the server when non-empty.
	ApplicationName string
}

// Connect opens the single connection used for a whole run. All statements
// of a run share it; each statement outside an explicit transaction is
// committed on its own.
func Connect(ctx context.Context, connString string, opts Options) (*pgx.Conn, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if opts.SimpleProtocol {
		config.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	if opts.ApplicationName != "" {
		config.RuntimeParams["application_name"] = opts.ApplicationName
	}

	logging.Debug().
		Str("host", config.Host).
		Uint16("port", config.Port).
		Str("database", config.Database).
		Str("user", config.User).
		Bool("simple_protocol", opts.SimpleProtocol).
		Msg("Connecting to database")

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("host", config.Host).
		Str("database", config.Database).
		Msg("Connected to database")

	return conn, nil
}
