//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for integration testing.
//
// Tests use the server named by PGEDGE_DWH_TEST_CONN when it is set.
// Otherwise a disposable PostgreSQL container is started on first use and
// shared by every test in the package; call Main from TestMain so it is
// terminated afterwards.
package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pgEdge/pgedge-dwh/internal/config"
)

const (
	// ConnEnvVar names an existing server to test against.
	ConnEnvVar = "PGEDGE_DWH_TEST_CONN"

	// TestDBPrefix is the prefix for test databases.
	TestDBPrefix = "dwh_test_"

	postgresImage    = "postgres:16-alpine"
	postgresUser     = "postgres"
	postgresPassword = "postgres"
	postgresDB       = "postgres"
)

var (
	once      sync.Once
	container *postgres.PostgresContainer
	baseConn  string
	startErr  error
)

// Main runs the tests and terminates the shared container, if one was
// started. Use it as os.Exit(testutil.Main(m)).
func Main(m *testing.M) int {
	code := m.Run()
	if container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate postgres container: %v\n", err)
		}
	}
	return code
}

// BaseConnString returns a connection string for the maintenance database
// of the test server, starting a container when no server is configured.
func BaseConnString() (string, error) {
	once.Do(func() {
		if connStr := os.Getenv(ConnEnvVar); connStr != "" {
			baseConn = connStr
			return
		}
		baseConn, startErr = startContainer(context.Background())
	})
	return baseConn, startErr
}

func startContainer(ctx context.Context) (string, error) {
	ctr, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithUsername(postgresUser),
		postgres.WithPassword(postgresPassword),
		postgres.WithDatabase(postgresDB),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres: %w", err)
	}
	container = ctr

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("get connection string: %w", err)
	}
	return connStr, nil
}

// SkipIfNoPostgres skips the test if no PostgreSQL server can be reached
// or started.
func SkipIfNoPostgres(t *testing.T) string {
	t.Helper()

	connStr, err := BaseConnString()
	if err != nil {
		t.Skipf("PostgreSQL not available, skipping integration test: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		t.Skipf("PostgreSQL not available, skipping integration test: %v", err)
	}
	conn.Close(ctx)

	return connStr
}

// CreateTestDB creates a fresh database, drops it when the test ends and
// returns cluster settings pointing at it.
func CreateTestDB(t *testing.T, baseConnStr, name string) config.ClusterConfig {
	t.Helper()

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		t.Fatalf("Failed to generate random database name: %v", err)
	}
	dbName := TestDBPrefix + name + "_" + hex.EncodeToString(randomBytes)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { DropTestDB(t, baseConnStr, dbName) })

	base, err := pgx.ParseConfig(baseConnStr)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	cluster := config.ClusterConfig{
		Host:     base.Host,
		DBName:   dbName,
		User:     base.User,
		Password: base.Password,
		Port:     int(base.Port),
	}
	if base.TLSConfig == nil {
		cluster.SSLMode = "disable"
	}
	return cluster
}

// DropTestDB drops the test database.
func DropTestDB(t *testing.T, baseConnStr, dbName string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, baseConnStr)
	if err != nil {
		t.Logf("Warning: Failed to connect to drop test database: %v", err)
		return
	}
	defer conn.Close(ctx)

	// Terminate connections to the database
	_, _ = conn.Exec(ctx, `
        SELECT pg_terminate_backend(pid)
        FROM pg_stat_activity
        WHERE datname = $1 AND pid <> pg_backend_pid()
    `, dbName)

	if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Logf("Warning: Failed to drop test database: %v", err)
	}
}

// ConnectTestDB opens a connection to a test database and closes it when
// the test ends.
func ConnectTestDB(t *testing.T, cluster config.ClusterConfig) *pgx.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, cluster.ConnString())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { conn.Close(context.Background()) })

	return conn
}
