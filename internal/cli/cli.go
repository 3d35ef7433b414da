//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-dwh.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/db"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
	"github.com/pgEdge/pgedge-dwh/pkg/version"
)

var (
	// Global flags
	cfgFile  string
	dialect  string
	logLevel string

	// Loaded once per process by initConfig and passed by value from here.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-dwh",
		Short: "Song-play data warehouse ETL",
		Long: `pgedge-dwh loads raw song metadata and user activity logs from object
storage into staging tables of a data warehouse, then transforms them into
a star schema: one songplay fact table and user, song, artist and time
dimensions.

Run 'create-tables' once to (re)create the schema, then 'etl' to load and
transform. Statements run one at a time over a single connection and each
is committed on its own.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-dwh.yaml)")
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "",
		"warehouse dialect (redshift, postgres)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createTablesCmd)
	rootCmd.AddCommand(etlCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(dialectsCmd)
}

func initConfig() error {
	// A .env file may supply PGEDGE_DWH_PASSWORD and AWS credentials.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if dialect != "" {
		cfg.Dialect = dialect
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogFormat != "json",
	})

	return nil
}

// connectWarehouse resolves the configured dialect and opens the single
// connection used for the whole command.
func connectWarehouse(ctx context.Context) (*pgx.Conn, warehouse.Dialect, error) {
	if err := cfg.ValidateCluster(); err != nil {
		return nil, nil, err
	}

	d, err := warehouse.Get(cfg.Dialect)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.Connect(ctx, cfg.Cluster.ConnString(), db.Options{
		SimpleProtocol:  d.SimpleProtocol(),
		ApplicationName: "pgedge-dwh/" + version.Short(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	return conn, d, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, which
// interrupts the statement in flight.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Warn().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var dialectsCmd = &cobra.Command{
	Use:   "dialects",
	Short: "List available warehouse dialects",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available dialects:")
		cmd.Println()
		for _, name := range warehouse.List() {
			d, err := warehouse.Get(name)
			if err != nil {
				continue
			}
			cmd.Printf("  %-10s - %s\n", name, d.Description())
		}
	},
}
