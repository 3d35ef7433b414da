package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/etl"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
)

var etlRefreshUsers bool

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Load the staging tables and populate the star schema",
	Long: `Bulk load the user activity logs and song metadata into the staging
tables, then populate the songplay fact table and the user, song, artist
and time dimensions.

The tables must have been created with 'create-tables' first. Without
--refresh-users, running etl twice against the same staging data fails on
the dim_users primary key; steps completed before a failure stay committed.

Example:
  pgedge-dwh etl --config dwh.yaml
  pgedge-dwh etl --dialect postgres --refresh-users`,
	RunE: runETL,
}

func init() {
	etlCmd.Flags().BoolVar(&etlRefreshUsers, "refresh-users", false,
		"truncate dim_users before inserting users")
}

func runETL(cmd *cobra.Command, args []string) error {
	if etlRefreshUsers {
		cfg.Transform.RefreshUsers = true
	}
	if err := cfg.ValidateETL(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, d, err := connectWarehouse(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	runner := pipeline.NewRunner(conn)
	defer runner.PrintSummary()

	logging.Info().
		Str("dialect", d.Name()).
		Str("events_credentials", cfg.Storage.EventsCredentials).
		Msg("Starting ETL")

	if err := etl.NewStageLoader(runner, d, *cfg).LoadStaging(ctx); err != nil {
		return interrupted(ctx.Err(), err)
	}
	if err := etl.NewTransformer(runner, cfg.Transform).Populate(ctx); err != nil {
		return interrupted(ctx.Err(), err)
	}

	logging.Info().Msg("ETL complete")
	return nil
}

// interrupted marks errors caused by a shutdown signal.
func interrupted(ctxErr, err error) error {
	if ctxErr != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}
