package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/etl"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
)

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Drop and recreate the warehouse tables",
	Long: `Drop all seven warehouse tables if they exist, then create the two
staging tables, the songplay fact table and the four dimension tables.

Data in the fact and dimension tables is lost.

Example:
  pgedge-dwh create-tables --config dwh.yaml`,
	RunE: runCreateTables,
}

func runCreateTables(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	conn, d, err := connectWarehouse(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	runner := pipeline.NewRunner(conn)
	defer runner.PrintSummary()

	schema := etl.NewSchemaManager(runner, d)
	if err := schema.DropAll(ctx); err != nil {
		return err
	}
	if err := schema.CreateAll(ctx); err != nil {
		return err
	}

	logging.Info().Str("dialect", d.Name()).Msg("Warehouse tables created")
	return nil
}
