package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/etl"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the row count of each warehouse table",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	conn, d, err := connectWarehouse(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	tables, err := etl.NewSchemaManager(pipeline.NewRunner(conn), d).Tables(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("%-16s %12s\n", "TABLE", "ROWS")
	for _, t := range tables {
		if !t.Exists {
			cmd.Printf("%-16s %12s\n", t.Name, "missing")
			continue
		}
		cmd.Printf("%-16s %12d\n", t.Name, t.Rows)
	}
	return nil
}
