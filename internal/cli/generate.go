package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/datagen"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
)

var (
	genOutDir string
	genSongs  int
	genUsers  int
	genEvents int
	genSeed   uint64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic song and event dataset",
	Long: `Write synthetic song metadata, user activity logs and the events
jsonpaths file to a local directory, laid out like the raw datasets:

  <out>/song_data/A/B/C/TRABC....json
  <out>/log_data/2018/11/2018-11-01-events.json
  <out>/log_json_path.json

The postgres dialect can load the result directly.

Example:
  pgedge-dwh generate --out ./data --songs 500 --events 10000 --seed 7`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genOutDir, "out", "",
		"output directory (default: ./data)")
	generateCmd.Flags().IntVar(&genSongs, "songs", 0,
		"number of songs")
	generateCmd.Flags().IntVar(&genUsers, "users", 0,
		"number of users")
	generateCmd.Flags().IntVar(&genEvents, "events", 0,
		"number of events")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0,
		"random seed for a reproducible dataset (0 = random)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if genOutDir != "" {
		cfg.Generate.OutDir = genOutDir
	}
	if genSongs > 0 {
		cfg.Generate.Songs = genSongs
	}
	if genUsers > 0 {
		cfg.Generate.Users = genUsers
	}
	if genEvents > 0 {
		cfg.Generate.Events = genEvents
	}
	if genSeed > 0 {
		cfg.Generate.Seed = genSeed
	}

	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}

	ds, err := datagen.Generate(datagen.Options{
		Songs:  cfg.Generate.Songs,
		Users:  cfg.Generate.Users,
		Events: cfg.Generate.Events,
		Seed:   cfg.Generate.Seed,
	})
	if err != nil {
		return err
	}

	res, err := ds.Write(cfg.Generate.OutDir)
	if err != nil {
		return err
	}

	st := ds.Stats()
	logging.Info().
		Str("out_dir", cfg.Generate.OutDir).
		Int("songs", st.Songs).
		Int("artists", st.Artists).
		Int("events", st.Events).
		Int("plays", st.Plays).
		Int("matched_plays", st.MatchedPlays).
		Int("log_files", res.LogFiles).
		Str("size", datagen.FormatSize(res.Bytes)).
		Msg("Dataset written")

	cmd.Println("Set these storage paths to load the dataset with --dialect postgres:")
	cmd.Printf("  log_data:      %s\n", res.Paths.LogData)
	cmd.Printf("  log_json_path: %s\n", res.Paths.LogJSONPath)
	cmd.Printf("  song_data:     %s\n", res.Paths.SongData)
	return nil
}
