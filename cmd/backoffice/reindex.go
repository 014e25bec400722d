package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"backoffice/internal/http/handlers"
	"backoffice/internal/metrics"
	"backoffice/internal/repos"
	"backoffice/internal/search"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild every product document in the search index from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
			cfg.Index.ResyncWorkers = w
		}
		db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, false)
		if err != nil {
			return err
		}
		defer db.Close()

		m := metrics.New()
		idx, closeIdx, err := search.FromConfig(cmd.Context(), cfg.Index, m)
		if err != nil {
			return err
		}
		defer closeIdx()

		deps := handlers.NewDeps(db, idx, cfg.Index, m)
		rep, err := deps.Sync.Resync(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}

func init() {
	reindexCmd.Flags().Int("workers", 0, "concurrent index writers (default RESYNC_WORKERS)")
}
