package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/code-reviser/internal/config"
	"github.com/sevigo/code-reviser/internal/db"
	"github.com/sevigo/code-reviser/internal/logger"
	"github.com/sevigo/code-reviser/internal/storage"
)

var (
	outputJSON  bool
	statusPR    int
	statusLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status [owner/repo]",
	Short: "Shows recorded revision runs for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !cfg.Database.Enabled() {
			return fmt.Errorf("no database configured: set database.host to record and list revision runs")
		}
		log := logger.NewLogger(cfg.Logging, os.Stderr)

		conn, cleanup, err := db.NewDatabase(ctx, &cfg.Database, log)
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := storage.NewStore(conn.DB).ListRuns(ctx, args[0], statusPR, statusLimit)
		if err != nil {
			return fmt.Errorf("failed to retrieve revision runs: %w", err)
		}

		if outputJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(runs)
		}

		if len(runs) == 0 {
			slog.Info("no revision runs recorded", "repo", args[0])
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PR\tBRANCH\tSTATUS\tCOMMIT\tFILES\tWHEN")
		for _, run := range runs {
			fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%d\t%s\n",
				run.PRNumber,
				run.Branch,
				run.Status,
				shortSHA(run.CommitSHA),
				run.FilesApplied,
				run.CreatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "Output runs as JSON")
	statusCmd.Flags().IntVar(&statusPR, "pr", 0, "Only show runs for this pull request")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "Maximum number of runs to show")
	rootCmd.AddCommand(statusCmd)
}
