package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"koala-diff/core/config"
	"koala-diff/core/database"
	"koala-diff/core/logger"
	"koala-diff/core/storage"
	"koala-diff/feature/compare"
	"koala-diff/feature/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var compareFlags struct {
	keyColumns    []string
	tolerances    []string
	duplicates    string
	paranoid      bool
	retainMatched bool
	budgetMB      int
	partitions    int
	workers       int
	htmlPath      string
	jsonOut       bool
}

// compareCmd runs one comparison from the command line.
var compareCmd = &cobra.Command{
	Use:   "compare <source> <target>",
	Short: "Compare two datasets by key",
	Long: `Compares two datasets and prints a summary of added, removed,
matched, modified and duplicate keys plus per-column drift metrics.

Datasets are referenced by path (.csv, .json, .ndjson, .parquet),
s3://bucket/key, or table:name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		logg, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console"})
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer logg.Sync()

		tolerances, err := parseTolerances(compareFlags.tolerances)
		if err != nil {
			return err
		}

		// Backends are only dialed when a reference needs them.
		var db *gorm.DB
		if hasPrefix(args, "table:") {
			if db, err = database.Connect(cfg.Database); err != nil {
				return fmt.Errorf("connecting database: %w", err)
			}
		}
		var store storage.Client
		if hasPrefix(args, "s3://") {
			if store, err = storage.NewClient(cfg.Storage); err != nil {
				return fmt.Errorf("creating storage client: %w", err)
			}
		}

		svc := compare.NewService(cfg.Diff, db, store, logg)
		rep, err := svc.Run(cmd.Context(), compare.Request{
			Source:          args[0],
			Target:          args[1],
			KeyColumns:      compareFlags.keyColumns,
			Tolerances:      tolerances,
			DuplicatePolicy: compareFlags.duplicates,
			Paranoid:        compareFlags.paranoid,
			RetainMatched:   compareFlags.retainMatched,
			MemoryBudgetMB:  compareFlags.budgetMB,
			Partitions:      compareFlags.partitions,
			Workers:         compareFlags.workers,
		})
		if err != nil {
			return err
		}

		if compareFlags.htmlPath != "" {
			f, err := os.Create(compareFlags.htmlPath)
			if err != nil {
				return fmt.Errorf("creating html report: %w", err)
			}
			defer f.Close()
			if err := report.WriteHTML(f, rep); err != nil {
				return fmt.Errorf("writing html report: %w", err)
			}
			logg.Info("Wrote HTML report", zap.String("path", compareFlags.htmlPath))
		}

		if compareFlags.jsonOut {
			return report.WriteJSON(cmd.OutOrStdout(), rep)
		}
		return report.WriteText(cmd.OutOrStdout(), rep)
	},
}

// parseTolerances parses repeated column=epsilon flags.
func parseTolerances(entries []string) (map[string]float64, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(entries))
	for _, entry := range entries {
		column, raw, ok := strings.Cut(entry, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid tolerance %q, want column=epsilon", entry)
		}
		eps, err := strconv.ParseFloat(raw, 64)
		if err != nil || eps < 0 {
			return nil, fmt.Errorf("invalid tolerance %q, want column=epsilon", entry)
		}
		out[column] = eps
	}
	return out, nil
}

func hasPrefix(refs []string, prefix string) bool {
	for _, ref := range refs {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return false
}

func init() {
	compareCmd.Flags().StringSliceVar(&compareFlags.keyColumns, "key", nil, "key column names (repeatable or comma separated)")
	compareCmd.Flags().StringSliceVar(&compareFlags.tolerances, "tolerance", nil, "numeric tolerance as column=epsilon (repeatable)")
	compareCmd.Flags().StringVar(&compareFlags.duplicates, "duplicates", "", "duplicate key policy: ordinal or unresolved")
	compareCmd.Flags().BoolVar(&compareFlags.paranoid, "paranoid", false, "verify hash-equal rows value by value")
	compareCmd.Flags().BoolVar(&compareFlags.retainMatched, "retain-matched", false, "keep matched records in the report")
	compareCmd.Flags().IntVar(&compareFlags.budgetMB, "budget", 0, "memory budget in MiB (overrides config)")
	compareCmd.Flags().IntVar(&compareFlags.partitions, "partitions", 0, "partition fanout, power of two (overrides config)")
	compareCmd.Flags().IntVar(&compareFlags.workers, "workers", 0, "concurrent partition workers (overrides config)")
	compareCmd.Flags().StringVar(&compareFlags.htmlPath, "html", "", "write an HTML report to this path")
	compareCmd.Flags().BoolVar(&compareFlags.jsonOut, "json", false, "print the JSON report instead of the text summary")

	RootCmd.AddCommand(compareCmd)
}
