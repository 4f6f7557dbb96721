package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smith-pharmacy/catalog-enrich/internal/fetcher"
	"github.com/smith-pharmacy/catalog-enrich/internal/pipeline"
	"github.com/smith-pharmacy/catalog-enrich/internal/recordio"
)

var (
	enrichInput     string
	enrichKeyCol    string
	enrichOutput    string
	enrichOutDir    string
	enrichBatchSize int
	enrichRetries   int
	enrichDelayMS   int
	enrichLimit     int
	enrichResume    bool
	enrichSources   string
	enrichDryRun    bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a catalog export with product image URLs",
	Long: `Reads a CSV or XLSX catalog export, looks up an image URL for each row's
barcode across the configured sources, and writes the input columns plus
image_url, image_title, and image_source to the output file.

Progress is committed in batches with a checkpoint, so an interrupted run
continues where it stopped:

  # Fresh run
  catalog-enrich enrich --input products.csv

  # Continue after an interruption
  catalog-enrich enrich --input products.csv --resume

  # Remote input, smaller commits
  catalog-enrich enrich --input https://feeds.example.com/products.csv --batch-size 10`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		local, cleanup, err := fetcher.Localize(ctx, enrichInput, fetcher.HTTPOptions{
			UserAgent:  cfg.Sources.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})
		if err != nil {
			return eris.Wrap(err, "enrich: localize input")
		}
		defer cleanup()

		table, err := recordio.ReadTable(local)
		if err != nil {
			return eris.Wrap(err, "enrich: read input")
		}
		zap.L().Info("enrich: input loaded",
			zap.String("input", enrichInput),
			zap.Int("rows", len(table.Rows)),
			zap.Strings("columns", table.Columns),
		)

		keyCol := enrichKeyCol
		if keyCol == "" {
			keyCol = cfg.Enrich.KeyColumn
		}
		output, ckpt := derivePaths(enrichInput, enrichOutput, enrichOutDir)

		if enrichDryRun {
			fmt.Printf("input:      %s (%d rows)\n", enrichInput, len(table.Rows))
			fmt.Printf("key column: %s (present: %v)\n", keyCol, table.HasColumn(keyCol))
			fmt.Printf("output:     %s\n", output)
			fmt.Printf("checkpoint: %s\n", ckpt)
			return nil
		}

		chain, err := buildChain(chainOverrides{
			catalogPath: enrichSources,
			attempts:    enrichRetries,
			delayMS:     enrichDelayMS,
		})
		if err != nil {
			return eris.Wrap(err, "enrich: build sources")
		}
		zap.L().Info("enrich: sources ready", zap.Any("priority", chain.Sources()))

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "enrich: open store")
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, enrichInput, output, keyCol)
		if err != nil {
			return eris.Wrap(err, "enrich: record run")
		}

		batchSize := enrichBatchSize
		if batchSize <= 0 {
			batchSize = cfg.Enrich.BatchSize
		}

		p := pipeline.New(chain, pipeline.Options{
			KeyColumn:      keyCol,
			OutputPath:     output,
			CheckpointPath: ckpt,
			BatchSize:      batchSize,
			Resume:         enrichResume,
			Limit:          enrichLimit,
		})

		summary, runErr := p.Run(ctx, table)
		if err := st.CompleteRun(ctx, run.ID, summary, runErr); err != nil {
			zap.L().Warn("enrich: record run result", zap.Error(err))
		}
		if runErr != nil {
			return eris.Wrapf(runErr, "enrich: run %s stopped at row %d", run.ID, summary.StoppedAt)
		}

		fmt.Printf("Processed %d/%d rows: %d resolved, %d not found, %d without key (%d lookups, %d cache hits)\n",
			summary.Processed, summary.Total, summary.Resolved, summary.NotFound, summary.NoKey,
			summary.Lookups, summary.CacheHits)
		fmt.Printf("Output: %s\n", output)
		if summary.StoppedAt >= 0 {
			fmt.Printf("Stopped at row %d; rerun with --resume to continue\n", summary.StoppedAt)
		}
		return nil
	},
}

// derivePaths resolves the output and checkpoint paths from flags, falling
// back to <out-dir>/<input-base>_with_image_urls_progress.csv.
func derivePaths(input, output, outDir string) (string, string) {
	if outDir == "" {
		outDir = cfg.Enrich.OutDir
	}
	if output == "" {
		base := filepath.Base(input)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		output = filepath.Join(outDir, base+"_with_image_urls_progress.csv")
	}
	ckpt := strings.TrimSuffix(output, filepath.Ext(output)) + ".ckpt.json"
	return output, ckpt
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "input CSV/XLSX path or http(s)/ftp URL (required)")
	enrichCmd.Flags().StringVar(&enrichKeyCol, "key-col", "", "barcode column name (default from config)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output CSV path (default derived from input)")
	enrichCmd.Flags().StringVar(&enrichOutDir, "out-dir", "", "directory for derived output paths")
	enrichCmd.Flags().IntVar(&enrichBatchSize, "batch-size", 0, "rows per commit (default from config)")
	enrichCmd.Flags().IntVar(&enrichRetries, "retries", 0, "lookup attempts per source (default from config)")
	enrichCmd.Flags().IntVar(&enrichDelayMS, "delay", 0, "delay between attempts in ms (default from config)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "process at most N rows this invocation")
	enrichCmd.Flags().BoolVar(&enrichResume, "resume", false, "continue from the last checkpoint")
	enrichCmd.Flags().StringVar(&enrichSources, "sources", "", "YAML source catalog overriding the built-in chain")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "parse the input and print the plan without any lookups")
	enrichCmd.MarkFlagRequired("input") //nolint:errcheck
	rootCmd.AddCommand(enrichCmd)
}
