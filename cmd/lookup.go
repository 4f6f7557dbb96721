package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/normalize"
)

var (
	lookupConcurrency int
	lookupSources     string
)

// lookupOutput is one barcode's result as printed to stdout.
type lookupOutput struct {
	Barcode string             `json:"barcode"`
	Key     model.LookupKey    `json:"key"`
	Result  model.LookupResult `json:"result"`
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <barcode> [barcode...]",
	Short: "Look up image URLs for individual barcodes",
	Long: `Resolves one or more barcodes through the source chain and prints each
result as JSON, one object per line. Useful for spot checks before running a
full enrichment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chain, err := buildChain(chainOverrides{catalogPath: lookupSources})
		if err != nil {
			return eris.Wrap(err, "lookup: build sources")
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(lookupConcurrency)

		outputs := make([]lookupOutput, len(args))
		for i, raw := range args {
			g.Go(func() error {
				out := lookupOutput{Barcode: raw, Key: normalize.Barcode(raw)}
				if !out.Key.IsNone() {
					out.Result = chain.Resolve(ctx, out.Key)
				}
				outputs[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		for _, out := range outputs {
			if err := enc.Encode(out); err != nil {
				return eris.Wrap(err, "lookup: encode result")
			}
		}
		return nil
	},
}

func init() {
	lookupCmd.Flags().IntVar(&lookupConcurrency, "concurrency", 3, "concurrent lookups")
	lookupCmd.Flags().StringVar(&lookupSources, "sources", "", "YAML source catalog overriding the built-in chain")
	rootCmd.AddCommand(lookupCmd)
}
