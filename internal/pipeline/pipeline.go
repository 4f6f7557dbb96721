// Package pipeline orchestrates one enrichment run: rows in, enriched rows
// out, committed in batches with a checkpoint trailing the data.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smith-pharmacy/catalog-enrich/internal/cache"
	"github.com/smith-pharmacy/catalog-enrich/internal/model"
	"github.com/smith-pharmacy/catalog-enrich/internal/normalize"
	"github.com/smith-pharmacy/catalog-enrich/internal/progress"
)

// Columns appended to every output row.
const (
	ColImageURL    = "image_url"
	ColImageTitle  = "image_title"
	ColImageSource = "image_source"
)

// Resolver resolves one key to its terminal lookup result. *source.Chain
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, key model.LookupKey) model.LookupResult
}

// Options configure one run.
type Options struct {
	KeyColumn      string
	OutputPath     string
	CheckpointPath string
	BatchSize      int
	Resume         bool
	// Limit caps the number of rows processed this invocation; zero means
	// no cap. The checkpoint still advances, so a limited run resumes
	// where it stopped.
	Limit int
}

// Pipeline runs the enrichment loop.
type Pipeline struct {
	cache *cache.Cache
	opts  Options
}

// New creates a pipeline over the given resolver. All rows sharing a key
// share one lookup through the cache.
func New(resolver Resolver, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	return &Pipeline{
		cache: cache.New(resolver.Resolve),
		opts:  opts,
	}
}

// Run processes the table and returns the run summary. The returned summary
// is valid even when err is non-nil; StoppedAt then points at the first row
// not durably committed, which is where a resume picks up.
func (p *Pipeline) Run(ctx context.Context, table model.Table) (*model.RunSummary, error) {
	summary := &model.RunSummary{Total: len(table.Rows), StoppedAt: -1}
	defer func() {
		summary.CacheHits, summary.Lookups = p.cache.Stats()
	}()

	if !table.HasColumn(p.opts.KeyColumn) {
		return summary, eris.Errorf("pipeline: input has no column %q", p.opts.KeyColumn)
	}

	start := 0
	if p.opts.Resume {
		cp := progress.LoadCheckpoint(p.opts.CheckpointPath)
		start = cp.ProcessedCount
		if start > len(table.Rows) {
			zap.L().Warn("pipeline: checkpoint beyond input, clamping",
				zap.Int("processed_count", start),
				zap.Int("rows", len(table.Rows)),
			)
			start = len(table.Rows)
		}
	}

	end := len(table.Rows)
	if p.opts.Limit > 0 && start+p.opts.Limit < end {
		end = start + p.opts.Limit
	}

	columns := outputColumns(table.Columns)
	writer, err := progress.OpenWriter(p.opts.OutputPath, columns, p.opts.Resume && start > 0)
	if err != nil {
		summary.StoppedAt = start
		return summary, err
	}
	defer writer.Close() //nolint:errcheck

	zap.L().Info("pipeline: starting",
		zap.Int("rows", len(table.Rows)),
		zap.Int("start", start),
		zap.Int("end", end),
		zap.Int("batch_size", p.opts.BatchSize),
	)

	committed := start
	var pending []model.Record

	for i := start; i < end; i++ {
		if err := ctx.Err(); err != nil {
			summary.StoppedAt = committed
			return summary, eris.Wrap(err, "pipeline: cancelled")
		}

		rec := table.Rows[i].Clone()
		key := normalize.Barcode(rec[p.opts.KeyColumn])

		var res model.LookupResult
		if key.IsNone() {
			summary.NoKey++
		} else {
			res = p.cache.Resolve(ctx, key)
			// A lookup cut short by cancellation resolves empty; recording
			// it would commit a false negative past the checkpoint.
			if cerr := ctx.Err(); cerr != nil {
				summary.StoppedAt = committed
				return summary, eris.Wrap(cerr, "pipeline: cancelled")
			}
			if res.Found {
				summary.Resolved++
			} else {
				summary.NotFound++
			}
		}

		rec[ColImageURL] = res.Best.URL
		rec[ColImageTitle] = res.Best.Label
		rec[ColImageSource] = string(res.Best.Source)

		pending = append(pending, rec)
		summary.Processed++

		if len(pending) >= p.opts.BatchSize || i == end-1 {
			if err := p.commit(writer, pending, i+1); err != nil {
				summary.StoppedAt = committed
				return summary, err
			}
			committed = i + 1
			pending = pending[:0]
		}
	}

	summary.CacheHits, summary.Lookups = p.cache.Stats()

	// A limited run that stopped short of the input is still resumable.
	if end < len(table.Rows) {
		summary.StoppedAt = end
	}

	zap.L().Info("pipeline: finished",
		zap.Int("processed", summary.Processed),
		zap.Int("resolved", summary.Resolved),
		zap.Int("not_found", summary.NotFound),
		zap.Int("no_key", summary.NoKey),
		zap.Int64("lookups", summary.Lookups),
		zap.Int64("cache_hits", summary.CacheHits),
	)
	return summary, nil
}

// commit makes a batch durable: rows first, then the checkpoint covering
// them. A crash between the two duplicates rows on resume, which the
// append-only output tolerates; the reverse order would lose them.
func (p *Pipeline) commit(writer *progress.Writer, batch []model.Record, processedCount int) error {
	if err := writer.Append(batch); err != nil {
		return err
	}
	if err := progress.SaveCheckpoint(p.opts.CheckpointPath, model.Checkpoint{ProcessedCount: processedCount}); err != nil {
		return err
	}
	zap.L().Debug("pipeline: batch committed",
		zap.Int("rows", len(batch)),
		zap.Int("processed_count", processedCount),
	)
	return nil
}

// outputColumns appends the enrichment columns to the input header, skipping
// any the input already carries.
func outputColumns(input []string) []string {
	out := make([]string, len(input), len(input)+3)
	copy(out, input)
	for _, col := range []string{ColImageURL, ColImageTitle, ColImageSource} {
		if !contains(out, col) {
			out = append(out, col)
		}
	}
	return out
}

func contains(cols []string, name string) bool {
	for _, c := range cols {
		if c == name {
			return true
		}
	}
	return false
}
