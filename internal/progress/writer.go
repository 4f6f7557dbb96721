package progress

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// Writer appends committed batches of enriched rows to the output CSV. The
// header is written exactly once per file, on creation.
type Writer struct {
	f       *os.File
	w       *csv.Writer
	columns []string
}

// OpenWriter opens the output file at path. When resume is true and the file
// already has content, new batches are appended after the existing rows with
// no second header. Otherwise the file is truncated and the header written.
func OpenWriter(path string, columns []string, resume bool) (*Writer, error) {
	appending := false
	if resume {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			appending = true
		}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appending {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "progress: open output %s", path)
	}

	w := &Writer{f: f, w: csv.NewWriter(f), columns: columns}
	if !appending {
		if err := w.w.Write(columns); err != nil {
			f.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "progress: write header")
		}
	}
	return w, nil
}

// Append writes one committed batch and forces it to disk. Once Append
// returns, the rows survive a crash.
func (w *Writer) Append(rows []model.Record) error {
	for _, row := range rows {
		if err := w.w.Write(row.Values(w.columns)); err != nil {
			return eris.Wrap(err, "progress: write row")
		}
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return eris.Wrap(err, "progress: flush batch")
	}
	if err := w.f.Sync(); err != nil {
		return eris.Wrap(err, "progress: sync output")
	}
	return nil
}

// Close flushes any buffered rows and closes the file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close() //nolint:errcheck
		return eris.Wrap(err, "progress: flush output")
	}
	if err := w.f.Close(); err != nil {
		return eris.Wrap(err, "progress: close output")
	}
	return nil
}
