// Package progress persists a run's durable state: the partial output file
// and the checkpoint that records how many input rows it covers. Data is
// always written before the checkpoint that acknowledges it, so a crash can
// duplicate work but never lose it.
package progress

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// LoadCheckpoint reads the checkpoint at path. A missing file means a fresh
// run. A corrupt or unreadable file is treated the same, with a warning; the
// worst case is redoing work already in the output.
func LoadCheckpoint(path string) model.Checkpoint {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("progress: checkpoint unreadable, starting from zero",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return model.Checkpoint{}
	}

	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil || cp.ProcessedCount < 0 {
		zap.L().Warn("progress: checkpoint corrupt, starting from zero",
			zap.String("path", path),
			zap.Error(err),
		)
		return model.Checkpoint{}
	}
	return cp
}

// SaveCheckpoint writes the checkpoint atomically: temp file in the same
// directory, fsync, rename. Readers never observe a partial checkpoint.
func SaveCheckpoint(path string, cp model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return eris.Wrap(err, "progress: marshal checkpoint")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ckpt-*")
	if err != nil {
		return eris.Wrapf(err, "progress: create temp checkpoint in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmpName)    //nolint:errcheck
		return eris.Wrap(err, "progress: write temp checkpoint")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmpName)    //nolint:errcheck
		return eris.Wrap(err, "progress: sync temp checkpoint")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "progress: close temp checkpoint")
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "progress: rename checkpoint to %s", path)
	}
	return nil
}
