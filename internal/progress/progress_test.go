package progress

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

func TestCheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.ckpt.json")

	require.NoError(t, SaveCheckpoint(path, model.Checkpoint{ProcessedCount: 42}))

	cp := LoadCheckpoint(path)
	assert.Equal(t, 42, cp.ProcessedCount)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed_count": 42}`, string(data))
}

func TestLoadCheckpointMissingFile(t *testing.T) {
	t.Parallel()

	cp := LoadCheckpoint(filepath.Join(t.TempDir(), "nope.ckpt.json"))
	assert.Equal(t, 0, cp.ProcessedCount)
}

func TestLoadCheckpointCorrupt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"truncated json", `{"processed_coun`},
		{"wrong type", `{"processed_count": "many"}`},
		{"negative count", `{"processed_count": -3}`},
		{"empty file", ``},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "run.ckpt.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			cp := LoadCheckpoint(path)
			assert.Equal(t, 0, cp.ProcessedCount, "a corrupt checkpoint restarts the run, never crashes it")
		})
	}
}

func TestSaveCheckpointOverwritesAtomically(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "run.ckpt.json")

	require.NoError(t, SaveCheckpoint(path, model.Checkpoint{ProcessedCount: 10}))
	require.NoError(t, SaveCheckpoint(path, model.Checkpoint{ProcessedCount: 20}))

	assert.Equal(t, 20, LoadCheckpoint(path).ProcessedCount)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run.ckpt.json", entries[0].Name())
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriterHeaderOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	columns := []string{"barcode", "name", "image_url"}

	w, err := OpenWriter(path, columns, false)
	require.NoError(t, err)
	require.NoError(t, w.Append([]model.Record{
		{"barcode": "012345", "name": "Aspirin", "image_url": "https://img.example/a.jpg"},
		{"barcode": "999999", "name": "Gauze", "image_url": ""},
	}))
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, []string{"012345", "Aspirin", "https://img.example/a.jpg"}, rows[1])
	assert.Equal(t, []string{"999999", "Gauze", ""}, rows[2])
}

func TestWriterResumeAppendsWithoutHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	columns := []string{"barcode", "image_url"}

	w, err := OpenWriter(path, columns, false)
	require.NoError(t, err)
	require.NoError(t, w.Append([]model.Record{{"barcode": "1", "image_url": "a"}}))
	require.NoError(t, w.Close())

	w, err = OpenWriter(path, columns, true)
	require.NoError(t, err)
	require.NoError(t, w.Append([]model.Record{{"barcode": "2", "image_url": "b"}}))
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 3, "a resumed run must not repeat the header")
	assert.Equal(t, columns, rows[0])
	assert.Equal(t, []string{"1", "a"}, rows[1])
	assert.Equal(t, []string{"2", "b"}, rows[2])
}

func TestWriterResumeOnMissingFileWritesHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	columns := []string{"barcode", "image_url"}

	w, err := OpenWriter(path, columns, true)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, columns, rows[0])
}

func TestWriterFreshRunTruncatesStaleOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale,content\n1,2\n"), 0o644))

	w, err := OpenWriter(path, []string{"barcode"}, false)
	require.NoError(t, err)
	require.NoError(t, w.Append([]model.Record{{"barcode": "012345"}}))
	require.NoError(t, w.Close())

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"barcode"}, rows[0])
	assert.Equal(t, []string{"012345"}, rows[1])
}
