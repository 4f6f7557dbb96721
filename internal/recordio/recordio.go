// Package recordio reads tabular input files into the pipeline's Table
// model. CSV and XLSX inputs are supported; the first row is always the
// header.
package recordio

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// ReadTable loads the file at path, dispatching on extension. Unknown
// extensions fall back to CSV, which covers .txt exports.
func ReadTable(path string) (model.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return ReadCSVFile(path)
	}
}

// ReadCSVFile loads a CSV file. Excel and other Windows tools prepend a UTF-8
// BOM to exports; it is stripped so the first column name stays clean.
func ReadCSVFile(path string) (model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Table{}, eris.Wrapf(err, "recordio: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	table, err := ReadCSV(f)
	if err != nil {
		return model.Table{}, eris.Wrapf(err, "recordio: read %s", path)
	}
	return table, nil
}

// ReadCSV parses CSV from r into a Table.
func ReadCSV(r io.Reader) (model.Table, error) {
	bomAware := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(bomAware)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return model.Table{}, eris.New("recordio: input has no header row")
	}
	if err != nil {
		return model.Table{}, eris.Wrap(err, "recordio: read header")
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	table := model.Table{Columns: columns}
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.Table{}, eris.Wrap(err, "recordio: read row")
		}
		table.Rows = append(table.Rows, rowToRecord(columns, fields))
	}
	return table, nil
}

// ReadXLSX loads the first sheet of an XLSX workbook.
func ReadXLSX(path string) (model.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return model.Table{}, eris.Wrapf(err, "recordio: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return model.Table{}, eris.Errorf("recordio: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return model.Table{}, eris.New("recordio: input has no header row")
	}

	columns := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		columns[i] = strings.TrimSpace(cell.String())
	}

	table := model.Table{Columns: columns}
	for _, row := range sheet.Rows[1:] {
		fields := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			fields[i] = cell.String()
		}
		table.Rows = append(table.Rows, rowToRecord(columns, fields))
	}
	return table, nil
}

// rowToRecord maps a positional row onto the header. Short rows leave the
// trailing columns empty; extra fields beyond the header are dropped.
func rowToRecord(columns, fields []string) model.Record {
	rec := make(model.Record, len(columns))
	for i, col := range columns {
		if i < len(fields) {
			rec[col] = fields[i]
		} else {
			rec[col] = ""
		}
	}
	return rec
}
