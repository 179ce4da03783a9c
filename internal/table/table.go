// Package table reads and writes the header-plus-rows tables the enrichment
// run consumes and produces.
package table

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Table is a header row followed by records. Every record has exactly
// len(Header) cells.
type Table struct {
	Header  []string
	Records [][]string
}

// ColumnIndex returns the index of the column named name. Header names are
// compared after trimming whitespace.
func (t *Table) ColumnIndex(name string) (int, error) {
	want := strings.TrimSpace(name)
	for i, col := range t.Header {
		if strings.TrimSpace(col) == want {
			return i, nil
		}
	}
	return -1, eris.Errorf("table: missing required column %q", name)
}

// Limit truncates the table to at most n records. n <= 0 keeps all.
func (t *Table) Limit(n int) {
	if n > 0 && n < len(t.Records) {
		t.Records = t.Records[:n]
	}
}

// ReadFile reads a CSV or XLSX file, chosen by extension. encoding applies
// to CSV input only.
func ReadFile(fsys afero.Fs, path, encoding string) (*Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSXFile(fsys, path)
	}
	return ReadCSVFile(fsys, path, encoding)
}

// WriteFile writes t in the given format.
func WriteFile(fsys afero.Fs, path, format string, t *Table) error {
	switch format {
	case FormatCSV, "":
		return WriteCSVFile(fsys, path, t)
	case FormatXLSX:
		return WriteXLSXFile(fsys, path, t)
	default:
		return eris.Errorf("table: unknown format %q", format)
	}
}

// normalize pads short records to the header width and rejects longer ones.
func normalize(header []string, rows [][]string, firstLine int) ([][]string, error) {
	out := make([][]string, 0, len(rows))
	for i, row := range rows {
		switch {
		case len(row) > len(header):
			return nil, eris.Errorf("table: row %d has %d fields, header has %d", firstLine+i, len(row), len(header))
		case len(row) < len(header):
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		out = append(out, row)
	}
	return out, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place, so a failed run never leaves a partial output file.
func writeAtomic(fsys afero.Fs, path string, write func(afero.File) error) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "table: create %s", dir)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return eris.Wrap(err, "table: create temp file")
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()          //nolint:errcheck
		fsys.Remove(tmpName) //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "table: close %s", tmpName)
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		fsys.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "table: rename to %s", path)
	}
	return nil
}
