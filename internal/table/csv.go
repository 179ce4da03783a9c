package table

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSVFile opens path on fsys and reads it with ReadCSV.
func ReadCSVFile(fsys afero.Fs, path, encoding string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open %s", path)
	}
	defer f.Close()

	return ReadCSV(f, encoding)
}

// ReadCSV decodes r from the named encoding (any WHATWG label, empty means
// utf-8) and parses it as CSV with a header row. A leading byte order mark
// overrides the named encoding and is stripped.
func ReadCSV(r io.Reader, encoding string) (*Table, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, eris.Wrapf(err, "table: unsupported encoding %q", encoding)
	}

	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "table: read csv")
	}
	if len(records) == 0 {
		return nil, eris.New("table: csv has no header row")
	}

	rows, err := normalize(records[0], records[1:], 2)
	if err != nil {
		return nil, err
	}
	return &Table{Header: records[0], Records: rows}, nil
}

// WriteCSVFile writes t as UTF-8 CSV, replacing path atomically.
func WriteCSVFile(fsys afero.Fs, path string, t *Table) error {
	return writeAtomic(fsys, path, func(f afero.File) error {
		return WriteCSV(f, t)
	})
}

// WriteCSV writes t to w.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	if err := cw.WriteAll(t.Records); err != nil {
		return eris.Wrap(err, "table: write rows")
	}
	return nil
}
