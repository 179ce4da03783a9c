package table

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"github.com/tealeg/xlsx/v2"
)

const sheetName = "Sheet1"

// ReadXLSXFile reads the first sheet of an XLSX workbook. The first row is
// the header.
func ReadXLSXFile(fsys afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: read %s", path)
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "table: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("table: xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("table: xlsx has no header row")
	}

	header := rowToStrings(sheet.Rows[0])
	var raw [][]string
	for _, row := range sheet.Rows[1:] {
		raw = append(raw, rowToStrings(row))
	}
	rows, err := normalize(header, raw, 2)
	if err != nil {
		return nil, err
	}
	return &Table{Header: header, Records: rows}, nil
}

// WriteXLSXFile writes t as a single-sheet workbook, replacing path
// atomically. All cells are written as strings.
func WriteXLSXFile(fsys afero.Fs, path string, t *Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "table: add sheet")
	}
	addRow(sheet, t.Header)
	for _, rec := range t.Records {
		addRow(sheet, rec)
	}

	return writeAtomic(fsys, path, func(out afero.File) error {
		return eris.Wrap(f.Write(out), "table: write xlsx")
	})
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
