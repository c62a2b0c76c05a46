package table

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// loadXLSX reads the selected sheet of a workbook. If opt.Sheet is empty the
// 1-based opt.SheetIndex picks the sheet, defaulting to the first.
func loadXLSX(path string, opt Options) (*Table, error) {
	name := filepath.Base(path)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &MalformedSourceError{Source: name, Reason: "not a readable workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &MalformedSourceError{Source: name, Reason: "workbook has no sheets"}
	}
	sheet := ""
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, &MalformedSourceError{
				Source: name,
				Reason: fmt.Sprintf("sheet %q not found; available sheets: %s", opt.Sheet, strings.Join(sheets, ", ")),
			}
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, &MalformedSourceError{
				Source: name,
				Reason: fmt.Sprintf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets)),
			}
		}
		sheet = sheets[idx-1]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &MalformedSourceError{Source: name, Reason: fmt.Sprintf("read sheet %q", sheet), Err: err}
	}
	// Leading blank rows are common above a header.
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, &MalformedSourceError{Source: name, Reason: fmt.Sprintf("sheet %q is empty", sheet)}
	}
	header := rows[0]
	var records [][]string
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, &MalformedSourceError{
				Source: name,
				Line:   i + 2,
				Reason: fmt.Sprintf("row has %d cells, header has %d", len(row), len(header)),
			}
		}
		// excelize trims trailing empty cells.
		rec := make([]string, len(header))
		copy(rec, row)
		records = append(records, rec)
	}
	t, err := build(name+"#"+sheet, header, records, opt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
