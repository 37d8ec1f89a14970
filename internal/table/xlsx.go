package table

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	for _, ext := range []string{".xlsx", ".xlsm", ".xltx", ".xltm"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (xlsxLoader) Sheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// Load reads the sheet through excelize's formatted row view, so cells
// arrive as the display strings a spreadsheet user sees.
func (xlsxLoader) Load(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: err}
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: err}
	}
	if len(rows) == 0 {
		return New(sheet, nil, nil), nil
	}
	return New(sheet, rows[0], rows[1:]), nil
}
