package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// Sheets reports the single logical sheet of a CSV file, named after the
// file itself.
func (csvLoader) Sheets(path string) ([]string, error) {
	return []string{csvSheetName(path)}, nil
}

func (csvLoader) Load(path, sheet string) (*Table, error) {
	name := csvSheetName(path)
	if sheet != "" && sheet != name {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: fmt.Errorf("no such sheet (csv files expose %q)", name)}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = sniffDelimiter(path)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, &LoadError{Path: path, Sheet: sheet, Err: err}
	}
	if len(records) == 0 {
		return New(name, nil, nil), nil
	}
	return New(name, records[0], records[1:]), nil
}

func csvSheetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
