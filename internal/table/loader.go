package table

import (
	"fmt"
)

// Loader loads one sheet of a workbook file into a Table.
type Loader interface {
	CanLoad(filename string) bool
	// Load reads the named sheet. Loaders for single-table formats accept
	// an empty sheet name.
	Load(path, sheet string) (*Table, error)
	// Sheets lists the sheet names available in the file.
	Sheets(path string) ([]string, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// Load selects a loader based on filename and reads the named sheet.
func Load(path, sheet string) (*Table, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, sheet)
		}
	}
	return nil, &LoadError{Path: path, Sheet: sheet, Err: ErrUnsupported}
}

// Sheets selects a loader based on filename and lists its sheet names.
func Sheets(path string) ([]string, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Sheets(path)
		}
	}
	return nil, &LoadError{Path: path, Err: ErrUnsupported}
}

func init() {
	// Register default loaders
	Register(xlsxLoader{})
	Register(csvLoader{})
}

// ErrUnsupported indicates a workbook format is not supported.
var ErrUnsupported = fmt.Errorf("unsupported workbook format")

// LoadError reports a workbook or sheet that could not be loaded. It is
// fatal to processing the sheet it names, and nothing else.
type LoadError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("load %s sheet %q: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
