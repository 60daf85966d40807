package textsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSource    = errors.New("no source given")
	ErrEmptySheet  = errors.New("workbook has no sheets")
	ErrNotUTF8Text = errors.New("file is not UTF-8 text")
)

// File reads a local document. Excel workbooks are flattened to CSV from
// their first sheet; anything else is read as UTF-8 text.
type File struct {
	Path string
}

func (f File) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return f.readWorkbook()
	default:
		return f.readText()
	}
}

func (f File) readText() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s: %w", f.Path, ErrNotUTF8Text)
	}
	return strings.TrimPrefix(string(b), "\ufeff"), nil
}

func (f File) readWorkbook() (string, error) {
	wb, err := excelize.OpenFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", f.Path, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%s: %w", f.Path, ErrEmptySheet)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return toCSV(rows)
}
