// Package export renders tabular sheets (attendance sheets, rosters) as CSV,
// XLSX or PDF and reads imported spreadsheets back into rows.
package export

import (
	"fmt"
	"strings"
)

// Format identifies an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Sheet is a titled table with an ordered header row.
type Sheet struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (s Sheet) validate() error {
	if len(s.Headers) == 0 {
		return fmt.Errorf("sheet requires at least one header")
	}
	for i, row := range s.Rows {
		if len(row) > len(s.Headers) {
			return fmt.Errorf("row %d has %d cells for %d headers", i+1, len(row), len(s.Headers))
		}
	}
	return nil
}

func (s Sheet) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

// Renderer turns a sheet into a downloadable file.
type Renderer interface {
	Format() Format
	ContentType() string
	Render(Sheet) ([]byte, error)
}

// NewRenderer returns the renderer for format.
func NewRenderer(format Format) (Renderer, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatCSV:
		return CSVRenderer{}, nil
	case FormatXLSX, "":
		return XLSXRenderer{}, nil
	case FormatPDF:
		return PDFRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Filename builds an attachment name such as "emargement-s1.xlsx".
func Filename(base string, format Format) string {
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ' ':
			return '-'
		}
		return r
	}, base)
	return base + "." + string(format)
}
