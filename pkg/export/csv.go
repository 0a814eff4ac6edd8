package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// CSVRenderer writes sheets as RFC 4180 CSV.
type CSVRenderer struct{}

func (CSVRenderer) Format() Format      { return FormatCSV }
func (CSVRenderer) ContentType() string { return "text/csv" }

// Render writes the header row followed by every data row.
func (CSVRenderer) Render(sheet Sheet) ([]byte, error) {
	if err := sheet.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(sheet.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(sheet.Headers))
	for _, row := range sheet.Rows {
		for i := range sheet.Headers {
			record[i] = sheet.cell(row, i)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadCSV returns every record of a CSV stream, header included.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}
