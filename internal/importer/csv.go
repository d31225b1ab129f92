package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// CSVParser reads CSV statements and normalizes each row using a
// user-configured column mapping.
type CSVParser struct {
	mapping map[string]any
}

// NewCSVParser creates a parser with the given logical-field to column
// mapping.
func NewCSVParser(mapping map[string]any) *CSVParser {
	return &CSVParser{mapping: mapping}
}

// Parse reads a CSV stream and returns the normalized records. Rows that
// fail normalization are counted and logged but do not abort the file;
// the error count is returned alongside the records.
func (p *CSVParser) Parse(reader io.Reader) ([]Record, int, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []Record
	failures := 0
	line := 1

	for {
		row, readErr := r.Read()
		if readErr == io.EOF {
			break
		}
		line++
		if readErr != nil {
			slog.Warn("skipping malformed CSV row", "line", line, "error", readErr)
			failures++
			continue
		}

		rowMap := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(row) {
				rowMap[column] = row[i]
			}
		}

		record, mapErr := MapRowToTransaction(rowMap, p.mapping)
		if mapErr != nil {
			slog.Warn("skipping unusable CSV row", "line", line, "error", mapErr)
			failures++
			continue
		}
		records = append(records, record)
	}

	return records, failures, nil
}
