// Package csv loads and saves dedup.Table values as CSV files, as an
// alternative to the Excel workbook path for plain flat files.
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fuzzydedup/dedup/internal/dedup"
)

// ReadTable loads a CSV file into a dedup.Table, treating the first row
// as the header.
func ReadTable(path string) (dedup.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return dedup.Table{}, fmt.Errorf("csv: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return dedup.Table{}, fmt.Errorf("csv: read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return dedup.Table{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = strings.TrimSpace(col)
	}
	table := dedup.Table{Columns: header}
	for _, row := range rows[1:] {
		rec := make(dedup.Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = parseCell(row[i])
			} else {
				rec[col] = nil
			}
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

func parseCell(s string) any {
	if s == "" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// WriteTable writes table to path as a CSV file.
func WriteTable(path string, table dedup.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(table.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range table.Rows {
		record := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			record[i] = fmt.Sprintf("%v", row[col])
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	return w.Error()
}
