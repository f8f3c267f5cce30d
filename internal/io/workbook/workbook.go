// Package workbook reads and writes dedup.Table values as multi-sheet
// Excel workbooks.
package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fuzzydedup/dedup/internal/dedup"
)

// maxSheetName is Excel's hard limit on sheet name length.
const maxSheetName = 31

// sheetName truncates name to Excel's sheet-name length limit.
func sheetName(name string) string {
	if len(name) <= maxSheetName {
		return name
	}
	return name[:maxSheetName]
}

// ReadTable loads a single sheet into a dedup.Table, treating the first
// row as the header.
func ReadTable(path, sheet string) (dedup.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dedup.Table{}, fmt.Errorf("workbook: open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return dedup.Table{}, fmt.Errorf("workbook: read sheet %s: %w", sheet, err)
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

// parseCell keeps numeric-looking cells numeric so downstream date and
// length comparisons behave sensibly; everything else stays a string.
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

// WriteBundle writes a dedup.OutputBundle to path as a workbook whose
// sheets follow the <prefix>_final / _winner / _duplicates / _unique
// naming convention (or crosssystem_final / winners_only / all_duplicates
// / uniques when prefix is "crosssystem" or empty).
func WriteBundle(path, prefix string, bundle dedup.OutputBundle) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		suffix string
		table  dedup.Table
	}{
		{finalSuffix(prefix), bundle.FinalRows},
		{winnerSuffix(prefix), bundle.WinnerRows},
		{duplicateSuffix(prefix), bundle.DuplicateRowsWithScores},
		{uniqueSuffix(prefix), bundle.UniqueRows},
	}

	first := true
	for _, s := range sheets {
		name := sheetName(s.suffix)
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("workbook: create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, s.table); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("workbook: save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table dedup.Table) error {
	for c, col := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	for r, row := range table.Rows {
		for c, col := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, row[col]); err != nil {
				return err
			}
		}
	}
	return nil
}

func finalSuffix(prefix string) string {
	if isCross(prefix) {
		return "crosssystem_final"
	}
	return strings.TrimSuffix(prefix, "_") + "_final"
}

func winnerSuffix(prefix string) string {
	if isCross(prefix) {
		return "winners_only"
	}
	return strings.TrimSuffix(prefix, "_") + "_winner"
}

func duplicateSuffix(prefix string) string {
	if isCross(prefix) {
		return "all_duplicates"
	}
	return strings.TrimSuffix(prefix, "_") + "_duplicates"
}

func uniqueSuffix(prefix string) string {
	if isCross(prefix) {
		return "uniques"
	}
	return strings.TrimSuffix(prefix, "_") + "_unique"
}

func isCross(prefix string) bool {
	return prefix == "crosssystem" || prefix == ""
}
