package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/binliquidator-cli/internal/utils"
)

// Export writes a table to path. The format follows the extension: .xlsx
// writes a single sheet named after the table, .tsv and .txt are tab
// separated, anything else is CSV.
func Export(path, table string, cols []string, rows [][]string) error {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return exportXLSX(path, table, cols, rows)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = sniffDelimiter(path)
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

func exportXLSX(path, table string, cols []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := table
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}
	head := make([]interface{}, len(cols))
	for i, c := range cols {
		head[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = xlsxValue(v)
		}
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, ref, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// xlsxValue stores numeric text as a number so spreadsheets can sort it.
func xlsxValue(s string) interface{} {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
