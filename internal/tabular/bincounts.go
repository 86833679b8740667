package tabular

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

// ImportOptions fills in what a counts file may leave out.
type ImportOptions struct {
	// BinSize derives start and stop from the bin number when the file has
	// no start/stop columns.
	BinSize int64
	// Sheet selects the worksheet of an XLSX file.
	Sheet string
	// CellType and FileName are used when the file has no such column.
	// FileName falls back to the base name of the counts file.
	CellType string
	FileName string
}

// ReadBinCounts parses a counts file with a header row. Recognized columns
// are bin_number (or bin), cell_type, chromosome (or chr), file_name, start,
// stop (or end) and count.
func ReadBinCounts(path string, opt ImportOptions) ([]store.BinCount, error) {
	rows, err := ReadRows(path, opt.Sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", filepath.Base(path))
	}
	h := newHeader(rows[0])

	binCol, ok := h.lookup("bin_number", "bin")
	if !ok {
		return nil, fmt.Errorf("%s: missing bin_number column", filepath.Base(path))
	}
	chromCol, ok := h.lookup("chromosome", "chr", "chrom")
	if !ok {
		return nil, fmt.Errorf("%s: missing chromosome column", filepath.Base(path))
	}
	countCol, ok := h.lookup("count", "counts")
	if !ok {
		return nil, fmt.Errorf("%s: missing count column", filepath.Base(path))
	}
	cellCol, hasCell := h.lookup("cell_type")
	if !hasCell && opt.CellType == "" {
		return nil, fmt.Errorf("%s: no cell_type column and no cell type given", filepath.Base(path))
	}
	fileCol, hasFile := h.lookup("file_name", "file")
	fileName := opt.FileName
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	startCol, hasStart := h.lookup("start")
	stopCol, hasStop := h.lookup("stop", "end")
	if hasStart != hasStop {
		return nil, fmt.Errorf("%s: start and stop columns must appear together", filepath.Base(path))
	}
	if !hasStart && opt.BinSize <= 0 {
		return nil, fmt.Errorf("%s: no start/stop columns, a bin size is required", filepath.Base(path))
	}

	out := make([]store.BinCount, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}
		bin, err := strconv.ParseUint(cell(row, binCol), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bin number: %w", filepath.Base(path), line, err)
		}
		count, err := parseInt(cell(row, countCol))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: count: %w", filepath.Base(path), line, err)
		}
		b := store.BinCount{
			BinNumber:  uint32(bin),
			Chromosome: cell(row, chromCol),
			CellType:   opt.CellType,
			FileName:   fileName,
			Count:      count,
		}
		if b.Chromosome == "" {
			return nil, fmt.Errorf("%s line %d: empty chromosome", filepath.Base(path), line)
		}
		if hasCell {
			if v := cell(row, cellCol); v != "" {
				b.CellType = v
			}
		}
		if b.CellType == "" {
			return nil, fmt.Errorf("%s line %d: empty cell type", filepath.Base(path), line)
		}
		if hasFile {
			if v := cell(row, fileCol); v != "" {
				b.FileName = v
			}
		}
		if hasStart {
			if b.Start, err = parseInt(cell(row, startCol)); err != nil {
				return nil, fmt.Errorf("%s line %d: start: %w", filepath.Base(path), line, err)
			}
			if b.Stop, err = parseInt(cell(row, stopCol)); err != nil {
				return nil, fmt.Errorf("%s line %d: stop: %w", filepath.Base(path), line, err)
			}
		} else {
			b.Start = int64(b.BinNumber) * opt.BinSize
			b.Stop = b.Start + opt.BinSize
		}
		out = append(out, b)
	}
	return out, nil
}

// ReadTotals parses a two column file mapping file name to total read
// count. A header row is optional.
func ReadTotals(path, sheet string) (map[string]int64, error) {
	rows, err := ReadRows(path, sheet)
	if err != nil {
		return nil, err
	}
	totals := map[string]int64{}
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("%s line %d: expected file name and total", filepath.Base(path), i+1)
		}
		name, raw := cell(row, 0), cell(row, 1)
		total, err := parseInt(raw)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("%s line %d: total for %s: %w", filepath.Base(path), i+1, name, err)
		}
		if total < 0 {
			return nil, fmt.Errorf("%s line %d: negative total for %s", filepath.Base(path), i+1, name)
		}
		if _, dup := totals[name]; dup {
			return nil, fmt.Errorf("%s line %d: duplicate file %s", filepath.Base(path), i+1, name)
		}
		totals[name] = total
	}
	if len(totals) == 0 {
		return nil, errors.New(filepath.Base(path) + ": no totals found")
	}
	return totals, nil
}

// parseInt accepts plain integers and integral floats such as "1e6" or
// "42.0", which spreadsheets tend to produce.
func parseInt(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
