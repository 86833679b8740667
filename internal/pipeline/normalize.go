package pipeline

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

// NormalizedValue scales a raw count to reads per base pair per million
// reads of the file.
func NormalizedValue(count, regionSize, total int64) float64 {
	return float64(count) / float64(regionSize) / (float64(total) / 1e6)
}

// normalize fills bin_counts.normalized_count and seeds normalized_counts
// with one row per raw row, grouped by cell type then file. It returns the
// number of rows written.
func (r *runner) normalize() (int, error) {
	rows, err := r.store.BinCounts()
	if err != nil {
		return 0, err
	}

	var (
		current string
		total   int64
	)
	for i := range rows {
		row := &rows[i]
		if i == 0 || row.FileName != current {
			current = row.FileName
			t, ok := r.totals[current]
			if !ok {
				return 0, &MissingTotalError{FileName: current}
			}
			if t == 0 {
				return 0, &ZeroTotalError{FileName: current}
			}
			total = t
		}
		size := row.RegionSize()
		if size <= 0 {
			return 0, fmt.Errorf("%w: row %d (%s %s bin %d) spans %d..%d",
				ErrEmptyRegion, row.ID, row.FileName, row.Chromosome, row.BinNumber, row.Start, row.Stop)
		}
		row.NormalizedCount = NormalizedValue(row.Count, size, total)
	}

	normalized := make([]store.NormalizedCount, len(rows))
	for i, row := range rows {
		normalized[i] = store.NormalizedCount{
			BinNumber:       row.BinNumber,
			CellType:        row.CellType,
			Chromosome:      row.Chromosome,
			FileName:        row.FileName,
			NormalizedCount: row.NormalizedCount,
		}
	}
	sort.SliceStable(normalized, func(i, j int) bool {
		if normalized[i].CellType != normalized[j].CellType {
			return normalized[i].CellType < normalized[j].CellType
		}
		return normalized[i].FileName < normalized[j].FileName
	})

	tx, err := r.store.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if err := tx.SetBinNormalizedCounts(rows); err != nil {
		return 0, err
	}
	if err := tx.InsertNormalized(normalized); err != nil {
		return 0, err
	}
	if err := tx.Flush(); err != nil {
		return 0, err
	}
	r.log.WithField("rows", len(rows)).Debug("normalized bin counts")
	return len(rows), nil
}
