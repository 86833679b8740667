package pipeline

import (
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

// Percentiles ranks values and returns, in input order, the percentile of
// each on a 0..100 scale: (rank-1)/(n-1)*100 where rank is 1-based and tied
// values share their average rank. A single value ranks at 0.
func Percentiles(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	inds := make([]int, n)
	floats.Argsort(sorted, inds)

	for i := 0; i < n; {
		j := i
		for j+1 < n && sorted[j+1] == sorted[i] {
			j++
		}
		rank := float64(i+j)/2 + 1
		p := (rank - 1) * 100 / float64(n-1)
		for k := i; k <= j; k++ {
			out[inds[k]] = p
		}
		i = j + 1
	}
	return out
}

// percentiles computes and stores the percentile of every row of one
// (cell type, file) group, then flushes.
func (r *runner) percentiles(cellType, fileName string) error {
	tx, err := r.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	read, err := tx.NormalizedGroup(cellType, fileName)
	if err != nil {
		return err
	}
	values := make([]float64, len(read))
	for i, row := range read {
		values[i] = row.NormalizedCount
	}
	ranked := Percentiles(values)

	write, err := tx.NormalizedGroup(cellType, fileName)
	if err != nil {
		return err
	}
	if err := checkAligned(cellType, fileName, read, write); err != nil {
		return err
	}
	for i, row := range write {
		if err := tx.SetPercentile(row.ID, ranked[i]); err != nil {
			return err
		}
	}
	if err := tx.Flush(); err != nil {
		return err
	}
	r.log.WithField("cell_type", cellType).WithField("file_name", fileName).
		WithField("rows", len(write)).Debug("ranked group")
	return nil
}

func checkAligned(cellType, fileName string, read, write []store.NormalizedCount) error {
	for i, row := range write {
		if i >= len(read) {
			return &MisalignedError{CellType: cellType, FileName: fileName, Position: i, Got: row.BinNumber}
		}
		if row.BinNumber != read[i].BinNumber {
			return &MisalignedError{CellType: cellType, FileName: fileName, Position: i, Want: read[i].BinNumber, Got: row.BinNumber}
		}
	}
	if len(read) > len(write) {
		return &MisalignedError{CellType: cellType, FileName: fileName, Position: len(write), Want: read[len(write)].BinNumber}
	}
	return nil
}
