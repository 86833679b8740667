package pipeline

import (
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

type binKey struct {
	chromosome string
	bin        uint32
}

// aggregate writes the "*" rows of a cell type: for every (chromosome, bin)
// the sum of the normalized counts of every file divided by the number of
// files. Placeholder rows are created and flushed first when the cell type
// has none, so the values always go through the same update path.
func (r *runner) aggregate(cellType string) error {
	files, err := r.store.FileNames(cellType)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	var order []binKey
	values := map[binKey][]float64{}
	for _, name := range files {
		rows, err := r.store.NormalizedGroup(cellType, name)
		if err != nil {
			return err
		}
		for _, row := range rows {
			k := binKey{row.Chromosome, row.BinNumber}
			if _, ok := values[k]; !ok {
				order = append(order, k)
			}
			values[k] = append(values[k], row.NormalizedCount)
		}
	}

	existing, err := r.store.NormalizedGroup(cellType, store.AggregateFileName)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		placeholders := make([]store.NormalizedCount, len(order))
		for i, k := range order {
			placeholders[i] = store.NormalizedCount{
				BinNumber:       k.bin,
				CellType:        cellType,
				Chromosome:      k.chromosome,
				FileName:        store.AggregateFileName,
				NormalizedCount: -1,
				Percentile:      -1,
			}
		}
		if err := r.flushNormalized(placeholders); err != nil {
			return err
		}
		if existing, err = r.store.NormalizedGroup(cellType, store.AggregateFileName); err != nil {
			return err
		}
	}

	tx, err := r.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	nfiles := float64(len(files))
	for _, row := range existing {
		vals := values[binKey{row.Chromosome, row.BinNumber}]
		if err := tx.SetNormalizedCount(row.ID, floats.Sum(vals)/nfiles); err != nil {
			return err
		}
	}
	if err := tx.Flush(); err != nil {
		return err
	}
	r.log.WithField("cell_type", cellType).WithField("rows", len(existing)).Debug("aggregated cell type")
	return nil
}

func (r *runner) flushNormalized(rows []store.NormalizedCount) error {
	tx, err := r.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := tx.InsertNormalized(rows); err != nil {
		return err
	}
	return tx.Flush()
}
