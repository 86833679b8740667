package pipeline

import (
	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

// Thresholds are the percentile cut-offs the summary counts against.
type Thresholds struct {
	High float64
	Low  float64
}

// DefaultThresholds are the 95th and 5th percentiles.
var DefaultThresholds = Thresholds{High: 95, Low: 5}

type binTally struct {
	percentileSum float64
	summary       store.Summary
}

// Summarize builds one summary row for every bin from 0 through the highest
// bin seen on the chromosome. Aggregate rows count as cell types, the rest
// as lines. The average percentile is the sum of the cell type percentiles
// for the bin divided by the number of cell types seen on the chromosome.
func Summarize(chromosome string, rows []store.NormalizedCount, th Thresholds) []store.Summary {
	if len(rows) == 0 {
		return nil
	}
	var maxBin uint32
	for _, row := range rows {
		if row.BinNumber > maxBin {
			maxBin = row.BinNumber
		}
	}

	bins := make([]binTally, int(maxBin)+1)
	cellTypes := map[string]struct{}{}
	for _, row := range rows {
		t := &bins[row.BinNumber]
		s := &t.summary
		if row.IsAggregate() {
			cellTypes[row.CellType] = struct{}{}
			t.percentileSum += row.Percentile
			if row.Percentile >= th.High {
				s.CellTypesGteHighPercentile++
			} else {
				s.CellTypesLtHighPercentile++
			}
			if row.Percentile >= th.Low {
				s.CellTypesGteLowPercentile++
			} else {
				s.CellTypesLtLowPercentile++
			}
			continue
		}
		if row.Percentile >= th.High {
			s.LinesGteHighPercentile++
		} else {
			s.LinesLtHighPercentile++
		}
		if row.Percentile >= th.Low {
			s.LinesGteLowPercentile++
		} else {
			s.LinesLtLowPercentile++
		}
	}

	out := make([]store.Summary, len(bins))
	for i, t := range bins {
		s := t.summary
		s.BinNumber = uint32(i)
		s.Chromosome = chromosome
		if n := len(cellTypes); n > 0 {
			s.AvgCellTypePercentile = t.percentileSum / float64(n)
		}
		out[i] = s
	}
	return out
}

// summarize computes and stores the summary rows of every chromosome, then
// builds sorted_summary in the same phase.
func (r *runner) summarize(chromosomes []string) (int, error) {
	var all []store.Summary
	for _, chrom := range chromosomes {
		rows, err := r.store.NormalizedByChromosome(chrom)
		if err != nil {
			return 0, err
		}
		summaries := Summarize(chrom, rows, r.opts.Thresholds)
		r.log.WithField("chromosome", chrom).WithField("rows", len(summaries)).Debug("summarized chromosome")
		all = append(all, summaries...)
	}

	tx, err := r.store.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	if err := tx.InsertSummaries(all); err != nil {
		return 0, err
	}
	if err := tx.CopySortedSummary(); err != nil {
		return 0, err
	}
	if err := tx.Flush(); err != nil {
		return 0, err
	}
	return len(all), nil
}
