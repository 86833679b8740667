// Package report renders a Markdown summary of a table file after a run.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/binliquidator-cli/internal/pipeline"
	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

// FileName is the report written into the output directory.
const FileName = "report.md"

// Report is a markdown-friendly view of a run and its sorted summary.
type Report struct {
	TableFile      string
	RunID          string
	StartedAt      time.Time
	Duration       time.Duration
	CellTypes      []string
	Chromosomes    []string
	NormalizedRows int
	SummaryRows    int
	Thresholds     pipeline.Thresholds
	Stats          []ChromosomeStats
	Top            []store.Summary
	PlotFiles      []string
	Warnings       []string
}

// ChromosomeStats describes the average cell type percentile across the
// bins of one chromosome.
type ChromosomeStats struct {
	Chromosome string
	Bins       int
	Mean       float64
	Std        float64
	Min        float64
	Median     float64
	Max        float64
}

// Build reads the summary tables of s. res may be nil when no run just
// happened, in which case the latest recorded run fills the header.
func Build(s *store.Store, res *pipeline.Result, topN int) (*Report, error) {
	rep := &Report{TableFile: s.Path(), Thresholds: pipeline.DefaultThresholds}
	if res != nil {
		rep.RunID = res.RunID
		rep.StartedAt = res.StartedAt
		rep.Duration = res.Duration()
		rep.CellTypes = res.CellTypes
		rep.Chromosomes = res.Chromosomes
		rep.NormalizedRows = res.NormalizedRows
		rep.SummaryRows = res.SummaryRows
		rep.Thresholds = res.Thresholds
		rep.PlotFiles = res.PlotFiles
	} else {
		runs, err := s.Runs()
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			rep.Warnings = append(rep.Warnings, "no pipeline run recorded in this table file")
		} else {
			last := runs[0]
			rep.RunID = last.RunID
			rep.StartedAt = last.StartedAt
			rep.Duration = last.FinishedAt.Sub(last.StartedAt)
			rep.NormalizedRows = last.NormalizedRows
			rep.SummaryRows = last.SummaryRows
		}
		if rep.Chromosomes, err = s.Chromosomes(); err != nil {
			return nil, err
		}
		if rep.CellTypes, err = s.CellTypes(); err != nil {
			return nil, err
		}
	}

	ok, err := s.HasTable(store.TableSummary)
	if err != nil {
		return nil, err
	}
	if !ok {
		rep.Warnings = append(rep.Warnings, "summary table missing; run summarize first")
		return rep, nil
	}
	summaries, err := s.Summaries(store.TableSummary, 0)
	if err != nil {
		return nil, err
	}
	if rep.Stats, err = describe(rep.Chromosomes, summaries); err != nil {
		return nil, err
	}
	if topN > 0 {
		if rep.Top, err = s.Summaries(store.TableSortedSummary, topN); err != nil {
			return nil, err
		}
	}
	return rep, nil
}

func describe(chromosomes []string, rows []store.Summary) ([]ChromosomeStats, error) {
	byChrom := map[string][]float64{}
	for _, r := range rows {
		byChrom[r.Chromosome] = append(byChrom[r.Chromosome], r.AvgCellTypePercentile)
	}
	var out []ChromosomeStats
	for _, chrom := range chromosomes {
		vals := byChrom[chrom]
		d, err := stats.Describe(vals, false, nil)
		if errors.Is(err, stats.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", chrom, err)
		}
		median, err := stats.Median(vals)
		if err != nil {
			return nil, fmt.Errorf("median %s: %w", chrom, err)
		}
		out = append(out, ChromosomeStats{
			Chromosome: chrom,
			Bins:       d.Count,
			Mean:       d.Mean,
			Std:        d.Std,
			Min:        d.Min,
			Median:     median,
			Max:        d.Max,
		})
	}
	return out, nil
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN]\n")
	b.WriteString(fmt.Sprintf("Table file: %s\n", r.TableFile))
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
		b.WriteString(fmt.Sprintf("Started: %s (took %s)\n", r.StartedAt.UTC().Format(time.RFC3339), r.Duration.Round(time.Millisecond)))
	}
	b.WriteString(fmt.Sprintf("Cell types: %d", len(r.CellTypes)))
	if len(r.CellTypes) > 0 {
		b.WriteString(fmt.Sprintf(" (%s)", strings.Join(r.CellTypes, ", ")))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Chromosomes: %d\n", len(r.Chromosomes)))
	b.WriteString(fmt.Sprintf("Normalized rows: %d\n", r.NormalizedRows))
	b.WriteString(fmt.Sprintf("Summary rows: %d\n", r.SummaryRows))
	b.WriteString(fmt.Sprintf("Thresholds: high %s, low %s\n", ordinal(r.Thresholds.High), ordinal(r.Thresholds.Low)))

	if len(r.Stats) > 0 {
		b.WriteString("\n[AVERAGE CELL TYPE PERCENTILE BY CHROMOSOME]\n")
		b.WriteString("| chromosome | bins | mean | std | min | median | max |\n")
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for _, s := range r.Stats {
			b.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
				safeVal(s.Chromosome), s.Bins, s.Mean, s.Std, s.Min, s.Median, s.Max))
		}
	}

	if len(r.Top) > 0 {
		b.WriteString(fmt.Sprintf("\n[TOP %d BINS]\n", len(r.Top)))
		hi, lo := ordinal(r.Thresholds.High), ordinal(r.Thresholds.Low)
		b.WriteString(fmt.Sprintf("| chromosome | bin | avg percentile | cell types >= %s | lines >= %s | cell types < %s | lines < %s |\n", hi, hi, lo, lo))
		b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
		for _, s := range r.Top {
			b.WriteString(fmt.Sprintf("| %s | %d | %.2f | %d | %d | %d | %d |\n",
				safeVal(s.Chromosome), s.BinNumber, s.AvgCellTypePercentile,
				s.CellTypesGteHighPercentile, s.LinesGteHighPercentile,
				s.CellTypesLtLowPercentile, s.LinesLtLowPercentile))
		}
	}

	if len(r.PlotFiles) > 0 {
		b.WriteString("\n[PLOTS]\n")
		for _, p := range r.PlotFiles {
			b.WriteString("- ")
			b.WriteString(p)
			b.WriteString("\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func ordinal(p float64) string {
	if p != float64(int64(p)) {
		return fmt.Sprintf("%gth", p)
	}
	n := int64(p)
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
