// Package pipeline turns the raw bin counts of a table file into normalized
// counts, percentiles, cell type averages and a per-bin summary.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/binliquidator-cli/internal/plot"
	"github.com/KaramelBytes/binliquidator-cli/internal/store"
	"github.com/KaramelBytes/binliquidator-cli/internal/utils"
)

// Options controls a pipeline run.
type Options struct {
	// Totals maps file name to total read count. When nil the totals stored
	// in the table file are used.
	Totals map[string]int64
	// OutputDir receives the HTML plots. Required unless SkipPlots is set.
	OutputDir  string
	SkipPlots  bool
	Thresholds Thresholds
	Plot       plot.Options
	Logger     logrus.FieldLogger
}

// Result describes a finished run.
type Result struct {
	RunID          string
	TableFile      string
	StartedAt      time.Time
	FinishedAt     time.Time
	CellTypes      []string
	Chromosomes    []string
	NormalizedRows int
	SummaryRows    int
	Thresholds     Thresholds
	PlotFiles      []string
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

type runner struct {
	store  *store.Store
	opts   Options
	totals map[string]int64
	log    logrus.FieldLogger
}

// Run regenerates every derived table of s from bin_counts. Each phase is
// flushed before the next one reads, and ctx is checked between phases.
func Run(ctx context.Context, s *store.Store, opt Options) (*Result, error) {
	if opt.Thresholds == (Thresholds{}) {
		opt.Thresholds = DefaultThresholds
	}
	if !opt.SkipPlots && opt.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required unless plots are skipped")
	}
	log := opt.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &runner{store: s, opts: opt, log: log}
	res := &Result{
		RunID:      uuid.NewString(),
		TableFile:  s.Path(),
		StartedAt:  time.Now().UTC(),
		Thresholds: opt.Thresholds,
	}
	r.log = log.WithField("run_id", res.RunID)

	if err := s.ResetDerived(); err != nil {
		return nil, fmt.Errorf("reset derived tables: %w", err)
	}
	if err := r.resolveTotals(); err != nil {
		return nil, err
	}

	var err error
	if res.CellTypes, err = s.CellTypes(); err != nil {
		return nil, err
	}
	if res.Chromosomes, err = s.Chromosomes(); err != nil {
		return nil, err
	}
	r.log.WithField("cell_types", len(res.CellTypes)).
		WithField("chromosomes", len(res.Chromosomes)).Info("starting run")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.NormalizedRows, err = r.normalize(); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	for _, cellType := range res.CellTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.cellType(cellType); err != nil {
			return nil, err
		}
	}

	tx, err := s.Begin()
	if err != nil {
		return nil, err
	}
	if err := tx.IndexNormalized(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Flush(); err != nil {
		return nil, err
	}

	if !opt.SkipPlots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if res.PlotFiles, err = r.plot(res.Chromosomes); err != nil {
			return nil, fmt.Errorf("plot: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.SummaryRows, err = r.summarize(res.Chromosomes); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	res.FinishedAt = time.Now().UTC()
	if err := r.record(res); err != nil {
		return nil, err
	}
	r.log.WithField("rows", res.SummaryRows).
		WithField("elapsed", res.Duration().Round(time.Millisecond).String()).Info("run finished")
	return res, nil
}

func (r *runner) resolveTotals() error {
	if r.opts.Totals != nil {
		r.totals = r.opts.Totals
		return nil
	}
	totals, err := r.store.FileTotals()
	if err != nil {
		return err
	}
	r.totals = totals
	return nil
}

// cellType ranks every file of the cell type, then builds and ranks its
// average.
func (r *runner) cellType(cellType string) error {
	files, err := r.store.FileNames(cellType)
	if err != nil {
		return err
	}
	r.log.WithField("cell_type", cellType).WithField("files", len(files)).Info("processing cell type")
	for _, name := range files {
		if err := r.percentiles(cellType, name); err != nil {
			return fmt.Errorf("percentiles %s/%s: %w", cellType, name, err)
		}
	}
	if err := r.aggregate(cellType); err != nil {
		return fmt.Errorf("aggregate %s: %w", cellType, err)
	}
	if err := r.percentiles(cellType, store.AggregateFileName); err != nil {
		return fmt.Errorf("percentiles %s/%s: %w", cellType, store.AggregateFileName, err)
	}
	return nil
}

func (r *runner) plot(chromosomes []string) ([]string, error) {
	if err := utils.EnsureDir(r.opts.OutputDir); err != nil {
		return nil, err
	}
	var (
		files []string
		all   []plot.Chromosome
	)
	for _, chrom := range chromosomes {
		rows, err := r.store.NormalizedByChromosome(chrom)
		if err != nil {
			return nil, err
		}
		c := plot.FromRows(chrom, rows)
		path, err := plot.WriteChromosome(r.opts.OutputDir, c, r.opts.Plot)
		if err != nil {
			return nil, err
		}
		r.log.WithField("chromosome", chrom).WithField("file", path).Debug("wrote plot")
		files = append(files, path)
		all = append(all, c)
	}
	path, err := plot.WriteSummary(r.opts.OutputDir, all, r.opts.Plot)
	if err != nil {
		return nil, err
	}
	return append(files, path), nil
}

func (r *runner) record(res *Result) error {
	tx, err := r.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = tx.InsertRun(store.Run{
		RunID:          res.RunID,
		TableFile:      res.TableFile,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		CellTypes:      len(res.CellTypes),
		Chromosomes:    len(res.Chromosomes),
		NormalizedRows: res.NormalizedRows,
		SummaryRows:    res.SummaryRows,
	})
	if err != nil {
		return err
	}
	return tx.Flush()
}
