// Package plot renders normalized bin counts as interactive HTML scatter
// charts.
package plot

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
	"github.com/KaramelBytes/binliquidator-cli/internal/utils"
)

// SummaryFile is the name of the page holding every chromosome overview.
const SummaryFile = "summary.html"

// Options sizes the rendered charts, in pixels.
type Options struct {
	Width  int
	Height int
}

// DefaultOptions returns the chart size used when none is configured.
func DefaultOptions() Options {
	return Options{Width: 1100, Height: 450}
}

// Series is one scatter series: a value per bin.
type Series struct {
	Name   string
	Bins   []uint32
	Values []float64
}

// Len returns the number of points in the series.
func (s Series) Len() int { return len(s.Bins) }

// Chromosome holds what gets drawn for one chromosome: the sum of the cell
// type averages per bin, and each cell type average on its own.
type Chromosome struct {
	Name      string
	Overview  Series
	CellTypes []Series
}

// FromRows builds the plot data of a chromosome from its normalized rows.
// Only cell type aggregate rows are drawn.
func FromRows(chromosome string, rows []store.NormalizedCount) Chromosome {
	perCell := map[string]*Series{}
	sums := map[uint32]float64{}
	var bins []uint32
	for _, row := range rows {
		if !row.IsAggregate() {
			continue
		}
		s := perCell[row.CellType]
		if s == nil {
			s = &Series{Name: row.CellType}
			perCell[row.CellType] = s
		}
		s.Bins = append(s.Bins, row.BinNumber)
		s.Values = append(s.Values, row.NormalizedCount)
		if _, ok := sums[row.BinNumber]; !ok {
			bins = append(bins, row.BinNumber)
		}
		sums[row.BinNumber] += row.NormalizedCount
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })

	c := Chromosome{Name: chromosome, Overview: Series{Name: "all cell types"}}
	for _, b := range bins {
		c.Overview.Bins = append(c.Overview.Bins, b)
		c.Overview.Values = append(c.Overview.Values, sums[b])
	}
	names := make([]string, 0, len(perCell))
	for name := range perCell {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.CellTypes = append(c.CellTypes, *perCell[name])
	}
	return c
}

// ChromosomeFile is the file name of a chromosome's page.
func ChromosomeFile(chromosome string) string {
	return utils.SafeFileName(chromosome) + ".html"
}

// WriteChromosome renders the overview and the per cell type charts of one
// chromosome into dir and returns the written path.
func WriteChromosome(dir string, c Chromosome, opt Options) (string, error) {
	page := components.NewPage()
	page.SetPageTitle(c.Name)
	page.AddCharts(scatter(c.Name, "sum of cell type averages", c.Overview, opt))
	for _, s := range c.CellTypes {
		page.AddCharts(scatter(c.Name+" "+s.Name, "cell type average", s, opt))
	}
	path := filepath.Join(dir, ChromosomeFile(c.Name))
	if err := renderTo(path, page); err != nil {
		return "", err
	}
	return path, nil
}

// WriteSummary renders the overview of every chromosome into a single page
// and returns the written path.
func WriteSummary(dir string, chromosomes []Chromosome, opt Options) (string, error) {
	page := components.NewPage()
	page.SetPageTitle("summary")
	for _, c := range chromosomes {
		page.AddCharts(scatter(c.Name, "sum of cell type averages", c.Overview, opt))
	}
	path := filepath.Join(dir, SummaryFile)
	if err := renderTo(path, page); err != nil {
		return "", err
	}
	return path, nil
}

func scatter(title, subtitle string, s Series, opt Options) *charts.Scatter {
	if opt.Width <= 0 || opt.Height <= 0 {
		opt = DefaultOptions()
	}
	c := charts.NewScatter()
	c.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", opt.Width),
			Height: fmt.Sprintf("%dpx", opt.Height),
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "bin", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "normalized count"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	data := make([]opts.ScatterData, s.Len())
	for i := range s.Bins {
		data[i] = opts.ScatterData{Value: []interface{}{s.Bins[i], s.Values[i]}, SymbolSize: 4}
	}
	c.AddSeries(s.Name, data)
	return c
}

func renderTo(path string, page *components.Page) error {
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", filepath.Base(path), err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
