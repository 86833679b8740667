package store

import "time"

// AggregateFileName marks a normalized row holding the average of every file
// in its cell type rather than a single file.
const AggregateFileName = "*"

// Table names inside a table file.
const (
	TableBinCounts        = "bin_counts"
	TableFileTotals       = "file_totals"
	TableNormalizedCounts = "normalized_counts"
	TableSummary          = "summary"
	TableSortedSummary    = "sorted_summary"
	TableRuns             = "runs"
)

// BinCount is one raw count for a bin of a chromosome in one input file.
type BinCount struct {
	ID              int64   `db:"id"`
	BinNumber       uint32  `db:"bin_number"`
	CellType        string  `db:"cell_type"`
	Chromosome      string  `db:"chromosome"`
	FileName        string  `db:"file_name"`
	Start           int64   `db:"start"`
	Stop            int64   `db:"stop"`
	Count           int64   `db:"count"`
	NormalizedCount float64 `db:"normalized_count"`
}

// RegionSize is the number of base pairs covered by the bin.
func (b BinCount) RegionSize() int64 { return b.Stop - b.Start }

// NormalizedCount is a normalized bin value with its percentile inside the
// (cell type, file) group it belongs to.
type NormalizedCount struct {
	ID              int64   `db:"id"`
	BinNumber       uint32  `db:"bin_number"`
	CellType        string  `db:"cell_type"`
	Chromosome      string  `db:"chromosome"`
	FileName        string  `db:"file_name"`
	NormalizedCount float64 `db:"normalized_count"`
	Percentile      float64 `db:"percentile"`
}

// IsAggregate reports whether the row is a cell type average.
func (n NormalizedCount) IsAggregate() bool { return n.FileName == AggregateFileName }

// Summary tallies, for one bin of a chromosome, how cell types and lines
// (individual files) rank against the high and low percentile thresholds.
type Summary struct {
	ID                         int64   `db:"id" json:"id"`
	BinNumber                  uint32  `db:"bin_number" json:"bin_number"`
	Chromosome                 string  `db:"chromosome" json:"chromosome"`
	AvgCellTypePercentile      float64 `db:"avg_cell_type_percentile" json:"avg_cell_type_percentile"`
	CellTypesGteHighPercentile uint32  `db:"cell_types_gte_95th_percentile" json:"cell_types_gte_95th_percentile"`
	CellTypesLtHighPercentile  uint32  `db:"cell_types_lt_95th_percentile" json:"cell_types_lt_95th_percentile"`
	LinesGteHighPercentile     uint32  `db:"lines_gte_95th_percentile" json:"lines_gte_95th_percentile"`
	LinesLtHighPercentile      uint32  `db:"lines_lt_95th_percentile" json:"lines_lt_95th_percentile"`
	CellTypesGteLowPercentile  uint32  `db:"cell_types_gte_5th_percentile" json:"cell_types_gte_5th_percentile"`
	CellTypesLtLowPercentile   uint32  `db:"cell_types_lt_5th_percentile" json:"cell_types_lt_5th_percentile"`
	LinesGteLowPercentile      uint32  `db:"lines_gte_5th_percentile" json:"lines_gte_5th_percentile"`
	LinesLtLowPercentile       uint32  `db:"lines_lt_5th_percentile" json:"lines_lt_5th_percentile"`
}

// FileTotal is the total read count of one input file.
type FileTotal struct {
	FileName   string `db:"file_name"`
	TotalCount int64  `db:"total_count"`
}

// Run records one execution of the normalize/summarize pipeline.
type Run struct {
	RunID          string    `db:"run_id" json:"run_id"`
	TableFile      string    `db:"table_file" json:"table_file"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	FinishedAt     time.Time `db:"finished_at" json:"finished_at"`
	CellTypes      int       `db:"cell_types" json:"cell_types"`
	Chromosomes    int       `db:"chromosomes" json:"chromosomes"`
	NormalizedRows int       `db:"normalized_rows" json:"normalized_rows"`
	SummaryRows    int       `db:"summary_rows" json:"summary_rows"`
}
