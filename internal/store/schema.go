package store

// Base tables survive a pipeline rerun; derived tables are dropped and rebuilt.
var baseSchema = []string{
	`CREATE TABLE IF NOT EXISTS bin_counts (
		id               INTEGER PRIMARY KEY,
		bin_number       INTEGER NOT NULL,
		cell_type        TEXT    NOT NULL,
		chromosome       TEXT    NOT NULL,
		file_name        TEXT    NOT NULL,
		start            INTEGER NOT NULL,
		stop             INTEGER NOT NULL,
		count            INTEGER NOT NULL,
		normalized_count REAL    NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS file_totals (
		file_name   TEXT PRIMARY KEY,
		total_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id          TEXT PRIMARY KEY,
		table_file      TEXT     NOT NULL,
		started_at      DATETIME NOT NULL,
		finished_at     DATETIME NOT NULL,
		cell_types      INTEGER  NOT NULL,
		chromosomes     INTEGER  NOT NULL,
		normalized_rows INTEGER  NOT NULL,
		summary_rows    INTEGER  NOT NULL
	)`,
}

var baseTables = map[string]bool{
	TableBinCounts:  true,
	TableFileTotals: true,
	TableRuns:       true,
}

const summaryColumns = `
		bin_number                     INTEGER NOT NULL,
		chromosome                     TEXT    NOT NULL,
		avg_cell_type_percentile       REAL    NOT NULL,
		cell_types_gte_95th_percentile INTEGER NOT NULL,
		cell_types_lt_95th_percentile  INTEGER NOT NULL,
		lines_gte_95th_percentile      INTEGER NOT NULL,
		lines_lt_95th_percentile       INTEGER NOT NULL,
		cell_types_gte_5th_percentile  INTEGER NOT NULL,
		cell_types_lt_5th_percentile   INTEGER NOT NULL,
		lines_gte_5th_percentile       INTEGER NOT NULL,
		lines_lt_5th_percentile        INTEGER NOT NULL`

var derivedSchema = []string{
	`CREATE TABLE normalized_counts (
		id               INTEGER PRIMARY KEY,
		bin_number       INTEGER NOT NULL,
		cell_type        TEXT    NOT NULL,
		chromosome       TEXT    NOT NULL,
		file_name        TEXT    NOT NULL,
		normalized_count REAL    NOT NULL,
		percentile       REAL    NOT NULL
	)`,
	`CREATE TABLE summary (
		id INTEGER PRIMARY KEY,` + summaryColumns + `
	)`,
	`CREATE TABLE sorted_summary (
		id INTEGER PRIMARY KEY,` + summaryColumns + `
	)`,
}

var normalizedIndexes = []string{
	`CREATE INDEX normalized_counts_bin_number ON normalized_counts (bin_number)`,
	`CREATE INDEX normalized_counts_percentile ON normalized_counts (percentile)`,
	`CREATE INDEX normalized_counts_file_name ON normalized_counts (file_name)`,
	`CREATE INDEX normalized_counts_chromosome ON normalized_counts (chromosome)`,
	`CREATE INDEX normalized_counts_group ON normalized_counts (cell_type, file_name)`,
}

const summaryFields = `bin_number, chromosome, avg_cell_type_percentile,
	cell_types_gte_95th_percentile, cell_types_lt_95th_percentile,
	lines_gte_95th_percentile, lines_lt_95th_percentile,
	cell_types_gte_5th_percentile, cell_types_lt_5th_percentile,
	lines_gte_5th_percentile, lines_lt_5th_percentile`

// Reversing an ascending sort (later rows win ties) keeps the copy stable
// across reruns.
var sortedSummaryCopy = []string{
	`INSERT INTO sorted_summary (` + summaryFields + `)
		SELECT ` + summaryFields + ` FROM summary
		ORDER BY avg_cell_type_percentile DESC, id DESC`,
	`CREATE INDEX summary_avg_cell_type_percentile ON summary (avg_cell_type_percentile)`,
	`CREATE INDEX sorted_summary_bin_number ON sorted_summary (bin_number)`,
}
