package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

// Tx groups the writes of one pipeline phase. Nothing written through a Tx
// is visible to Store reads until Flush returns.
type Tx struct {
	tx      *sqlx.Tx
	flushed bool
}

// Begin starts a new phase. Callers must Flush or Rollback it before
// reading through the Store again.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin phase: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Flush commits the phase.
func (t *Tx) Flush() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	t.flushed = true
	return nil
}

// Rollback discards an unflushed phase. It is a no-op after Flush.
func (t *Tx) Rollback() {
	if t.flushed {
		return
	}
	_ = t.tx.Rollback()
}

// InsertBinCounts appends raw rows to bin_counts.
func (t *Tx) InsertBinCounts(rows []BinCount) error {
	stmt, err := t.tx.PrepareNamed(`INSERT INTO bin_counts
		(bin_number, cell_type, chromosome, file_name, start, stop, count, normalized_count)
		VALUES (:bin_number, :cell_type, :chromosome, :file_name, :start, :stop, :count, :normalized_count)`)
	if err != nil {
		return fmt.Errorf("prepare bin_counts insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r); err != nil {
			return fmt.Errorf("insert bin count %s/%s/%s bin %d: %w", r.CellType, r.FileName, r.Chromosome, r.BinNumber, err)
		}
	}
	return nil
}

// DeleteBinCounts removes every raw row of the given file.
func (t *Tx) DeleteBinCounts(fileName string) (int64, error) {
	res, err := t.tx.Exec(`DELETE FROM bin_counts WHERE file_name = ?`, fileName)
	if err != nil {
		return 0, fmt.Errorf("delete bin counts of %s: %w", fileName, err)
	}
	return res.RowsAffected()
}

// ReplaceFileTotals swaps the whole file -> total read count mapping.
func (t *Tx) ReplaceFileTotals(totals map[string]int64) error {
	if _, err := t.tx.Exec(`DELETE FROM file_totals`); err != nil {
		return fmt.Errorf("clear file_totals: %w", err)
	}
	stmt, err := t.tx.Preparex(`INSERT INTO file_totals (file_name, total_count) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file_totals insert: %w", err)
	}
	defer stmt.Close()
	for name, total := range totals {
		if _, err := stmt.Exec(name, total); err != nil {
			return fmt.Errorf("insert total for %s: %w", name, err)
		}
	}
	return nil
}

// SetBinNormalizedCounts writes normalized values back to bin_counts, keyed
// by row id.
func (t *Tx) SetBinNormalizedCounts(rows []BinCount) error {
	stmt, err := t.tx.Preparex(`UPDATE bin_counts SET normalized_count = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare bin_counts update: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.NormalizedCount, r.ID); err != nil {
			return fmt.Errorf("update bin count %d: %w", r.ID, err)
		}
	}
	return nil
}

// InsertNormalized appends rows to normalized_counts.
func (t *Tx) InsertNormalized(rows []NormalizedCount) error {
	stmt, err := t.tx.PrepareNamed(`INSERT INTO normalized_counts
		(bin_number, cell_type, chromosome, file_name, normalized_count, percentile)
		VALUES (:bin_number, :cell_type, :chromosome, :file_name, :normalized_count, :percentile)`)
	if err != nil {
		return fmt.Errorf("prepare normalized_counts insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r); err != nil {
			return fmt.Errorf("insert normalized %s/%s/%s bin %d: %w", r.CellType, r.FileName, r.Chromosome, r.BinNumber, err)
		}
	}
	return nil
}

// NormalizedGroup reads a (cell type, file) group inside the phase, so
// rows written earlier in the same phase are included.
func (t *Tx) NormalizedGroup(cellType, fileName string) ([]NormalizedCount, error) {
	return selectGroup(t.tx, cellType, fileName)
}

// SetPercentile updates the percentile of one normalized row.
func (t *Tx) SetPercentile(id int64, percentile float64) error {
	if _, err := t.tx.Exec(`UPDATE normalized_counts SET percentile = ? WHERE id = ?`, percentile, id); err != nil {
		return fmt.Errorf("update percentile %d: %w", id, err)
	}
	return nil
}

// SetNormalizedCount updates the normalized value of one normalized row.
func (t *Tx) SetNormalizedCount(id int64, value float64) error {
	if _, err := t.tx.Exec(`UPDATE normalized_counts SET normalized_count = ? WHERE id = ?`, value, id); err != nil {
		return fmt.Errorf("update normalized count %d: %w", id, err)
	}
	return nil
}

// IndexNormalized creates the lookup indexes used by the summary phase.
func (t *Tx) IndexNormalized() error {
	for _, stmt := range normalizedIndexes {
		if _, err := t.tx.Exec(stmt); err != nil {
			return fmt.Errorf("index normalized_counts: %w", err)
		}
	}
	return nil
}

// InsertSummaries appends rows to the summary table.
func (t *Tx) InsertSummaries(rows []Summary) error {
	stmt, err := t.tx.PrepareNamed(`INSERT INTO summary (` + summaryFields + `) VALUES (
		:bin_number, :chromosome, :avg_cell_type_percentile,
		:cell_types_gte_95th_percentile, :cell_types_lt_95th_percentile,
		:lines_gte_95th_percentile, :lines_lt_95th_percentile,
		:cell_types_gte_5th_percentile, :cell_types_lt_5th_percentile,
		:lines_gte_5th_percentile, :lines_lt_5th_percentile)`)
	if err != nil {
		return fmt.Errorf("prepare summary insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r); err != nil {
			return fmt.Errorf("insert summary %s bin %d: %w", r.Chromosome, r.BinNumber, err)
		}
	}
	return nil
}

// CopySortedSummary fills sorted_summary with the summary rows in
// decreasing average percentile order and indexes both tables.
func (t *Tx) CopySortedSummary() error {
	for _, stmt := range sortedSummaryCopy {
		if _, err := t.tx.Exec(stmt); err != nil {
			return fmt.Errorf("build sorted_summary: %w", err)
		}
	}
	return nil
}

// InsertRun records a finished pipeline run.
func (t *Tx) InsertRun(r Run) error {
	_, err := t.tx.NamedExec(`INSERT INTO runs
		(run_id, table_file, started_at, finished_at, cell_types, chromosomes, normalized_rows, summary_rows)
		VALUES (:run_id, :table_file, :started_at, :finished_at, :cell_types, :chromosomes, :normalized_rows, :summary_rows)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
