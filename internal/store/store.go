package store

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store is a table file: a SQLite database holding the raw bin counts and
// every table derived from them.
type Store struct {
	db   *sqlx.DB
	path string

	// cell type -> sorted file names, valid until the derived tables are reset
	fileNames map[string][]string
}

// Open opens (creating if needed) the table file at path and ensures the
// base tables exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("table file path is required")
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open table file: %w", err)
	}
	// A single connection serializes every read behind the open phase.
	db.SetMaxOpenConns(1)
	for _, stmt := range baseSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create base tables: %w", err)
		}
	}
	return &Store{db: db, path: path, fileNames: map[string][]string{}}, nil
}

// OpenExisting opens a table file that must already exist on disk.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("table file: %w", err)
	}
	return Open(path)
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the on-disk location of the table file.
func (s *Store) Path() string { return s.path }

// Tables lists every table in the file, sorted by name.
func (s *Store) Tables() ([]string, error) {
	var names []string
	if err := s.db.Select(&names, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// HasTable reports whether the named table exists.
func (s *Store) HasTable(name string) (bool, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name); err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	return n > 0, nil
}

// ResetDerived drops every table except the base ones and recreates empty
// normalized_counts, summary and sorted_summary tables. Regenerating is
// simpler than updating prior rows in place.
func (s *Store) ResetDerived() error {
	tables, err := s.Tables()
	if err != nil {
		return err
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()
	for _, name := range tables {
		if baseTables[name] {
			continue
		}
		if _, err := tx.Exec(`DROP TABLE ` + quoteIdent(name)); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	for _, stmt := range derivedSchema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("create derived tables: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	s.fileNames = map[string][]string{}
	return nil
}

// BinCounts returns every raw row in table order.
func (s *Store) BinCounts() ([]BinCount, error) {
	var rows []BinCount
	if err := s.db.Select(&rows, `SELECT * FROM bin_counts ORDER BY id`); err != nil {
		return nil, fmt.Errorf("read bin_counts: %w", err)
	}
	return rows, nil
}

// CountRows returns the number of rows in a known table.
func (s *Store) CountRows(table string) (int, error) {
	if !KnownTable(table) {
		return 0, fmt.Errorf("unknown table: %s", table)
	}
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM `+quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// CellTypes returns the distinct cell types of the raw table, sorted.
func (s *Store) CellTypes() ([]string, error) {
	var out []string
	if err := s.db.Select(&out, `SELECT DISTINCT cell_type FROM bin_counts ORDER BY cell_type`); err != nil {
		return nil, fmt.Errorf("read cell types: %w", err)
	}
	return out, nil
}

// Chromosomes returns the distinct chromosomes in order of first appearance.
func (s *Store) Chromosomes() ([]string, error) {
	var out []string
	q := `SELECT chromosome FROM bin_counts GROUP BY chromosome ORDER BY MIN(id)`
	if err := s.db.Select(&out, q); err != nil {
		return nil, fmt.Errorf("read chromosomes: %w", err)
	}
	return out, nil
}

// FileNames returns the sorted input files of a cell type. Results are
// memoized until the derived tables are reset.
func (s *Store) FileNames(cellType string) ([]string, error) {
	if names, ok := s.fileNames[cellType]; ok {
		return names, nil
	}
	var names []string
	q := `SELECT DISTINCT file_name FROM bin_counts WHERE cell_type = ? ORDER BY file_name`
	if err := s.db.Select(&names, q, cellType); err != nil {
		return nil, fmt.Errorf("read file names for %s: %w", cellType, err)
	}
	s.fileNames[cellType] = names
	return names, nil
}

// ImportedFiles returns every distinct file name in bin_counts, sorted.
func (s *Store) ImportedFiles() ([]string, error) {
	var names []string
	if err := s.db.Select(&names, `SELECT DISTINCT file_name FROM bin_counts ORDER BY file_name`); err != nil {
		return nil, fmt.Errorf("read imported files: %w", err)
	}
	return names, nil
}

// FileTotals returns the stored file -> total read count mapping.
func (s *Store) FileTotals() (map[string]int64, error) {
	var rows []FileTotal
	if err := s.db.Select(&rows, `SELECT file_name, total_count FROM file_totals`); err != nil {
		return nil, fmt.Errorf("read file_totals: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.FileName] = r.TotalCount
	}
	return out, nil
}

// NormalizedGroup returns the normalized rows of one (cell type, file)
// group in table order. Use AggregateFileName for the cell type averages.
func (s *Store) NormalizedGroup(cellType, fileName string) ([]NormalizedCount, error) {
	return selectGroup(s.db, cellType, fileName)
}

// NormalizedByChromosome returns every normalized row of a chromosome in
// table order.
func (s *Store) NormalizedByChromosome(chromosome string) ([]NormalizedCount, error) {
	var rows []NormalizedCount
	q := `SELECT * FROM normalized_counts WHERE chromosome = ? ORDER BY id`
	if err := s.db.Select(&rows, q, chromosome); err != nil {
		return nil, fmt.Errorf("read normalized rows for %s: %w", chromosome, err)
	}
	return rows, nil
}

// Summaries returns the rows of summary or sorted_summary in table order.
// A positive limit caps the number of rows.
func (s *Store) Summaries(table string, limit int) ([]Summary, error) {
	if table != TableSummary && table != TableSortedSummary {
		return nil, fmt.Errorf("not a summary table: %s", table)
	}
	q := `SELECT * FROM ` + table + ` ORDER BY id`
	var rows []Summary
	var err error
	if limit > 0 {
		err = s.db.Select(&rows, q+` LIMIT ?`, limit)
	} else {
		err = s.db.Select(&rows, q)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return rows, nil
}

// Runs returns the recorded pipeline runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	if err := s.db.Select(&runs, `SELECT * FROM runs ORDER BY started_at DESC, run_id`); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	return runs, nil
}

// Dump returns the column names and stringified rows of a known table.
func (s *Store) Dump(table string) ([]string, [][]string, error) {
	if !KnownTable(table) {
		return nil, nil, fmt.Errorf("unknown table: %s", table)
	}
	rows, err := s.db.Queryx(`SELECT * FROM ` + quoteIdent(table) + ` ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	var out [][]string
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = formatValue(v)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return cols, out, nil
}

// KnownTable reports whether name is one of the tables a table file may hold.
func KnownTable(name string) bool {
	switch name {
	case TableBinCounts, TableFileTotals, TableNormalizedCounts, TableSummary, TableSortedSummary, TableRuns:
		return true
	}
	return false
}

// KnownTables lists the table names accepted by Dump, sorted.
func KnownTables() []string {
	out := []string{TableBinCounts, TableFileTotals, TableNormalizedCounts, TableSummary, TableSortedSummary, TableRuns}
	sort.Strings(out)
	return out
}

func selectGroup(q sqlx.Queryer, cellType, fileName string) ([]NormalizedCount, error) {
	var rows []NormalizedCount
	query := `SELECT * FROM normalized_counts WHERE cell_type = ? AND file_name = ? ORDER BY id`
	if err := sqlx.Select(q, &rows, query, cellType, fileName); err != nil {
		return nil, fmt.Errorf("read group %s/%s: %w", cellType, fileName, err)
	}
	return rows, nil
}

func quoteIdent(name string) string { return `"` + name + `"` }
