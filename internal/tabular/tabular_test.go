package tabular

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestReadBinCountsCSV(t *testing.T) {
	p := writeFile(t, "counts.csv", ""+
		"cell_type,file_name,chromosome,bin_number,start,stop,count\n"+
		"mm1s,a.bam,chr1,0,0,1000,12\n"+
		"# comment lines are skipped\n"+
		"mm1s,a.bam,chr1,1,1000,2000,7\n")
	rows, err := ReadBinCounts(p, ImportOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	r := rows[1]
	if r.CellType != "mm1s" || r.FileName != "a.bam" || r.Chromosome != "chr1" || r.BinNumber != 1 {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.Start != 1000 || r.Stop != 2000 || r.Count != 7 {
		t.Fatalf("unexpected coordinates: %+v", r)
	}
}

func TestReadBinCountsTSVWithBinSize(t *testing.T) {
	p := writeFile(t, "sample1.tsv", "chr\tbin\tcount\nchr2\t3\t5\n")
	rows, err := ReadBinCounts(p, ImportOptions{BinSize: 100000, CellType: "kms11"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Start != 300000 || r.Stop != 400000 || r.RegionSize() != 100000 {
		t.Fatalf("bin size not applied: %+v", r)
	}
	if r.FileName != "sample1.tsv" || r.CellType != "kms11" {
		t.Fatalf("defaults not applied: %+v", r)
	}
}

func TestReadBinCountsErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		opt     ImportOptions
		want    string
	}{
		{"no bin column", "chromosome,count\nchr1,3\n", ImportOptions{CellType: "x", BinSize: 1}, "bin_number"},
		{"no cell type", "chromosome,bin,count\nchr1,0,3\n", ImportOptions{BinSize: 1}, "cell type"},
		{"no bin size", "chromosome,bin,count,cell_type\nchr1,0,3,x\n", ImportOptions{}, "bin size"},
		{"bad count", "chromosome,bin,count,cell_type\nchr1,0,lots,x\n", ImportOptions{BinSize: 1}, "line 2: count"},
		{"fractional count", "chromosome,bin,count,cell_type\nchr1,0,1.5,x\n", ImportOptions{BinSize: 1}, "not an integer"},
		{"start without stop", "chromosome,bin,count,cell_type,start\nchr1,0,1,x,0\n", ImportOptions{}, "together"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := writeFile(t, "c.csv", c.content)
			_, err := ReadBinCounts(p, c.opt)
			if err == nil || !strings.Contains(err.Error(), c.want) {
				t.Fatalf("expected error containing %q, got %v", c.want, err)
			}
		})
	}
}

func TestReadRowsUnsupported(t *testing.T) {
	p := writeFile(t, "counts.json", "{}")
	if _, err := ReadRows(p, ""); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestReadTotals(t *testing.T) {
	withHeader := writeFile(t, "totals.csv", "file_name,total_count\na.bam,1000000\nb.bam,2e6\n")
	got, err := ReadTotals(withHeader, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got["a.bam"] != 1000000 || got["b.bam"] != 2000000 || len(got) != 2 {
		t.Fatalf("unexpected totals: %v", got)
	}

	bare := writeFile(t, "totals.tsv", "a.bam\t5\n")
	got, err = ReadTotals(bare, "")
	if err != nil {
		t.Fatalf("read bare: %v", err)
	}
	if got["a.bam"] != 5 {
		t.Fatalf("unexpected totals: %v", got)
	}

	dup := writeFile(t, "dup.csv", "a.bam,1\na.bam,2\n")
	if _, err := ReadTotals(dup, ""); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestExportCSVAndXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cols := []string{"cell_type", "file_name", "chromosome", "bin_number", "start", "stop", "count"}
	rows := [][]string{
		{"mm1s", "a.bam", "chr1", "0", "0", "500", "3"},
		{"mm1s", "a.bam", "chr1", "1", "500", "1000", "9"},
	}

	csvPath := filepath.Join(dir, "out.csv")
	if err := Export(csvPath, "bin_counts", cols, rows); err != nil {
		t.Fatalf("export csv: %v", err)
	}
	b, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !strings.HasPrefix(string(b), "cell_type,file_name,chromosome") {
		t.Fatalf("unexpected csv: %q", string(b))
	}

	xlsxPath := filepath.Join(dir, "out.xlsx")
	if err := Export(xlsxPath, "bin_counts", cols, rows); err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	got, err := ReadBinCounts(xlsxPath, ImportOptions{Sheet: "bin_counts"})
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if len(got) != 2 || got[1].Count != 9 || got[1].Stop != 1000 {
		t.Fatalf("unexpected rows: %+v", got)
	}

	if _, err := ReadRows(xlsxPath, "nope"); err == nil || !strings.Contains(err.Error(), "Available sheets: bin_counts") {
		t.Fatalf("expected sheet listing, got %v", err)
	}
}
