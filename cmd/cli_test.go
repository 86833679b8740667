package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/binliquidator-cli/internal/tabular"
)

// resetFlags restores every flag of c and its children to its default so
// values do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns its stdout.
func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("BINLIQ_LOG_LEVEL", "error")
	return home
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func importFixture(t *testing.T, dir string) string {
	t.Helper()
	table := filepath.Join(dir, "bins.db")
	a1 := writeInput(t, dir, "a1.csv", "chromosome,bin_number,count\nchr1,0,10\nchr1,1,20\nchr1,2,30\nchr2,0,5\n")
	a2 := writeInput(t, dir, "a2.csv", "chromosome,bin_number,count\nchr1,0,30\nchr1,1,20\nchr1,2,10\nchr2,0,5\n")
	b1 := writeInput(t, dir, "b1.tsv", "chromosome\tbin_number\tcount\nchr1\t0\t1\nchr1\t1\t2\nchr1\t2\t3\nchr2\t0\t9\n")
	runCmd(t, "import", table, a1, a2, "--cell-type", "kms11", "--bin-size", "1000")
	runCmd(t, "import", table, b1, "--cell-type", "mm1s", "--bin-size", "1000")
	return table
}

func TestCLI_Import_Totals_Summarize_Export(t *testing.T) {
	home := isolate(t)
	table := importFixture(t, home)

	totals := writeInput(t, home, "totals.csv", "file_name,total_count\na1.csv,1000000\na2.csv,2000000\n")
	out := runCmd(t, "totals", table, totals)
	if !strings.Contains(out, "✓ Stored totals for 2 files") {
		t.Fatalf("unexpected totals output: %q", out)
	}
	if !strings.Contains(out, "⚠ No total for imported file b1.tsv") {
		t.Fatalf("expected warning for b1.tsv, got: %q", out)
	}

	// Missing total aborts the run.
	if _, err := execCmd("summarize", table, "--skip-plots"); err == nil || !strings.Contains(err.Error(), "b1.tsv") {
		t.Fatalf("expected missing total error for b1.tsv, got %v", err)
	}

	totals = writeInput(t, home, "totals.csv", "a1.csv,1000000\na2.csv,2000000\nb1.tsv,500000\n")
	runCmd(t, "totals", table, totals)

	outDir := filepath.Join(home, "out")
	out = runCmd(t, "summarize", table, "--output-dir", outDir)
	if !strings.Contains(out, "✓ Summarized 4 bins on 2 chromosomes") {
		t.Fatalf("unexpected summarize output: %q", out)
	}
	for _, name := range []string{"chr1.html", "chr2.html", "summary.html", "report.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s in output dir: %v", name, err)
		}
	}
	md, err := os.ReadFile(filepath.Join(outDir, "report.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(md), "[TOP 4 BINS]") {
		t.Fatalf("report missing top bins:\n%s", md)
	}

	xlsx := filepath.Join(home, "sorted.xlsx")
	runCmd(t, "export", table, "-o", xlsx)
	rows, err := tabular.ReadRows(xlsx, "sorted_summary")
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 5 || rows[0][0] != "id" {
		t.Fatalf("unexpected export rows: %v", rows)
	}

	csvOut := filepath.Join(home, "counts.csv")
	out = runCmd(t, "export", table, "--table", "normalized_counts", "-o", csvOut)
	if !strings.Contains(out, "Exported 20 rows of normalized_counts") {
		t.Fatalf("unexpected export output: %q", out)
	}

	out = runCmd(t, "top", table, "-n", "2", "--json")
	var top []map[string]any
	if err := json.Unmarshal([]byte(out), &top); err != nil {
		t.Fatalf("decode top json: %v\n%s", err, out)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 top bins, got %d", len(top))
	}
	if _, ok := top[0]["avg_cell_type_percentile"]; !ok {
		t.Fatalf("missing avg_cell_type_percentile in %v", top[0])
	}

	out = runCmd(t, "runs", table)
	if !strings.Contains(out, "cell types 2, chromosomes 2, normalized 12, summary 4") {
		t.Fatalf("unexpected runs output: %q", out)
	}
}

func TestCLI_ImportRejectsDuplicateFile(t *testing.T) {
	home := isolate(t)
	table := importFixture(t, home)
	a1 := filepath.Join(home, "a1.csv")
	if _, err := execCmd("import", table, a1, "--cell-type", "kms11"); err == nil {
		t.Fatalf("expected duplicate import to fail")
	}
	out := runCmd(t, "import", table, a1, "--cell-type", "kms11", "--bin-size", "1000", "--replace")
	if !strings.Contains(out, "✓ Imported 4 rows from a1.csv") {
		t.Fatalf("unexpected import output: %q", out)
	}
	out = runCmd(t, "export", table, "--table", "bin_counts", "-o", filepath.Join(home, "raw.csv"))
	if !strings.Contains(out, "Exported 12 rows") {
		t.Fatalf("replace should keep row count at 12: %q", out)
	}
}

func TestCLI_ExportUnknownTable(t *testing.T) {
	home := isolate(t)
	table := importFixture(t, home)
	_, err := execCmd("export", table, "--table", "nope", "-o", filepath.Join(home, "x.csv"))
	if err == nil || !strings.Contains(err.Error(), "unknown table") {
		t.Fatalf("expected unknown table error, got %v", err)
	}
	_, err = execCmd("export", table, "-o", filepath.Join(home, "x.csv"))
	if err == nil || !strings.Contains(err.Error(), "run summarize first") {
		t.Fatalf("expected missing summary error, got %v", err)
	}
}

func TestCLI_SummarizeRejectsInvertedThresholds(t *testing.T) {
	home := isolate(t)
	table := importFixture(t, home)
	if _, err := execCmd("summarize", table, "--skip-plots", "--high", "10", "--low", "50"); err == nil {
		t.Fatalf("expected threshold error")
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)
	runCmd(t, "config", "set", "top_n", "7")
	if _, err := os.Stat(filepath.Join(home, ".binliquidator", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "top_n: 7") {
		t.Fatalf("expected top_n 7 in: %q", out)
	}
	if _, err := execCmd("config", "set", "log_format", "xml"); err == nil {
		t.Fatalf("expected invalid log_format to fail")
	}
	if _, err := execCmd("config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}
