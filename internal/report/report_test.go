package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/binliquidator-cli/internal/pipeline"
	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "bins.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.ResetDerived(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	tx, err := s.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	err = tx.InsertBinCounts([]store.BinCount{
		{CellType: "mm1s", FileName: "a.bam", Chromosome: "chr1", Stop: 1, Count: 1},
		{CellType: "mm1s", FileName: "a.bam", Chromosome: "chr2", Stop: 1, Count: 1},
	})
	if err != nil {
		t.Fatalf("insert counts: %v", err)
	}
	err = tx.InsertSummaries([]store.Summary{
		{BinNumber: 0, Chromosome: "chr1", AvgCellTypePercentile: 10},
		{BinNumber: 1, Chromosome: "chr1", AvgCellTypePercentile: 30},
		{BinNumber: 0, Chromosome: "chr2", AvgCellTypePercentile: 99, CellTypesGteHighPercentile: 1},
	})
	if err != nil {
		t.Fatalf("insert summaries: %v", err)
	}
	if err := tx.CopySortedSummary(); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if err := tx.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return s
}

func TestBuildFromResult(t *testing.T) {
	s := seededStore(t)
	start := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	res := &pipeline.Result{
		RunID:       "run-1",
		StartedAt:   start,
		FinishedAt:  start.Add(1500 * time.Millisecond),
		CellTypes:   []string{"mm1s"},
		Chromosomes: []string{"chr1", "chr2"},
		SummaryRows: 3,
		Thresholds:  pipeline.DefaultThresholds,
		PlotFiles:   []string{"out/chr1.html"},
	}
	rep, err := Build(s, res, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rep.Stats) != 2 {
		t.Fatalf("expected stats for 2 chromosomes, got %d", len(rep.Stats))
	}
	chr1 := rep.Stats[0]
	if chr1.Bins != 2 || chr1.Mean != 20 || chr1.Median != 20 || chr1.Min != 10 || chr1.Max != 30 {
		t.Fatalf("unexpected chr1 stats: %+v", chr1)
	}
	if len(rep.Top) != 2 || rep.Top[0].Chromosome != "chr2" {
		t.Fatalf("unexpected top bins: %+v", rep.Top)
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[RUN]", "Run: run-1", "took 1.5s", "Thresholds: high 95th, low 5th",
		"[AVERAGE CELL TYPE PERCENTILE BY CHROMOSOME]", "| chr1 | 2 | 20.00 |",
		"[TOP 2 BINS]", "| chr2 | 0 | 99.00 | 1 |", "[PLOTS]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestBuildWithoutRun(t *testing.T) {
	s := seededStore(t)
	rep, err := Build(s, nil, 0)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rep.Top) != 0 {
		t.Fatalf("expected no top rows, got %d", len(rep.Top))
	}
	md := rep.Markdown()
	if !strings.Contains(md, "no pipeline run recorded") {
		t.Fatalf("expected note about missing run:\n%s", md)
	}
	if !strings.Contains(md, "Chromosomes: 2") {
		t.Fatalf("expected chromosome count from table:\n%s", md)
	}
}

func TestBuildWithoutSummary(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "bins.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	rep, err := Build(s, nil, 5)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(rep.Markdown(), "summary table missing") {
		t.Fatalf("expected missing summary note")
	}
}

func TestOrdinal(t *testing.T) {
	cases := map[float64]string{1: "1st", 2: "2nd", 3: "3rd", 5: "5th", 11: "11th", 12: "12th", 22: "22nd", 95: "95th", 99.5: "99.5th"}
	for in, want := range cases {
		if got := ordinal(in); got != want {
			t.Errorf("ordinal(%v) = %q, want %q", in, got, want)
		}
	}
}
