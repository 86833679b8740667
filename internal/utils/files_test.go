package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.md")
	if err := SafeWriteFile(p, []byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("two")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("got %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestSafeFileName(t *testing.T) {
	cases := map[string]string{
		"chr1":          "chr1",
		" chrUn_gl000 ": "chrUn_gl000",
		"a/b":           "a_b",
		"HLA-A*01:01":   "HLA-A*01_01",
		"":              "unnamed",
	}
	for in, want := range cases {
		if got := SafeFileName(in); got != want {
			t.Errorf("SafeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDefaultOutputDir(t *testing.T) {
	if got := DefaultOutputDir("/data/bins.db"); got != "/data/bins_out" {
		t.Fatalf("got %q", got)
	}
	if got := DefaultOutputDir("bins"); got != "bins_out" {
		t.Fatalf("got %q", got)
	}
}
