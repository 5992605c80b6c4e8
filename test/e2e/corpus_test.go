package e2e

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildCorpus(t *testing.T) {
	c := BuildCorpus()
	if len(c.Files) == 0 || len(c.TestCases) == 0 {
		t.Fatal("corpus has no files or no test cases")
	}
	labels := c.Labels()
	total := 0
	for _, ls := range labels {
		total += len(ls)
	}
	if total != c.Chunks {
		t.Errorf("labels = %d, want %d chunks", total, c.Chunks)
	}
	for _, tc := range c.TestCases {
		found := false
		for _, l := range labels[tc.ExpectedFile] {
			if l == tc.ExpectedLabel {
				found = true
			}
		}
		if !found {
			t.Errorf("test case %q expects unknown chunk %s / %s", tc.Query, tc.ExpectedFile, tc.ExpectedLabel)
		}
	}
}

func TestCorpus_WriteTo(t *testing.T) {
	dir := t.TempDir()
	c := BuildCorpus()
	if err := c.WriteTo(dir); err != nil {
		t.Fatal(err)
	}
	for _, f := range c.Files {
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(f.Name)))
		if err != nil {
			t.Errorf("%s: %v", f.Name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", f.Name)
		}
	}
}
