package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUIDBOOKS_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if c.Matching.DateToleranceDays != 3 {
		t.Errorf("DateToleranceDays = %d, want 3", c.Matching.DateToleranceDays)
	}
	if c.Matching.SimilarityCutoff != 0.60 {
		t.Errorf("SimilarityCutoff = %f, want 0.60", c.Matching.SimilarityCutoff)
	}
	if c.Review.ConfidenceHigh != 80 || c.Review.ConfidenceMedium != 50 {
		t.Errorf("confidence bands = %d/%d", c.Review.ConfidenceHigh, c.Review.ConfidenceMedium)
	}
	if c.Review.UndoWindowDays != 7 {
		t.Errorf("UndoWindowDays = %d, want 7", c.Review.UndoWindowDays)
	}
	if c.Analyzer.DateGapDays != 30 {
		t.Errorf("DateGapDays = %d, want 30", c.Analyzer.DateGapDays)
	}
	if c.Database.Path == "" {
		t.Error("database path default missing")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[database]
path = "/tmp/test.db"

[matching]
date_tolerance_days = 5
similarity_cutoff = 0.75

[review]
undo_window_days = 14
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUIDBOOKS_CONFIG", path)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if c.Database.Path != "/tmp/test.db" {
		t.Errorf("Path = %q", c.Database.Path)
	}
	if c.Matching.DateToleranceDays != 5 || c.Matching.SimilarityCutoff != 0.75 {
		t.Errorf("matching = %+v", c.Matching)
	}
	if c.Review.UndoWindowDays != 14 {
		t.Errorf("UndoWindowDays = %d, want 14", c.Review.UndoWindowDays)
	}
	// Unset keys keep their defaults.
	if c.Review.ConfidenceHigh != 80 {
		t.Errorf("ConfidenceHigh = %d, want default 80", c.Review.ConfidenceHigh)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[matching]
similarity_cutoff = 1.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("QUIDBOOKS_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Error("expected validation error for cutoff above 1")
	}
}
