package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/coolbeans/listenconv/pkg/extract"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Segmenter.QuestionThreshold != extract.DefaultQuestionThreshold {
		t.Errorf("QuestionThreshold = %d, want %d", cfg.Segmenter.QuestionThreshold, extract.DefaultQuestionThreshold)
	}
	if cfg.Metadata.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", cfg.Metadata.Version)
	}
	if cfg.Timestamp.Seconds != extract.DefaultCreatedAtSeconds {
		t.Errorf("Timestamp.Seconds = %d", cfg.Timestamp.Seconds)
	}
	if cfg.Extraction.MaxFileSize != 100*1024*1024 {
		t.Errorf("MaxFileSize = %d", cfg.Extraction.MaxFileSize)
	}
	if cfg.Batch.Concurrency != runtime.NumCPU() {
		t.Errorf("Batch.Concurrency = %d, want %d", cfg.Batch.Concurrency, runtime.NumCPU())
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8086" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listenconv.yaml")
	content := `segmenter:
  question_threshold: 5
instructions:
  note: "Write NO MORE THAN TWO WORDS for each answer."
metadata:
  time_limit: 40
  version: "2.1"
timestamp:
  seconds: 1700000000
  nanoseconds: 5
log:
  mode: prod
  level: debug
library:
  path: /tmp/tests
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Segmenter.QuestionThreshold != 5 {
		t.Errorf("QuestionThreshold = %d, want 5", cfg.Segmenter.QuestionThreshold)
	}
	if cfg.Instructions.Details != extract.DefaultInstructionDetails {
		t.Errorf("Details should keep default, got %q", cfg.Instructions.Details)
	}
	if cfg.Instructions.Note != "Write NO MORE THAN TWO WORDS for each answer." {
		t.Errorf("Note = %q", cfg.Instructions.Note)
	}
	if cfg.Library.Path != "/tmp/tests" {
		t.Errorf("Library.Path = %q", cfg.Library.Path)
	}

	opts := cfg.ConverterOptions(nil)
	if opts.TimeLimit != 40 || opts.Version != "2.1" {
		t.Errorf("options = %+v", opts)
	}
	if opts.CreatedAt.Seconds != 1700000000 || opts.CreatedAt.Nanoseconds != 5 {
		t.Errorf("CreatedAt = %+v", opts.CreatedAt)
	}

	doc := extract.NewConverter(opts).Convert("Part 1\nName: ___ please")
	if doc.Parts.Metadata.TimeLimit != 40 {
		t.Errorf("document TimeLimit = %d, want 40", doc.Parts.Metadata.TimeLimit)
	}
	if doc.CreatedAt.Seconds != 1700000000 {
		t.Errorf("document CreatedAt = %+v", doc.CreatedAt)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("segmenter: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badYAML); err == nil {
		t.Error("expected error for malformed YAML")
	}

	badValue := filepath.Join(dir, "negative.yaml")
	if err := os.WriteFile(badValue, []byte("segmenter:\n  question_threshold: -3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badValue); err == nil {
		t.Error("expected error for negative threshold")
	}
}
