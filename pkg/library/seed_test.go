package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeSources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestSeedFromDirectory(t *testing.T) {
	lib := initLibrary(t)
	dir := writeSources(t, map[string]string{
		"Test 1.txt": listeningSource,
		"test-2.txt": listeningSource,
		"empty.txt":  "",
		"notes.md":   listeningSource,
	})

	seedReport, err := SeedFromDirectory(context.Background(), lib, nil, dir, false)
	if err != nil {
		t.Fatalf("SeedFromDirectory failed: %v", err)
	}

	if seedReport.TotalAttempted != 3 {
		t.Errorf("TotalAttempted = %d, want 3", seedReport.TotalAttempted)
	}
	if seedReport.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", seedReport.Succeeded)
	}
	if seedReport.Failed != 1 {
		t.Errorf("Failed = %d, want 1", seedReport.Failed)
	}

	entry := lib.GetDocument("test-1")
	if entry == nil {
		t.Fatal("test-1 not ingested")
	}
	if entry.SourceFormat != "txt" || entry.Name != "Test 1.txt" {
		t.Errorf("unexpected entry: format=%s name=%s", entry.SourceFormat, entry.Name)
	}
}

func TestSeedFromDirectoryIdempotent(t *testing.T) {
	lib := initLibrary(t)
	dir := writeSources(t, map[string]string{"a.txt": listeningSource})

	if _, err := SeedFromDirectory(context.Background(), lib, nil, dir, false); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}

	seedReport, err := SeedFromDirectory(context.Background(), lib, nil, dir, false)
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if seedReport.Skipped != 1 || seedReport.Succeeded != 0 {
		t.Errorf("Skipped = %d, Succeeded = %d; want 1 and 0", seedReport.Skipped, seedReport.Succeeded)
	}

	forced, err := SeedFromDirectory(context.Background(), lib, nil, dir, true)
	if err != nil {
		t.Fatalf("forced seed failed: %v", err)
	}
	if forced.Succeeded != 1 {
		t.Errorf("forced Succeeded = %d, want 1", forced.Succeeded)
	}
}

func TestSeedFromDirectoryMissing(t *testing.T) {
	lib := initLibrary(t)

	if _, err := SeedFromDirectory(context.Background(), lib, nil, "/nonexistent/dir", false); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestSeedFromDirectoryCanceled(t *testing.T) {
	lib := initLibrary(t)
	dir := writeSources(t, map[string]string{"a.txt": listeningSource})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seedReport, err := SeedFromDirectory(ctx, lib, nil, dir, false)
	if err == nil {
		t.Fatal("expected context error")
	}
	if seedReport.Succeeded != 0 {
		t.Errorf("Succeeded = %d after cancel", seedReport.Succeeded)
	}
}

func TestAddFile(t *testing.T) {
	lib := initLibrary(t)
	dir := writeSources(t, map[string]string{"Practice Test.txt": listeningSource})

	entry, err := AddFile(context.Background(), lib, nil, filepath.Join(dir, "Practice Test.txt"), "", false)
	if err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if entry.ID != "practice-test" {
		t.Errorf("ID = %s, want practice-test", entry.ID)
	}
}
