package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/coolbeans/listenconv/pkg/pdftext"
)

func TestIngestFromText(t *testing.T) {
	result, err := IngestFromText([]byte(listeningSource), "test-1", nil)
	if err != nil {
		t.Fatalf("IngestFromText failed: %v", err)
	}

	if result.DocumentID != "test-1" {
		t.Errorf("DocumentID = %s", result.DocumentID)
	}
	if result.Document == nil {
		t.Fatal("Document is nil")
	}
	if result.Stats.TotalQuestions != result.Document.Parts.Metadata.TotalQuestions {
		t.Errorf("stats disagree with metadata: %d vs %d",
			result.Stats.TotalQuestions, result.Document.Parts.Metadata.TotalQuestions)
	}
	if result.Stats.QuestionIDs != 3 {
		t.Errorf("QuestionIDs = %d, want 3", result.Stats.QuestionIDs)
	}
}

func TestIngestFromText_EmptyInput(t *testing.T) {
	if _, err := IngestFromText([]byte("   \n"), "test-1", nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestIngestFromText_EmptyDocumentID(t *testing.T) {
	if _, err := IngestFromText([]byte(listeningSource), "", nil); err == nil {
		t.Error("expected error for empty document ID")
	}
}

func TestExtractFile(t *testing.T) {
	sourcePath := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(sourcePath, []byte(listeningSource), 0644); err != nil {
		t.Fatal(err)
	}

	sourceText, format, err := ExtractFile(context.Background(), nil, sourcePath)
	if err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}
	if format != pdftext.FormatTXT {
		t.Errorf("format = %s, want txt", format)
	}
	if len(sourceText) == 0 {
		t.Error("no text extracted")
	}
}

func TestExtractFile_NotFound(t *testing.T) {
	if _, _, err := ExtractFile(context.Background(), nil, "/nonexistent/file.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDeriveDocumentID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"testdata/test1.txt", "test1"},
		{"/path/to/Cambridge 15 Test 2.pdf", "cambridge-15-test-2"},
		{"simple.pdf", "simple"},
		{"no-extension", "no-extension"},
		{".hidden", ".hidden"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			if got := DeriveDocumentID(tc.input); got != tc.expected {
				t.Errorf("DeriveDocumentID(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
