package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTextFromContentStream(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "single show",
			stream: "BT /F1 12 Tf 72 720 Td (Name: ______) Tj ET",
			want:   "Name: ______",
		},
		{
			name:   "T* breaks lines",
			stream: "BT /F1 12 Tf 14 TL 72 720 Td (Part 1) Tj T* (Questions 1-10) Tj ET",
			want:   "Part 1\nQuestions 1-10",
		},
		{
			name:   "quote operator",
			stream: "BT 72 720 Td (first) Tj (second) ' 0 0 (third) \" ET",
			want:   "first\nsecond\nthird",
		},
		{
			name:   "Td vertical move",
			stream: "BT 72 720 Td (A) Tj 0 -14 Td (B) Tj 40 0 Td (C) Tj ET",
			want:   "A\nB C",
		},
		{
			name:   "TJ kerning",
			stream: "BT 72 720 Td [(Arr) 20 (ival) -400 (date)] TJ ET",
			want:   "Arrival date",
		},
		{
			name:   "Tm rows",
			stream: "BT 1 0 0 1 72 700 Tm (row one) Tj 1 0 0 1 300 700 Tm (same row) Tj 1 0 0 1 72 680 Tm (row two) Tj ET",
			want:   "row one same row\nrow two",
		},
		{
			name:   "separate text objects",
			stream: "BT (top) Tj ET BT (bottom) Tj ET",
			want:   "top\nbottom",
		},
		{
			name:   "escapes and nesting",
			stream: `BT (A\) single \(x\) \101) Tj ET`,
			want:   "A) single (x) A",
		},
		{
			name:   "winansi ellipsis",
			stream: "BT (Date \\205\\205 June) Tj ET",
			want:   "Date …… June",
		},
		{
			name:   "utf16 hex string",
			stream: "BT <FEFF00480069> Tj ET",
			want:   "Hi",
		},
		{
			name:   "graphics only",
			stream: "q 100 0 0 100 72 692 cm /Im1 Do Q",
			want:   "",
		},
		{
			name:   "marked content dict",
			stream: "/Span << /ActualText (x) >> BDC BT (kept) Tj ET EMC",
			want:   "kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLines(textFromContentStream([]byte(tt.stream)))
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeLines(t *testing.T) {
	got := normalizeLines("  a   b \r\n\r\n\tc\rd  ")
	if got != "a b\nc\nd" {
		t.Errorf("normalizeLines = %q", got)
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Format{
		"test.pdf":       FormatPDF,
		"TEST.PDF":       FormatPDF,
		"notes.txt":      FormatTXT,
		"dir/a.b/c.text": FormatTXT,
	}
	for path, want := range tests {
		got, err := Detect(path)
		if err != nil || got != want {
			t.Errorf("Detect(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := Detect("audio.mp3"); err == nil {
		t.Error("expected error for .mp3")
	}
	if Supported("x.docx") {
		t.Error("docx should not be supported")
	}
}

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.txt")
	if err := os.WriteFile(path, []byte("Part 1\n\n  Name: ______  \n"), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := New(Config{}).Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Text != "Part 1\nName: ______" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Format != FormatTXT || len(result.Pages) != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Quality.BlankCount != 1 || result.Quality.LineCount != 2 {
		t.Errorf("Quality = %+v", result.Quality)
	}
}

func TestExtractEmptyText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.txt")
	if err := os.WriteFile(path, []byte("\n  \n\t\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{}).Extract(context.Background(), path)
	if !errors.Is(err, ErrNoText) {
		t.Errorf("err = %v, want ErrNoText", err)
	}
}

func TestExtractTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{MaxFileSize: 16}).Extract(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("err = %v, want size error", err)
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := New(Config{}).Extract(context.Background(), "/nonexistent/test.pdf"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pdf")
	stream := "BT\n/F1 12 Tf\n14 TL\n72 720 Td\n(Part 1) Tj\nT*\n(Name: ______ Street) Tj\nET"
	if err := os.WriteFile(path, buildTextPDF(stream), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := New(Config{}).Extract(context.Background(), path)
	if err != nil {
		if errors.Is(err, ErrNoText) {
			t.Skip("pdfcpu returned no content for the minimal PDF")
		}
		t.Fatalf("Extract failed: %v", err)
	}
	if result.Format != FormatPDF {
		t.Errorf("Format = %q", result.Format)
	}
	if result.Text != "Part 1\nName: ______ Street" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.Quality == nil || result.Quality.PageCount != 1 {
		t.Errorf("Quality = %+v", result.Quality)
	}
}

func TestExtractPDFCanceled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pdf")
	if err := os.WriteFile(path, buildTextPDF("BT (x) Tj ET"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Config{}).Extract(ctx, path); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestQualityNeedsOCR(t *testing.T) {
	tests := []struct {
		name string
		q    Quality
		want bool
	}{
		{"text layer", Quality{CharsPerPage: 900, PrintableRatio: 1}, false},
		{"scan", Quality{CharsPerPage: 3, PrintableRatio: 1, HasImageStreams: true}, true},
		{"garbled", Quality{CharsPerPage: 900, PrintableRatio: 0.5}, true},
		{"short without images", Quality{CharsPerPage: 3, PrintableRatio: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.NeedsOCR(); got != tt.want {
				t.Errorf("NeedsOCR = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintableRatio(t *testing.T) {
	if got := PrintableRatio(""); got != 1.0 {
		t.Errorf("empty ratio = %v", got)
	}
	if got := PrintableRatio("a\uFFFD"); got != 0.5 {
		t.Errorf("ratio = %v, want 0.5", got)
	}
}

// buildTextPDF creates a one-page PDF with the given content stream and
// correct xref offsets.
func buildTextPDF(stream string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xrefOffset := b.Len()
	b.WriteString("xref\n0 6\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	return []byte(b.String())
}
