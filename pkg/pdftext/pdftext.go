// Package pdftext extracts line-oriented text from listening-test sources.
//
// Supported formats:
//   - .pdf: text operators of each page's content stream, read with pdfcpu
//   - .txt: plain text, read verbatim
//
// Page texts are joined with newlines; each output line is whitespace
// normalized. Layout (columns, tables drawn as graphics, images) is not
// reconstructed.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coolbeans/listenconv/pkg/logger"
)

// ErrNoText is returned when a source yields no text at all.
var ErrNoText = errors.New("no text content found")

// Format identifies a source file type.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatTXT Format = "txt"
)

// Page is the text of one source page.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Result is the text extracted from one source file.
type Result struct {
	Path    string   `json:"path"`
	Format  Format   `json:"format"`
	Pages   []Page   `json:"pages"`
	Text    string   `json:"text"`
	Quality *Quality `json:"quality"`
}

// Config configures an Extractor.
type Config struct {
	// MaxFileSize is the largest file accepted (default: 100 MB).
	MaxFileSize int64

	Logger *logger.Logger
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
}

// Extractor reads text out of source files.
type Extractor struct {
	cfg    Config
	logger *logger.Logger
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Detect returns the source format from the file extension.
func Detect(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("unsupported format: %q", ext)
	}
}

// Supported reports whether path has an extension Extract can read.
func Supported(path string) bool {
	_, err := Detect(path)
	return err == nil
}

// Extract reads the text of the file at path. It returns ErrNoText (wrapped)
// when the file contains no extractable text.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > e.cfg.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), e.cfg.MaxFileSize)
	}

	format, err := Detect(path)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("extracting text", "path", path, "format", format)

	var pages []Page
	var pageCount int
	var hasImages bool

	switch format {
	case FormatPDF:
		pages, pageCount, hasImages, err = extractPDF(ctx, path)
	case FormatTXT:
		pages, err = extractPlainText(path)
		pageCount = len(pages)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", path, format, err)
	}

	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if page.Text != "" {
			texts = append(texts, page.Text)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("extract %s: %w", path, ErrNoText)
	}
	text := strings.Join(texts, "\n")

	quality := assessQuality(text, pageCount, hasImages)
	if quality.NeedsOCR() {
		e.logger.Warn("extracted text looks incomplete; the PDF may need OCR",
			"path", path,
			"chars_per_page", quality.CharsPerPage,
			"printable_ratio", quality.PrintableRatio,
		)
	}

	return &Result{
		Path:    path,
		Format:  format,
		Pages:   pages,
		Text:    text,
		Quality: quality,
	}, nil
}

func extractPlainText(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := normalizeLines(string(data))
	if text == "" {
		return nil, nil
	}
	return []Page{{Number: 1, Text: text}}, nil
}

// normalizeLines collapses whitespace inside each line and drops blank lines.
func normalizeLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
