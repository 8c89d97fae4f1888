package pdftext

import (
	"regexp"
	"strings"
	"unicode"
)

// Quality captures metrics about how much usable text a source produced.
type Quality struct {
	PageCount       int     `json:"page_count"`
	LineCount       int     `json:"line_count"`
	CharsPerPage    float64 `json:"chars_per_page"`
	PrintableRatio  float64 `json:"printable_ratio"`
	WordlikeRatio   float64 `json:"wordlike_ratio"`
	HasImageStreams bool    `json:"has_image_streams"`
	BlankCount      int     `json:"blank_count"`
}

// NeedsOCR reports whether the source is likely a scan whose text layer is
// missing or garbled.
func (q *Quality) NeedsOCR() bool {
	return (q.CharsPerPage < 50 && q.HasImageStreams) || q.PrintableRatio < 0.85
}

// answerBlankPattern matches the underscore and ellipsis runs printed where
// candidates write answers.
var answerBlankPattern = regexp.MustCompile(`_{3,}|\x{2026}+|\.{3,}`)

func assessQuality(text string, pageCount int, hasImages bool) *Quality {
	q := &Quality{
		PageCount:       pageCount,
		PrintableRatio:  PrintableRatio(text),
		WordlikeRatio:   wordlikeRatio(text),
		HasImageStreams: hasImages,
		BlankCount:      len(answerBlankPattern.FindAllStringIndex(text, -1)),
	}
	if text != "" {
		q.LineCount = strings.Count(text, "\n") + 1
	}
	if pageCount > 0 {
		q.CharsPerPage = float64(len([]rune(text))) / float64(pageCount)
	}
	return q
}

// PrintableRatio returns the share of printable runes in text. Private-use
// runes, U+FFFD and control characters other than whitespace count against it.
func PrintableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	case r == 0xFFFD:
		return true
	case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
		return true
	}
	return false
}

// wordlikeRatio returns the share of whitespace-separated tokens that are
// between 2 and 15 runes long.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		if n := len([]rune(f)); n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
