package extract

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/types"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultQuestionThreshold  = 10
	DefaultInstructionDetails = "Complete the notes below."
	DefaultInstructionNote    = "Write ONE WORD AND/OR A NUMBER for each answer."
	DefaultTimeLimit          = 30
	DefaultVersion            = "1.0"
	DefaultMetadataCreatedAt  = "2024-01-15"
	DefaultCreatedAtSeconds   = 1753610715
	DefaultCreatedAtNanos     = 607000000
)

// maxLineBytes bounds a single input line read by Parse.
const maxLineBytes = 1024 * 1024

// Options configures segmentation and the placeholder fields of the
// assembled document.
type Options struct {
	// QuestionThreshold is the number of question lines after which a
	// section is closed even without an explicit marker.
	QuestionThreshold int

	InstructionDetails string
	InstructionNote    string

	TimeLimit         int
	Version           string
	MetadataCreatedAt string
	CreatedAt         types.Timestamp

	Logger *logger.Logger
}

func (o *Options) defaults() {
	if o.QuestionThreshold <= 0 {
		o.QuestionThreshold = DefaultQuestionThreshold
	}
	if o.InstructionDetails == "" {
		o.InstructionDetails = DefaultInstructionDetails
	}
	if o.InstructionNote == "" {
		o.InstructionNote = DefaultInstructionNote
	}
	if o.TimeLimit <= 0 {
		o.TimeLimit = DefaultTimeLimit
	}
	if o.Version == "" {
		o.Version = DefaultVersion
	}
	if o.MetadataCreatedAt == "" {
		o.MetadataCreatedAt = DefaultMetadataCreatedAt
	}
	if o.CreatedAt == (types.Timestamp{}) {
		o.CreatedAt = types.Timestamp{
			Seconds:     DefaultCreatedAtSeconds,
			Nanoseconds: DefaultCreatedAtNanos,
		}
	}
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
}

// Converter assembles a listening-test Document from extracted text.
// It holds no per-document state, so one Converter may serve concurrent calls.
type Converter struct {
	opts      Options
	segmenter *Segmenter
	logger    *logger.Logger
}

// NewConverter creates a Converter. Zero-valued options take their defaults.
func NewConverter(opts Options) *Converter {
	opts.defaults()
	return &Converter{
		opts:      opts,
		segmenter: NewSegmenter(opts),
		logger:    opts.Logger,
	}
}

// SplitLines splits extracted text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	rawLines := strings.Split(text, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Convert builds a Document from the full extracted text.
func (c *Converter) Convert(text string) *types.Document {
	return c.ConvertLines(SplitLines(text))
}

// Parse reads extracted text from r and builds a Document.
func (c *Converter) Parse(r io.Reader) (*types.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	return c.ConvertLines(lines), nil
}

// ConvertLines builds a Document from already prepared lines.
func (c *Converter) ConvertLines(lines []string) *types.Document {
	sections := c.segmenter.Segment(lines)
	sectionCount := len(sections)

	doc := &types.Document{
		Title: fmt.Sprintf("IELTS Listening Test %d", sectionCount),
		Parts: types.Parts{
			TestID:   fmt.Sprintf("ielts-listening-%d", sectionCount),
			Title:    fmt.Sprintf("IELTS Listening Practice Test %d", sectionCount),
			Sections: sections,
			Metadata: types.Metadata{
				TimeLimit: c.opts.TimeLimit,
				Version:   c.opts.Version,
				CreatedAt: c.opts.MetadataCreatedAt,
			},
		},
		CreatedAt: c.opts.CreatedAt,
	}
	doc.Parts.Metadata.TotalQuestions = doc.CountQuestions()

	c.logger.Info("converted listening test",
		"lines", len(lines),
		"sections", sectionCount,
		"total_questions", doc.Parts.Metadata.TotalQuestions,
	)

	return doc
}

// Statistics summarizes a converted document.
type Statistics struct {
	Sections      int                          `json:"sections"`
	ContentItems  int                          `json:"content_items"`
	TextItems     int                          `json:"text_items"`
	QuestionItems int                          `json:"question_items"`
	QuestionIDs   int                          `json:"question_ids"`
	ByFormat      map[types.QuestionFormat]int `json:"by_format"`
	SharedIDs     int                          `json:"shared_ids"`
	EmptySections int                          `json:"empty_sections"`
}

// ComputeStatistics counts items, formats and question ids in doc. SharedIDs
// is the number of ids carried by more than one question item.
func ComputeStatistics(doc *types.Document) *Statistics {
	stats := &Statistics{
		Sections: len(doc.Parts.Sections),
		ByFormat: make(map[types.QuestionFormat]int),
	}

	idUses := make(map[string]int)
	for _, section := range doc.Parts.Sections {
		if len(section.Content) == 0 {
			stats.EmptySections++
		}
		for _, item := range section.Content {
			stats.ContentItems++
			switch v := item.(type) {
			case *types.TextItem:
				stats.TextItems++
			case *types.QuestionItem:
				stats.QuestionItems++
				stats.ByFormat[v.Format]++
				idUses[v.QuestionID]++
			}
		}
	}

	stats.QuestionIDs = len(idUses)
	for _, uses := range idUses {
		if uses > 1 {
			stats.SharedIDs++
		}
	}

	return stats
}
