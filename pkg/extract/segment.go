package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/types"
)

var (
	// sectionMarkerPattern matches explicit "Section 2" / "Part 3" headings.
	sectionMarkerPattern = regexp.MustCompile(`^(?:Section|Part) \d+`)

	// pageNumberPattern matches "12." style page-numbering artifacts that
	// must not be used as a section title.
	pageNumberPattern = regexp.MustCompile(`^\d+\.`)
)

// titleSearchLines is how many leading lines of a section are searched for a title.
const titleSearchLines = 3

// Segmenter groups lines into sections and parses each group.
type Segmenter struct {
	opts   Options
	logger *logger.Logger
}

// NewSegmenter creates a Segmenter. Zero-valued options take their defaults.
func NewSegmenter(opts Options) *Segmenter {
	opts.defaults()
	return &Segmenter{
		opts:   opts,
		logger: opts.Logger,
	}
}

// IsSectionMarker reports whether line explicitly opens a new section.
func IsSectionMarker(line string) bool {
	return sectionMarkerPattern.MatchString(line)
}

// Groups partitions lines into per-section groups. A new group starts before
// a "Section N"/"Part N" line, or before any line once the current group holds
// QuestionThreshold gap-fill or multiple-choice lines. The line that triggers
// a boundary always opens the next group. Lines are trimmed and blank lines
// dropped before any rule is applied.
func (s *Segmenter) Groups(lines []string) [][]string {
	var groups [][]string
	var current []string
	questionCount := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if IsSectionMarker(line) || questionCount >= s.opts.QuestionThreshold {
			if len(current) > 0 {
				groups = append(groups, current)
				current = nil
			}
			questionCount = 0
		}

		current = append(current, line)

		if Classify(line).IsQuestion() {
			questionCount++
		}
	}

	if len(current) > 0 {
		groups = append(groups, current)
	}

	return groups
}

// Segment groups lines and parses every group into a Section. Question ids
// are numbered q1, q2, ... across the whole call.
func (s *Segmenter) Segment(lines []string) []types.Section {
	groups := s.Groups(lines)
	sections := make([]types.Section, 0, len(groups))

	issued := 0
	for i, group := range groups {
		var section types.Section
		section, issued = s.ParseSection(group, i+1, issued)
		sections = append(sections, section)
	}

	return sections
}

// ParseSection parses one group of lines into a Section. issued is the number
// of question ids handed out before this section; the updated count is
// returned so numbering continues in the next section.
func (s *Segmenter) ParseSection(group []string, sectionNumber int, issued int) (types.Section, int) {
	content := make(types.Content, 0, len(group))
	localQuestions := 0

	for _, line := range group {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch format := Classify(line); format {
		case types.FormatGapFill:
			issued++
			localQuestions++
			content = append(content, SplitGapFill(line, questionID(issued))...)
		case types.FormatMultipleChoice:
			issued++
			localQuestions++
			content = append(content, ExtractOptions(line, questionID(issued)))
		default:
			content = append(content, &types.TextItem{Value: line})
		}
	}

	title := sectionTitle(group)
	if title == "" {
		title = fmt.Sprintf("Section %d", sectionNumber)
	}

	s.logger.Debug("parsed section",
		"section", sectionNumber,
		"lines", len(group),
		"questions", localQuestions,
		"items", len(content),
	)

	return types.Section{
		SectionNumber: sectionNumber,
		Title:         title,
		AudioURL:      "",
		Content:       content,
		Instructions: types.Instructions{
			Heading: instructionsHeading(localQuestions),
			Details: s.opts.InstructionDetails,
			Note:    s.opts.InstructionNote,
		},
	}, issued
}

// sectionTitle returns the first usable title among the group's leading lines.
func sectionTitle(group []string) string {
	for i := 0; i < min(titleSearchLines, len(group)); i++ {
		candidate := strings.TrimSpace(group[i])
		if candidate != "" && !pageNumberPattern.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}

// instructionsHeading labels the range of a section's own questions. The
// range restarts at 1 in every section.
func instructionsHeading(questionCount int) string {
	if questionCount == 0 {
		return ""
	}
	return fmt.Sprintf("Questions 1-%d", questionCount)
}

func questionID(n int) string {
	return fmt.Sprintf("q%d", n)
}
