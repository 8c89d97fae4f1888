package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/listenconv/pkg/types"
)

var newlineRunPattern = regexp.MustCompile(`\n+`)

// ExtractOptions builds a multiple-choice question from a line containing
// lettered options. Each option runs from its marker to the next marker or
// newline; a repeated letter keeps its last text. Whatever is left once the
// options are cut out is the question stem.
func ExtractOptions(line, questionID string) *types.QuestionItem {
	options := make(map[string]string)

	markers := optionMarkerPattern.FindAllStringSubmatchIndex(line, -1)

	var stem strings.Builder
	cursor := 0
	for i, marker := range markers {
		if marker[0] < cursor {
			continue
		}

		textStart := marker[1]
		for textStart < len(line) && (line[textStart] == ' ' || line[textStart] == '\t') {
			textStart++
		}

		end := len(line)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		if newline := strings.IndexByte(line[textStart:end], '\n'); newline >= 0 {
			end = textStart + newline
		}

		optionText := strings.TrimSpace(line[textStart:end])
		if optionText == "" {
			continue
		}

		letter := line[marker[2]:marker[3]]
		options[letter] = optionText

		stem.WriteString(line[cursor:marker[0]])
		cursor = end
	}
	stem.WriteString(line[cursor:])

	text := strings.TrimSpace(stem.String())
	text = newlineRunPattern.ReplaceAllString(text, " ")

	return &types.QuestionItem{
		QuestionID:    questionID,
		Format:        types.FormatMultipleChoice,
		Text:          text,
		Options:       options,
		CorrectAnswer: "",
	}
}
