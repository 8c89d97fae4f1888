package extract

import (
	"regexp"

	"github.com/coolbeans/listenconv/pkg/types"
)

// gapDelimiterPattern matches one maximal run of underscores or ellipsis
// characters. Plain dots are not delimiters, so a line classified as gap-fill
// only because of "..." comes back as a single text item.
var gapDelimiterPattern = regexp.MustCompile(`_+|\x{2026}+`)

// SplitGapFill splits a gap-fill line around its blanks. The segment before
// the first blank becomes a text item; every later non-empty segment becomes a
// gap-fill question carrying questionID. A line without blanks yields one text
// item.
//
// All questions produced from one line share questionID.
func SplitGapFill(line, questionID string) []types.ContentItem {
	delimiters := gapDelimiterPattern.FindAllStringIndex(line, -1)
	if len(delimiters) == 0 {
		return []types.ContentItem{&types.TextItem{Value: line}}
	}

	items := make([]types.ContentItem, 0, len(delimiters)+1)

	if leading := line[:delimiters[0][0]]; leading != "" {
		items = append(items, &types.TextItem{Value: leading})
	}

	for i, span := range delimiters {
		end := len(line)
		if i+1 < len(delimiters) {
			end = delimiters[i+1][0]
		}
		segment := line[span[1]:end]
		if segment == "" {
			continue
		}
		items = append(items, &types.QuestionItem{
			QuestionID:    questionID,
			Format:        types.FormatGapFill,
			Text:          segment,
			Postfix:       types.StringPtr(""),
			CorrectAnswer: "",
			WordLimit:     types.IntPtr(1),
		})
	}

	return items
}
