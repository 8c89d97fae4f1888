// Package extract turns linearized listening-test text into structured
// sections: it classifies lines, splits gap-fill lines, pulls option sets out
// of multiple-choice lines and groups lines into sections.
package extract

import (
	"regexp"
	"strings"

	"github.com/coolbeans/listenconv/pkg/types"
)

var (
	// gapMarkerPattern matches a blank rendered as underscores or dots/ellipses.
	gapMarkerPattern = regexp.MustCompile(`_{3,}|[.\x{2026}]{3,}`)

	// optionMarkerPattern matches a lettered option marker such as "B)".
	optionMarkerPattern = regexp.MustCompile(`([A-E])\)`)
)

// classificationRule maps a predicate to the format it assigns.
type classificationRule struct {
	Name   string
	Format types.QuestionFormat
	match  func(line, lower string) bool
}

// classificationRules are evaluated in order; the first match wins.
var classificationRules = []classificationRule{
	{
		Name:   "gap marker (___ or ...)",
		Format: types.FormatGapFill,
		match: func(line, _ string) bool {
			return gapMarkerPattern.MatchString(line)
		},
	},
	{
		Name:   "option marker (A) .. E))",
		Format: types.FormatMultipleChoice,
		match: func(line, _ string) bool {
			return optionMarkerPattern.MatchString(line)
		},
	},
	{
		Name:   `contains "match"`,
		Format: types.FormatMatching,
		match: func(_, lower string) bool {
			return strings.Contains(lower, "match")
		},
	},
	{
		Name:   `contains "choose two" or "choose three"`,
		Format: types.FormatMultiSelect,
		match: func(_, lower string) bool {
			return strings.Contains(lower, "choose two") || strings.Contains(lower, "choose three")
		},
	},
	{
		Name:   `contains "table"`,
		Format: types.FormatTable,
		match: func(_, lower string) bool {
			return strings.Contains(lower, "table")
		},
	},
}

// Classify returns the question format of a single trimmed line.
func Classify(line string) types.QuestionFormat {
	lower := strings.ToLower(line)
	for _, rule := range classificationRules {
		if rule.match(line, lower) {
			return rule.Format
		}
	}
	return types.FormatText
}

// RuleDescription names one classification rule for display.
type RuleDescription struct {
	Priority int                  `json:"priority"`
	Format   types.QuestionFormat `json:"format"`
	Rule     string               `json:"rule"`
}

// Rules lists the classification rules in precedence order, ending with the
// text fallback.
func Rules() []RuleDescription {
	descriptions := make([]RuleDescription, 0, len(classificationRules)+1)
	for i, rule := range classificationRules {
		descriptions = append(descriptions, RuleDescription{
			Priority: i + 1,
			Format:   rule.Format,
			Rule:     rule.Name,
		})
	}
	descriptions = append(descriptions, RuleDescription{
		Priority: len(classificationRules) + 1,
		Format:   types.FormatText,
		Rule:     "default",
	})
	return descriptions
}
