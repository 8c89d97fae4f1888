package validate

import (
	"fmt"
	"time"

	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/types"
)

// CoverageGate (V2) validates how much of the source became questions.
type CoverageGate struct{}

// NewCoverageGate creates a new V2 coverage validation gate.
func NewCoverageGate() *CoverageGate {
	return &CoverageGate{}
}

// Name returns "V2".
func (coverageGate *CoverageGate) Name() string { return "V2" }

// Thresholds returns the default thresholds for coverage validation metrics.
func (coverageGate *CoverageGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"question_sections": 0.50,
		"question_density":  0.10,
		"blank_coverage":    0.80,
	}
}

// Run validates the share of sections holding questions, the share of
// content items that are questions, and the share of issued question ids
// that kept a question item. Lines in formats the converter keeps as text
// are reported as warnings.
func (coverageGate *CoverageGate) Run(ctx *ValidationContext) *GateResult {
	startTime := time.Now()

	gateResult := newGateResult(coverageGate.Name())

	if ctx.Document == nil {
		gateResult.Errors = append(gateResult.Errors, GateError{
			Metric:  "document",
			Message: "no document available",
		})
		gateResult.Duration = time.Since(startTime)
		return gateResult
	}

	sections := ctx.Document.Parts.Sections
	sectionsWithQuestions := 0
	contentItems := 0
	questionItems := 0
	unsupported := make(map[types.QuestionFormat]int)

	for _, section := range sections {
		sectionQuestions := 0
		for _, item := range section.Content {
			contentItems++
			switch item := item.(type) {
			case *types.QuestionItem:
				questionItems++
				sectionQuestions++
			case *types.TextItem:
				switch format := extract.Classify(item.Value); format {
				case types.FormatMatching, types.FormatMultiSelect, types.FormatTable:
					unsupported[format]++
				}
			}
		}
		if sectionQuestions > 0 {
			sectionsWithQuestions++
		}
	}

	gateResult.Metrics["question_sections"] = ratio(sectionsWithQuestions, len(sections), 0.0)
	gateResult.Metrics["question_density"] = ratio(questionItems, contentItems, 0.0)

	// blank_coverage: ids that kept a question item, out of ids issued. A
	// blank at the end of a line issues an id with nothing to attach it to.
	// Needs the source; a stored document has none.
	if ctx.SourceText != "" {
		visible := len(questionIDs(ctx.Document))
		coverage := ratio(visible, questionLineCount(ctx.SourceText), 1.0)
		if coverage > 1.0 {
			coverage = 1.0
		}
		gateResult.Metrics["blank_coverage"] = coverage
	}

	for _, format := range []types.QuestionFormat{types.FormatMatching, types.FormatMultiSelect, types.FormatTable} {
		if count := unsupported[format]; count > 0 {
			gateResult.Warnings = append(gateResult.Warnings, GateWarning{
				Metric:  "unsupported_format",
				Message: fmt.Sprintf("%d %s line(s) kept as text", count, format),
				Value:   float64(count),
			})
		}
	}

	evaluateMetrics(gateResult, ctx.Config, coverageGate)
	gateResult.Duration = time.Since(startTime)
	return gateResult
}

// questionLineCount counts source lines the converter issues a question id
// for: every gap-fill and multiple-choice line.
func questionLineCount(text string) int {
	count := 0
	for _, line := range extract.SplitLines(text) {
		if extract.Classify(line).IsQuestion() {
			count++
		}
	}
	return count
}

// questionIDs returns the distinct question ids of doc in first-seen order.
func questionIDs(doc *types.Document) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, section := range doc.Parts.Sections {
		for _, question := range section.Content.Questions() {
			if !seen[question.QuestionID] {
				seen[question.QuestionID] = true
				ids = append(ids, question.QuestionID)
			}
		}
	}
	return ids
}
