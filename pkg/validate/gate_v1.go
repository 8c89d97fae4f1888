package validate

import (
	"fmt"
	"time"
)

// StructureGate (V1) validates the section layout of a converted document.
type StructureGate struct{}

// NewStructureGate creates a new V1 structure validation gate.
func NewStructureGate() *StructureGate {
	return &StructureGate{}
}

// Name returns "V1".
func (structureGate *StructureGate) Name() string { return "V1" }

// Thresholds returns the default thresholds for structure validation metrics.
func (structureGate *StructureGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"sections_present":   1.0,
		"section_numbering":  1.0,
		"sections_non_empty": 1.0,
		"total_consistency":  1.0,
	}
}

// Run validates that sections exist, are numbered 1..N in order, all carry
// content, and that metadata.totalQuestions matches the question items.
func (structureGate *StructureGate) Run(ctx *ValidationContext) *GateResult {
	startTime := time.Now()

	gateResult := newGateResult(structureGate.Name())

	if ctx.Document == nil {
		gateResult.Errors = append(gateResult.Errors, GateError{
			Metric:  "document",
			Message: "no document available",
		})
		gateResult.Duration = time.Since(startTime)
		return gateResult
	}

	sections := ctx.Document.Parts.Sections
	totalSections := len(sections)

	if totalSections > 0 {
		gateResult.Metrics["sections_present"] = 1.0
	} else {
		gateResult.Metrics["sections_present"] = 0.0
	}

	numberedInOrder := 0
	nonEmpty := 0
	for sectionIndex, section := range sections {
		if section.SectionNumber == sectionIndex+1 {
			numberedInOrder++
		}
		if len(section.Content) > 0 {
			nonEmpty++
		} else {
			gateResult.Warnings = append(gateResult.Warnings, GateWarning{
				Metric:  "sections_non_empty",
				Message: fmt.Sprintf("section %d has no content", section.SectionNumber),
			})
		}
	}
	gateResult.Metrics["section_numbering"] = ratio(numberedInOrder, totalSections, 1.0)
	gateResult.Metrics["sections_non_empty"] = ratio(nonEmpty, totalSections, 1.0)

	counted := ctx.Document.CountQuestions()
	declared := ctx.Document.Parts.Metadata.TotalQuestions
	if counted == declared {
		gateResult.Metrics["total_consistency"] = 1.0
	} else {
		gateResult.Metrics["total_consistency"] = 0.0
		gateResult.Warnings = append(gateResult.Warnings, GateWarning{
			Metric:  "total_consistency",
			Message: fmt.Sprintf("metadata declares %d questions, content has %d", declared, counted),
			Value:   float64(counted),
		})
	}

	evaluateMetrics(gateResult, ctx.Config, structureGate)
	gateResult.Duration = time.Since(startTime)
	return gateResult
}
