package validate

import (
	"time"

	"github.com/coolbeans/listenconv/pkg/pdftext"
)

// SourceGate (V0) validates the extracted source text before conversion.
type SourceGate struct{}

// NewSourceGate creates a new V0 source validation gate.
func NewSourceGate() *SourceGate {
	return &SourceGate{}
}

// Name returns "V0".
func (sourceGate *SourceGate) Name() string { return "V0" }

// Thresholds returns the default thresholds for source validation metrics.
func (sourceGate *SourceGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"text_present":    1.0,
		"printable_ratio": 0.85,
		"blank_markers":   1.0,
	}
}

// Run checks that text was extracted, that it is not garbled, and that it
// carries at least one answer blank or option marker. It skips itself when
// the context has no source at all.
func (sourceGate *SourceGate) Run(ctx *ValidationContext) *GateResult {
	startTime := time.Now()

	if ctx.SourceText == "" && ctx.SourcePath == "" {
		return skippedResult(sourceGate.Name(), "no source text available")
	}

	gateResult := newGateResult(sourceGate.Name())

	// text_present: extraction produced something.
	if ctx.SourceText != "" {
		gateResult.Metrics["text_present"] = 1.0
	} else {
		gateResult.Metrics["text_present"] = 0.0
	}

	// printable_ratio: share of printable runes; prefer the extractor's figure.
	if ctx.Quality != nil {
		gateResult.Metrics["printable_ratio"] = ctx.Quality.PrintableRatio
		if ctx.Quality.NeedsOCR() {
			gateResult.Warnings = append(gateResult.Warnings, GateWarning{
				Metric:  "printable_ratio",
				Message: "source looks like a scan; text layer may be incomplete",
				Value:   ctx.Quality.CharsPerPage,
			})
		}
	} else if ctx.SourceText != "" {
		gateResult.Metrics["printable_ratio"] = pdftext.PrintableRatio(ctx.SourceText)
	} else {
		gateResult.Metrics["printable_ratio"] = 0.0
	}

	// blank_markers: the text has something the converter can turn into a question.
	if questionLineCount(ctx.SourceText) > 0 {
		gateResult.Metrics["blank_markers"] = 1.0
	} else {
		gateResult.Metrics["blank_markers"] = 0.0
	}

	evaluateMetrics(gateResult, ctx.Config, sourceGate)
	gateResult.Duration = time.Since(startTime)
	return gateResult
}
