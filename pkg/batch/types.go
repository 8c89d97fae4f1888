// Package batch converts many listening-test sources concurrently, with
// progress reporting and report generation.
package batch

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/coolbeans/listenconv/pkg/validate"
)

// ItemStatus represents the outcome of converting one source.
type ItemStatus string

const (
	StatusConverted ItemStatus = "converted"
	StatusFailed    ItemStatus = "failed"
	StatusNoText    ItemStatus = "no_text"
	StatusGateFail  ItemStatus = "gate_failed"
)

// ItemResult captures the outcome of converting a single source.
type ItemResult struct {
	Path        string     `json:"path"`
	ID          string     `json:"id"`
	Output      string     `json:"output,omitempty"`
	Format      string     `json:"format"`
	Status      ItemStatus `json:"status"`
	Sections    int        `json:"sections"`
	Questions   int        `json:"questions"`
	GateScore   float64    `json:"gate_score,omitempty"`
	HaltedAt    string     `json:"halted_at,omitempty"`
	NeedsOCR    bool       `json:"needs_ocr,omitempty"`
	Error       string     `json:"error,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	ConvertedAt time.Time  `json:"converted_at"`
}

// IsSuccess returns true if the source converted and passed any gates.
func (itemResult *ItemResult) IsSuccess() bool {
	return itemResult.Status == StatusConverted
}

// Config holds configuration for a batch run.
type Config struct {
	// Concurrency is the maximum number of sources converted at once.
	Concurrency int `json:"concurrency"`

	// OutputDir receives one <id>.json per converted source. Empty means
	// documents are converted and reported but not written.
	OutputDir string `json:"output_dir"`

	// RunGates runs the validation pipeline on every converted document.
	RunGates bool `json:"run_gates"`

	// Validation configures the gates when RunGates is set.
	Validation *validate.ValidationConfig `json:"-"`
}

// DefaultConfig returns a config that converts one source per CPU without
// writing output.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: runtime.NumCPU(),
		Validation:  validate.DefaultValidationConfig(),
	}
}

// ProgressCallback is called after every source completes.
type ProgressCallback func(progress *Progress)

// Progress reports the current state of a batch run.
type Progress struct {
	Total         int       `json:"total"`
	Completed     int       `json:"completed"`
	CurrentPath   string    `json:"current_path,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	ElapsedTime   int64     `json:"elapsed_time_ms"`
	EstimatedLeft int64     `json:"estimated_left_ms,omitempty"`
}

// PercentComplete returns the completion percentage.
func (progress *Progress) PercentComplete() float64 {
	if progress.Total == 0 {
		return 100.0
	}
	return float64(progress.Completed) / float64(progress.Total) * 100.0
}

// Report is the complete report of a batch run.
type Report struct {
	Total     int `json:"total"`
	Converted int `json:"converted"`
	Failed    int `json:"failed"`
	NoText    int `json:"no_text"`
	GateFail  int `json:"gate_failed"`
	Questions int `json:"questions"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	FormatStats map[string]*FormatStats `json:"format_stats"`

	Results  []*ItemResult `json:"results"`
	Failures []*ItemResult `json:"failures"`
}

// FormatStats holds statistics for one source format.
type FormatStats struct {
	Format      string `json:"format"`
	Total       int    `json:"total"`
	Converted   int    `json:"converted"`
	Questions   int    `json:"questions"`
	AvgDuration int64  `json:"avg_duration_ms"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		FormatStats: make(map[string]*FormatStats),
		Results:     make([]*ItemResult, 0),
		Failures:    make([]*ItemResult, 0),
	}
}

// AddResult adds an item result to the report and updates statistics.
func (report *Report) AddResult(itemResult *ItemResult) {
	report.Results = append(report.Results, itemResult)
	report.Total++

	switch itemResult.Status {
	case StatusConverted:
		report.Converted++
		report.Questions += itemResult.Questions
	case StatusFailed:
		report.Failed++
		report.Failures = append(report.Failures, itemResult)
	case StatusNoText:
		report.NoText++
		report.Failures = append(report.Failures, itemResult)
	case StatusGateFail:
		report.GateFail++
		report.Failures = append(report.Failures, itemResult)
	}

	formatKey := itemResult.Format
	if formatKey == "" {
		formatKey = "unknown"
	}
	formatStats, exists := report.FormatStats[formatKey]
	if !exists {
		formatStats = &FormatStats{Format: formatKey}
		report.FormatStats[formatKey] = formatStats
	}
	formatStats.Total++
	if itemResult.Status == StatusConverted {
		formatStats.Converted++
		formatStats.Questions += itemResult.Questions
	}

	currentTotal := formatStats.AvgDuration * int64(formatStats.Total-1)
	formatStats.AvgDuration = (currentTotal + itemResult.DurationMs) / int64(formatStats.Total)
}

// Finalize completes the report with timing information and sorts results
// by path.
func (report *Report) Finalize() {
	report.CompletedAt = time.Now()
	report.DurationMs = report.CompletedAt.Sub(report.StartedAt).Milliseconds()

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Path < report.Results[j].Path
	})
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Path < report.Failures[j].Path
	})
}

// SuccessRate returns the percentage of sources that converted cleanly.
func (report *Report) SuccessRate() float64 {
	if report.Total == 0 {
		return 100.0
	}
	return float64(report.Converted) / float64(report.Total) * 100.0
}

// ToJSON serializes the report to JSON.
func (report *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// ToMarkdown generates a Markdown formatted report.
func (report *Report) ToMarkdown() string {
	var markdownBuilder strings.Builder

	markdownBuilder.WriteString("# Batch Conversion Report\n\n")

	markdownBuilder.WriteString("## Summary\n\n")
	markdownBuilder.WriteString(fmt.Sprintf("- **Sources**: %d\n", report.Total))
	markdownBuilder.WriteString(fmt.Sprintf("- **Converted**: %d\n", report.Converted))
	markdownBuilder.WriteString(fmt.Sprintf("- **Failed**: %d\n", report.Failed))
	markdownBuilder.WriteString(fmt.Sprintf("- **No Text**: %d\n", report.NoText))
	markdownBuilder.WriteString(fmt.Sprintf("- **Gate Failures**: %d\n", report.GateFail))
	markdownBuilder.WriteString(fmt.Sprintf("- **Questions**: %d\n", report.Questions))
	markdownBuilder.WriteString(fmt.Sprintf("- **Success Rate**: %.1f%%\n", report.SuccessRate()))
	markdownBuilder.WriteString(fmt.Sprintf("- **Duration**: %dms\n\n", report.DurationMs))

	if len(report.FormatStats) > 0 {
		markdownBuilder.WriteString("## Format Statistics\n\n")
		markdownBuilder.WriteString("| Format | Total | Converted | Questions | Avg Duration |\n")
		markdownBuilder.WriteString("|--------|-------|-----------|-----------|--------------|\n")

		formats := make([]string, 0, len(report.FormatStats))
		for format := range report.FormatStats {
			formats = append(formats, format)
		}
		sort.Strings(formats)

		for _, format := range formats {
			formatStats := report.FormatStats[format]
			markdownBuilder.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %dms |\n",
				format, formatStats.Total, formatStats.Converted, formatStats.Questions, formatStats.AvgDuration))
		}
		markdownBuilder.WriteString("\n")
	}

	if len(report.Failures) > 0 {
		markdownBuilder.WriteString("## Failures\n\n")
		markdownBuilder.WriteString("| Source | Status | Error |\n")
		markdownBuilder.WriteString("|--------|--------|-------|\n")

		for _, itemResult := range report.Failures {
			markdownBuilder.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
				itemResult.Path, itemResult.Status, failureReason(itemResult)))
		}
		markdownBuilder.WriteString("\n")
	}

	return markdownBuilder.String()
}

// String returns a human-readable summary of the report.
func (report *Report) String() string {
	var summaryBuilder strings.Builder

	summaryBuilder.WriteString("Batch Conversion Report\n")
	summaryBuilder.WriteString("=======================\n\n")
	summaryBuilder.WriteString(fmt.Sprintf("Sources:       %d\n", report.Total))
	summaryBuilder.WriteString(fmt.Sprintf("Converted:     %d\n", report.Converted))
	summaryBuilder.WriteString(fmt.Sprintf("Failed:        %d\n", report.Failed))
	summaryBuilder.WriteString(fmt.Sprintf("No text:       %d\n", report.NoText))
	summaryBuilder.WriteString(fmt.Sprintf("Gate failures: %d\n", report.GateFail))
	summaryBuilder.WriteString(fmt.Sprintf("Questions:     %d\n", report.Questions))
	summaryBuilder.WriteString(fmt.Sprintf("Success rate:  %.1f%%\n", report.SuccessRate()))
	summaryBuilder.WriteString(fmt.Sprintf("Duration:      %dms\n", report.DurationMs))

	if len(report.Failures) > 0 {
		summaryBuilder.WriteString(fmt.Sprintf("\nFailures (%d):\n", len(report.Failures)))
		for _, itemResult := range report.Failures {
			summaryBuilder.WriteString(fmt.Sprintf("  - %s: %s (%s)\n", itemResult.Path, itemResult.Status, failureReason(itemResult)))
		}
	}

	return summaryBuilder.String()
}

func failureReason(itemResult *ItemResult) string {
	if itemResult.Error != "" {
		return itemResult.Error
	}
	if itemResult.HaltedAt != "" {
		return "halted at gate " + itemResult.HaltedAt
	}
	return "-"
}
