package validate

import (
	"fmt"
	"strings"
)

// ToMarkdown generates a Markdown-formatted gate validation report suitable
// for pasting into a review or issue.
func (gateReport *GateReport) ToMarkdown() string {
	var markdownBuilder strings.Builder

	overallStatus := "PASS"
	if !gateReport.OverallPass {
		overallStatus = "FAIL"
	}
	markdownBuilder.WriteString(fmt.Sprintf("# Gate Validation Report %s\n\n", statusToMarkdownBadge(overallStatus)))

	// Summary table
	markdownBuilder.WriteString("## Summary\n\n")
	markdownBuilder.WriteString("| Metric | Value |\n")
	markdownBuilder.WriteString("|--------|-------|\n")
	markdownBuilder.WriteString(fmt.Sprintf("| **Overall Score** | %.1f%% |\n", gateReport.TotalScore*100))
	markdownBuilder.WriteString(fmt.Sprintf("| **Gates Passed** | %d |\n", gateReport.GatesPassed))
	markdownBuilder.WriteString(fmt.Sprintf("| **Gates Failed** | %d |\n", gateReport.GatesFailed))
	markdownBuilder.WriteString(fmt.Sprintf("| **Gates Skipped** | %d |\n", gateReport.GatesSkipped))
	markdownBuilder.WriteString(fmt.Sprintf("| **Duration** | %v |\n", gateReport.Duration))

	if gateReport.HaltedAt != "" {
		markdownBuilder.WriteString(fmt.Sprintf("| **Halted At** | %s |\n", gateReport.HaltedAt))
	}

	markdownBuilder.WriteString("\n")

	markdownBuilder.WriteString("## Gate Results\n\n")

	for _, gateResult := range gateReport.Results {
		markdownBuilder.WriteString(fmt.Sprintf("### %s %s (%.1f%%)\n\n",
			statusToMarkdownBadge(gateResult.statusLabel()),
			gateResult.Gate,
			gateResult.Score*100))

		if gateResult.Skipped {
			markdownBuilder.WriteString(fmt.Sprintf("*Skipped: %s*\n\n", gateResult.SkipReason))
			continue
		}

		if len(gateResult.Metrics) > 0 {
			markdownBuilder.WriteString("| Metric | Value |\n")
			markdownBuilder.WriteString("|--------|-------|\n")
			for _, metricName := range gateResult.metricNames() {
				markdownBuilder.WriteString(fmt.Sprintf("| %s | %.1f%% |\n", metricName, gateResult.Metrics[metricName]*100))
			}
			markdownBuilder.WriteString("\n")
		}

		if len(gateResult.Warnings) > 0 {
			markdownBuilder.WriteString("**Warnings:**\n\n")
			for _, gateWarning := range gateResult.Warnings {
				markdownBuilder.WriteString(fmt.Sprintf("- [%s] %s\n", gateWarning.Metric, escapeMarkdown(gateWarning.Message)))
			}
			markdownBuilder.WriteString("\n")
		}

		if len(gateResult.Errors) > 0 {
			markdownBuilder.WriteString("**Errors:**\n\n")
			for _, gateError := range gateResult.Errors {
				markdownBuilder.WriteString(fmt.Sprintf("- [%s] %s\n", gateError.Metric, escapeMarkdown(gateError.Message)))
			}
			markdownBuilder.WriteString("\n")
		}
	}

	return markdownBuilder.String()
}

func statusToMarkdownBadge(status string) string {
	return fmt.Sprintf("`%s`", status)
}

// escapeMarkdown escapes characters that would start emphasis in a message.
func escapeMarkdown(content string) string {
	return strings.NewReplacer("|", "\\|", "_", "\\_", "*", "\\*").Replace(content)
}
