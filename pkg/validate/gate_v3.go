package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coolbeans/listenconv/pkg/types"
)

// questionIDPattern is the shape of ids the converter issues.
var questionIDPattern = regexp.MustCompile(`^q(\d+)$`)

// IdentifierGate (V3) validates question identifiers and option sets.
type IdentifierGate struct{}

// NewIdentifierGate creates a new V3 identifier validation gate.
func NewIdentifierGate() *IdentifierGate {
	return &IdentifierGate{}
}

// Name returns "V3".
func (identifierGate *IdentifierGate) Name() string { return "V3" }

// Thresholds returns the default thresholds for identifier validation metrics.
func (identifierGate *IdentifierGate) Thresholds() map[string]float64 {
	return map[string]float64{
		"id_uniqueness":   0.80,
		"id_format":       1.0,
		"id_order":        1.0,
		"options_present": 0.90,
	}
}

// Run validates that question ids are unique per item, well formed and
// increasing through the document, and that multiple-choice questions carry
// at least two options. Ids shared by several blanks of one line are listed
// as warnings.
func (identifierGate *IdentifierGate) Run(ctx *ValidationContext) *GateResult {
	startTime := time.Now()

	gateResult := newGateResult(identifierGate.Name())

	if ctx.Document == nil {
		gateResult.Errors = append(gateResult.Errors, GateError{
			Metric:  "document",
			Message: "no document available",
		})
		gateResult.Duration = time.Since(startTime)
		return gateResult
	}

	var questions []*types.QuestionItem
	for _, section := range ctx.Document.Parts.Sections {
		questions = append(questions, section.Content.Questions()...)
	}

	occurrences := make(map[string]int)
	wellFormed := 0
	multipleChoice := 0
	withOptions := 0
	for _, question := range questions {
		occurrences[question.QuestionID]++
		if questionIDPattern.MatchString(question.QuestionID) {
			wellFormed++
		}
		if question.Format == types.FormatMultipleChoice {
			multipleChoice++
			if len(question.Options) >= 2 {
				withOptions++
			}
		}
	}

	// id_uniqueness: distinct ids per question item.
	gateResult.Metrics["id_uniqueness"] = ratio(len(occurrences), len(questions), 1.0)
	if shared := sharedIDs(occurrences); len(shared) > 0 {
		gateResult.Warnings = append(gateResult.Warnings, GateWarning{
			Metric:  "id_uniqueness",
			Message: fmt.Sprintf("ids shared by several items: %s", strings.Join(shared, ", ")),
			Value:   float64(len(shared)),
		})
	}

	gateResult.Metrics["id_format"] = ratio(wellFormed, len(questions), 1.0)

	// id_order: each distinct id is numerically greater than the one before.
	distinct := questionIDs(ctx.Document)
	increasing := 0
	previous := 0
	for _, id := range distinct {
		number, ok := idNumber(id)
		if ok && number > previous {
			increasing++
			previous = number
		}
	}
	gateResult.Metrics["id_order"] = ratio(increasing, len(distinct), 1.0)

	gateResult.Metrics["options_present"] = ratio(withOptions, multipleChoice, 1.0)

	evaluateMetrics(gateResult, ctx.Config, identifierGate)
	gateResult.Duration = time.Since(startTime)
	return gateResult
}

func idNumber(id string) (int, bool) {
	match := questionIDPattern.FindStringSubmatch(id)
	if match == nil {
		return 0, false
	}
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return number, true
}

// sharedIDs returns the ids that occur more than once, in numeric order.
func sharedIDs(occurrences map[string]int) []string {
	var shared []string
	for id, count := range occurrences {
		if count > 1 {
			shared = append(shared, id)
		}
	}
	sort.Slice(shared, func(i, j int) bool {
		left, _ := idNumber(shared[i])
		right, _ := idNumber(shared[j])
		if left != right {
			return left < right
		}
		return shared[i] < shared[j]
	})
	return shared
}
