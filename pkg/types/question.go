package types

import (
	"encoding/json"
	"fmt"
)

// QuestionFormat is the classification tag assigned to a line of test text.
type QuestionFormat string

const (
	FormatGapFill        QuestionFormat = "gap-fill"
	FormatMultipleChoice QuestionFormat = "multiple-choice"
	FormatMatching       QuestionFormat = "matching"
	FormatMultiSelect    QuestionFormat = "multi-select"
	FormatTable          QuestionFormat = "table"
	FormatText           QuestionFormat = "text"
)

// IsQuestion reports whether lines of this format produce scored items and
// count toward a section's question total.
func (f QuestionFormat) IsQuestion() bool {
	return f == FormatGapFill || f == FormatMultipleChoice
}

// ItemKind discriminates the ContentItem variants on the wire.
type ItemKind string

const (
	ItemText     ItemKind = "text"
	ItemQuestion ItemKind = "question"
)

// ContentItem is a closed sum of *TextItem and *QuestionItem.
// The unexported marker method keeps other packages from adding variants.
type ContentItem interface {
	Kind() ItemKind
	contentItem()
}

// TextItem is narrative or instructional text that is not scored.
type TextItem struct {
	Value string
}

// Kind returns ItemText.
func (*TextItem) Kind() ItemKind { return ItemText }
func (*TextItem) contentItem()   {}

// MarshalJSON writes the item with its "type" discriminant.
func (t *TextItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  ItemKind `json:"type"`
		Value string   `json:"value"`
	}{ItemText, t.Value})
}

// QuestionItem is a scored question. CorrectAnswer is always empty when the
// converter creates it; answers are filled in by hand downstream.
type QuestionItem struct {
	QuestionID    string
	Format        QuestionFormat
	Text          string
	Options       map[string]string // nil for formats without options
	CorrectAnswer string
	WordLimit     *int
	Postfix       *string
}

// Kind returns ItemQuestion.
func (*QuestionItem) Kind() ItemKind { return ItemQuestion }
func (*QuestionItem) contentItem()   {}

type questionWire struct {
	Type          ItemKind           `json:"type"`
	QuestionID    string             `json:"questionId"`
	Format        QuestionFormat     `json:"format"`
	Text          string             `json:"text"`
	Options       *map[string]string `json:"options,omitempty"`
	Postfix       *string            `json:"postfix,omitempty"`
	CorrectAnswer string             `json:"correctAnswer"`
	WordLimit     *int               `json:"wordLimit,omitempty"`
}

// MarshalJSON writes the item with its "type" discriminant. A non-nil but
// empty option map is kept as {} so multiple-choice items always carry it.
func (q *QuestionItem) MarshalJSON() ([]byte, error) {
	wire := questionWire{
		Type:          ItemQuestion,
		QuestionID:    q.QuestionID,
		Format:        q.Format,
		Text:          q.Text,
		Postfix:       q.Postfix,
		CorrectAnswer: q.CorrectAnswer,
		WordLimit:     q.WordLimit,
	}
	if q.Options != nil {
		wire.Options = &q.Options
	}
	return json.Marshal(wire)
}

// Content is the ordered body of a section.
type Content []ContentItem

// UnmarshalJSON decodes items by their "type" discriminant.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	items := make(Content, 0, len(raw))
	for i, msg := range raw {
		var probe struct {
			Type ItemKind `json:"type"`
		}
		if err := json.Unmarshal(msg, &probe); err != nil {
			return fmt.Errorf("content item %d: %w", i, err)
		}

		switch probe.Type {
		case ItemText:
			var wire struct {
				Value string `json:"value"`
			}
			if err := json.Unmarshal(msg, &wire); err != nil {
				return fmt.Errorf("content item %d: %w", i, err)
			}
			items = append(items, &TextItem{Value: wire.Value})
		case ItemQuestion:
			var wire questionWire
			if err := json.Unmarshal(msg, &wire); err != nil {
				return fmt.Errorf("content item %d: %w", i, err)
			}
			question := &QuestionItem{
				QuestionID:    wire.QuestionID,
				Format:        wire.Format,
				Text:          wire.Text,
				CorrectAnswer: wire.CorrectAnswer,
				WordLimit:     wire.WordLimit,
				Postfix:       wire.Postfix,
			}
			if wire.Options != nil {
				question.Options = *wire.Options
			}
			items = append(items, question)
		default:
			return fmt.Errorf("content item %d: unknown type %q", i, probe.Type)
		}
	}

	*c = items
	return nil
}

// Questions returns the question items in order.
func (c Content) Questions() []*QuestionItem {
	var questions []*QuestionItem
	for _, item := range c {
		if q, ok := item.(*QuestionItem); ok {
			questions = append(questions, q)
		}
	}
	return questions
}

// CountQuestions returns the number of question items; text items are excluded.
func (c Content) CountQuestions() int {
	count := 0
	for _, item := range c {
		switch item.(type) {
		case *QuestionItem:
			count++
		case *TextItem:
		default:
			panic(fmt.Sprintf("types: unexpected content item %T", item))
		}
	}
	return count
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
