package extract

import (
	"reflect"
	"testing"

	"github.com/coolbeans/listenconv/pkg/types"
)

func TestExtractOptions(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantText    string
		wantOptions map[string]string
	}{
		{
			name:        "inline options",
			line:        "What is true? A) Cats B) Dogs",
			wantText:    "What is true?",
			wantOptions: map[string]string{"A": "Cats", "B": "Dogs"},
		},
		{
			name:     "four options",
			line:     "The library opens at A) 8am B) 9am C) 10am D) noon",
			wantText: "The library opens at",
			wantOptions: map[string]string{
				"A": "8am", "B": "9am", "C": "10am", "D": "noon",
			},
		},
		{
			name:        "options on separate lines",
			line:        "Which room?\nA) Room 1\nB) Room 2\nsee the plan",
			wantText:    "Which room? see the plan",
			wantOptions: map[string]string{"A": "Room 1", "B": "Room 2"},
		},
		{
			name:        "repeated letter keeps last",
			line:        "Pick A) first A) second",
			wantText:    "Pick",
			wantOptions: map[string]string{"A": "second"},
		},
		{
			name:        "marker without text stays in stem",
			line:        "Option A)",
			wantText:    "Option A)",
			wantOptions: map[string]string{},
		},
		{
			name:        "option letter E",
			line:        "E) none of these",
			wantText:    "",
			wantOptions: map[string]string{"E": "none of these"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractOptions(tt.line, "q3")
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
			if !reflect.DeepEqual(got.Options, tt.wantOptions) {
				t.Errorf("Options = %v, want %v", got.Options, tt.wantOptions)
			}
			if got.Format != types.FormatMultipleChoice {
				t.Errorf("Format = %q, want multiple-choice", got.Format)
			}
			if got.QuestionID != "q3" {
				t.Errorf("QuestionID = %q, want q3", got.QuestionID)
			}
			if got.CorrectAnswer != "" {
				t.Errorf("CorrectAnswer = %q, want empty", got.CorrectAnswer)
			}
			if got.WordLimit != nil || got.Postfix != nil {
				t.Errorf("multiple-choice items carry no word limit or postfix: %+v", got)
			}
		})
	}
}
