package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/coolbeans/listenconv/pkg/types"
)

var fuzzQuestionIDPattern = regexp.MustCompile(`^q[1-9][0-9]*$`)

// FuzzConvert tests the converter with arbitrary input.
// Run with: go test -fuzz=FuzzConvert -fuzztime=30s ./pkg/extract/...
func FuzzConvert(f *testing.F) {
	seeds := []string{
		sampleTest,
		"",
		"\n\n\n",
		"SECTION 1\nName: ______\nSECTION 2\nA) yes B) no",
		"Part 1\nPart 2\nPart 3\nPart 4",
		"___ ___ ___",
		"…… …… ……",
		"... dots only ...",
		"A) B) C) D) E)",
		"A)A)A)A) x",
		"Question 1 A) one\nQuestion 2 A) two\n",
		"Choose TWO letters\nMatch the table",
		"1.\n2.\n3.\nPage 4",
		"   ___ \ufeff",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data string) {
		doc := NewConverter(Options{}).Convert(data)

		if doc == nil {
			t.Fatal("Convert returned nil document")
		}

		counted := 0
		for i, section := range doc.Parts.Sections {
			if section.SectionNumber != i+1 {
				t.Errorf("section %d has number %d", i+1, section.SectionNumber)
			}
			for _, item := range section.Content {
				if item == nil {
					t.Fatal("section contains nil item")
				}
				question, ok := item.(*types.QuestionItem)
				if !ok {
					continue
				}
				counted++
				if !fuzzQuestionIDPattern.MatchString(question.QuestionID) {
					t.Errorf("malformed question id %q", question.QuestionID)
				}
				if question.CorrectAnswer != "" {
					t.Errorf("question %s has a correct answer", question.QuestionID)
				}
			}
		}

		if doc.Parts.Metadata.TotalQuestions != counted {
			t.Errorf("TotalQuestions = %d, counted %d", doc.Parts.Metadata.TotalQuestions, counted)
		}
	})
}

// FuzzSplitGapFill tests the gap-fill splitter with arbitrary lines.
// Run with: go test -fuzz=FuzzSplitGapFill -fuzztime=30s ./pkg/extract/...
func FuzzSplitGapFill(f *testing.F) {
	seeds := []string{
		"Name: ______ Smith",
		"______",
		"a __ b __ c",
		"Their topic is ______ and …… energy",
		"no blanks here",
		"_",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, line string) {
		items := SplitGapFill(line, "q7")

		if !strings.ContainsAny(line, "_…") {
			if len(items) != 1 || items[0].Kind() != types.ItemText {
				t.Fatalf("line without blanks produced %d items", len(items))
			}
			return
		}

		for _, item := range items {
			question, ok := item.(*types.QuestionItem)
			if !ok {
				continue
			}
			if question.QuestionID != "q7" {
				t.Errorf("question id = %q, want q7", question.QuestionID)
			}
			if question.Text == "" {
				t.Error("gap-fill question with empty text")
			}
			if question.Format != types.FormatGapFill {
				t.Errorf("format = %s", question.Format)
			}
		}
	})
}

// FuzzExtractOptions tests the option extractor with arbitrary lines.
// Run with: go test -fuzz=FuzzExtractOptions -fuzztime=30s ./pkg/extract/...
func FuzzExtractOptions(f *testing.F) {
	seeds := []string{
		"Room type: A) single B) double C) family",
		"A) B) C)",
		"A) x A) y",
		"Which day? A) Monday\nB) Tuesday",
		"E) last",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, line string) {
		question := ExtractOptions(line, "q1")

		if question.Options == nil {
			t.Fatal("options map is nil")
		}
		for letter, text := range question.Options {
			if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'E' {
				t.Errorf("unexpected option letter %q", letter)
			}
			if text == "" || text != strings.TrimSpace(text) {
				t.Errorf("option %s has untrimmed or empty text %q", letter, text)
			}
		}
	})
}
