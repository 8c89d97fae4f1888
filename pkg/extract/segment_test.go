package extract

import (
	"fmt"
	"testing"

	"github.com/coolbeans/listenconv/pkg/types"
)

func TestGroupsQuestionThreshold(t *testing.T) {
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = fmt.Sprintf("Item %d: ______", i+1)
	}

	groups := NewSegmenter(Options{}).Groups(lines)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	wantSizes := []int{10, 10, 5}
	for i, group := range groups {
		if len(group) != wantSizes[i] {
			t.Errorf("group %d has %d lines, want %d", i+1, len(group), wantSizes[i])
		}
	}
	if groups[1][0] != "Item 11: ______" {
		t.Errorf("second group starts with %q, want the 11th line", groups[1][0])
	}
}

func TestGroupsMixedQuestionFormats(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			lines = append(lines, fmt.Sprintf("Q%d: ___", i))
		} else {
			lines = append(lines, fmt.Sprintf("Q%d A) yes B) no", i))
		}
		lines = append(lines, "narration")
	}

	groups := NewSegmenter(Options{}).Groups(lines)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	// The boundary fires on the line after the tenth question line, so that
	// question's narration opens the second group.
	if len(groups[0]) != 19 {
		t.Errorf("first group has %d lines, want 19", len(groups[0]))
	}
	if groups[1][0] != "narration" {
		t.Errorf("second group starts with %q, want narration", groups[1][0])
	}
}

func TestGroupsExplicitMarkers(t *testing.T) {
	lines := []string{
		"Section 1 Questions 1-3",
		"Name: ___",
		"Section 2: Questions",
		"Part 3",
		"Address: ___",
		"Sections 4 is not a marker",
		"Part four is not a marker",
	}

	groups := NewSegmenter(Options{}).Groups(lines)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3: %v", len(groups), groups)
	}
	if groups[1][0] != "Section 2: Questions" {
		t.Errorf("group 2 starts with %q", groups[1][0])
	}
	if len(groups[1]) != 1 {
		t.Errorf("group 2 has %d lines, want 1", len(groups[1]))
	}
	if groups[2][0] != "Part 3" || len(groups[2]) != 4 {
		t.Errorf("group 3 = %v", groups[2])
	}
}

func TestGroupsMarkerOnFirstLine(t *testing.T) {
	groups := NewSegmenter(Options{}).Groups([]string{"Part 1", "hello"})
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
}

func TestGroupsEmptyInput(t *testing.T) {
	segmenter := NewSegmenter(Options{})
	if groups := segmenter.Groups(nil); len(groups) != 0 {
		t.Errorf("got %d groups for nil input", len(groups))
	}
	if groups := segmenter.Groups([]string{"", ""}); len(groups) != 0 {
		t.Errorf("got %d groups for blank lines", len(groups))
	}
}

func TestGroupsTrimsLines(t *testing.T) {
	lines := []string{"  Section 1", "Name: ___  ", "   ", "\t", "  Section 2  ", "Date: ___"}

	groups := NewSegmenter(Options{}).Groups(lines)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %q", len(groups), groups)
	}
	if groups[1][0] != "Section 2" {
		t.Errorf("second group starts with %q, want %q", groups[1][0], "Section 2")
	}
	for i, group := range groups {
		if len(group) != 2 {
			t.Errorf("group %d = %q, want 2 lines", i+1, group)
		}
	}
}

func TestGroupsBlankOnlyInput(t *testing.T) {
	groups := NewSegmenter(Options{}).Groups([]string{" ", "\t", ""})
	if len(groups) != 0 {
		t.Errorf("got %d groups, want 0", len(groups))
	}
}

func TestGroupsCustomThreshold(t *testing.T) {
	lines := make([]string, 9)
	for i := range lines {
		lines[i] = "gap ___"
	}
	groups := NewSegmenter(Options{QuestionThreshold: 4}).Groups(lines)
	if len(groups) != 3 {
		t.Errorf("got %d groups, want 3", len(groups))
	}
}

func TestParseSectionTitle(t *testing.T) {
	tests := []struct {
		name  string
		group []string
		want  string
	}{
		{"first line", []string{"PART 1", "Questions 1-10"}, "PART 1"},
		{"skip page number", []string{"12. ", "Booking form", "x"}, "Booking form"},
		{"page number with text", []string{"3.Listening", "Travel survey"}, "Travel survey"},
		{"fallback", []string{"1.", "2.", "3.", "Late title"}, "Section 4"},
	}

	segmenter := NewSegmenter(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, _ := segmenter.ParseSection(tt.group, 4, 0)
			if section.Title != tt.want {
				t.Errorf("Title = %q, want %q", section.Title, tt.want)
			}
		})
	}
}

func TestParseSectionDispatch(t *testing.T) {
	group := []string{
		"SECTION 1",
		"Complete the form below.",
		"Name: ___ Smith",
		"Where does she live? A) city B) village",
		"Match the places with the descriptions",
		"Choose TWO letters",
		"Complete the table",
	}

	section, issued := NewSegmenter(Options{}).ParseSection(group, 1, 5)

	if issued != 7 {
		t.Errorf("issued = %d, want 7", issued)
	}

	wantKinds := []types.ItemKind{
		types.ItemText,     // SECTION 1
		types.ItemText,     // Complete the form below.
		types.ItemText,     // "Name: "
		types.ItemQuestion, // " Smith"
		types.ItemQuestion, // multiple choice
		types.ItemText,     // matching
		types.ItemText,     // multi-select
		types.ItemText,     // table
	}
	if len(section.Content) != len(wantKinds) {
		t.Fatalf("got %d items, want %d", len(section.Content), len(wantKinds))
	}
	for i, item := range section.Content {
		if item.Kind() != wantKinds[i] {
			t.Errorf("item %d kind = %q, want %q", i, item.Kind(), wantKinds[i])
		}
	}

	questions := section.Content.Questions()
	if questions[0].QuestionID != "q6" || questions[1].QuestionID != "q7" {
		t.Errorf("question ids = %q, %q; want q6, q7", questions[0].QuestionID, questions[1].QuestionID)
	}
	if questions[1].Format != types.FormatMultipleChoice {
		t.Errorf("second question format = %q", questions[1].Format)
	}

	if section.Instructions.Heading != "Questions 1-2" {
		t.Errorf("Heading = %q, want %q", section.Instructions.Heading, "Questions 1-2")
	}
	if section.Instructions.Details != DefaultInstructionDetails {
		t.Errorf("Details = %q", section.Instructions.Details)
	}
	if section.Instructions.Note != DefaultInstructionNote {
		t.Errorf("Note = %q", section.Instructions.Note)
	}
	if section.AudioURL != "" {
		t.Errorf("AudioURL = %q, want empty", section.AudioURL)
	}
}

func TestParseSectionWithoutQuestions(t *testing.T) {
	section, issued := NewSegmenter(Options{}).ParseSection([]string{"Introduction", "Listen carefully."}, 1, 0)
	if issued != 0 {
		t.Errorf("issued = %d, want 0", issued)
	}
	if section.Instructions.Heading != "" {
		t.Errorf("Heading = %q, want empty", section.Instructions.Heading)
	}
	if section.Content.CountQuestions() != 0 {
		t.Error("expected no questions")
	}
}

func TestParseSectionBareBlanks(t *testing.T) {
	// A line holding only a blank issues an id but yields no item.
	section, issued := NewSegmenter(Options{}).ParseSection([]string{"___", "______"}, 1, 3)
	if issued != 5 {
		t.Errorf("issued = %d, want 5", issued)
	}
	if len(section.Content) != 0 {
		t.Errorf("content = %d items, want 0", len(section.Content))
	}
	if section.Instructions.Heading != "Questions 1-2" {
		t.Errorf("Heading = %q, want %q", section.Instructions.Heading, "Questions 1-2")
	}
	if section.Title != "___" {
		t.Errorf("Title = %q, want the first line", section.Title)
	}
}

func TestSegmentNumbering(t *testing.T) {
	var lines []string
	for part := 1; part <= 3; part++ {
		lines = append(lines, fmt.Sprintf("Part %d", part))
		for q := 0; q < 4; q++ {
			lines = append(lines, "Answer ___ here")
		}
	}

	sections := NewSegmenter(Options{}).Segment(lines)
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(sections))
	}

	next := 1
	for i, section := range sections {
		if section.SectionNumber != i+1 {
			t.Errorf("section %d has number %d", i, section.SectionNumber)
		}
		// Heading numbering restarts per section; ids continue.
		if section.Instructions.Heading != "Questions 1-4" {
			t.Errorf("section %d heading = %q", i+1, section.Instructions.Heading)
		}
		for _, question := range section.Content.Questions() {
			want := fmt.Sprintf("q%d", next)
			if question.QuestionID != want {
				t.Errorf("section %d question id = %q, want %q", i+1, question.QuestionID, want)
			}
			next++
		}
	}
	if next != 13 {
		t.Errorf("issued %d ids, want 12", next-1)
	}
}

func TestIsSectionMarker(t *testing.T) {
	tests := map[string]bool{
		"Section 1":            true,
		"Section 2: Questions": true,
		"Part 4 Questions":     true,
		"section 1":            false,
		"SECTION 1":            false,
		"Part A":               false,
		" Part 1":              false,
		"Section  1":           false,
	}
	for line, want := range tests {
		if got := IsSectionMarker(line); got != want {
			t.Errorf("IsSectionMarker(%q) = %v, want %v", line, got, want)
		}
	}
}
