// Package types defines the listening-test document model shared by the
// converter, the library and the HTTP/MCP surfaces. JSON field names are the
// interchange contract with downstream consumers and must not change.
package types

// Document is a converted listening test.
type Document struct {
	Title     string    `json:"title"`
	Parts     Parts     `json:"parts"`
	CreatedAt Timestamp `json:"createdAt"`
}

// Parts holds the sections and their aggregate metadata.
type Parts struct {
	TestID   string    `json:"testId"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	Metadata Metadata  `json:"metadata"`
}

// Metadata carries document-level counts and placeholders.
type Metadata struct {
	TotalQuestions int    `json:"totalQuestions"`
	TimeLimit      int    `json:"timeLimit"`
	Version        string `json:"version"`
	CreatedAt      string `json:"createdAt"`
}

// Timestamp mirrors the {_seconds, _nanoseconds} pair used by the
// consuming datastore.
type Timestamp struct {
	Seconds     int64 `json:"_seconds"`
	Nanoseconds int64 `json:"_nanoseconds"`
}

// Section is one part of the test.
type Section struct {
	SectionNumber int          `json:"sectionNumber"`
	Title         string       `json:"title"`
	AudioURL      string       `json:"audioUrl"`
	Content       Content      `json:"content"`
	Instructions  Instructions `json:"instructions"`
}

// Instructions are the directions shown above a section's questions.
type Instructions struct {
	Heading string `json:"heading"`
	Details string `json:"details"`
	Note    string `json:"note"`
}

// CountQuestions sums question items across all sections.
func (d *Document) CountQuestions() int {
	total := 0
	for _, section := range d.Parts.Sections {
		total += section.Content.CountQuestions()
	}
	return total
}
