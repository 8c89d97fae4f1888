package library

import (
	"time"

	"github.com/coolbeans/listenconv/pkg/types"
)

// DocumentStatus represents the state of a test in the library.
type DocumentStatus string

const (
	// StatusReady indicates the test has been converted and is available.
	StatusReady DocumentStatus = "ready"

	// StatusFailed indicates conversion failed for this test.
	StatusFailed DocumentStatus = "failed"
)

// LibraryManifest is the top-level index of all tests in the library.
type LibraryManifest struct {
	Version   string           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Documents []*DocumentEntry `json:"documents"`
}

// DocumentEntry represents a single converted listening test.
type DocumentEntry struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Title        string         `json:"title"`
	TestID       string         `json:"test_id"`
	SourceFile   string         `json:"source_file,omitempty"`
	SourceFormat string         `json:"source_format,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Status       DocumentStatus `json:"status"`
	IngestedAt   time.Time      `json:"ingested_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Stats        *DocumentStats `json:"stats,omitempty"`
	StorageHash  string         `json:"storage_hash"`
	Error        string         `json:"error,omitempty"`
}

// DocumentStats holds conversion statistics for a single test.
type DocumentStats struct {
	Sections       int `json:"sections"`
	ContentItems   int `json:"content_items"`
	TextItems      int `json:"text_items"`
	TotalQuestions int `json:"total_questions"`
	QuestionIDs    int `json:"question_ids"`
	SharedIDs      int `json:"shared_ids"`
	GapFill        int `json:"gap_fill"`
	MultipleChoice int `json:"multiple_choice"`
	SourceBytes    int `json:"source_bytes"`
}

// AddOptions configures how a test is added to the library.
type AddOptions struct {
	Name         string
	SourceFile   string
	SourceFormat string
	Tags         []string
	Force        bool // overwrite existing test with same ID
}

// LibraryStats aggregates statistics across all tests in the library.
type LibraryStats struct {
	TotalDocuments int            `json:"total_documents"`
	TotalSections  int            `json:"total_sections"`
	TotalQuestions int            `json:"total_questions"`
	GapFill        int            `json:"gap_fill"`
	MultipleChoice int            `json:"multiple_choice"`
	ByStatus       map[string]int `json:"by_status"`
	BySourceFormat map[string]int `json:"by_source_format"`
}

// SeedReport summarizes the results of importing a directory of sources.
type SeedReport struct {
	TotalAttempted int              `json:"total_attempted"`
	Succeeded      int              `json:"succeeded"`
	Skipped        int              `json:"skipped"`
	Failed         int              `json:"failed"`
	Entries        []SeedEntryState `json:"entries"`
}

// SeedEntryState records the outcome of importing a single source.
type SeedEntryState struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Status string `json:"status"` // "ingested", "skipped", "failed"
	Error  string `json:"error,omitempty"`
}

// IngestResult holds the output of a single conversion.
type IngestResult struct {
	Document   *types.Document
	Stats      *DocumentStats
	DocumentID string
}
