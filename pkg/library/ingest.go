package library

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/pdftext"
	"github.com/coolbeans/listenconv/pkg/types"
)

// IngestFromText converts source text into a listening test and computes its
// statistics.
func IngestFromText(sourceText []byte, documentID string, converter *extract.Converter) (*IngestResult, error) {
	if len(strings.TrimSpace(string(sourceText))) == 0 {
		return nil, fmt.Errorf("source text is empty")
	}
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}
	if converter == nil {
		converter = extract.NewConverter(extract.Options{})
	}

	doc := converter.Convert(string(sourceText))

	documentStats := statsFor(doc)
	documentStats.SourceBytes = len(sourceText)

	return &IngestResult{
		Document:   doc,
		Stats:      documentStats,
		DocumentID: documentID,
	}, nil
}

// ExtractFile reads the text of a .pdf or .txt source for ingestion.
func ExtractFile(ctx context.Context, extractor *pdftext.Extractor, filePath string) ([]byte, pdftext.Format, error) {
	if extractor == nil {
		extractor = pdftext.New(pdftext.Config{})
	}
	result, err := extractor.Extract(ctx, filePath)
	if err != nil {
		return nil, "", err
	}
	return []byte(result.Text), result.Format, nil
}

// DeriveDocumentID creates a document ID from a file path by lowercasing the
// basename without its extension and replacing spaces with dashes.
func DeriveDocumentID(filePath string) string {
	baseName := filepath.Base(filePath)
	if idx := strings.LastIndex(baseName, "."); idx > 0 {
		baseName = baseName[:idx]
	}
	return strings.ToLower(strings.Join(strings.Fields(baseName), "-"))
}

func statsFor(doc *types.Document) *DocumentStats {
	stats := extract.ComputeStatistics(doc)
	return &DocumentStats{
		Sections:       stats.Sections,
		ContentItems:   stats.ContentItems,
		TextItems:      stats.TextItems,
		TotalQuestions: stats.QuestionItems,
		QuestionIDs:    stats.QuestionIDs,
		SharedIDs:      stats.SharedIDs,
		GapFill:        stats.ByFormat[types.FormatGapFill],
		MultipleChoice: stats.ByFormat[types.FormatMultipleChoice],
	}
}
