package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/coolbeans/listenconv/pkg/pdftext"
)

// SeedFromDirectory extracts and converts every .pdf and .txt file in
// dirPath (not recursive). Sources whose ID is already ready in the library
// are skipped unless force is set.
func SeedFromDirectory(ctx context.Context, lib *Library, extractor *pdftext.Extractor, dirPath string, force bool) (*SeedReport, error) {
	dirEntries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var sourcePaths []string
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !pdftext.Supported(dirEntry.Name()) {
			continue
		}
		sourcePaths = append(sourcePaths, filepath.Join(dirPath, dirEntry.Name()))
	}
	sort.Strings(sourcePaths)

	seedReport := &SeedReport{
		TotalAttempted: len(sourcePaths),
		Entries:        make([]SeedEntryState, 0, len(sourcePaths)),
	}

	for _, sourcePath := range sourcePaths {
		if err := ctx.Err(); err != nil {
			return seedReport, err
		}

		documentID := DeriveDocumentID(sourcePath)

		if existing := lib.GetDocument(documentID); existing != nil && existing.Status == StatusReady && !force {
			seedReport.Skipped++
			seedReport.Entries = append(seedReport.Entries, SeedEntryState{
				ID:     documentID,
				Source: sourcePath,
				Status: "skipped",
			})
			continue
		}

		if _, err := AddFile(ctx, lib, extractor, sourcePath, documentID, true); err != nil {
			seedReport.Failed++
			seedReport.Entries = append(seedReport.Entries, SeedEntryState{
				ID:     documentID,
				Source: sourcePath,
				Status: "failed",
				Error:  err.Error(),
			})
			continue
		}

		seedReport.Succeeded++
		seedReport.Entries = append(seedReport.Entries, SeedEntryState{
			ID:     documentID,
			Source: sourcePath,
			Status: "ingested",
		})
	}

	return seedReport, nil
}

// AddFile extracts the text of a source file and adds it to the library.
// An empty documentID is derived from the file name.
func AddFile(ctx context.Context, lib *Library, extractor *pdftext.Extractor, sourcePath, documentID string, force bool) (*DocumentEntry, error) {
	sourceText, format, err := ExtractFile(ctx, extractor, sourcePath)
	if err != nil {
		return nil, err
	}

	if documentID == "" {
		documentID = DeriveDocumentID(sourcePath)
	}

	return lib.AddDocument(documentID, sourceText, AddOptions{
		Name:         filepath.Base(sourcePath),
		SourceFile:   sourcePath,
		SourceFormat: string(format),
		Force:        force,
	})
}
