// Package library stores converted listening tests on disk.
//
// Layout:
//
//	<root>/library.json
//	<root>/documents/<sha256(id)>/source.txt
//	<root>/documents/<sha256(id)>/document.json
//	<root>/documents/<sha256(id)>/metadata.json
package library

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/types"
)

const (
	manifestFileName = "library.json"
	documentsDir     = "documents"
	sourceFileName   = "source.txt"
	documentFileName = "document.json"
	metadataFileName = "metadata.json"
	manifestVersion  = "1.0.0"
)

// Library manages a persistent collection of converted listening tests.
type Library struct {
	mu        sync.RWMutex
	path      string
	manifest  *LibraryManifest
	converter *extract.Converter
	logger    *logger.Logger
}

// Init creates a new library at the given path.
func Init(libraryPath string) (*Library, error) {
	documentsPath := filepath.Join(libraryPath, documentsDir)
	if err := os.MkdirAll(documentsPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	now := time.Now().UTC()
	manifest := &LibraryManifest{
		Version:   manifestVersion,
		CreatedAt: now,
		UpdatedAt: now,
		Documents: []*DocumentEntry{},
	}

	lib := newLibrary(libraryPath, manifest)

	if err := lib.saveManifest(); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	return lib, nil
}

// Open loads an existing library from disk.
func Open(libraryPath string) (*Library, error) {
	manifestPath := filepath.Join(libraryPath, manifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read library manifest: %w", err)
	}

	var manifest LibraryManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse library manifest: %w", err)
	}
	if manifest.Documents == nil {
		manifest.Documents = []*DocumentEntry{}
	}

	return newLibrary(libraryPath, &manifest), nil
}

// OpenOrInit opens the library at libraryPath, creating it when no manifest
// exists yet.
func OpenOrInit(libraryPath string) (*Library, error) {
	if _, err := os.Stat(filepath.Join(libraryPath, manifestFileName)); os.IsNotExist(err) {
		return Init(libraryPath)
	}
	return Open(libraryPath)
}

func newLibrary(libraryPath string, manifest *LibraryManifest) *Library {
	return &Library{
		path:      libraryPath,
		manifest:  manifest,
		converter: extract.NewConverter(extract.Options{}),
		logger:    logger.Nop(),
	}
}

// SetConverter replaces the converter used by AddDocument.
func (lib *Library) SetConverter(converter *extract.Converter) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.converter = converter
}

// SetLogger replaces the library's logger.
func (lib *Library) SetLogger(log *logger.Logger) {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	lib.logger = log
}

// AddDocument converts source text and stores the result. An empty
// documentID gets a random one. Adding an ID that already exists returns the
// existing entry unless opts.Force is set.
func (lib *Library) AddDocument(documentID string, sourceText []byte, opts AddOptions) (*DocumentEntry, error) {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	if documentID == "" {
		documentID = uuid.NewString()
	}

	existing := lib.findDocumentUnsafe(documentID)
	if existing != nil && !opts.Force {
		return existing, nil
	}

	name := opts.Name
	if name == "" {
		name = documentID
	}
	storageHash := hashDocumentID(documentID)
	now := time.Now().UTC()

	result, err := IngestFromText(sourceText, documentID, lib.converter)
	if err != nil {
		entry := &DocumentEntry{
			ID:           documentID,
			Name:         name,
			SourceFile:   opts.SourceFile,
			SourceFormat: opts.SourceFormat,
			Tags:         opts.Tags,
			Status:       StatusFailed,
			IngestedAt:   now,
			UpdatedAt:    now,
			StorageHash:  storageHash,
			Error:        err.Error(),
		}
		lib.upsertEntry(entry)
		if saveErr := lib.saveManifest(); saveErr != nil {
			return nil, fmt.Errorf("conversion failed (%v) and failed to save manifest: %w", err, saveErr)
		}
		lib.logger.Warn("conversion failed", "id", documentID, "error", err)
		return nil, fmt.Errorf("conversion failed for %s: %w", documentID, err)
	}

	if err := lib.writeDocumentFile(storageHash, sourceFileName, sourceText); err != nil {
		return nil, fmt.Errorf("failed to save source: %w", err)
	}

	documentData, err := SerializeDocument(result.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	if err := lib.writeDocumentFile(storageHash, documentFileName, documentData); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	metadataBytes, err := json.MarshalIndent(result.Stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := lib.writeDocumentFile(storageHash, metadataFileName, metadataBytes); err != nil {
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	entry := &DocumentEntry{
		ID:           documentID,
		Name:         name,
		Title:        result.Document.Title,
		TestID:       result.Document.Parts.TestID,
		SourceFile:   opts.SourceFile,
		SourceFormat: opts.SourceFormat,
		Tags:         opts.Tags,
		Status:       StatusReady,
		IngestedAt:   now,
		UpdatedAt:    now,
		Stats:        result.Stats,
		StorageHash:  storageHash,
	}
	if existing != nil {
		entry.IngestedAt = existing.IngestedAt
	}

	lib.upsertEntry(entry)

	if err := lib.saveManifest(); err != nil {
		return nil, fmt.Errorf("failed to save manifest: %w", err)
	}

	lib.logger.Info("stored listening test",
		"id", documentID,
		"sections", result.Stats.Sections,
		"questions", result.Stats.TotalQuestions,
	)

	return entry, nil
}

// RemoveDocument deletes a test and its associated files from the library.
func (lib *Library) RemoveDocument(documentID string) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return fmt.Errorf("document not found: %s", documentID)
	}

	if err := os.RemoveAll(lib.documentDir(entry.StorageHash)); err != nil {
		return fmt.Errorf("failed to remove document files: %w", err)
	}

	lib.removeEntry(documentID)

	if err := lib.saveManifest(); err != nil {
		return fmt.Errorf("failed to save manifest: %w", err)
	}

	return nil
}

// GetDocument returns the entry for a specific test, or nil.
func (lib *Library) GetDocument(documentID string) *DocumentEntry {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return lib.findDocumentUnsafe(documentID)
}

// ListDocuments returns all entries, sorted by ID.
func (lib *Library) ListDocuments() []*DocumentEntry {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	result := make([]*DocumentEntry, len(lib.manifest.Documents))
	copy(result, lib.manifest.Documents)

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// LoadDocument reads and decodes a stored listening test.
func (lib *Library) LoadDocument(documentID string) (*types.Document, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return nil, fmt.Errorf("document not found: %s", documentID)
	}
	if entry.Status != StatusReady {
		return nil, fmt.Errorf("document %s is not ready (status: %s)", documentID, entry.Status)
	}

	data, err := lib.readDocumentFile(entry.StorageHash, documentFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", documentID, err)
	}

	return DeserializeDocument(data)
}

// LoadSourceText returns the extracted source text a test was converted from.
func (lib *Library) LoadSourceText(documentID string) ([]byte, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	entry := lib.findDocumentUnsafe(documentID)
	if entry == nil {
		return nil, fmt.Errorf("document not found: %s", documentID)
	}

	return lib.readDocumentFile(entry.StorageHash, sourceFileName)
}

// Stats returns aggregate statistics across all tests.
func (lib *Library) Stats() *LibraryStats {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	libraryStats := &LibraryStats{
		ByStatus:       make(map[string]int),
		BySourceFormat: make(map[string]int),
	}

	for _, entry := range lib.manifest.Documents {
		libraryStats.TotalDocuments++
		libraryStats.ByStatus[string(entry.Status)]++

		if entry.SourceFormat != "" {
			libraryStats.BySourceFormat[entry.SourceFormat]++
		}

		if entry.Stats != nil {
			libraryStats.TotalSections += entry.Stats.Sections
			libraryStats.TotalQuestions += entry.Stats.TotalQuestions
			libraryStats.GapFill += entry.Stats.GapFill
			libraryStats.MultipleChoice += entry.Stats.MultipleChoice
		}
	}

	return libraryStats
}

// Path returns the library's root directory.
func (lib *Library) Path() string {
	return lib.path
}

// Close is a no-op provided for interface consistency.
func (lib *Library) Close() error {
	return nil
}

// --- Internal helpers ---

func (lib *Library) findDocumentUnsafe(documentID string) *DocumentEntry {
	for _, entry := range lib.manifest.Documents {
		if entry.ID == documentID {
			return entry
		}
	}
	return nil
}

func (lib *Library) upsertEntry(entry *DocumentEntry) {
	for i, existing := range lib.manifest.Documents {
		if existing.ID == entry.ID {
			lib.manifest.Documents[i] = entry
			lib.manifest.UpdatedAt = time.Now().UTC()
			return
		}
	}
	lib.manifest.Documents = append(lib.manifest.Documents, entry)
	lib.manifest.UpdatedAt = time.Now().UTC()
}

func (lib *Library) removeEntry(documentID string) {
	filtered := make([]*DocumentEntry, 0, len(lib.manifest.Documents))
	for _, entry := range lib.manifest.Documents {
		if entry.ID != documentID {
			filtered = append(filtered, entry)
		}
	}
	lib.manifest.Documents = filtered
	lib.manifest.UpdatedAt = time.Now().UTC()
}

// saveManifest writes the manifest through a temporary file so a crash never
// leaves a truncated library.json behind.
func (lib *Library) saveManifest() error {
	manifestPath := filepath.Join(lib.path, manifestFileName)
	data, err := json.MarshalIndent(lib.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	tempPath := manifestPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, manifestPath)
}

func (lib *Library) documentDir(storageHash string) string {
	return filepath.Join(lib.path, documentsDir, storageHash)
}

func (lib *Library) writeDocumentFile(storageHash string, fileName string, data []byte) error {
	dirPath := lib.documentDir(storageHash)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dirPath, fileName), data, 0644)
}

func (lib *Library) readDocumentFile(storageHash string, fileName string) ([]byte, error) {
	return os.ReadFile(filepath.Join(lib.documentDir(storageHash), fileName))
}

func hashDocumentID(documentID string) string {
	hash := sha256.Sum256([]byte(documentID))
	return fmt.Sprintf("%x", hash)
}
