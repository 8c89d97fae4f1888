package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/library"
	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/pdftext"
	"github.com/coolbeans/listenconv/pkg/validate"
)

// Converter converts batches of sources with bounded concurrency.
type Converter struct {
	config     *Config
	extractor  *pdftext.Extractor
	converter  *extract.Converter
	logger     *logger.Logger
	progressCb ProgressCallback
	mu         sync.Mutex
}

// New creates a batch converter. Nil collaborators get defaults.
func New(config *Config, extractor *pdftext.Extractor, converter *extract.Converter, log *logger.Logger) *Converter {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Validation == nil {
		config.Validation = validate.DefaultValidationConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	if extractor == nil {
		extractor = pdftext.New(pdftext.Config{Logger: log})
	}
	if converter == nil {
		converter = extract.NewConverter(extract.Options{Logger: log})
	}

	return &Converter{
		config:    config,
		extractor: extractor,
		converter: converter,
		logger:    log,
	}
}

// SetProgressCallback sets a callback function to receive progress updates.
func (batchConverter *Converter) SetProgressCallback(callback ProgressCallback) {
	batchConverter.mu.Lock()
	batchConverter.progressCb = callback
	batchConverter.mu.Unlock()
}

// Run converts every path and returns a report. Sources not yet started when
// ctx is canceled are left out of the report.
func (batchConverter *Converter) Run(ctx context.Context, paths []string) (*Report, error) {
	report := NewReport()
	report.StartedAt = time.Now()

	if len(paths) == 0 {
		report.Finalize()
		return report, nil
	}

	if batchConverter.config.OutputDir != "" {
		if err := os.MkdirAll(batchConverter.config.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	documentIDs := batchConverter.assignDocumentIDs(paths)

	resultChan := make(chan *ItemResult, len(paths))
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, batchConverter.config.Concurrency)

	completedCount := 0
	totalCount := len(paths)
	progressMu := sync.Mutex{}

	for i, path := range paths {
		wg.Add(1)
		go func(path, documentID string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			select {
			case <-ctx.Done():
				return
			default:
			}

			resultChan <- batchConverter.convertOne(ctx, path, documentID)

			progressMu.Lock()
			completedCount++
			batchConverter.reportProgress(report.StartedAt, totalCount, completedCount, path)
			progressMu.Unlock()
		}(path, documentIDs[i])
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		report.AddResult(result)
	}

	report.Finalize()

	batchConverter.logger.Info("batch complete",
		"sources", report.Total,
		"converted", report.Converted,
		"failed", report.Failed+report.NoText+report.GateFail,
		"duration_ms", report.DurationMs,
	)

	return report, ctx.Err()
}

// assignDocumentIDs derives one document ID per path. Sources whose names
// derive the same ID ("My Test.txt", "my-test.txt") get "-2", "-3", ... in
// path order so no two sources share an output file.
func (batchConverter *Converter) assignDocumentIDs(paths []string) []string {
	documentIDs := make([]string, len(paths))
	taken := make(map[string]bool, len(paths))

	for i, path := range paths {
		baseID := library.DeriveDocumentID(path)
		documentID := baseID
		for suffix := 2; taken[documentID]; suffix++ {
			documentID = fmt.Sprintf("%s-%d", baseID, suffix)
		}
		if documentID != baseID {
			batchConverter.logger.Warn("document id already used in batch",
				"path", path,
				"id", baseID,
				"renamed", documentID,
			)
		}
		taken[documentID] = true
		documentIDs[i] = documentID
	}

	return documentIDs
}

// convertOne extracts, converts, optionally gates and writes one source.
func (batchConverter *Converter) convertOne(ctx context.Context, path, documentID string) *ItemResult {
	startTime := time.Now()
	result := &ItemResult{Path: path, ID: documentID}
	defer func() {
		result.DurationMs = time.Since(startTime).Milliseconds()
		result.ConvertedAt = time.Now()
	}()

	if format, err := pdftext.Detect(path); err == nil {
		result.Format = string(format)
	}

	extracted, err := batchConverter.extractor.Extract(ctx, path)
	if err != nil {
		result.Status = StatusFailed
		if errors.Is(err, pdftext.ErrNoText) {
			result.Status = StatusNoText
		}
		result.Error = err.Error()
		return result
	}
	if extracted.Quality != nil {
		result.NeedsOCR = extracted.Quality.NeedsOCR()
	}

	convertStart := time.Now()
	doc := batchConverter.converter.Convert(extracted.Text)
	result.Sections = len(doc.Parts.Sections)
	result.Questions = doc.Parts.Metadata.TotalQuestions
	result.Status = StatusConverted

	if batchConverter.config.RunGates {
		gatePipeline := validate.NewGatePipeline(batchConverter.config.Validation)
		gatePipeline.RegisterDefaultGates()
		gateReport := gatePipeline.Run(&validate.ValidationContext{
			SourceText:      extracted.Text,
			SourcePath:      path,
			Quality:         extracted.Quality,
			Document:        doc,
			Config:          batchConverter.config.Validation,
			ConvertDuration: time.Since(convertStart),
		})
		result.GateScore = gateReport.TotalScore
		result.HaltedAt = gateReport.HaltedAt
		if !gateReport.OverallPass {
			result.Status = StatusGateFail
		}
	}

	if batchConverter.config.OutputDir != "" {
		outputPath := filepath.Join(batchConverter.config.OutputDir, documentID+".json")
		data, err := json.MarshalIndent(doc, "", "  ")
		if err == nil {
			err = os.WriteFile(outputPath, data, 0644)
		}
		if err != nil {
			result.Status = StatusFailed
			result.Error = fmt.Sprintf("failed to write output: %v", err)
			return result
		}
		result.Output = outputPath
	}

	return result
}

// reportProgress sends a progress update via the callback if set.
func (batchConverter *Converter) reportProgress(startedAt time.Time, total, completed int, currentPath string) {
	batchConverter.mu.Lock()
	callback := batchConverter.progressCb
	batchConverter.mu.Unlock()

	if callback == nil {
		return
	}

	elapsed := time.Since(startedAt).Milliseconds()
	progress := &Progress{
		Total:       total,
		Completed:   completed,
		CurrentPath: currentPath,
		StartedAt:   startedAt,
		ElapsedTime: elapsed,
	}

	if completed > 0 && completed < total {
		progress.EstimatedLeft = elapsed / int64(completed) * int64(total-completed)
	}

	callback(progress)
}

// CollectSources expands directories (not recursively) into their .pdf and
// .txt files and keeps plain file arguments as given. The result is sorted
// and free of duplicates.
func CollectSources(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var sources []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			sources = append(sources, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		dirEntries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, dirEntry := range dirEntries {
			if !dirEntry.IsDir() && pdftext.Supported(dirEntry.Name()) {
				add(filepath.Join(path, dirEntry.Name()))
			}
		}
	}

	sort.Strings(sources)
	return sources, nil
}
