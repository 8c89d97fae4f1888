// Package watch converts listening-test sources dropped into an inbox
// directory and stores the results in a library.
package watch

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/fsnotify.v1"

	"github.com/coolbeans/listenconv/pkg/library"
	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/pdftext"
)

// Event reports the outcome of processing one inbox file.
type Event struct {
	Path  string
	Op    string // "create", "modify" or "scan"
	Entry *library.DocumentEntry
	Err   error
}

// Inbox watches a directory for .pdf and .txt files.
type Inbox struct {
	dir       string
	lib       *library.Library
	extractor *pdftext.Extractor
	logger    *logger.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}
	onResult func(Event)
}

// NewInbox creates an inbox over dir. A nil extractor or logger gets a
// default.
func NewInbox(dir string, lib *library.Library, extractor *pdftext.Extractor, log *logger.Logger) *Inbox {
	if extractor == nil {
		extractor = pdftext.New(pdftext.Config{})
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Inbox{
		dir:       dir,
		lib:       lib,
		extractor: extractor,
		logger:    log,
	}
}

// SetOnResult sets a callback invoked after every processed file.
func (w *Inbox) SetOnResult(fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResult = fn
}

// Scan imports the files already present in the inbox. Sources that are
// already in the library are skipped.
func (w *Inbox) Scan(ctx context.Context) (*library.SeedReport, error) {
	seedReport, err := library.SeedFromDirectory(ctx, w.lib, w.extractor, w.dir, false)
	if err != nil {
		return seedReport, err
	}
	for _, state := range seedReport.Entries {
		event := Event{Path: state.Source, Op: "scan", Entry: w.lib.GetDocument(state.ID)}
		if state.Error != "" {
			event.Err = fmt.Errorf("%s", state.Error)
		}
		w.emit(event)
	}
	return seedReport, nil
}

// Start begins watching the inbox. It returns once the watcher is
// registered; events are handled on a background goroutine until ctx is
// done or Stop is called.
func (w *Inbox) Start(ctx context.Context) error {
	if w.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.watchLoop(ctx, watcher, w.stopChan, w.done)

	w.logger.Info("watching inbox", "dir", w.dir)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Inbox) Stop() {
	w.mu.Lock()
	stopChan, done, watcher := w.stopChan, w.done, w.watcher
	w.stopChan, w.done, w.watcher = nil, nil, nil
	w.mu.Unlock()

	if stopChan == nil {
		return
	}
	close(stopChan)
	<-done
	watcher.Close()
}

func (w *Inbox) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, stopChan, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case <-stopChan:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !pdftext.Supported(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				w.emit(w.Process(ctx, event.Name, "create"))

			case event.Op&fsnotify.Write == fsnotify.Write:
				w.emit(w.Process(ctx, event.Name, "modify"))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Process extracts, converts and stores a single file, replacing any earlier
// version with the same derived ID.
func (w *Inbox) Process(ctx context.Context, path, op string) Event {
	entry, err := library.AddFile(ctx, w.lib, w.extractor, path, "", true)
	if err != nil {
		w.logger.Warn("inbox file failed", "path", path, "error", err)
	} else {
		w.logger.Info("inbox file stored", "path", path, "id", entry.ID, "questions", entry.Stats.TotalQuestions)
	}
	return Event{Path: path, Op: op, Entry: entry, Err: err}
}

func (w *Inbox) emit(event Event) {
	w.mu.Lock()
	fn := w.onResult
	w.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}
