package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coolbeans/listenconv/pkg/library"
)

const inboxSource = `Section 1 Questions 1-2
Name: ______ Smith
Room type: A) single B) double
`

func newTestInbox(t *testing.T) (*Inbox, *library.Library, string) {
	t.Helper()
	lib, err := library.Init(filepath.Join(t.TempDir(), "lib"))
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	dir := t.TempDir()
	return NewInbox(dir, lib, nil, nil), lib, dir
}

func TestProcess(t *testing.T) {
	inbox, lib, dir := newTestInbox(t)

	path := filepath.Join(dir, "Mock Test.txt")
	if err := os.WriteFile(path, []byte(inboxSource), 0644); err != nil {
		t.Fatal(err)
	}

	event := inbox.Process(context.Background(), path, "create")
	if event.Err != nil {
		t.Fatalf("Process failed: %v", event.Err)
	}
	if event.Entry == nil || event.Entry.ID != "mock-test" {
		t.Fatalf("unexpected entry: %+v", event.Entry)
	}
	if lib.GetDocument("mock-test") == nil {
		t.Error("document not stored in library")
	}
}

func TestProcessEmptyFile(t *testing.T) {
	inbox, lib, dir := newTestInbox(t)

	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	event := inbox.Process(context.Background(), path, "create")
	if event.Err == nil {
		t.Error("expected error for empty file")
	}
	if len(lib.ListDocuments()) != 0 {
		t.Error("nothing should be stored for an empty file")
	}
}

func TestScan(t *testing.T) {
	inbox, _, dir := newTestInbox(t)

	for _, name := range []string{"a.txt", "b.txt", "ignored.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(inboxSource), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var events []Event
	inbox.SetOnResult(func(event Event) { events = append(events, event) })

	seedReport, err := inbox.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if seedReport.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", seedReport.Succeeded)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for _, event := range events {
		if event.Op != "scan" || event.Entry == nil {
			t.Errorf("unexpected event: %+v", event)
		}
	}
}

func TestStartNoDirectory(t *testing.T) {
	inbox := NewInbox("", nil, nil, nil)
	if err := inbox.Start(context.Background()); err == nil {
		t.Error("Start() without directory should return error")
	}
}

func TestStopWithoutStart(t *testing.T) {
	inbox, _, _ := newTestInbox(t)
	inbox.Stop()
}

func TestWatch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping watch test in short mode")
	}

	inbox, lib, dir := newTestInbox(t)

	stored := make(chan Event, 4)
	inbox.SetOnResult(func(event Event) {
		if event.Err == nil {
			select {
			case stored <- event:
			default:
			}
		}
	})

	if err := inbox.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer inbox.Stop()

	// Give the watcher time to initialize
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "dropped.txt"), []byte(inboxSource), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case <-stored:
	case <-time.After(3 * time.Second):
		// File watching can be flaky in CI environments, so we just log
		t.Log("inbox did not detect the new file within timeout (may be CI environment)")
		return
	}

	if lib.GetDocument("dropped") == nil {
		t.Error("dropped file not stored")
	}
}
