package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewModesAndLevels(t *testing.T) {
	tests := []struct {
		mode    string
		level   string
		wantErr bool
	}{
		{"dev", "debug", false},
		{"prod", "info", false},
		{"production", "", false},
		{"", "warn", false},
		{"dev", "error", false},
		{"dev", "loud", true},
	}

	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.level, func(t *testing.T) {
			log, err := New(tt.mode, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown level")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			log.Debug("debug", "k", 1)
			log.Sync()
		})
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	child := log.With("source", "test.pdf")
	child.Info("converted", "sections", 4)
	child.Warn("low quality")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["source"] != "test.pdf" {
		t.Errorf("source field = %v, want test.pdf", fields["source"])
	}
	if fields["sections"] != int64(4) {
		t.Errorf("sections field = %v (%T), want 4", fields["sections"], fields["sections"])
	}
}

func TestNopDiscards(t *testing.T) {
	log := Nop()
	log.Error("ignored", "err", "boom")
	log.Sync()
}
