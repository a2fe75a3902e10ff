package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test trace: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func ptr[T any](v T) *T { return &v }

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), ConnectionID: "conn-1", Layer: LayerSocket, Category: CategoryMessage},
		{Timestamp: time.Now(), ConnectionID: "conn-2", Layer: LayerTransport, Category: CategoryState},
		{Timestamp: time.Now(), ConnectionID: "conn-3", Layer: LayerRetry, Category: CategoryRetry},
	}
	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var read []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}

	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[0].ConnectionID != "conn-1" || read[2].ConnectionID != "conn-3" {
		t.Errorf("unexpected order: %q ... %q", read[0].ConnectionID, read[2].ConnectionID)
	}

	// EOF is sticky.
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after all events, got %v", err)
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	events, err := ReadAll(path, Filter{})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestReaderHandlesCorruptTail(t *testing.T) {
	path := createTestLogFile(t, []Event{{Timestamp: time.Now(), ConnectionID: "conn-1"}})

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	// A map header promising more entries than follow.
	if _, err := f.Write([]byte{0xa5, 0x01}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	events, err := ReadAll(path, Filter{})
	if err == nil {
		t.Fatal("expected error for truncated trailing event")
	}
	if len(events) != 1 {
		t.Errorf("got %d events before the error, want 1", len(events))
	}
}

func TestReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.rlog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base, ConnectionID: "a", Endpoint: "ws://one", Direction: DirectionOut, Layer: LayerSocket, Category: CategoryMessage},
		{Timestamp: base.Add(time.Second), ConnectionID: "a", Endpoint: "ws://one", Direction: DirectionIn, Layer: LayerSocket, Category: CategoryMessage},
		{Timestamp: base.Add(2 * time.Second), ConnectionID: "b", Endpoint: "ws://one", Layer: LayerTransport, Category: CategoryState},
		{Timestamp: base.Add(3 * time.Second), ConnectionID: "b", Endpoint: "ws://two", Layer: LayerRetry, Category: CategoryRetry},
		{Timestamp: base.Add(4 * time.Second), ConnectionID: "c", Endpoint: "ws://two", Layer: LayerSocket, Category: CategoryError},
	}
	path := createTestLogFile(t, events)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"no filter", Filter{}, 5},
		{"connection", Filter{ConnectionID: "b"}, 2},
		{"endpoint", Filter{Endpoint: "ws://two"}, 2},
		{"direction", Filter{Direction: ptr(DirectionOut)}, 1},
		{"layer", Filter{Layer: ptr(LayerSocket)}, 3},
		{"category", Filter{Category: ptr(CategoryRetry)}, 1},
		{"time start", Filter{TimeStart: ptr(base.Add(2 * time.Second))}, 3},
		{"time end exclusive", Filter{TimeEnd: ptr(base.Add(2 * time.Second))}, 2},
		{"combined", Filter{Endpoint: "ws://one", Layer: ptr(LayerSocket), Direction: ptr(DirectionIn)}, 1},
		{"no match", Filter{ConnectionID: "zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAll(path, tt.filter)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}
