package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readLines(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("bad JSONL line: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	if err := logger.Info(CategoryDispatch, "button", "dispatched", map[string]any{"action": "next"}); err != nil {
		t.Fatalf("info: %v", err)
	}
	if err := logger.Error(CategoryEditor, "edit_failed", "transport failed", nil); err != nil {
		t.Fatalf("error: %v", err)
	}

	events := readLines(t, filepath.Join(dir, "events.jsonl"))
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Category != CategoryDispatch || events[0].EventType != "button" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("timestamp not stamped")
	}

	errs := readLines(t, filepath.Join(dir, "errors.jsonl"))
	if len(errs) != 1 || errs[0].Level != LevelError {
		t.Fatalf("expected 1 error event, got %+v", errs)
	}
}

func TestLoggerMinLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(dir)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	// Debug is below the default info threshold.
	if err := logger.Debug(CategoryFocus, "push", "ignored", nil); err != nil {
		t.Fatalf("debug: %v", err)
	}
	if events := readLines(t, filepath.Join(dir, "events.jsonl")); len(events) != 0 {
		t.Fatalf("expected debug to be filtered, got %d events", len(events))
	}

	logger.SetMinLevel(LevelDebug)
	if err := logger.Debug(CategoryFocus, "push", "kept", nil); err != nil {
		t.Fatalf("debug: %v", err)
	}
	if events := readLines(t, filepath.Join(dir, "events.jsonl")); len(events) != 1 {
		t.Fatalf("expected debug to pass after SetMinLevel, got %d events", len(events))
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	if err := logger.Info(CategoryStore, "put", "x", nil); err != nil {
		t.Fatalf("nil logger should discard, got %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("nil logger close: %v", err)
	}
}
