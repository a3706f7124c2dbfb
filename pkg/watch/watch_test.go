package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "story.json")
	if err := os.WriteFile(path, []byte(`{"fragments": []}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	fired := make(chan string, 10)
	w, err := New(path, func(_ context.Context, p string) {
		calls.Add(1)
		fired <- p
	}, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to start consuming events.
	time.Sleep(50 * time.Millisecond)
	for i := range 3 {
		data := []byte(`{"fragments": [], "title": "v` + string(rune('0'+i)) + `"}`)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-fired:
		if got != w.Path() {
			t.Errorf("handler path = %q, want %q", got, w.Path())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "story.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fired := make(chan struct{}, 1)
	w, err := New(path, func(context.Context, string) { fired <- struct{}{} }, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Error("handler fired for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNewRejectsNilHandler(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "x.json"), nil); err == nil {
		t.Error("New(nil handler) error = nil")
	}
}
