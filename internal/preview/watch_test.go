package preview

// Notes:
// - Timing assertions use generous windows; fsnotify delivery latency
//   varies across platforms and CI machines.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWithDebounce_PanicsOnNegative(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("WithDebounce(-1) should panic")
		}
	}()
	WithDebounce(-time.Second)
}

func TestWatcher_ReportsChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, WithDebounce(150*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() {
			calls.Add(1)
			changed <- struct{}{}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.md"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Fatal("change reported for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}

	// A burst of writes collapses into one call.
	for i := range 5 {
		if err := os.WriteFile(path, []byte(fmt.Sprintf("# v%d", i+2)), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("onChange called %d times for one burst, want 1", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(filepath.Join(t.TempDir(), "gone", "notes.md"))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Run(context.Background(), func() {}); err == nil {
		t.Error("Run() on a missing directory should fail")
	}
}
