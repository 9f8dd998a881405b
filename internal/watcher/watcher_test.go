package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(paths []string) {
	r.mu.Lock()
	r.calls = append(r.calls, paths)
	r.mu.Unlock()
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "test1.jsonl"), []byte(`{"type":"test"}`), 0644)
	os.WriteFile(filepath.Join(dir, "test2.jsonl"), []byte(`{"type":"test2"}`), 0644)
	os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte(`not a jsonl`), 0644)

	subdir := filepath.Join(dir, "subagents")
	os.MkdirAll(subdir, 0755)
	os.WriteFile(filepath.Join(subdir, "agent.jsonl"), []byte(`{"type":"test3"}`), 0644)

	w := New([]string{dir}, Options{Log: zerolog.Nop()}, nil)
	if got := w.Snapshot(); got != 3 {
		t.Errorf("got %d files, want 3", got)
	}

	w.mu.Lock()
	size := w.sizes[filepath.Join(dir, "test1.jsonl")]
	w.mu.Unlock()
	if size != int64(len(`{"type":"test"}`)) {
		t.Errorf("size = %d", size)
	}
}

func TestPollIgnoresUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "test.jsonl"), []byte(`{"line":1}`), 0644)

	rec := &recorder{}
	w := New([]string{dir}, Options{Debounce: 10 * time.Millisecond, Log: zerolog.Nop()}, rec.onChange)
	w.Snapshot()

	w.pollAll()
	time.Sleep(50 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("unexpected changes: %v", got)
	}
}

func TestPollDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "test.jsonl")
	os.WriteFile(testFile, []byte(`{"line":1}`), 0644)

	rec := &recorder{}
	w := New([]string{dir}, Options{
		PollInterval: 50 * time.Millisecond,
		Debounce:     20 * time.Millisecond,
		Log:          zerolog.Nop(),
	}, rec.onChange)
	w.Snapshot()

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	appendLine(t, testFile, `{"line":2}`)
	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })

	got := rec.snapshot()[0]
	if len(got) != 1 || got[0] != testFile {
		t.Errorf("changed paths = %v, want [%s]", got, testFile)
	}
}

func TestDebounceCoalesces(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")
	b := filepath.Join(dir, "b.jsonl")

	rec := &recorder{}
	w := New([]string{dir}, Options{Debounce: 100 * time.Millisecond, Log: zerolog.Nop()}, rec.onChange)

	appendLine(t, a, "{}")
	w.checkFile(a)
	appendLine(t, b, "{}")
	w.checkFile(b)
	appendLine(t, a, "{}")
	w.checkFile(a)

	waitFor(t, func() bool { return len(rec.snapshot()) == 1 })
	time.Sleep(150 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("got %d callbacks, want 1", len(calls))
	}
	if len(calls[0]) != 2 || calls[0][0] != a || calls[0][1] != b {
		t.Errorf("paths = %v, want [%s %s]", calls[0], a, b)
	}
}

func TestStopDropsPending(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jsonl")

	rec := &recorder{}
	w := New([]string{dir}, Options{Debounce: 50 * time.Millisecond, Log: zerolog.Nop()}, rec.onChange)
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	appendLine(t, a, "{}")
	w.checkFile(a)
	w.Stop()

	time.Sleep(100 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("callbacks after stop: %v", got)
	}
}
