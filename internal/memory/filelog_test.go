package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
	}
	return n
}

func TestFileLog_LoadMissingFile(t *testing.T) {
	l, err := NewFileLog(t.TempDir(), 5)
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}
	entries, err := l.Load(context.Background(), 5)
	if err != nil {
		t.Fatalf("Load on missing file should not error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestFileLog_RoundTripPreservesOrderAndTimestamps(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s := NewStore(10, WithBackend(mustFileLog(t, dir, 10)))
	for i := 0; i < 4; i++ {
		if err := s.Append(ctx, entry(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	s2 := NewStore(10, WithBackend(mustFileLog(t, dir, 10)))
	if err := s2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := s2.Recent(0)
	if len(got) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(got))
	}
	for i, e := range got {
		want := entry(i)
		if e.Text != want.Text {
			t.Errorf("entry %d text = %q, want %q", i, e.Text, want.Text)
		}
		if !e.Timestamp.Equal(want.Timestamp) {
			t.Errorf("entry %d timestamp = %v, want %v", i, e.Timestamp, want.Timestamp)
		}
		if e.Stage != want.Stage {
			t.Errorf("entry %d stage = %s, want %s", i, e.Stage, want.Stage)
		}
	}
}

func TestFileLog_LoadKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	l := mustFileLog(t, dir, 100)
	for i := 0; i < 15; i++ {
		_ = l.Append(ctx, entry(i))
	}

	s := NewStore(10, WithBackend(l))
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.Recent(0)
	if len(got) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(got))
	}
	if got[0].Text != "prompt 5" || got[9].Text != "prompt 14" {
		t.Errorf("unexpected window: first=%q last=%q", got[0].Text, got[9].Text)
	}
}

func TestFileLog_Compacts(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	l := mustFileLog(t, dir, 3)

	for i := 0; i < 6; i++ {
		if err := l.Append(ctx, entry(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if n := countLines(t, l.Path()); n != 3 {
		t.Errorf("expected compaction to 3 lines, got %d", n)
	}
	entries, _ := l.Load(ctx, 0)
	if len(entries) != 3 || entries[0].Text != "prompt 3" {
		t.Errorf("unexpected entries after compaction: %+v", entries)
	}
}

func TestFileLog_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFilename)
	content := `{"text":"ok 1"}` + "\nnot json\n\n" + `{"text":"ok 2"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	l := mustFileLog(t, dir, 10)
	entries, err := l.Load(context.Background(), 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 valid entries, got %d", len(entries))
	}
	if entries[1].Text != "ok 2" {
		t.Errorf("unexpected second entry: %q", entries[1].Text)
	}
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: BackendNone, Capacity: 4})
	if err != nil {
		t.Fatalf("Open none: %v", err)
	}
	if s.Cap() != 4 {
		t.Errorf("expected capacity 4, got %d", s.Cap())
	}

	dir := t.TempDir()
	s, err = Open(ctx, Config{Backend: BackendFile, Dir: dir})
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	_ = s.Append(ctx, entry(1))
	if _, err := os.Stat(filepath.Join(dir, DefaultFilename)); err != nil {
		t.Errorf("expected memory log to be written: %v", err)
	}

	if _, err := Open(ctx, Config{Backend: BackendRedis}); err == nil {
		t.Error("expected error for redis backend without addr")
	}
	if _, err := Open(ctx, Config{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func mustFileLog(t *testing.T, dir string, capacity int) *FileLog {
	t.Helper()
	l, err := NewFileLog(dir, capacity)
	if err != nil {
		t.Fatalf("NewFileLog: %v", err)
	}
	return l
}
