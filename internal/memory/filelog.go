package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLog persists entries as newline-delimited JSON. The file is
// compacted back to the newest capacity records once it holds twice that
// many, so it stays bounded without rewriting on every append.
type FileLog struct {
	path     string
	capacity int
	lines    int
	mu       sync.Mutex
}

// NewFileLog opens (or creates) dir/memory.jsonl.
func NewFileLog(dir string, capacity int) (*FileLog, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}
	l := &FileLog{
		path:     filepath.Join(dir, DefaultFilename),
		capacity: capacity,
	}
	entries, err := readEntries(l.path)
	if err != nil {
		return nil, err
	}
	l.lines = len(entries)
	return l, nil
}

// Path returns the location of the log file.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes one entry as a JSON line.
func (l *FileLog) Append(_ context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal memory entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// 0600: entries carry raw request text
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open memory log: %w", err)
	}
	w := bufio.NewWriter(file)
	if _, err := w.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write memory entry: %w", err)
	}
	if err := w.WriteByte('\n'); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to flush memory log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close memory log: %w", err)
	}

	l.lines++
	if l.lines >= 2*l.capacity {
		return l.compact()
	}
	return nil
}

// Load returns the newest limit entries, oldest first.
func (l *FileLog) Load(_ context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := readEntries(l.path)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Close is a no-op; the file is opened per append.
func (l *FileLog) Close() error {
	return nil
}

// compact rewrites the log with only the newest capacity entries.
// Caller must hold l.mu.
func (l *FileLog) compact() error {
	entries, err := readEntries(l.path)
	if err != nil {
		return err
	}
	if len(entries) > l.capacity {
		entries = entries[len(entries)-l.capacity:]
	}

	tmp := l.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create compacted memory log: %w", err)
	}
	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			_ = file.Close()
			_ = os.Remove(tmp)
			return fmt.Errorf("failed to encode memory entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to flush compacted memory log: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close compacted memory log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace memory log: %w", err)
	}
	l.lines = len(entries)
	return nil
}

// readEntries parses a JSONL memory file. A missing file yields no
// entries; malformed lines are skipped.
func readEntries(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open memory log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read memory log: %w", err)
	}
	return entries, nil
}
