package store

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the watchlist in a newline-delimited text file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store for path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads one symbol per line, uppercased and without repeats.
// A missing file is an empty watchlist.
func (s *FileStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read symbols: %w", err)
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan symbols: %w", err)
	}
	return Dedupe(lines), nil
}

// Save writes one uppercase symbol per line, replacing the file atomically.
func (s *FileStore) Save(_ context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, sym := range symbols {
		b.WriteString(strings.ToUpper(sym))
		b.WriteByte('\n')
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create symbols dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write symbols: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace symbols: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
