package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Rejection is a title that was not resolved and why
type Rejection struct {
	Title  string `json:"title" yaml:"title"`
	Reason string `json:"reason" yaml:"reason"`
}

// RejectLog is an append-only Title,Reason CSV deduplicated on the pair
type RejectLog struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// OpenRejectLog prepares the reject log at path. The file is created on the
// first recorded rejection.
func OpenRejectLog(path string) (*RejectLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create reject log directory: %w", err)
		}
	}
	return &RejectLog{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Record appends the pair unless it is already logged and reports whether it
// was written
func (l *RejectLog) Record(title, reason string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return false, fmt.Errorf("failed to lock reject log: %w", err)
	}
	defer l.lock.Unlock()

	entries, err := l.read()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Title == title && entry.Reason == reason {
			return false, nil
		}
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open reject log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return false, fmt.Errorf("failed to stat reject log: %w", err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		_ = writer.Write([]string{"Title", "Reason"})
	}
	_ = writer.Write([]string{title, reason})
	writer.Flush()
	err = writer.Error()
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return false, fmt.Errorf("failed to write reject log: %w", err)
	}
	return true, nil
}

// Entries returns every logged rejection
func (l *RejectLog) Entries() ([]Rejection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock reject log: %w", err)
	}
	defer l.lock.Unlock()
	return l.read()
}

func (l *RejectLog) read() ([]Rejection, error) {
	file, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open reject log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var entries []Rejection
	header := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read reject log: %w", err)
		}
		if header {
			header = false
			continue
		}
		entry := Rejection{}
		if len(row) > 0 {
			entry.Title = row[0]
		}
		if len(row) > 1 {
			entry.Reason = row[1]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *RejectLog) Close() error {
	return l.lock.Close()
}
