package titles

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const maxLineSize = 1024 * 1024

// Load reads titles from path, one per line
func Load(path string) ([]string, error) {
	slog.Debug("Opening titles file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open titles file: %w", err)
	}
	defer file.Close()

	titles, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	slog.Info("Loaded titles", "path", path, "count", len(titles))
	return titles, nil
}

// Read returns the trimmed non-blank lines of r in order. Duplicates are kept;
// the store collapses them.
func Read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var titles []string
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		titles = append(titles, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return titles, nil
}
