package openlibrary

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
)

// Edition is the JSON payload in the last column of an editions dump line
type Edition struct {
	Key         string            `json:"key"`
	Title       string            `json:"title"`
	FullTitle   string            `json:"full_title"`
	Subtitle    string            `json:"subtitle"`
	LCCN        models.StringList `json:"lccn"`
	OCLC        models.StringList `json:"oclc"`
	OCLCNumbers models.StringList `json:"oclc_numbers"`
}

// DisplayTitle prefers the full title when the edition has one
func (e Edition) DisplayTitle() string {
	if e.FullTitle != "" {
		return e.FullTitle
	}
	return e.Title
}

// Identifiers returns the edition's LCCNs and the union of oclc and
// oclc_numbers, first occurrence kept
func (e Edition) Identifiers() (lccn, oclc []string) {
	lccn = appendUnique(nil, e.LCCN...)
	oclc = appendUnique(nil, e.OCLC...)
	oclc = appendUnique(oclc, e.OCLCNumbers...)
	return lccn, oclc
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

// maxLineSize bounds a single dump line
const maxLineSize = 10 * 1024 * 1024

var gzipMagic = []byte{0x1f, 0x8b}

// Reader streams editions from a tab-separated dump one line at a time.
// Lines whose last field is not a JSON object are skipped.
type Reader struct {
	closers []io.Closer
	scanner *bufio.Scanner

	current   Edition
	err       error
	lineNum   int
	malformed int
}

// Open opens a dump file. Gzip compression is detected from the file header,
// so plain text dumps work too.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closers = append(r.closers, file)
	return r, nil
}

// NewReader wraps an already open stream
func NewReader(src io.Reader) (*Reader, error) {
	return newReader(src)
}

func newReader(src io.Reader) (*Reader, error) {
	buffered := bufio.NewReaderSize(src, 64*1024)
	r := &Reader{}

	var stream io.Reader = buffered
	if magic, err := buffered.Peek(2); err == nil && bytes.Equal(magic, gzipMagic) {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		r.closers = append(r.closers, gz)
		stream = gz
	}

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	r.scanner = scanner
	return r, nil
}

// Next advances to the next well-formed edition. It returns false at the end
// of the stream or on a read error (see Err).
func (r *Reader) Next() bool {
	for r.scanner.Scan() {
		r.lineNum++
		edition, ok := parseLine(r.scanner.Bytes())
		if !ok {
			r.malformed++
			continue
		}
		r.current = edition
		return true
	}
	if err := r.scanner.Err(); err != nil {
		r.err = fmt.Errorf("error reading dump at line %d: %w", r.lineNum, err)
	}
	return false
}

// Edition returns the edition read by the last successful Next
func (r *Reader) Edition() Edition {
	return r.current
}

// Err returns the first read error
func (r *Reader) Err() error {
	return r.err
}

// Lines is the number of lines consumed so far
func (r *Reader) Lines() int {
	return r.lineNum
}

// Malformed is the number of lines skipped because they did not parse
func (r *Reader) Malformed() int {
	return r.malformed
}

// Close releases the decompressor, then the underlying file
func (r *Reader) Close() error {
	var firstErr error
	for _, closer := range r.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	if r.malformed > 0 {
		slog.Debug("Skipped malformed dump lines", "malformed", r.malformed, "lines", r.lineNum)
	}
	return firstErr
}

func parseLine(line []byte) (Edition, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return Edition{}, false
	}
	field := line
	if i := bytes.LastIndexByte(line, '\t'); i >= 0 {
		field = line[i+1:]
	}
	if len(field) == 0 || field[0] != '{' {
		return Edition{}, false
	}

	var edition Edition
	if err := json.Unmarshal(field, &edition); err != nil {
		return Edition{}, false
	}
	return edition, true
}
