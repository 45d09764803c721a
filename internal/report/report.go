// Package report stores final SSIM scores as JSON Lines.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one scored comparison. Each record is one line in the report file.
type Record struct {
	// Run identifies the invocation that produced the record
	Run string `json:"run,omitempty"`

	// Frame is the 1-based frame number in video mode, 0 for an image pair
	Frame int `json:"frame"`

	// Score is the mean block SSIM
	Score float64 `json:"score"`

	// Blocks is how many blocks were averaged
	Blocks int `json:"blocks"`

	// Width and Height are the reconciled comparison size
	Width  int `json:"width"`
	Height int `json:"height"`

	Timestamp time.Time `json:"timestamp"`
}

// Writer appends records to a JSONL stream.
// It buffers output and is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	closer io.Closer
	syncer interface{ Sync() error }
	writer *bufio.Writer
	path   string
}

// Create opens path for writing records, creating parent directories.
// If appendMode is true, records are added to an existing file.
func Create(path string, appendMode bool) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	var file *os.File
	var err error
	if appendMode {
		file, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}

	w := NewWriter(file)
	w.closer = file
	w.syncer = file
	w.path = path
	return w, nil
}

// NewWriter writes records to w. Closing the Writer does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{writer: bufio.NewWriterSize(w, 64*1024)}
}

// Write buffers one record.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush writes buffered records and syncs the file, if any.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	if w.syncer != nil {
		if err := w.syncer.Sync(); err != nil {
			return fmt.Errorf("failed to sync report: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying file, if the Writer opened one.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		if w.closer != nil {
			w.closer.Close()
		}
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return fmt.Errorf("failed to close report file: %w", err)
		}
	}
	return nil
}

// Path returns the file path, or "" for a Writer over an arbitrary stream.
func (w *Writer) Path() string {
	return w.path
}

// Reader reads records from a JSONL stream.
type Reader struct {
	closer  io.Closer
	scanner *bufio.Scanner
	line    int
}

// Open opens a report file for reading.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	r := NewReader(file)
	r.closer = file
	return r, nil
}

// NewReader reads records from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Read returns the next record, or io.EOF when none remain.
// Blank lines are skipped.
func (r *Reader) Read() (*Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("line %d: failed to unmarshal record: %w", r.line, err)
		}
		return &rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	return nil, io.EOF
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
}

// Close closes the file opened by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	if err := r.closer.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}
