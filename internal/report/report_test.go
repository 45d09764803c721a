package report

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestWriter_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scores.jsonl")

	w, err := Create(path, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []Record{
		{Run: "run-a", Frame: 1, Score: 0.5, Blocks: 4, Width: 16, Height: 16, Timestamp: now},
		{Frame: 2, Score: 0.75, Blocks: 4, Width: 16, Height: 16, Timestamp: now},
		{Frame: 3, Score: 1, Blocks: 4, Width: 16, Height: 16, Timestamp: now},
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	if w.Path() != path {
		t.Errorf("Path() = %q, expected %q", w.Path(), path)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read records: %v", err)
	}
	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.jsonl")

	for i := 1; i <= 2; i++ {
		w, err := Create(path, true)
		if err != nil {
			t.Fatalf("Failed to create writer: %v", err)
		}
		if err := w.Write(Record{Frame: i, Score: float64(i) / 10}); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Failed to close: %v", err)
		}
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open: %v", err)
	}
	defer r.Close()

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 2 || got[0].Frame != 1 || got[1].Frame != 2 {
		t.Errorf("Expected frames 1 and 2 appended, got %+v", got)
	}
}

func TestWriter_Truncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.jsonl")
	if err := os.WriteFile(path, []byte(`{"frame":9}`+"\n"), 0644); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	w, err := Create(path, false)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty file, got %q", data)
	}
}

func TestWriter_Stream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Write(Record{Score: 0.25, Blocks: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("Records should be buffered until Flush")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") || !strings.Contains(buf.String(), `"score":0.25`) {
		t.Errorf("Unexpected output %q", buf.String())
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close on a stream writer failed: %v", err)
	}
}

func TestReader_SkipsBlankLinesAndReportsBadLines(t *testing.T) {
	input := "{\"frame\":1,\"score\":0.5}\n\n{\"frame\":2,\"score\":0.6}\nnot json\n"
	r := NewReader(strings.NewReader(input))

	for want := 1; want <= 2; want++ {
		rec, err := r.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", want, err)
		}
		if rec.Frame != want {
			t.Errorf("Expected frame %d, got %d", want, rec.Frame)
		}
	}

	_, err := r.Read()
	if err == nil || err == io.EOF {
		t.Fatalf("Expected unmarshal error, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Errorf("Error should name the line, got %v", err)
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.jsonl"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{Frame: 1, Score: 0.2},
		{Frame: 2, Score: 0.9},
		{Frame: 3, Score: 0.4},
		{Frame: 4, Score: 0.9},
	}

	s, err := Summarize(records)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if s.Count != 4 {
		t.Errorf("Count = %d, expected 4", s.Count)
	}
	if math.Abs(s.Mean-0.6) > 1e-12 {
		t.Errorf("Mean = %v, expected 0.6", s.Mean)
	}
	if s.Min != 0.2 || s.Max != 0.9 {
		t.Errorf("Min/Max = %v/%v, expected 0.2/0.9", s.Min, s.Max)
	}
	if s.BestFrame != 2 {
		t.Errorf("BestFrame = %d, expected first maximum at frame 2", s.BestFrame)
	}
	// Sample variance: (0.16 + 0.09 + 0.04 + 0.09) / 3
	if want := math.Sqrt(0.38 / 3); math.Abs(s.StdDev-want) > 1e-12 {
		t.Errorf("StdDev = %v, expected %v", s.StdDev, want)
	}
}

func TestSummarizeEdgeCases(t *testing.T) {
	if _, err := Summarize(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}

	s, err := Summarize([]Record{{Frame: 0, Score: 0.7}})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.StdDev != 0 || s.Mean != 0.7 {
		t.Errorf("Single record summary wrong: %+v", s)
	}
}
