package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/blockssim/internal/config"
	"github.com/cwbudde/blockssim/internal/imageio"
	"github.com/cwbudde/blockssim/internal/report"
	"github.com/cwbudde/blockssim/internal/video"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeSolidPNG(t *testing.T, dir, name string, width, height int, v uint8) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", name, err)
	}
	return path
}

func TestImageCommand_Identical(t *testing.T) {
	dir := t.TempDir()
	black := writeSolidPNG(t, dir, "black.png", 16, 16, 0)

	out, err := execute(t, "image", black, black)
	if err != nil {
		t.Fatalf("image command failed: %v", err)
	}

	expected := "Set Width to 16\nSet Height to 16\nmu_SSIM: 1\n"
	if out != expected {
		t.Errorf("Output = %q, expected %q", out, expected)
	}
}

func TestImageCommand_DifferentSizes(t *testing.T) {
	dir := t.TempDir()
	a := writeSolidPNG(t, dir, "a.png", 24, 16, 50)
	b := writeSolidPNG(t, dir, "b.png", 16, 16, 50)

	out, err := execute(t, "image", a, b)
	if err != nil {
		t.Fatalf("image command failed: %v", err)
	}
	if !strings.Contains(out, "Image 1 has width of 24 and Image 2 has width of 16") {
		t.Errorf("Missing width notice in %q", out)
	}
	if !strings.Contains(out, "mu_SSIM: ") {
		t.Errorf("Missing score line in %q", out)
	}
}

func TestImageCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	a := writeSolidPNG(t, dir, "a.png", 8, 8, 0)

	if _, err := execute(t, "image", a); err == nil || !strings.Contains(err.Error(), "accepts 2 arg(s)") {
		t.Errorf("Expected arg count error, got %v", err)
	}

	_, err := execute(t, "image", a, filepath.Join(dir, "missing.png"))
	if !errors.Is(err, &imageio.LoadError{}) {
		t.Errorf("Expected LoadError, got %v", err)
	}
}

func TestImageCommand_ConfigAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	a := writeSolidPNG(t, dir, "a.png", 12, 12, 90)
	reportPath := filepath.Join(dir, "scores.jsonl")

	cfgPath := filepath.Join(dir, "blockssim.yaml")
	body := "scoring:\n  edge: replicate\noutput:\n  report: " + reportPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := execute(t, "--config", cfgPath, "image", a, a); err != nil {
		t.Fatalf("image command failed: %v", err)
	}
	if _, err := execute(t, "--config", cfgPath, "image", "--edge", "truncate", a, a); err != nil {
		t.Fatalf("image command failed: %v", err)
	}

	r, err := report.Open(reportPath)
	if err != nil {
		t.Fatalf("Failed to open report: %v", err)
	}
	defer r.Close()
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	// 12x12 covers four blocks when replicating edges and one when truncating
	if records[0].Blocks != 4 {
		t.Errorf("Config edge policy: expected 4 blocks, got %d", records[0].Blocks)
	}
	if records[1].Blocks != 1 {
		t.Errorf("Flag edge policy: expected 1 block, got %d", records[1].Blocks)
	}
	if records[0].Run == records[1].Run {
		t.Errorf("Each invocation should get its own run ID")
	}
}

func TestImageCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	a := writeSolidPNG(t, dir, "a.png", 8, 8, 0)
	cfgPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgPath, []byte("scoring:\n  edge: reflect\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := execute(t, "--config", cfgPath, "image", a, a)
	if !errors.Is(err, &config.ValidationError{}) {
		t.Errorf("Expected ValidationError, got %v", err)
	}

	_, err = execute(t, "image", "--edge", "reflect", a, a)
	if !errors.Is(err, &config.ValidationError{}) {
		t.Errorf("Expected ValidationError for --edge, got %v", err)
	}
}

func TestVideoCommand_MissingVideo(t *testing.T) {
	dir := t.TempDir()
	ref := writeSolidPNG(t, dir, "ref.png", 8, 8, 0)

	_, err := execute(t, "video", filepath.Join(dir, "missing.mp4"), ref)
	if !errors.Is(err, &video.OpenStreamError{}) {
		t.Errorf("Expected OpenStreamError, got %v", err)
	}
}

func TestVideoCommand_InvalidFrames(t *testing.T) {
	dir := t.TempDir()
	ref := writeSolidPNG(t, dir, "ref.png", 8, 8, 0)

	_, err := execute(t, "video", "--frames", "0", filepath.Join(dir, "clip.mp4"), ref)
	if !errors.Is(err, &config.ValidationError{}) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestSummaryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.jsonl")
	w, err := report.Create(path, false)
	if err != nil {
		t.Fatalf("Failed to create report: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, score := range []float64{0.5, 0.9, 0.7} {
		rec := report.Record{Run: "0123456789abcdef", Frame: i + 1, Score: score, Blocks: 4, Width: 16, Height: 16, Timestamp: now}
		if err := w.Write(rec); err != nil {
			t.Fatalf("Failed to write record: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close report: %v", err)
	}

	out, err := execute(t, "summary", path)
	if err != nil {
		t.Fatalf("summary command failed: %v", err)
	}

	for _, want := range []string{
		"RUN", "01234567", "16x16", "2026-03-01 12:00:00",
		"Records: 3 (runs: 1)",
		"Mean:    0.700000",
		"Max:     0.900000 (frame 2)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "summary", "--run", "other", path)
	if err != nil {
		t.Fatalf("summary command failed: %v", err)
	}
	if !strings.Contains(out, "No records found.") {
		t.Errorf("Expected empty result, got %q", out)
	}
}

func TestSelectRecords(t *testing.T) {
	records := []report.Record{
		{Run: "a", Frame: 1},
		{Run: "b", Frame: 1},
		{Run: "a", Frame: 2},
		{Run: "a", Frame: 3},
	}

	tests := []struct {
		name   string
		run    string
		last   int
		frames []int
	}{
		{"all", "", 0, []int{1, 1, 2, 3}},
		{"by run", "a", 0, []int{1, 2, 3}},
		{"last two of run", "a", 2, []int{2, 3}},
		{"last exceeds count", "b", 5, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectRecords(records, tt.run, tt.last)
			if len(got) != len(tt.frames) {
				t.Fatalf("Expected %d records, got %d", len(tt.frames), len(got))
			}
			for i, r := range got {
				if r.Frame != tt.frames[i] {
					t.Errorf("Record %d: frame %d, expected %d", i, r.Frame, tt.frames[i])
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if parseLogLevel("debug").String() != "DEBUG" {
		t.Errorf("debug not parsed")
	}
	if parseLogLevel("bogus").String() != "INFO" {
		t.Errorf("Unknown levels should fall back to info")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if out != "blockssim version "+version+"\n" {
		t.Errorf("Unexpected version output %q", out)
	}
}
