// Package config loads CLI defaults from a YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/blockssim/internal/pipeline"
	"github.com/cwbudde/blockssim/internal/ssim"
)

// Config holds defaults for the blockssim commands. Flags given on the
// command line take precedence over values from the file.
type Config struct {
	Scoring struct {
		// K1 and K2 scale the luminance and contrast stabilisers
		K1 float64 `yaml:"k1"`
		K2 float64 `yaml:"k2"`

		// L is the dynamic range of a sample
		L float64 `yaml:"l"`

		// Edge is the partial block policy: truncate or replicate
		Edge string `yaml:"edge"`
	} `yaml:"scoring"`

	Video struct {
		// Frames is the maximum number of frames scored
		Frames int `yaml:"frames"`

		// FFmpeg is the ffmpeg binary used to decode frames
		FFmpeg string `yaml:"ffmpeg"`

		// FFprobe is the ffprobe binary; empty means the one next to FFmpeg
		FFprobe string `yaml:"ffprobe"`
	} `yaml:"video"`

	Match struct {
		// Threshold enables early stopping when > 0
		Threshold float64 `yaml:"threshold"`
		Patience  int     `yaml:"patience"`
	} `yaml:"match"`

	Output struct {
		// Report is a JSONL file receiving every final score
		Report string `yaml:"report"`
	} `yaml:"output"`
}

var edgePolicies = []string{"truncate", "replicate"}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.Scoring.K1 = ssim.DefaultK1
	c.Scoring.K2 = ssim.DefaultK2
	c.Scoring.L = ssim.DefaultL
	c.Scoring.Edge = "truncate"
	c.Video.Frames = pipeline.DefaultFrameBudget
	c.Video.FFmpeg = "ffmpeg"
	c.Match.Patience = 1
	return c
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ValidationError represents an invalid config value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := ssim.NewConstants(c.Scoring.K1, c.Scoring.K2, c.Scoring.L); err != nil {
		return &ValidationError{Field: "scoring", Reason: "k1, k2 and l must be positive"}
	}
	if !lo.Contains(edgePolicies, c.Scoring.Edge) {
		return &ValidationError{Field: "scoring.edge", Reason: fmt.Sprintf("must be one of %v", edgePolicies)}
	}
	if c.Video.Frames <= 0 {
		return &ValidationError{Field: "video.frames", Reason: "must be positive"}
	}
	if c.Match.Threshold < 0 || c.Match.Threshold > 1 {
		return &ValidationError{Field: "match.threshold", Reason: "must be within [0, 1]"}
	}
	if c.Match.Patience < 1 {
		return &ValidationError{Field: "match.patience", Reason: "must be at least 1"}
	}
	return nil
}

// Constants returns the SSIM constants described by the scoring section.
func (c *Config) Constants() (ssim.Constants, error) {
	return ssim.NewConstants(c.Scoring.K1, c.Scoring.K2, c.Scoring.L)
}

// ExtractOptions returns the block extraction options.
func (c *Config) ExtractOptions() (ssim.ExtractOptions, error) {
	edge, err := ssim.ParseEdgePolicy(c.Scoring.Edge)
	if err != nil {
		return ssim.ExtractOptions{}, err
	}
	return ssim.ExtractOptions{Edge: edge}, nil
}

// MatchConfig returns the match tracker settings; a zero threshold disables it.
func (c *Config) MatchConfig() pipeline.MatchConfig {
	if c.Match.Threshold <= 0 {
		return pipeline.DisabledMatchConfig()
	}
	return pipeline.MatchConfig{
		Enabled:   true,
		Threshold: c.Match.Threshold,
		Patience:  c.Match.Patience,
	}
}
