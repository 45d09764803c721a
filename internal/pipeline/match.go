package pipeline

import (
	"log/slog"
	"math"
)

// MatchConfig defines when a video frame counts as having converged on the reference
type MatchConfig struct {
	// Enabled controls whether match detection is active
	Enabled bool

	// Threshold is the minimum SSIM score a frame must reach
	Threshold float64

	// Patience is the number of consecutive frames at or above Threshold
	// required before a match is reported
	Patience int
}

// DefaultMatchConfig returns a config requiring three consecutive frames at 0.95
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Enabled:   true,
		Threshold: 0.95,
		Patience:  3,
	}
}

// DisabledMatchConfig returns a config with match detection disabled
func DisabledMatchConfig() MatchConfig {
	return MatchConfig{
		Enabled: false,
	}
}

// MatchTracker tracks per-frame scores and detects when frames match the reference
type MatchTracker struct {
	config     MatchConfig
	history    []float64
	bestScore  float64
	bestFrame  int
	streak     int // Consecutive frames at or above threshold
	matchFrame int // Frame that completed the streak, 0 if none
}

// NewMatchTracker creates a new tracker with the given config
func NewMatchTracker(config MatchConfig) *MatchTracker {
	if config.Patience < 1 {
		config.Patience = 1
	}
	return &MatchTracker{
		config:    config,
		history:   []float64{},
		bestScore: math.Inf(-1),
	}
}

// Update records the score of the next frame and returns true once a match is detected
func (m *MatchTracker) Update(score float64) bool {
	m.history = append(m.history, score)
	frame := len(m.history)

	if score > m.bestScore {
		m.bestScore = score
		m.bestFrame = frame
	}

	if !m.config.Enabled {
		return false
	}
	if m.matchFrame != 0 {
		return true
	}

	if score >= m.config.Threshold {
		m.streak++
		slog.Debug("Frame above match threshold",
			"frame", frame,
			"score", score,
			"streak", m.streak,
			"patience", m.config.Patience,
		)
	} else {
		m.streak = 0
	}

	if m.streak >= m.config.Patience {
		m.matchFrame = frame
		slog.Info("Reference matched - stopping early",
			"frame", frame,
			"score", score,
			"threshold", m.config.Threshold,
		)
		return true
	}
	return false
}

// Matched reports whether a match has been detected
func (m *MatchTracker) Matched() bool {
	return m.matchFrame != 0
}

// MatchFrame returns the 1-based frame that completed the match, or 0
func (m *MatchTracker) MatchFrame() int {
	return m.matchFrame
}

// BestScore returns the highest score seen and the frame it came from
func (m *MatchTracker) BestScore() (float64, int) {
	return m.bestScore, m.bestFrame
}

// History returns the full score history
func (m *MatchTracker) History() []float64 {
	return append([]float64{}, m.history...) // Return copy
}

// Reset clears the tracker's state
func (m *MatchTracker) Reset() {
	m.history = []float64{}
	m.bestScore = math.Inf(-1)
	m.bestFrame = 0
	m.streak = 0
	m.matchFrame = 0
}
