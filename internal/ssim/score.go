package ssim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Default stabilisation parameters for 8-bit images.
const (
	DefaultK1 = 0.01
	DefaultK2 = 0.03
	DefaultL  = 255
)

// Constants are the SSIM stabilisation terms. They are computed once and
// passed to a Scorer; nothing mutates them afterwards.
type Constants struct {
	C1 float64 // (K1*L)^2
	C2 float64 // (K2*L)^2
	C3 float64 // C2/2
}

// NewConstants derives C1, C2 and C3 from K1, K2 and the dynamic range L.
// All three inputs must be positive so that every SSIM denominator is
// strictly positive.
func NewConstants(k1, k2, l float64) (Constants, error) {
	if k1 <= 0 || k2 <= 0 || l <= 0 || math.IsNaN(k1+k2+l) || math.IsInf(k1+k2+l, 0) {
		return Constants{}, fmt.Errorf("invalid SSIM parameters k1=%g k2=%g l=%g: must be positive and finite", k1, k2, l)
	}
	c1 := math.Pow(k1*l, 2)
	c2 := math.Pow(k2*l, 2)
	return Constants{C1: c1, C2: c2, C3: c2 / 2}, nil
}

// DefaultConstants returns the constants for K1=0.01, K2=0.03, L=255.
func DefaultConstants() Constants {
	c, _ := NewConstants(DefaultK1, DefaultK2, DefaultL)
	return c
}

// Result is the aggregate score of an image pair.
type Result struct {
	Score  float64 // Mean of per-block SSIM
	Blocks int     // Number of blocks averaged
}

// Scorer applies the SSIM formula to block statistics.
type Scorer struct {
	c Constants
}

// NewScorer creates a scorer bound to the given constants.
func NewScorer(c Constants) *Scorer {
	return &Scorer{c: c}
}

// Constants returns the constants the scorer was built with.
func (s *Scorer) Constants() Constants {
	return s.c
}

// Luminance compares block means.
func (s *Scorer) Luminance(mean1, mean2 float64) float64 {
	return (2*mean1*mean2 + s.c.C1) / (mean1*mean1 + mean2*mean2 + s.c.C1)
}

// Contrast compares block standard deviations.
func (s *Scorer) Contrast(var1, var2 float64) float64 {
	return (2*math.Sqrt(var1)*math.Sqrt(var2) + s.c.C2) / (var1 + var2 + s.c.C2)
}

// Structure compares the normalised covariance of two blocks.
func (s *Scorer) Structure(cov, var1, var2 float64) float64 {
	return (cov + s.c.C3) / (math.Sqrt(var1)*math.Sqrt(var2) + s.c.C3)
}

// BlockSSIM returns luminance * contrast * structure for one block pair.
func (s *Scorer) BlockSSIM(b BlockStats) float64 {
	return s.Luminance(b.Mean1, b.Mean2) *
		s.Contrast(b.Var1, b.Var2) *
		s.Structure(b.Covariance, b.Var1, b.Var2)
}

// Score averages BlockSSIM over all blocks with equal weight.
// Returns ErrNoBlocks for an empty slice.
func (s *Scorer) Score(blocks []BlockStats) (Result, error) {
	if len(blocks) == 0 {
		return Result{}, ErrNoBlocks
	}

	values := make([]float64, len(blocks))
	for i, b := range blocks {
		values[i] = s.BlockSSIM(b)
	}

	return Result{Score: stat.Mean(values, nil), Blocks: len(blocks)}, nil
}

// Compare runs extraction and scoring on two gray images of identical size.
func (s *Scorer) Compare(a, b *PixelBuffer, opts ExtractOptions) (Result, error) {
	blocks, err := ExtractBlockStats(a, b, opts)
	if err != nil {
		return Result{}, err
	}
	return s.Score(blocks)
}
