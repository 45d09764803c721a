package ssim

import (
	"fmt"
	"log/slog"
)

// BlockSize is the edge length of the square, non-overlapping comparison blocks.
const BlockSize = 8

const (
	blockSamples = BlockSize * BlockSize
	blockDOF     = blockSamples - 1 // unbiased estimator denominator
)

// EdgePolicy selects how blocks that would extend past the image edge are handled.
type EdgePolicy int

const (
	EdgeTruncate  EdgePolicy = iota // Skip trailing partial blocks
	EdgeReplicate                   // Pad partial blocks by repeating the last row/column
)

func (e EdgePolicy) String() string {
	switch e {
	case EdgeTruncate:
		return "truncate"
	case EdgeReplicate:
		return "replicate"
	default:
		return "unknown"
	}
}

// ParseEdgePolicy converts a policy name to an EdgePolicy.
func ParseEdgePolicy(name string) (EdgePolicy, error) {
	switch name {
	case "truncate", "":
		return EdgeTruncate, nil
	case "replicate":
		return EdgeReplicate, nil
	default:
		return EdgeTruncate, fmt.Errorf("unknown edge policy: %q", name)
	}
}

// ExtractOptions controls block extraction.
type ExtractOptions struct {
	Edge EdgePolicy
}

// BlockStats holds the first and second order statistics of one block pair.
type BlockStats struct {
	Row, Col   int // Top-left pixel of the block
	Mean1      float64
	Mean2      float64
	Var1       float64
	Var2       float64
	Covariance float64
}

// BlockOrigins lists the top-left corners of every block that ExtractBlockStats
// visits for a width x height image, in row-major order.
func BlockOrigins(width, height int, edge EdgePolicy) [][2]int {
	rows, cols := height, width
	if edge == EdgeTruncate {
		rows = height - height%BlockSize
		cols = width - width%BlockSize
	}

	var origins [][2]int
	for row := 0; row < rows; row += BlockSize {
		for col := 0; col < cols; col += BlockSize {
			origins = append(origins, [2]int{row, col})
		}
	}
	return origins
}

// ExtractBlockStats tiles two gray images of identical size into 8x8 blocks
// and computes per-block statistics. Sample (k, l) of the block at (row, col)
// is pixel (row+k, col+l).
//
// Means use integer accumulation and integer division. Variance and
// covariance divide by 63.
func ExtractBlockStats(a, b *PixelBuffer, opts ExtractOptions) ([]BlockStats, error) {
	if a.Channels != 1 {
		return nil, &ChannelError{Channels: a.Channels, Want: 1}
	}
	if b.Channels != 1 {
		return nil, &ChannelError{Channels: b.Channels, Want: 1}
	}
	if !a.SameSize(b) {
		return nil, &DimensionError{
			Width:  b.Width,
			Height: b.Height,
			Reason: fmt.Sprintf("does not match %dx%d", a.Width, a.Height),
		}
	}

	origins := BlockOrigins(a.Width, a.Height, opts.Edge)
	stats := make([]BlockStats, 0, len(origins))

	var s1, s2 [blockSamples]uint8
	for _, o := range origins {
		gatherBlock(a, o[0], o[1], &s1)
		gatherBlock(b, o[0], o[1], &s2)
		stats = append(stats, blockStats(o[0], o[1], &s1, &s2))
	}

	if opts.Edge == EdgeTruncate {
		if skippedCols, skippedRows := a.Width%BlockSize, a.Height%BlockSize; skippedCols != 0 || skippedRows != 0 {
			slog.Debug("Ignoring partial edge blocks",
				"width", a.Width, "height", a.Height,
				"skipped_cols", skippedCols, "skipped_rows", skippedRows,
			)
		}
	}
	slog.Debug("Extracted block statistics", "blocks", len(stats), "edge", opts.Edge.String())

	return stats, nil
}

// gatherBlock copies the block at (row, col) into dst. Coordinates past the
// edge are clamped to the last row/column.
func gatherBlock(img *PixelBuffer, row, col int, dst *[blockSamples]uint8) {
	maxRow, maxCol := img.Height-1, img.Width-1
	for k := 0; k < BlockSize; k++ {
		r := min(row+k, maxRow)
		for l := 0; l < BlockSize; l++ {
			c := min(col+l, maxCol)
			dst[k*BlockSize+l] = img.Pix[img.offset(r, c, 0)]
		}
	}
}

func blockStats(row, col int, s1, s2 *[blockSamples]uint8) BlockStats {
	var sum1, sum2 int
	for i := 0; i < blockSamples; i++ {
		sum1 += int(s1[i])
		sum2 += int(s2[i])
	}
	mean1 := float64(sum1 / blockSamples)
	mean2 := float64(sum2 / blockSamples)

	var var1, var2, cov float64
	for i := 0; i < blockSamples; i++ {
		d1 := float64(s1[i]) - mean1
		d2 := float64(s2[i]) - mean2
		var1 += d1 * d1
		var2 += d2 * d2
		cov += d1 * d2
	}

	return BlockStats{
		Row:        row,
		Col:        col,
		Mean1:      mean1,
		Mean2:      mean2,
		Var1:       var1 / blockDOF,
		Var2:       var2 / blockDOF,
		Covariance: cov / blockDOF,
	}
}
