package ssim

import (
	"errors"
	"fmt"
)

// ErrNoBlocks is returned when an image pair yields no blocks to score,
// e.g. an image smaller than one block under EdgeTruncate.
var ErrNoBlocks = errors.New("no blocks to score")

// ChannelError reports a buffer whose channel count does not satisfy an
// operation's precondition.
// Use errors.Is(err, &ChannelError{}) to match any channel error.
type ChannelError struct {
	Channels int // Channel count that was supplied
	Want     int // Minimum channel count required
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("unsupported channel count %d (need at least %d)", e.Channels, e.Want)
}

func (e *ChannelError) Is(target error) bool {
	_, ok := target.(*ChannelError)
	return ok
}

// DimensionError reports buffers with invalid or mismatched geometry.
type DimensionError struct {
	Width  int
	Height int
	Reason string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("invalid dimensions %dx%d: %s", e.Width, e.Height, e.Reason)
}

func (e *DimensionError) Is(target error) bool {
	_, ok := target.(*DimensionError)
	return ok
}
