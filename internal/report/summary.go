package report

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmpty is returned when summarising zero records.
var ErrEmpty = errors.New("no records")

// Summary aggregates the scores of a report.
type Summary struct {
	Count     int
	Mean      float64
	StdDev    float64 // Sample standard deviation, 0 for a single record
	Min       float64
	Max       float64
	BestFrame int // Frame of the highest score (first one on ties)
}

// Summarize computes aggregate statistics over records.
func Summarize(records []Record) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrEmpty
	}

	scores := make([]float64, len(records))
	for i, r := range records {
		scores[i] = r.Score
	}

	s := Summary{
		Count:     len(records),
		Mean:      stat.Mean(scores, nil),
		Min:       floats.Min(scores),
		Max:       floats.Max(scores),
		BestFrame: records[floats.MaxIdx(scores)].Frame,
	}
	if len(scores) > 1 {
		s.StdDev = math.Sqrt(stat.Variance(scores, nil))
	}
	return s, nil
}
