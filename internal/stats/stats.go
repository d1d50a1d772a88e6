package stats

import (
	"math"
	"sort"
)

// Summary describes the valid (non-NaN) samples of a grid.
type Summary struct {
	Count       int
	Mean        float64
	Median      float64
	Std         float64
	Min         float64
	Max         float64
	Percentiles []Percentile
}

type Percentile struct {
	Rank  float64
	Value float64
}

// Summarize computes the summary of data. Std is the population standard
// deviation; percentiles use linear interpolation between closest ranks.
// An all-NaN grid yields a zero Summary.
func Summarize(data [][]float64, percentiles []float64) Summary {
	values := Valid(data)
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)

	mean, std := MeanStd(values)
	s := Summary{
		Count:  len(values),
		Mean:   mean,
		Std:    std,
		Min:    values[0],
		Max:    values[len(values)-1],
		Median: quantile(values, 50),
	}
	for _, p := range percentiles {
		s.Percentiles = append(s.Percentiles, Percentile{Rank: p, Value: quantile(values, p)})
	}
	return s
}

// Valid flattens data, dropping NaN samples.
func Valid(data [][]float64) []float64 {
	var out []float64
	for _, row := range data {
		for _, v := range row {
			if !math.IsNaN(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// quantile expects sorted values and p in [0, 100].
func quantile(sorted []float64, p float64) float64 {
	p = math.Max(0, math.Min(100, p))
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
