package index

import (
	"fmt"
	"math"
	"runtime"

	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/gammazero/workerpool"
)

// Result is an index grid with the metadata of the first band read.
type Result struct {
	Index Index
	Band  *raster.Band
}

// Evaluator applies index formulas to a band map. Workers bounds the row
// workers; zero means one per CPU.
type Evaluator struct {
	Workers int
}

// Evaluate runs the default evaluator.
func Evaluate(bands sentinel.BandMap, name string) (*Result, error) {
	return Evaluator{}.Evaluate(bands, name)
}

func (e Evaluator) Evaluate(bands sentinel.BandMap, name string) (*Result, error) {
	idx, err := Parse(name)
	if err != nil {
		return nil, err
	}
	def := Lookup(idx)

	if missing := bands.Missing(def.Bands); len(missing) > 0 {
		return nil, &MissingBandsError{Index: idx, Missing: missing, Required: def.Bands}
	}

	inputs := make([]*raster.Band, len(def.Bands))
	for i, id := range def.Bands {
		b, err := bands[id].Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load band %s: %w", id, err)
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("band %s: %w", id, err)
		}
		if i > 0 && (b.Width != inputs[0].Width || b.Height != inputs[0].Height) {
			return nil, &ShapeMismatchError{
				Band: id, Width: b.Width, Height: b.Height,
				WantWidth: inputs[0].Width, WantHeight: inputs[0].Height,
			}
		}
		inputs[i] = b
	}

	out := raster.NewBand(inputs[0].Metadata)
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	wp := workerpool.New(workers)
	for y := 0; y < out.Height; y++ {
		row := y
		wp.Submit(func() {
			evaluateRow(def, inputs, out.Data[row], row)
		})
	}
	wp.StopWait()

	return &Result{Index: idx, Band: out}, nil
}

func evaluateRow(def Definition, inputs []*raster.Band, dst []float64, y int) {
	for x := range dst {
		var r Reflectance
		missing := false
		for k, id := range def.Bands {
			v := inputs[k].Data[y][x]
			if math.IsNaN(v) {
				missing = true
				break
			}
			r.set(id, v)
		}
		if missing {
			dst[x] = math.NaN()
			continue
		}
		dst[x] = clip(def.Formula(r))
	}
}

// clip bounds v to [-1, 1]. Infinities saturate; a NaN computed from valid
// samples is an indeterminate ratio and maps to 0.
func clip(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
