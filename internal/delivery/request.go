package delivery

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/properties"
	"github.com/forest-guardian/invisterra/internal/scale"
	"github.com/forest-guardian/invisterra/output"
)

const (
	minBarPercent  = 50
	maxBarPercent  = 100
	minFigureWidth = 200
)

// Request holds every parameter of one analysis run. It is passed by value
// and never mutated by the pipeline.
type Request struct {
	Index          string
	Palette        string
	Reverse        bool
	Title          string
	ShowScaleBar   bool
	ShowNorthArrow bool
	ShowLegend     bool
	ScaleMode      scale.Mode
	// MetersPerPixel is used in manual mode and whenever the raster cannot
	// provide a ground resolution.
	MetersPerPixel float64
	BarPercent     float64
	Percentiles    []float64
	// Strict rejects uploads where two files resolve to the same band.
	Strict      bool
	OutputDir   string
	FigureWidth int
}

// NewRequest returns a request for idx filled with the configured defaults.
func NewRequest(idx string) Request {
	return Request{
		Index:          idx,
		Palette:        properties.DefaultPalette(),
		ShowScaleBar:   true,
		ShowNorthArrow: true,
		ShowLegend:     true,
		ScaleMode:      scale.Auto,
		MetersPerPixel: properties.DefaultMetersPerPixel(),
		BarPercent:     80,
		OutputDir:      properties.DataPath() + "/output",
		FigureWidth:    properties.FigureWidth(),
	}
}

func (r Request) Validate() error {
	if _, err := index.Parse(r.Index); err != nil {
		return err
	}
	if _, err := output.LookupPalette(r.Palette, r.Reverse); err != nil {
		return err
	}
	if _, err := scale.ParseMode(string(r.ScaleMode)); err != nil {
		return err
	}
	if r.MetersPerPixel <= 0 {
		return fmt.Errorf("meters per pixel must be positive, got %g", r.MetersPerPixel)
	}
	if r.BarPercent < minBarPercent || r.BarPercent > maxBarPercent {
		return fmt.Errorf("scale bar width must be between %d%% and %d%%, got %g%%", minBarPercent, maxBarPercent, r.BarPercent)
	}
	for _, p := range r.Percentiles {
		if p < 0 || p > 100 {
			return fmt.Errorf("percentile %g is outside [0, 100]", p)
		}
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("output directory is required")
	}
	if r.FigureWidth < minFigureWidth {
		return fmt.Errorf("figure width must be at least %d pixels, got %d", minFigureWidth, r.FigureWidth)
	}
	return nil
}
