package scale

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/invisterra/internal/raster"
)

// Mode selects where the ground distance per pixel comes from.
type Mode string

const (
	Auto   Mode = "auto"
	Manual Mode = "manual"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Auto:
		return Auto, nil
	case Manual:
		return Manual, nil
	}
	return "", fmt.Errorf("invalid scale mode %q, expected auto or manual", s)
}

// Legend box geometry in figure fractions. The bar spans a percentage of the
// box width left after padding on both sides.
const (
	LegendWidth   = 0.28
	LegendPadding = 0.025
)

// MetersPerPixel resolves the ground distance of one pixel. Auto mode reads
// the transform only for projected rasters and falls back to manual
// otherwise.
func MetersPerPixel(meta raster.Metadata, mode Mode, manual float64) float64 {
	if mode == Manual {
		return manual
	}
	if meta.CRS == nil || meta.CRS.Geographic || meta.Transform == nil {
		return manual
	}
	px, py := meta.Transform.PixelSize()
	return (px + py) / 2
}

// Resolved reports whether auto mode actually read the transform.
func Resolved(meta raster.Metadata, mode Mode) bool {
	return mode == Auto && meta.CRS != nil && !meta.CRS.Geographic && meta.Transform != nil
}

// BarFraction is the share of the figure width covered by a bar set to
// percent of the usable legend width.
func BarFraction(percent float64) float64 {
	return (LegendWidth - 2*LegendPadding) * percent / 100
}

// BarDistance is the ground distance the bar represents.
func BarDistance(fraction float64, pixelWidth int, metersPerPixel float64) float64 {
	return fraction * float64(pixelWidth) * metersPerPixel
}

// FormatDistance renders the exact distance, switching to kilometres at 1000 m.
func FormatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}
	return fmt.Sprintf("%.2f m", meters)
}
