package zonal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/forest-guardian/invisterra/internal/stats"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// Stats are the aggregates of one feature. The pointers are nil when the
// feature covers no valid pixel.
type Stats struct {
	Mean  *float64
	Min   *float64
	Max   *float64
	Std   *float64
	Count int
}

// Record pairs a feature's attributes with its aggregates.
type Record struct {
	Properties map[string]interface{}
	Stats
}

type Options struct {
	// Workers bounds concurrent features; zero means one per CPU.
	Workers int
	// Progress receives a progress bar when set.
	Progress io.Writer
}

// geographicCodes are EPSG codes of lon/lat references recognized on the
// vector side.
var geographicCodes = map[int]bool{4326: true, 4258: true, 4269: true, 4674: true}

// Aggregate computes per-feature statistics of band over the cells whose
// centre falls inside each feature. Records keep the layer order.
func Aggregate(ctx context.Context, band *raster.Band, layer *Layer, opts Options) ([]Record, error) {
	if band.Transform == nil {
		return nil, layerError(errors.New("raster has no geotransform"))
	}
	inv, err := band.Transform.Inverse()
	if err != nil {
		return nil, layerError(err)
	}
	if err := checkCRS(band.CRS, layer); err != nil {
		return nil, layerError(err)
	}
	for i, f := range layer.Features {
		if err := validPolygons(f.Geometry); err != nil {
			return nil, &Error{Feature: i, Err: err}
		}
	}

	minX, minY, maxX, maxY := band.Transform.Bounds(band.Width, band.Height)
	extent := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
	overlaps := false
	for _, f := range layer.Features {
		if f.Bound.Intersects(extent) {
			overlaps = true
			break
		}
	}
	if !overlaps {
		return nil, layerError(fmt.Errorf("%w (raster %s, layer %s)", ErrNoOverlap, formatBound(extent), formatBound(layer.Bound())))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(len(layer.Features),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Zonal statistics"),
			progressbar.OptionShowCount(),
		)
	}

	records := make([]Record, len(layer.Features))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range layer.Features {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f := layer.Features[i]
			records[i] = Record{Properties: f.Properties, Stats: featureStats(band, inv, f)}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return records, nil
}

func featureStats(band *raster.Band, inv raster.GeoTransform, f Feature) Stats {
	c0, r0, c1, r1 := window(inv, f.Bound, band.Width, band.Height)

	var values []float64
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			v := band.Data[row][col]
			if math.IsNaN(v) {
				continue
			}
			x, y := band.Transform.PixelCenter(col, row)
			if contains(f.Geometry, orb.Point{x, y}) {
				values = append(values, v)
			}
		}
	}
	if len(values) == 0 {
		return Stats{}
	}

	mean, std := stats.MeanStd(values)
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return Stats{Mean: &mean, Min: &lo, Max: &hi, Std: &std, Count: len(values)}
}

// window maps a world bound to the pixel range [c0,c1) x [r0,r1) clamped
// to the grid.
func window(inv raster.GeoTransform, b orb.Bound, width, height int) (int, int, int, int) {
	minC, minR := math.Inf(1), math.Inf(1)
	maxC, maxR := math.Inf(-1), math.Inf(-1)
	for _, p := range []orb.Point{b.Min, b.Max, {b.Min.X(), b.Max.Y()}, {b.Max.X(), b.Min.Y()}} {
		c, r := inv.Forward(p.X(), p.Y())
		minC, maxC = math.Min(minC, c), math.Max(maxC, c)
		minR, maxR = math.Min(minR, r), math.Max(maxR, r)
	}
	c0 := clampInt(int(math.Floor(minC)), 0, width)
	c1 := clampInt(int(math.Ceil(maxC)), 0, width)
	r0 := clampInt(int(math.Floor(minR)), 0, height)
	r1 := clampInt(int(math.Ceil(maxR)), 0, height)
	return c0, r0, c1, r1
}

func contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	}
	return false
}

// checkCRS fails when both references are known and differ. A layer whose
// EPSG:4326 was inferred only clashes with projected rasters.
func checkCRS(crs *raster.CRS, layer *Layer) error {
	if crs == nil || layer.EPSG == 0 {
		return nil
	}
	label := crs.Label()
	if layer.Inferred {
		if crs.Geographic {
			return nil
		}
		return fmt.Errorf("%w: vector has lon/lat coordinates and no crs member, raster %s", ErrCRSMismatch, label)
	}
	if crs.EPSG != 0 && crs.EPSG != layer.EPSG || crs.EPSG == 0 && geographicCodes[layer.EPSG] != crs.Geographic {
		return fmt.Errorf("%w: vector EPSG:%d, raster %s", ErrCRSMismatch, layer.EPSG, label)
	}
	return nil
}

func formatBound(b orb.Bound) string {
	return fmt.Sprintf("[%.6g %.6g, %.6g %.6g]", b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y())
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
