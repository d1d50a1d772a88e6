package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Footprint builds the coverage of an index grid: its extent rectangle and
// centre point, in the raster's own reference.
func Footprint(res *index.Result) (*geojson.FeatureCollection, error) {
	band := res.Band
	if band.Transform == nil {
		return nil, errors.New("raster has no geotransform")
	}
	minX, minY, maxX, maxY := band.Transform.Bounds(band.Width, band.Height)
	extent := orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}

	fc := geojson.NewFeatureCollection()
	if band.CRS != nil && band.CRS.EPSG > 0 {
		fc.ExtraMembers = geojson.Properties{
			"crs": map[string]interface{}{
				"type":       "name",
				"properties": map[string]interface{}{"name": fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", band.CRS.EPSG)},
			},
		}
	}

	coverage := geojson.NewFeature(extent.ToPolygon())
	coverage.Properties["kind"] = "coverage"
	coverage.Properties["index"] = res.Index.String()
	coverage.Properties["width"] = band.Width
	coverage.Properties["height"] = band.Height
	coverage.Properties["crs"] = band.CRS.Label()
	fc.Append(coverage)

	centre := geojson.NewFeature(extent.Center())
	centre.Properties["kind"] = "centre"
	fc.Append(centre)

	return fc, nil
}

// WriteFootprint encodes the footprint as indented GeoJSON.
func WriteFootprint(w io.Writer, res *index.Result) error {
	fc, err := Footprint(res)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode footprint: %w", err)
	}
	return nil
}
