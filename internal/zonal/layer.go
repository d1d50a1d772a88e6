package zonal

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	ErrNoOverlap   = errors.New("no feature overlaps the raster extent")
	ErrCRSMismatch = errors.New("vector and raster spatial references differ")
)

// Error is returned for unusable vector input. Feature is the offending
// feature's position, or -1 when the whole layer is at fault.
type Error struct {
	Feature int
	Err     error
}

func (e *Error) Error() string {
	if e.Feature >= 0 {
		return fmt.Sprintf("zonal statistics: feature %d: %v", e.Feature, e.Err)
	}
	return fmt.Sprintf("zonal statistics: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func layerError(err error) *Error { return &Error{Feature: -1, Err: err} }

// Feature is a polygonal feature with its attributes.
type Feature struct {
	Properties map[string]interface{}
	Geometry   orb.Geometry
	Bound      orb.Bound
}

// Layer is a parsed polygon collection. EPSG is 0 when the reference is
// unknown. Inferred is set when EPSG:4326 was assumed from the coordinate
// range of a file without a crs member.
type Layer struct {
	Features []Feature
	EPSG     int
	Inferred bool
}

type header struct {
	Type string `json:"type"`
	CRS  *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

// ParseLayer decodes a GeoJSON FeatureCollection or single Feature. Only
// Polygon and MultiPolygon geometries are accepted.
func ParseLayer(data []byte) (*Layer, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, layerError(fmt.Errorf("invalid GeoJSON: %w", err))
	}

	var features []*geojson.Feature
	switch h.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, layerError(fmt.Errorf("invalid feature collection: %w", err))
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, layerError(fmt.Errorf("invalid feature: %w", err))
		}
		features = []*geojson.Feature{f}
	default:
		return nil, layerError(fmt.Errorf("unsupported GeoJSON type %q", h.Type))
	}
	if len(features) == 0 {
		return nil, layerError(errors.New("feature collection is empty"))
	}

	layer := &Layer{}
	if h.CRS != nil {
		code, err := parseCRSName(h.CRS.Properties.Name)
		if err != nil {
			return nil, layerError(err)
		}
		layer.EPSG = code
	}

	for i, f := range features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		case nil:
			return nil, &Error{Feature: i, Err: errors.New("missing geometry")}
		default:
			return nil, &Error{Feature: i, Err: fmt.Errorf("geometry %s is not polygonal", f.Geometry.GeoJSONType())}
		}
		if err := validPolygons(f.Geometry); err != nil {
			return nil, &Error{Feature: i, Err: err}
		}
		props := map[string]interface{}(f.Properties)
		if props == nil {
			props = map[string]interface{}{}
		}
		layer.Features = append(layer.Features, Feature{
			Properties: props,
			Geometry:   f.Geometry,
			Bound:      f.Geometry.Bound(),
		})
	}

	if layer.EPSG == 0 && layer.withinLonLat() {
		layer.EPSG = 4326
		layer.Inferred = true
	}
	return layer, nil
}

const minRingPoints = 4

// validPolygons rejects polygons without rings and rings that are too short
// or not closed.
func validPolygons(g orb.Geometry) error {
	var polygons []orb.Polygon
	switch g := g.(type) {
	case orb.Polygon:
		polygons = []orb.Polygon{g}
	case orb.MultiPolygon:
		if len(g) == 0 {
			return errors.New("multipolygon has no polygons")
		}
		polygons = g
	}
	for i, p := range polygons {
		if len(p) == 0 {
			return fmt.Errorf("polygon %d has no rings", i)
		}
		for j, ring := range p {
			if len(ring) < minRingPoints {
				return fmt.Errorf("polygon %d ring %d has %d points, need at least %d", i, j, len(ring), minRingPoints)
			}
			if !ring.Closed() {
				return fmt.Errorf("polygon %d ring %d is not closed", i, j)
			}
		}
	}
	return nil
}

func (l *Layer) Bound() orb.Bound {
	b := l.Features[0].Bound
	for _, f := range l.Features[1:] {
		b = b.Union(f.Bound)
	}
	return b
}

func (l *Layer) withinLonLat() bool {
	b := l.Bound()
	return b.Min.X() >= -180 && b.Max.X() <= 180 && b.Min.Y() >= -90 && b.Max.Y() <= 90
}

var epsgPattern = regexp.MustCompile(`EPSG:(?:[\d.]*:)?(\d+)$`)

// parseCRSName reads the legacy named crs forms, e.g. "EPSG:32633",
// "urn:ogc:def:crs:EPSG::32633" and "urn:ogc:def:crs:OGC:1.3:CRS84".
func parseCRSName(name string) (int, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasSuffix(upper, "CRS84") {
		return 4326, nil
	}
	m := epsgPattern.FindStringSubmatch(upper)
	if m == nil {
		return 0, fmt.Errorf("unrecognized crs %q", name)
	}
	return strconv.Atoi(m[1])
}
