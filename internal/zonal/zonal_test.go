package zonal

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 3 columns x 4 rows of 10 m cells, origin (500000, 4600040).
func testBand(t *testing.T) *raster.Band {
	t.Helper()
	gt := raster.GeoTransform{500000, 10, 0, 4600040, 0, -10}
	b, err := raster.FromRows([][]float64{
		{0.1, 0.2, 0.3},
		{0.4, 0.5, 0.6},
		{-0.1, -0.2, math.NaN()},
		{0.9, 1.0, -1.0},
	}, &gt, &raster.CRS{EPSG: 32633})
	require.NoError(t, err)
	return b
}

const fullExtent = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::32633"}},
  "features": [
    {"type": "Feature", "properties": {"plot": "all", "area": 1200},
     "geometry": {"type": "Polygon", "coordinates": [[[500000,4600000],[500030,4600000],[500030,4600040],[500000,4600040],[500000,4600000]]]}}
  ]
}`

func TestAggregateFullExtent(t *testing.T) {
	band := testBand(t)
	layer, err := ParseLayer([]byte(fullExtent))
	require.NoError(t, err)
	assert.Equal(t, 32633, layer.EPSG)

	records, err := Aggregate(context.Background(), band, layer, Options{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, band.ValidCount(), r.Count)
	assert.Equal(t, 11, r.Count)

	var sum float64
	for _, row := range band.Data {
		for _, v := range row {
			if !math.IsNaN(v) {
				sum += v
			}
		}
	}
	require.NotNil(t, r.Mean)
	assert.InDelta(t, sum/11, *r.Mean, 1e-12)
	assert.Equal(t, -1.0, *r.Min)
	assert.Equal(t, 1.0, *r.Max)
	assert.NotNil(t, r.Std)
	assert.Equal(t, "all", r.Properties["plot"])
	assert.Equal(t, 1200.0, r.Properties["area"])
}

func TestAggregatePartialHoleAndOutside(t *testing.T) {
	band := testBand(t)
	layer, err := ParseLayer([]byte(`{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "EPSG:32633"}},
  "features": [
    {"type": "Feature", "properties": {"id": 1},
     "geometry": {"type": "Polygon", "coordinates": [[[500000,4600020],[500020,4600020],[500020,4600040],[500000,4600040],[500000,4600020]]]}},
    {"type": "Feature", "properties": {"id": 2},
     "geometry": {"type": "Polygon", "coordinates": [
       [[500000,4600000],[500030,4600000],[500030,4600040],[500000,4600040],[500000,4600000]],
       [[500001,4600001],[500029,4600001],[500029,4600039],[500001,4600039],[500001,4600001]]
     ]}},
    {"type": "Feature", "properties": {"id": 3},
     "geometry": {"type": "MultiPolygon", "coordinates": [[[[600000,4700000],[600010,4700000],[600010,4700010],[600000,4700000]]]]}}
  ]
}`))
	require.NoError(t, err)

	records, err := Aggregate(context.Background(), band, layer, Options{Workers: 2})
	require.NoError(t, err)
	require.Len(t, records, 3)

	// top-left 2x2 block
	assert.Equal(t, 4, records[0].Count)
	assert.InDelta(t, 0.3, *records[0].Mean, 1e-12)
	assert.Equal(t, 1.0, records[0].Properties["id"])

	// the hole swallows every cell centre
	assert.Zero(t, records[1].Count)
	assert.Nil(t, records[1].Mean)

	assert.Zero(t, records[2].Count)
	assert.Nil(t, records[2].Mean)
	assert.Nil(t, records[2].Min)
	assert.Nil(t, records[2].Max)
	assert.Nil(t, records[2].Std)
	assert.Equal(t, 3.0, records[2].Properties["id"])
}

func TestAggregateNoOverlap(t *testing.T) {
	layer, err := ParseLayer([]byte(`{"type": "Feature", "properties": null,
	  "geometry": {"type": "Polygon", "coordinates": [[[700000,4000000],[700010,4000000],[700010,4000010],[700000,4000000]]]}}`))
	require.NoError(t, err)
	assert.Zero(t, layer.EPSG)

	_, err = Aggregate(context.Background(), testBand(t), layer, Options{})
	var zerr *Error
	require.True(t, errors.As(err, &zerr))
	assert.ErrorIs(t, err, ErrNoOverlap)
}

func TestAggregateRejectsRinglessPolygon(t *testing.T) {
	extent := orb.Bound{Min: orb.Point{500000, 4600000}, Max: orb.Point{500030, 4600040}}
	layer := &Layer{EPSG: 32633, Features: []Feature{
		{Geometry: orb.Polygon{}, Bound: extent},
		{Geometry: extent.ToPolygon(), Bound: extent},
	}}

	_, err := Aggregate(context.Background(), testBand(t), layer, Options{})
	var zerr *Error
	require.True(t, errors.As(err, &zerr), "got %v", err)
	assert.Equal(t, 0, zerr.Feature)
}

func TestAggregateRejectsLonLatAgainstProjected(t *testing.T) {
	layer, err := ParseLayer([]byte(`{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[14.1,50.0],[14.2,50.0],[14.2,50.1],[14.1,50.0]]]}}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, 4326, layer.EPSG)
	assert.True(t, layer.Inferred)

	_, err = Aggregate(context.Background(), testBand(t), layer, Options{})
	assert.ErrorIs(t, err, ErrCRSMismatch)
}

func TestAggregateRejectsDifferentEPSG(t *testing.T) {
	layer, err := ParseLayer([]byte(`{"type": "FeatureCollection",
	  "crs": {"type": "name", "properties": {"name": "EPSG:32634"}},
	  "features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[500000,4600000],[500030,4600000],[500030,4600040],[500000,4600000]]]}}]}`))
	require.NoError(t, err)

	_, err = Aggregate(context.Background(), testBand(t), layer, Options{})
	assert.ErrorIs(t, err, ErrCRSMismatch)
}

func TestAggregateProgress(t *testing.T) {
	layer, err := ParseLayer([]byte(fullExtent))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Aggregate(context.Background(), testBand(t), layer, Options{Progress: &buf})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Zonal statistics")
}

func TestAggregateCancelled(t *testing.T) {
	layer, err := ParseLayer([]byte(fullExtent))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Aggregate(ctx, testBand(t), layer, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseLayerErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		feature int
	}{
		{"not json", `{`, -1},
		{"geometry only", `{"type": "Polygon", "coordinates": []}`, -1},
		{"empty collection", `{"type": "FeatureCollection", "features": []}`, -1},
		{"point feature", `{"type": "FeatureCollection", "features": [
		  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
		  {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [0,0]}}]}`, 1},
		{"null geometry", `{"type": "Feature", "properties": {}, "geometry": null}`, 0},
		{"polygon without rings", `{"type": "FeatureCollection", "features": [
		  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": []}},
		  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}]}`, 0},
		{"multipolygon with empty polygon", `{"type": "FeatureCollection", "features": [
		  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}},
		  {"type": "Feature", "properties": {}, "geometry": {"type": "MultiPolygon", "coordinates": [[[[0,0],[1,0],[1,1],[0,0]]], []]}}]}`, 1},
		{"empty multipolygon", `{"type": "Feature", "properties": {}, "geometry": {"type": "MultiPolygon", "coordinates": []}}`, 0},
		{"short ring", `{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[0,0]]]}}`, 0},
		{"open ring", `{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1]]]}}`, 0},
		{"unknown crs", `{"type": "Feature", "crs": {"type": "name", "properties": {"name": "local"}}, "properties": {},
		  "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}}`, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLayer([]byte(tt.input))
			var zerr *Error
			require.True(t, errors.As(err, &zerr), "got %v", err)
			assert.Equal(t, tt.feature, zerr.Feature)
		})
	}
}

func TestParseCRSName(t *testing.T) {
	tests := map[string]int{
		"EPSG:32633":                    32633,
		"urn:ogc:def:crs:EPSG::3857":    3857,
		"urn:ogc:def:crs:EPSG:6.6:4326": 4326,
		"urn:ogc:def:crs:OGC:1.3:CRS84": 4326,
		"urn:ogc:def:crs:OGC::CRS84":    4326,
	}
	for in, want := range tests {
		got, err := parseCRSName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
