package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoTransformForwardAndInverse(t *testing.T) {
	gt := GeoTransform{500000, 10, 0, 4200000, 0, -10}

	x, y := gt.PixelCenter(0, 0)
	assert.Equal(t, 500005.0, x)
	assert.Equal(t, 4199995.0, y)

	inv, err := gt.Inverse()
	require.NoError(t, err)
	col, row := inv.Forward(500105, 4199895)
	assert.InDelta(t, 10.5, col, 1e-9)
	assert.InDelta(t, 10.5, row, 1e-9)
}

func TestGeoTransformInverseWithRotation(t *testing.T) {
	gt := GeoTransform{100, 2, 0.5, 200, 0.25, -3}
	inv, err := gt.Inverse()
	require.NoError(t, err)

	for _, p := range [][2]float64{{0, 0}, {3.5, 7.25}, {120, 4}} {
		x, y := gt.Forward(p[0], p[1])
		col, row := inv.Forward(x, y)
		assert.InDelta(t, p[0], col, 1e-9)
		assert.InDelta(t, p[1], row, 1e-9)
	}
}

func TestGeoTransformSingular(t *testing.T) {
	_, err := GeoTransform{0, 0, 0, 0, 0, 0}.Inverse()
	assert.ErrorIs(t, err, ErrSingularTransform)
}

func TestGeoTransformBoundsAndPixelSize(t *testing.T) {
	gt := GeoTransform{0, 10, 0, 100, 0, -20}
	minX, minY, maxX, maxY := gt.Bounds(5, 4)
	assert.Equal(t, []float64{0, 20, 50, 100}, []float64{minX, minY, maxX, maxY})

	px, py := gt.PixelSize()
	assert.Equal(t, 10.0, px)
	assert.Equal(t, 20.0, py)
}

func TestCRSLabel(t *testing.T) {
	var missing *CRS
	assert.Equal(t, "N/A", missing.Label())
	assert.Equal(t, "EPSG:32633", (&CRS{EPSG: 32633, WKT: "PROJCS[...]"}).Label())
	assert.Equal(t, "LOCAL_CS[\"x\"]", (&CRS{WKT: "LOCAL_CS[\"x\"]"}).Label())

	long := (&CRS{WKT: "PROJCS[\"WGS 84 / UTM zone 33N\",GEOGCS[\"WGS 84\",DATUM[\"WGS_1984\"]]]"}).Label()
	assert.Len(t, long, 43)
	assert.True(t, len(long) > 3 && long[40:] == "...")
}

func TestFromRows(t *testing.T) {
	b, err := FromRows([][]float64{{1, 2}, {3, math.NaN()}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, 3, b.ValidCount())

	_, err = FromRows([][]float64{{1, 2}, {3}}, nil, nil)
	assert.Error(t, err)
}

func TestNewBandSharesBacking(t *testing.T) {
	b := NewBand(Metadata{Width: 3, Height: 2})
	require.NoError(t, b.Validate())
	b.Data[1][2] = 7
	assert.Equal(t, 7.0, b.Data[1][2])
	assert.Equal(t, 6, b.ValidCount())
}

func TestMemorySourceCountsLoads(t *testing.T) {
	src := &Memory{Band: NewBand(Metadata{Width: 1, Height: 1})}
	_, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, src.Loads)

	_, err = (&Memory{}).Load()
	assert.Error(t, err)
}
