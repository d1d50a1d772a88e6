package scale

import (
	"testing"

	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" AUTO ")
	require.NoError(t, err)
	assert.Equal(t, Auto, m)

	m, err = ParseMode("manual")
	require.NoError(t, err)
	assert.Equal(t, Manual, m)

	_, err = ParseMode("meters")
	assert.Error(t, err)
}

func TestMetersPerPixel(t *testing.T) {
	projected := &raster.GeoTransform{500000, 10, 0, 4600000, 0, -10}
	rect := &raster.GeoTransform{500000, 20, 0, 4600000, 0, -10}
	degrees := &raster.GeoTransform{14.2, 0.0001, 0, 50.1, 0, -0.0001}

	tests := []struct {
		name   string
		meta   raster.Metadata
		mode   Mode
		manual float64
		want   float64
	}{
		{"auto projected", raster.Metadata{Transform: projected, CRS: &raster.CRS{EPSG: 32633}}, Auto, 7, 10},
		{"auto averages axes", raster.Metadata{Transform: rect, CRS: &raster.CRS{EPSG: 32633}}, Auto, 7, 15},
		{"auto geographic falls back", raster.Metadata{Transform: degrees, CRS: &raster.CRS{EPSG: 4326, Geographic: true}}, Auto, 7, 7},
		{"auto geographic ignores transform", raster.Metadata{Transform: projected, CRS: &raster.CRS{Geographic: true}}, Auto, 12.5, 12.5},
		{"auto without crs", raster.Metadata{Transform: projected}, Auto, 7, 7},
		{"auto without transform", raster.Metadata{CRS: &raster.CRS{EPSG: 32633}}, Auto, 7, 7},
		{"manual wins", raster.Metadata{Transform: projected, CRS: &raster.CRS{EPSG: 32633}}, Manual, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MetersPerPixel(tt.meta, tt.mode, tt.manual))
		})
	}

	assert.True(t, Resolved(tests[0].meta, Auto))
	assert.False(t, Resolved(tests[2].meta, Auto))
	assert.False(t, Resolved(tests[0].meta, Manual))
}

func TestBarDistanceIsExact(t *testing.T) {
	fraction := BarFraction(90)
	assert.InDelta(t, 0.207, fraction, 1e-12)

	d := BarDistance(fraction, 1000, 10)
	assert.InDelta(t, 2070.0, d, 1e-9)
	assert.Equal(t, "2.07 km", FormatDistance(d))
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "0.00 m", FormatDistance(0))
	assert.Equal(t, "999.99 m", FormatDistance(999.99))
	assert.Equal(t, "1.00 km", FormatDistance(1000))
	assert.Equal(t, "115.00 m", FormatDistance(BarDistance(BarFraction(50), 100, 10)))
}
