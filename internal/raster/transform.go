package raster

import (
	"errors"
	"math"
)

// GeoTransform is the GDAL affine transform:
//
//	Xgeo = gt[0] + col*gt[1] + row*gt[2]
//	Ygeo = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

var ErrSingularTransform = errors.New("geotransform is not invertible")

// Forward maps fractional pixel coordinates to world coordinates.
func (gt GeoTransform) Forward(col, row float64) (float64, float64) {
	x := gt[0] + col*gt[1] + row*gt[2]
	y := gt[3] + col*gt[4] + row*gt[5]
	return x, y
}

// PixelCenter returns the world coordinates of the centre of cell (col, row).
func (gt GeoTransform) PixelCenter(col, row int) (float64, float64) {
	return gt.Forward(float64(col)+0.5, float64(row)+0.5)
}

// Inverse returns the transform mapping world coordinates back to pixels.
func (gt GeoTransform) Inverse() (GeoTransform, error) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 || math.IsNaN(det) {
		return GeoTransform{}, ErrSingularTransform
	}
	inv := 1 / det
	a := gt[5] * inv
	b := -gt[2] * inv
	d := -gt[4] * inv
	e := gt[1] * inv
	return GeoTransform{
		-gt[0]*a - gt[3]*b, a, b,
		-gt[0]*d - gt[3]*e, d, e,
	}, nil
}

// PixelSize returns the absolute horizontal and vertical pixel sizes.
func (gt GeoTransform) PixelSize() (float64, float64) {
	return math.Abs(gt[1]), math.Abs(gt[5])
}

// Bounds returns minX, minY, maxX, maxY of a width x height grid.
func (gt GeoTransform) Bounds(width, height int) (float64, float64, float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [4][2]float64{{0, 0}, {float64(width), 0}, {0, float64(height)}, {float64(width), float64(height)}} {
		x, y := gt.Forward(c[0], c[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return minX, minY, maxX, maxY
}
