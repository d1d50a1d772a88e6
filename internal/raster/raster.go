package raster

import (
	"fmt"
	"math"
	"strconv"
)

// CRS describes the spatial reference of a raster. EPSG is 0 when the
// reference has no EPSG authority code.
type CRS struct {
	WKT        string
	EPSG       int
	Geographic bool
}

const maxCRSLabel = 40

// Label is the short form shown on figures: "EPSG:32633" when an authority
// code is known, otherwise the WKT cut to 40 characters.
func (c *CRS) Label() string {
	if c == nil {
		return "N/A"
	}
	if c.EPSG > 0 {
		return "EPSG:" + strconv.Itoa(c.EPSG)
	}
	if len(c.WKT) > maxCRSLabel {
		return c.WKT[:maxCRSLabel] + "..."
	}
	if c.WKT == "" {
		return "N/A"
	}
	return c.WKT
}

type Metadata struct {
	Width     int
	Height    int
	Transform *GeoTransform
	CRS       *CRS
}

// Band is a single-band grid of samples. Missing samples are NaN.
type Band struct {
	Data [][]float64
	Metadata
}

// NewBand allocates a NaN-free zeroed band with the given metadata.
func NewBand(meta Metadata) *Band {
	data := make([][]float64, meta.Height)
	cells := make([]float64, meta.Width*meta.Height)
	for y := range data {
		data[y] = cells[y*meta.Width : (y+1)*meta.Width]
	}
	return &Band{Data: data, Metadata: meta}
}

// FromRows wraps rows in a band, validating that the grid is rectangular.
func FromRows(rows [][]float64, transform *GeoTransform, crs *CRS) (*Band, error) {
	b := &Band{Data: rows, Metadata: Metadata{Height: len(rows), Transform: transform, CRS: crs}}
	if len(rows) > 0 {
		b.Width = len(rows[0])
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Band) Validate() error {
	if len(b.Data) != b.Height {
		return fmt.Errorf("band has %d rows, metadata says %d", len(b.Data), b.Height)
	}
	for y, row := range b.Data {
		if len(row) != b.Width {
			return fmt.Errorf("band row %d has %d columns, expected %d", y, len(row), b.Width)
		}
	}
	return nil
}

// ValidCount returns the number of non-NaN samples.
func (b *Band) ValidCount() int {
	n := 0
	for _, row := range b.Data {
		for _, v := range row {
			if !math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

// Source yields a band on demand. Loading is deferred so that callers can
// validate which bands they need before touching any pixel data.
type Source interface {
	Load() (*Band, error)
}

// Memory is a Source over an already loaded band.
type Memory struct {
	Band  *Band
	Loads int
}

func (m *Memory) Load() (*Band, error) {
	m.Loads++
	if m.Band == nil {
		return nil, fmt.Errorf("memory source is empty")
	}
	return m.Band, nil
}
