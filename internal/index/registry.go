package index

import (
	"fmt"
	"math"
	"strings"

	"github.com/forest-guardian/invisterra/internal/sentinel"
)

// Index enumerates the supported spectral indices.
type Index int

const (
	NDVI Index = iota
	EVI
	SAVI
	GNDVI
	NDRE
	NDWI
	MNDWI
	NDMI
	NDBI
	BSI
	UI
	NBR
	NBR2
	BAIS2
	NDSI
	S2WI
	indexCount
)

// Epsilon is added to every denominator.
const Epsilon = 1e-10

var indexNames = [indexCount]string{
	"NDVI", "EVI", "SAVI", "GNDVI", "NDRE", "NDWI", "MNDWI", "NDMI",
	"NDBI", "BSI", "UI", "NBR", "NBR2", "BAIS2", "NDSI", "S2WI",
}

func (i Index) String() string {
	if i < 0 || i >= indexCount {
		return fmt.Sprintf("Index(%d)", int(i))
	}
	return indexNames[i]
}

// All returns every index in declaration order.
func All() []Index {
	out := make([]Index, 0, indexCount)
	for i := Index(0); i < indexCount; i++ {
		out = append(out, i)
	}
	return out
}

// Parse resolves a name such as "ndvi" or " NBR2 " to its index.
func Parse(name string) (Index, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range indexNames {
		if n == key {
			return Index(i), nil
		}
	}
	return 0, &UnknownIndexError{Name: name}
}

type Category string

const (
	Vegetation Category = "vegetation"
	Water      Category = "water"
	Urban      Category = "urban and soil"
	Fire       Category = "fire"
	Snow       Category = "snow"
)

// Reflectance holds one pixel's samples. Only the fields named in a
// definition's Bands are populated.
type Reflectance struct {
	B2, B3, B4, B5, B6, B7, B8, B8A, B11, B12 float64
}

func (r *Reflectance) set(id sentinel.BandID, v float64) {
	switch id {
	case sentinel.B2:
		r.B2 = v
	case sentinel.B3:
		r.B3 = v
	case sentinel.B4:
		r.B4 = v
	case sentinel.B5:
		r.B5 = v
	case sentinel.B6:
		r.B6 = v
	case sentinel.B7:
		r.B7 = v
	case sentinel.B8:
		r.B8 = v
	case sentinel.B8A:
		r.B8A = v
	case sentinel.B11:
		r.B11 = v
	case sentinel.B12:
		r.B12 = v
	}
}

// Definition is one entry of the formula table.
type Definition struct {
	Index    Index
	Bands    []sentinel.BandID
	Formula  func(Reflectance) float64
	LongName string
	Category Category
}

// Lookup returns the definition of i. Each call returns a fresh Bands slice.
func Lookup(i Index) Definition {
	switch i {
	case NDVI:
		return Definition{i, bands(sentinel.B4, sentinel.B8), ndvi, "Normalized Difference Vegetation Index", Vegetation}
	case EVI:
		return Definition{i, bands(sentinel.B2, sentinel.B4, sentinel.B8), evi, "Enhanced Vegetation Index", Vegetation}
	case SAVI:
		return Definition{i, bands(sentinel.B4, sentinel.B8), savi, "Soil Adjusted Vegetation Index", Vegetation}
	case GNDVI:
		return Definition{i, bands(sentinel.B3, sentinel.B8), gndvi, "Green Normalized Difference Vegetation Index", Vegetation}
	case NDRE:
		return Definition{i, bands(sentinel.B5, sentinel.B8), ndre, "Normalized Difference Red Edge", Vegetation}
	case NDWI:
		return Definition{i, bands(sentinel.B3, sentinel.B8), ndwi, "Normalized Difference Water Index", Water}
	case MNDWI:
		return Definition{i, bands(sentinel.B3, sentinel.B11), mndwi, "Modified Normalized Difference Water Index", Water}
	case NDMI:
		return Definition{i, bands(sentinel.B8, sentinel.B11), ndmi, "Normalized Difference Moisture Index", Water}
	case NDBI:
		return Definition{i, bands(sentinel.B8, sentinel.B11), ndbi, "Normalized Difference Built-up Index", Urban}
	case BSI:
		return Definition{i, bands(sentinel.B2, sentinel.B4, sentinel.B8, sentinel.B11), bsi, "Bare Soil Index", Urban}
	case UI:
		return Definition{i, bands(sentinel.B8, sentinel.B12), ui, "Urban Index", Urban}
	case NBR:
		return Definition{i, bands(sentinel.B8, sentinel.B12), nbr, "Normalized Burn Ratio", Fire}
	case NBR2:
		return Definition{i, bands(sentinel.B11, sentinel.B12), nbr2, "Normalized Burn Ratio 2", Fire}
	case BAIS2:
		return Definition{i, bands(sentinel.B4, sentinel.B6, sentinel.B7, sentinel.B8A, sentinel.B12), bais2, "Burned Area Index for Sentinel-2", Fire}
	case NDSI:
		return Definition{i, bands(sentinel.B3, sentinel.B11), ndsi, "Normalized Difference Snow Index", Snow}
	case S2WI:
		return Definition{i, bands(sentinel.B8, sentinel.B12), s2wi, "Sentinel-2 Water Index", Water}
	}
	panic("index: no definition for " + i.String())
}

func bands(ids ...sentinel.BandID) []sentinel.BandID { return ids }

func normalizedDifference(a, b float64) float64 {
	return (a - b) / (a + b + Epsilon)
}

func ndvi(r Reflectance) float64  { return normalizedDifference(r.B8, r.B4) }
func gndvi(r Reflectance) float64 { return normalizedDifference(r.B8, r.B3) }
func ndre(r Reflectance) float64  { return normalizedDifference(r.B8, r.B5) }
func ndwi(r Reflectance) float64  { return normalizedDifference(r.B3, r.B8) }
func mndwi(r Reflectance) float64 { return normalizedDifference(r.B3, r.B11) }
func ndmi(r Reflectance) float64  { return normalizedDifference(r.B8, r.B11) }
func ndbi(r Reflectance) float64  { return normalizedDifference(r.B11, r.B8) }
func ui(r Reflectance) float64    { return normalizedDifference(r.B12, r.B8) }
func nbr(r Reflectance) float64   { return normalizedDifference(r.B8, r.B12) }
func nbr2(r Reflectance) float64  { return normalizedDifference(r.B11, r.B12) }
func ndsi(r Reflectance) float64  { return normalizedDifference(r.B3, r.B11) }
func s2wi(r Reflectance) float64  { return normalizedDifference(r.B8, r.B12) }

func evi(r Reflectance) float64 {
	return 2.5 * (r.B8 - r.B4) / (r.B8 + 6*r.B4 - 7.5*r.B2 + 1 + Epsilon)
}

func savi(r Reflectance) float64 {
	return 1.5 * (r.B8 - r.B4) / (r.B8 + r.B4 + 0.5 + Epsilon)
}

func bsi(r Reflectance) float64 {
	return normalizedDifference(r.B11+r.B4, r.B8+r.B2)
}

// bais2 clamps both radicands at zero; negative reflectance is out of domain.
func bais2(r Reflectance) float64 {
	red := 1 - math.Sqrt(math.Max(0, r.B6*r.B7*r.B8A/(r.B4+Epsilon)))
	swir := (r.B12-r.B8A)/(math.Sqrt(math.Max(0, r.B12+r.B8A))+1+Epsilon) + 1
	return red * swir
}
