package sentinel

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/invisterra/internal/raster"
)

// BandID is a canonical Sentinel-2 band identifier, independent of the
// file name it was uploaded under.
type BandID string

const (
	B2  BandID = "B2"
	B3  BandID = "B3"
	B4  BandID = "B4"
	B5  BandID = "B5"
	B6  BandID = "B6"
	B7  BandID = "B7"
	B8  BandID = "B8"
	B8A BandID = "B8A"
	B11 BandID = "B11"
	B12 BandID = "B12"
)

// CanonicalBands lists every identifier the registry can produce.
var CanonicalBands = []BandID{B2, B3, B4, B5, B6, B7, B8, B8A, B11, B12}

// ProcessAPIName is the band name used by the Copernicus process API.
func (b BandID) ProcessAPIName() string {
	code := strings.TrimPrefix(string(b), "B")
	if len(code) == 1 || code == "8A" {
		code = "0" + code
	}
	return "B" + code
}

type bandRule struct {
	band     BandID
	patterns []string
}

// bandRules is evaluated top to bottom. Three-character codes come first so
// that "B12_" is never read as "B2_" and "B08A" never as "B08".
var bandRules = []bandRule{
	{B8A, []string{"B8A", "B08A"}},
	{B11, []string{"B11"}},
	{B12, []string{"B12"}},
	{B4, []string{"B04", "B4_", "_B4."}},
	{B3, []string{"B03", "B3_", "_B3."}},
	{B2, []string{"B02", "B2_", "_B2."}},
	{B5, []string{"B05", "B5_", "_B5."}},
	{B6, []string{"B06", "B6_", "_B6."}},
	{B7, []string{"B07", "B7_", "_B7."}},
	{B8, []string{"B08", "B8_", "_B8."}},
}

// Identify maps an uploaded file name to its canonical band.
func Identify(filename string) (BandID, bool) {
	name := strings.ToUpper(filepath.Base(filename))
	for _, rule := range bandRules {
		for _, p := range rule.patterns {
			if strings.Contains(name, p) {
				return rule.band, true
			}
		}
	}
	return "", false
}

// BandFile is an uploaded band file and the source its pixels load from.
type BandFile struct {
	Name   string
	Source raster.Source
}

// BandMap is the canonical band map of one analysis run.
type BandMap map[BandID]raster.Source

// Missing returns the ids absent from the map, in the order given.
func (m BandMap) Missing(ids []BandID) []BandID {
	var missing []BandID
	for _, id := range ids {
		if _, ok := m[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Sorted returns the identifiers present, in canonical order.
func (m BandMap) Sorted() []BandID {
	out := make([]BandID, 0, len(m))
	for _, id := range CanonicalBands {
		if _, ok := m[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

type AmbiguousBandError struct {
	Band  BandID
	Files []string
}

func (e *AmbiguousBandError) Error() string {
	return fmt.Sprintf("files %s all resolve to band %s", strings.Join(e.Files, ", "), e.Band)
}

// Duplicate records a file that replaced an earlier one for the same band.
type Duplicate struct {
	Band     BandID
	Replaced string
	Kept     string
}

// BandMapping is the outcome of BuildBandMap.
type BandMapping struct {
	Bands      BandMap
	Unmatched  []string
	Duplicates []Duplicate
}

// BuildBandMap identifies each file and builds the band map. A later file
// resolving to a band already present replaces the earlier one; with strict
// set the collision is returned as *AmbiguousBandError instead.
func BuildBandMap(files []BandFile, strict bool) (*BandMapping, error) {
	mapping := &BandMapping{Bands: BandMap{}}
	names := map[BandID]string{}
	for _, f := range files {
		id, ok := Identify(f.Name)
		if !ok {
			mapping.Unmatched = append(mapping.Unmatched, f.Name)
			continue
		}
		if prev, dup := names[id]; dup {
			if strict {
				return nil, &AmbiguousBandError{Band: id, Files: []string{prev, f.Name}}
			}
			mapping.Duplicates = append(mapping.Duplicates, Duplicate{Band: id, Replaced: prev, Kept: f.Name})
		}
		names[id] = f.Name
		mapping.Bands[id] = f.Source
	}
	return mapping, nil
}
