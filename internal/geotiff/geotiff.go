package geotiff

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/utils"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

var ignoreWarnings = godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
	if ec == godal.CE_Warning {
		return nil
	}
	return fmt.Errorf("gdal error %d: %s", code, msg)
})

// File is a lazily read single-band raster on disk.
type File struct {
	Path string
}

// Open returns a source reading band 1 of path on Load.
func Open(path string) raster.Source {
	return &File{Path: path}
}

func (f *File) Load() (*raster.Band, error) {
	var band *raster.Band
	err := utils.ExecuteWithMutexErr(func() error {
		var err error
		band, err = read(f.Path)
		return err
	})
	return band, err
}

func read(path string) (*raster.Band, error) {
	register()
	ds, err := godal.Open(path, ignoreWarnings)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return nil, fmt.Errorf("%s has no raster band", path)
	}
	width, height := st.SizeX, st.SizeY

	band := ds.Bands()[0]
	data := make([]float64, width*height)
	if err := band.Read(0, 0, data, width, height); err != nil {
		return nil, fmt.Errorf("failed to read raster data from %s: %w", path, err)
	}
	if nodata, ok := band.NoData(); ok {
		for i, v := range data {
			if v == nodata || math.IsNaN(nodata) && math.IsNaN(v) {
				data[i] = math.NaN()
			}
		}
	}

	meta := raster.Metadata{Width: width, Height: height}
	if gt, err := ds.GeoTransform(); err == nil {
		t := raster.GeoTransform(gt)
		meta.Transform = &t
	}
	if wkt := ds.Projection(); wkt != "" {
		crs, err := crsFromWKT(wkt)
		if err != nil {
			return nil, fmt.Errorf("failed to read spatial reference of %s: %w", path, err)
		}
		meta.CRS = crs
	}

	out := &raster.Band{Data: make([][]float64, height), Metadata: meta}
	for y := range out.Data {
		out.Data[y] = data[y*width : (y+1)*width]
	}
	return out, nil
}

func crsFromWKT(wkt string) (*raster.CRS, error) {
	sr, err := godal.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return nil, err
	}
	defer sr.Close()

	crs := &raster.CRS{WKT: wkt, Geographic: sr.Geographic()}
	if code, err := strconv.Atoi(sr.AuthorityCode("")); err == nil && sr.AuthorityName("") == "EPSG" {
		crs.EPSG = code
	}
	return crs, nil
}

func spatialRef(crs *raster.CRS) (*godal.SpatialRef, error) {
	if crs.EPSG > 0 {
		return godal.NewSpatialRefFromEPSG(crs.EPSG)
	}
	return godal.NewSpatialRefFromWKT(crs.WKT)
}

// WriteIndex writes band as a single-band LZW compressed Float32 GeoTIFF
// with NaN nodata.
func WriteIndex(path string, band *raster.Band) error {
	return utils.ExecuteWithMutexErr(func() error {
		return write(path, band)
	})
}

func write(path string, band *raster.Band) error {
	register()
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, band.Width, band.Height,
		godal.CreationOption("COMPRESS=LZW"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := fill(ds, band); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func fill(ds *godal.Dataset, band *raster.Band) error {
	if band.Transform != nil {
		if err := ds.SetGeoTransform([6]float64(*band.Transform)); err != nil {
			return err
		}
	}
	if band.CRS != nil && (band.CRS.EPSG > 0 || band.CRS.WKT != "") {
		sr, err := spatialRef(band.CRS)
		if err != nil {
			return err
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return err
		}
	}

	out := ds.Bands()[0]
	if err := out.SetNoData(math.NaN()); err != nil {
		return err
	}
	buf := make([]float32, band.Width*band.Height)
	for y, row := range band.Data {
		for x, v := range row {
			buf[y*band.Width+x] = float32(v)
		}
	}
	return out.Write(0, 0, buf, band.Width, band.Height)
}

// Store reads and writes GeoTIFFs for the analysis pipeline.
type Store struct{}

func (Store) Open(path string) raster.Source { return Open(path) }

func (Store) WriteIndex(path string, band *raster.Band) error { return WriteIndex(path, band) }

func (Store) SplitBands(src string, ids []sentinel.BandID, dir, prefix string) ([]string, error) {
	return SplitBands(src, ids, dir, prefix)
}
