package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/forest-guardian/invisterra/internal/scale"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/stats"
	"github.com/forest-guardian/invisterra/internal/zonal"
	"github.com/forest-guardian/invisterra/output"
	"github.com/rs/zerolog"
)

// RasterStore opens band files and persists index grids.
type RasterStore interface {
	Open(path string) raster.Source
	WriteIndex(path string, band *raster.Band) error
}

// Upload is one user-supplied file.
type Upload struct {
	Name    string
	Content io.Reader
}

type Inputs struct {
	Bands []Upload
	// Vector is an optional GeoJSON polygon layer for zonal statistics.
	Vector []byte
}

// Exports lists the written artifacts. Zonal is empty when no vector layer
// was supplied.
type Exports struct {
	Raster    string
	Figure    string
	Report    string
	Zonal     string
	Footprint string
}

type Report struct {
	Index          index.Index
	Summary        stats.Summary
	MetersPerPixel float64
	// ScaleFromRaster is true when the ground resolution came from the
	// raster transform rather than the manual value.
	ScaleFromRaster bool
	ScaleLabel      string
	Loaded          []sentinel.BandID
	Unmatched       []string
	Duplicates      []sentinel.Duplicate
	Zonal           []zonal.Record
	Files           Exports
	Elapsed         time.Duration
}

type Analyzer struct {
	Store   RasterStore
	Workers int
	// Progress receives the zonal statistics progress bar when set.
	Progress io.Writer
}

// Analyze runs one analysis from uploaded bands to exported artifacts. The
// steps run in order and the first failure aborts the run; nothing is
// exported unless every step succeeded.
func (a *Analyzer) Analyze(ctx context.Context, req Request, inputs Inputs) (*Report, error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "invisterra-*")
	if err != nil {
		return nil, &IOError{Op: "create", Path: os.TempDir(), Err: err}
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn().Err(err).Str("dir", tmpDir).Msg("Failed to remove temporary files")
		}
	}()

	files, err := a.materialize(tmpDir, inputs.Bands)
	if err != nil {
		return nil, err
	}
	mapping, err := sentinel.BuildBandMap(files, req.Strict)
	if err != nil {
		return nil, err
	}
	for _, d := range mapping.Duplicates {
		logger.Warn().Str("band", string(d.Band)).Str("replaced", d.Replaced).Str("kept", d.Kept).Msg("Duplicate band file")
	}
	if len(mapping.Unmatched) > 0 {
		logger.Info().Strs("files", mapping.Unmatched).Msg("Files without a recognised band code were skipped")
	}
	logger.Info().Int("bands", len(mapping.Bands)).Msg("Band map built")

	res, err := index.Evaluator{Workers: a.Workers}.Evaluate(mapping.Bands, req.Index)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("index", res.Index.String()).Int("width", res.Band.Width).Int("height", res.Band.Height).Msg("Index evaluated")

	report := &Report{
		Index:           res.Index,
		Summary:         stats.Summarize(res.Band.Data, req.Percentiles),
		MetersPerPixel:  scale.MetersPerPixel(res.Band.Metadata, req.ScaleMode, req.MetersPerPixel),
		ScaleFromRaster: scale.Resolved(res.Band.Metadata, req.ScaleMode),
		Loaded:          mapping.Bands.Sorted(),
		Unmatched:       mapping.Unmatched,
		Duplicates:      mapping.Duplicates,
	}

	palette, err := output.LookupPalette(req.Palette, req.Reverse)
	if err != nil {
		return nil, err
	}
	fig, err := output.Render(res, output.RenderOptions{
		Title:          req.Title,
		Palette:        palette,
		ShowLegend:     req.ShowLegend,
		ShowScaleBar:   req.ShowScaleBar,
		ShowNorthArrow: req.ShowNorthArrow,
		ScaleMode:      req.ScaleMode,
		MetersPerPixel: report.MetersPerPixel,
		BarPercent:     req.BarPercent,
		Width:          req.FigureWidth,
	})
	if err != nil {
		return nil, err
	}
	report.ScaleLabel = fig.ScaleLabel

	if len(inputs.Vector) > 0 {
		layer, err := zonal.ParseLayer(inputs.Vector)
		if err != nil {
			return nil, err
		}
		report.Zonal, err = zonal.Aggregate(ctx, res.Band, layer, zonal.Options{Workers: a.Workers, Progress: a.Progress})
		if err != nil {
			return nil, err
		}
		logger.Info().Int("features", len(report.Zonal)).Msg("Zonal statistics computed")
	}

	report.Files, err = a.export(req.OutputDir, res, report, fig)
	if err != nil {
		return nil, err
	}
	report.Elapsed = time.Since(start)
	logger.Info().Str("dir", req.OutputDir).Dur("elapsed", report.Elapsed).Msg("Analysis exported")
	return report, nil
}

// materialize copies each upload into dir. Files are only read when a band
// is evaluated.
func (a *Analyzer) materialize(dir string, uploads []Upload) ([]sentinel.BandFile, error) {
	files := make([]sentinel.BandFile, 0, len(uploads))
	for i, u := range uploads {
		path := filepath.Join(dir, fmt.Sprintf("%03d_%s", i, filepath.Base(u.Name)))
		if err := copyTo(path, u.Content); err != nil {
			return nil, err
		}
		files = append(files, sentinel.BandFile{Name: u.Name, Source: uploadSource{name: u.Name, src: a.Store.Open(path)}})
	}
	return files, nil
}

// uploadSource reports load failures against the uploaded file name.
type uploadSource struct {
	name string
	src  raster.Source
}

func (s uploadSource) Load() (*raster.Band, error) {
	band, err := s.src.Load()
	if err != nil {
		return nil, &IOError{Op: "read", Path: s.name, Err: err}
	}
	return band, nil
}

func copyTo(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

type artifact struct {
	final string
	write func(path string) error
}

// export writes every artifact under a temporary name first and renames
// them once all writes succeeded.
func (a *Analyzer) export(dir string, res *index.Result, report *Report, fig *output.Figure) (Exports, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Exports{}, &IOError{Op: "create", Path: dir, Err: err}
	}
	name := res.Index.String()
	files := Exports{
		Raster:    filepath.Join(dir, name+"_result.tif"),
		Figure:    filepath.Join(dir, name+"_visualization.png"),
		Report:    filepath.Join(dir, name+"_report.txt"),
		Footprint: filepath.Join(dir, name+"_footprint.geojson"),
	}

	artifacts := []artifact{
		{files.Raster, func(path string) error { return a.Store.WriteIndex(path, res.Band) }},
		{files.Figure, writer(fig.EncodePNG)},
		{files.Report, writer(func(w io.Writer) error { return output.WriteReport(w, res.Index, report.Summary) })},
		{files.Footprint, writer(func(w io.Writer) error { return output.WriteFootprint(w, res) })},
	}
	if report.Zonal != nil {
		files.Zonal = filepath.Join(dir, name+"_zonal_stats.csv")
		artifacts = append(artifacts, artifact{files.Zonal, writer(func(w io.Writer) error {
			return output.WriteZonalCSV(w, report.Zonal)
		})})
	}

	var staged []string
	cleanup := func() {
		for _, p := range staged {
			os.Remove(p)
		}
	}
	for _, art := range artifacts {
		tmp := stagingName(art.final)
		staged = append(staged, tmp)
		if err := art.write(tmp); err != nil {
			cleanup()
			return Exports{}, &IOError{Op: "write", Path: art.final, Err: err}
		}
	}
	finals := make([]string, len(artifacts))
	for i, art := range artifacts {
		finals[i] = art.final
	}
	if err := commit(staged, finals); err != nil {
		cleanup()
		return Exports{}, err
	}
	return files, nil
}

// commit renames each staged file to its final name. Files already at a
// final name are set aside first; if any rename fails the finals written so
// far are removed and the set-aside files are put back.
func commit(staged, finals []string) error {
	var renamed []string
	backups := map[string]string{}
	rollback := func() {
		for _, p := range renamed {
			os.Remove(p)
		}
		for final, backup := range backups {
			os.Rename(backup, final)
		}
	}

	for i, final := range finals {
		if info, err := os.Lstat(final); err == nil && info.Mode().IsRegular() {
			backup := backupName(final)
			if err := os.Rename(final, backup); err != nil {
				rollback()
				return &IOError{Op: "rename", Path: final, Err: err}
			}
			backups[final] = backup
		}
		if err := os.Rename(staged[i], final); err != nil {
			rollback()
			return &IOError{Op: "rename", Path: final, Err: err}
		}
		renamed = append(renamed, final)
	}
	for _, backup := range backups {
		os.Remove(backup)
	}
	return nil
}

// stagingName keeps the extension so format drivers still recognise it.
func stagingName(final string) string {
	ext := filepath.Ext(final)
	return final[:len(final)-len(ext)] + ".tmp" + ext
}

func backupName(final string) string {
	ext := filepath.Ext(final)
	return final[:len(final)-len(ext)] + ".prev" + ext
}

func writer(encode func(io.Writer) error) func(string) error {
	return func(path string) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := encode(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}
