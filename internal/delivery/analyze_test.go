package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/forest-guardian/invisterra/internal/cache"
	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/raster"
	"github.com/forest-guardian/invisterra/internal/scale"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/zonal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonStore keeps grids as JSON row arrays so the pipeline can run without
// GDAL.
type jsonStore struct {
	mu     sync.Mutex
	opened []string
	loads  int
}

type jsonSource struct {
	store *jsonStore
	path  string
}

func (s *jsonStore) Open(path string) raster.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, path)
	return &jsonSource{store: s, path: path}
}

func (s *jsonStore) WriteIndex(path string, band *raster.Band) error {
	data, err := json.Marshal(band.Data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (src *jsonSource) Load() (*raster.Band, error) {
	src.store.mu.Lock()
	src.store.loads++
	src.store.mu.Unlock()

	raw, err := os.ReadFile(src.path)
	if err != nil {
		return nil, err
	}
	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	gt := raster.GeoTransform{500000, 10, 0, 4600000, 0, -10}
	return raster.FromRows(rows, &gt, &raster.CRS{EPSG: 32633})
}

const plotLayer = `{
  "type": "FeatureCollection",
  "crs": {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::32633"}},
  "features": [
    {"type": "Feature", "properties": {"plot": "north"},
     "geometry": {"type": "Polygon", "coordinates": [[[500000,4599990],[500020,4599990],[500020,4600000],[500000,4600000],[500000,4599990]]]}}
  ]
}`

func upload(name, rows string) Upload {
	return Upload{Name: name, Content: strings.NewReader(rows)}
}

func testRequest(t *testing.T) Request {
	req := NewRequest("ndvi")
	req.Palette = "RdYlGn"
	req.OutputDir = filepath.Join(t.TempDir(), "out")
	req.FigureWidth = 400
	req.Percentiles = []float64{50}
	return req
}

func TestAnalyzeExportsEveryArtifact(t *testing.T) {
	store := &jsonStore{}
	a := &Analyzer{Store: store, Workers: 2}
	req := testRequest(t)

	report, err := a.Analyze(context.Background(), req, Inputs{
		Bands: []Upload{
			upload("T33_B04_10m.tif", "[[0.1, 0.2]]"),
			upload("T33_B08_10m.tif", "[[0.3, 0.4]]"),
			upload("notes.txt", "[[9]]"),
		},
		Vector: []byte(plotLayer),
	})
	require.NoError(t, err)

	assert.Equal(t, index.NDVI, report.Index)
	assert.Equal(t, []sentinel.BandID{sentinel.B4, sentinel.B8}, report.Loaded)
	assert.Equal(t, []string{"notes.txt"}, report.Unmatched)
	assert.Equal(t, 2, report.Summary.Count)
	assert.InDelta(t, (0.5+1.0/3)/2, report.Summary.Mean, 1e-8)
	assert.Equal(t, 10.0, report.MetersPerPixel)
	assert.True(t, report.ScaleFromRaster)
	assert.NotEmpty(t, report.ScaleLabel)

	require.Len(t, report.Zonal, 1)
	assert.Equal(t, 2, report.Zonal[0].Count)
	assert.Equal(t, "north", report.Zonal[0].Properties["plot"])

	for _, path := range []string{report.Files.Raster, report.Files.Figure, report.Files.Report, report.Files.Zonal, report.Files.Footprint} {
		assert.FileExists(t, path)
	}
	assert.Equal(t, filepath.Join(req.OutputDir, "NDVI_zonal_stats.csv"), report.Files.Zonal)

	entries, err := os.ReadDir(req.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	text, err := os.ReadFile(report.Files.Report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(text), "NDVI STATISTICS REPORT\n"))
	assert.Contains(t, string(text), "P50:")

	// uploads only live for the duration of the run
	require.Len(t, store.opened, 3)
	for _, p := range store.opened {
		assert.NoFileExists(t, p)
	}
}

func TestAnalyzeWithoutVectorSkipsZonal(t *testing.T) {
	a := &Analyzer{Store: &jsonStore{}}
	req := testRequest(t)
	req.ScaleMode = scale.Manual
	req.MetersPerPixel = 20

	req.Index = "GNDVI"
	report, err := a.Analyze(context.Background(), req, Inputs{Bands: []Upload{
		upload("B03.tif", "[[0.2]]"),
		upload("B08.tif", "[[0.6]]"),
	}})
	require.NoError(t, err)
	assert.Empty(t, report.Files.Zonal)
	assert.Nil(t, report.Zonal)
	assert.Equal(t, 20.0, report.MetersPerPixel)
	assert.False(t, report.ScaleFromRaster)
}

func TestAnalyzeMissingBandsReadsNothing(t *testing.T) {
	store := &jsonStore{}
	a := &Analyzer{Store: store}
	req := testRequest(t)

	_, err := a.Analyze(context.Background(), req, Inputs{Bands: []Upload{upload("B04.tif", "[[0.1]]")}})
	var missing *index.MissingBandsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []sentinel.BandID{sentinel.B8}, missing.Missing)
	assert.Zero(t, store.loads)
	assert.NoDirExists(t, req.OutputDir)
}

func TestAnalyzeStrictDuplicate(t *testing.T) {
	a := &Analyzer{Store: &jsonStore{}}
	req := testRequest(t)
	req.Strict = true

	_, err := a.Analyze(context.Background(), req, Inputs{Bands: []Upload{
		upload("a_B04.tif", "[[0.1]]"),
		upload("b_B04.tif", "[[0.1]]"),
		upload("B08.tif", "[[0.3]]"),
	}})
	var ambiguous *sentinel.AmbiguousBandError
	assert.True(t, errors.As(err, &ambiguous))
}

func TestAnalyzeZonalFailureExportsNothing(t *testing.T) {
	store := &jsonStore{}
	a := &Analyzer{Store: store}
	req := testRequest(t)

	_, err := a.Analyze(context.Background(), req, Inputs{
		Bands: []Upload{upload("B04.tif", "[[0.1]]"), upload("B08.tif", "[[0.3]]")},
		Vector: []byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
			"geometry":{"type":"Polygon","coordinates":[[[11,46],[11.1,46],[11.1,46.1],[11,46]]]}}]}`),
	})
	var zerr *zonal.Error
	require.True(t, errors.As(err, &zerr))
	assert.NoDirExists(t, req.OutputDir)
	for _, p := range store.opened {
		assert.NoFileExists(t, p)
	}
}

func TestAnalyzeUnwritableOutput(t *testing.T) {
	a := &Analyzer{Store: &jsonStore{}}
	req := testRequest(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))
	req.OutputDir = filepath.Join(blocker, "out")

	_, err := a.Analyze(context.Background(), req, Inputs{Bands: []Upload{
		upload("B04.tif", "[[0.1]]"), upload("B08.tif", "[[0.3]]"),
	}})
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "create", ioErr.Op)
}

func TestAnalyzeUnreadableBand(t *testing.T) {
	a := &Analyzer{Store: &jsonStore{}}
	req := testRequest(t)

	_, err := a.Analyze(context.Background(), req, Inputs{Bands: []Upload{
		upload("B04.tif", "not a raster"), upload("B08.tif", "[[0.3]]"),
	}})
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, "read", ioErr.Op)
	assert.Equal(t, "B04.tif", ioErr.Path)
	assert.NoDirExists(t, req.OutputDir)
}

func stage(t *testing.T, dir string, names ...string) (staged, finals []string) {
	for _, n := range names {
		final := filepath.Join(dir, n)
		tmp := stagingName(final)
		require.NoError(t, os.WriteFile(tmp, []byte("new "+n), 0644))
		staged = append(staged, tmp)
		finals = append(finals, final)
	}
	return staged, finals
}

func TestCommitReplacesExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NDVI_result.tif"), []byte("old"), 0644))
	staged, finals := stage(t, dir, "NDVI_result.tif", "NDVI_report.txt")

	require.NoError(t, commit(staged, finals))

	raw, err := os.ReadFile(finals[0])
	require.NoError(t, err)
	assert.Equal(t, "new NDVI_result.tif", string(raw))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCommitRollsBackWhenARenameFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "NDVI_result.tif"), []byte("old"), 0644))
	// A non-empty directory cannot be replaced by a file.
	blocker := filepath.Join(dir, "NDVI_report.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0755))
	staged, finals := stage(t, dir, "NDVI_result.tif", "NDVI_visualization.png", "NDVI_report.txt")

	err := commit(staged, finals)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "got %v", err)
	assert.Equal(t, "rename", ioErr.Op)
	assert.Equal(t, blocker, ioErr.Path)

	raw, err := os.ReadFile(finals[0])
	require.NoError(t, err)
	assert.Equal(t, "old", string(raw))
	assert.NoFileExists(t, finals[1])
	assert.NoFileExists(t, backupName(finals[0]))
	assert.DirExists(t, blocker)
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	a := &Analyzer{Store: &jsonStore{}}
	req := testRequest(t)
	req.Index = "NDXI"

	_, err := a.Analyze(context.Background(), req, Inputs{})
	var unknown *index.UnknownIndexError
	assert.True(t, errors.As(err, &unknown))
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		ok     bool
	}{
		{"defaults", func(r *Request) {}, true},
		{"unknown palette", func(r *Request) { r.Palette = "jet" }, false},
		{"bad scale mode", func(r *Request) { r.ScaleMode = "meters" }, false},
		{"zero manual scale", func(r *Request) { r.MetersPerPixel = 0 }, false},
		{"bar too short", func(r *Request) { r.BarPercent = 40 }, false},
		{"bar full width", func(r *Request) { r.BarPercent = 100 }, true},
		{"bar too wide", func(r *Request) { r.BarPercent = 101 }, false},
		{"percentile out of range", func(r *Request) { r.Percentiles = []float64{120} }, false},
		{"no output dir", func(r *Request) { r.OutputDir = " " }, false},
		{"tiny figure", func(r *Request) { r.FigureWidth = 100 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(t)
			tt.mutate(&req)
			if tt.ok {
				assert.NoError(t, req.Validate())
			} else {
				assert.Error(t, req.Validate())
			}
		})
	}
}

func TestSettingsStoreRemembersLastRun(t *testing.T) {
	store := NewSettingsStoreWith(cache.NewFileCacheAt[Settings](t.TempDir()))

	first := store.Defaults("NDVI")
	assert.Equal(t, "NDVI", first.Index)
	assert.Equal(t, scale.Auto, first.ScaleMode)

	req := testRequest(t)
	req.Index = "NBR"
	req.Palette = "magma"
	req.Reverse = true
	req.BarPercent = 65
	req.Title = "Burn scar"
	require.NoError(t, store.Remember(req))

	next := store.Defaults("")
	assert.Equal(t, "NBR", next.Index)
	assert.Equal(t, "magma", next.Palette)
	assert.True(t, next.Reverse)
	assert.Equal(t, 65.0, next.BarPercent)
	assert.Empty(t, next.Title)

	assert.Equal(t, "EVI", store.Defaults("EVI").Index)
}
