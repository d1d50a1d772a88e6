package delivery

import (
	"context"
	"os"
	"path/filepath"

	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/rs/zerolog"
)

type Downloader interface {
	RequestBands(ctx context.Context, req sentinel.BandRequest) ([]byte, error)
}

// Splitter writes each band of a multi-band raster to its own file.
type Splitter interface {
	SplitBands(src string, ids []sentinel.BandID, dir, prefix string) ([]string, error)
}

type Fetcher struct {
	Downloader Downloader
	Splitter   Splitter
}

// Fetch downloads the requested bands and stores them in dir as one
// single-band file per band, named so the band registry recognises them.
func (f *Fetcher) Fetch(ctx context.Context, req sentinel.BandRequest, dir, prefix string) ([]string, error) {
	logger := zerolog.Ctx(ctx)
	content, err := f.Downloader.RequestBands(ctx, req)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("bytes", len(content)).Msg("Bands downloaded")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &IOError{Op: "create", Path: dir, Err: err}
	}
	download := filepath.Join(dir, prefix+"_download.tif")
	if err := os.WriteFile(download, content, 0644); err != nil {
		return nil, &IOError{Op: "write", Path: download, Err: err}
	}
	defer os.Remove(download)

	paths, err := f.Splitter.SplitBands(download, req.Bands, dir, prefix)
	if err != nil {
		return nil, err
	}
	logger.Info().Strs("files", paths).Msg("Bands split")
	return paths, nil
}
