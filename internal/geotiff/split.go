package geotiff

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/utils"
)

// SplitBands copies band i+1 of the multi-band raster src to
// dir/<prefix>_<band>.tif for each ids[i] and returns the written paths.
func SplitBands(src string, ids []sentinel.BandID, dir, prefix string) ([]string, error) {
	var paths []string
	err := utils.ExecuteWithMutexErr(func() error {
		register()
		ds, err := godal.Open(src, ignoreWarnings)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", src, err)
		}
		defer ds.Close()

		if n := ds.Structure().NBands; n < len(ids) {
			return fmt.Errorf("%s has %d bands, expected %d", src, n, len(ids))
		}

		for i, id := range ids {
			dst := filepath.Join(dir, fmt.Sprintf("%s_%s.tif", prefix, id.ProcessAPIName()))
			out, err := ds.Translate(dst, []string{"-of", "GTiff", "-b", strconv.Itoa(i + 1), "-co", "COMPRESS=LZW"})
			if err != nil {
				return fmt.Errorf("failed to extract band %s: %w", id, err)
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("failed to flush %s: %w", dst, err)
			}
			paths = append(paths, dst)
		}
		return nil
	})
	return paths, err
}
