package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/forest-guardian/invisterra/internal/delivery"
	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/zonal"
)

// PrintReport writes the outcome of a run: loaded bands, skipped files,
// summary statistics and exported files.
func PrintReport(w io.Writer, r *delivery.Report) {
	bands := make([]string, len(r.Loaded))
	for i, b := range r.Loaded {
		bands[i] = string(b)
	}
	fmt.Fprintf(w, "%sLoaded bands: %s%s\n", ColorGreen, strings.Join(bands, ", "), ColorReset)
	if len(r.Unmatched) > 0 {
		fmt.Fprintf(w, "%sSkipped files without a band code: %s%s\n", ColorYellow, strings.Join(r.Unmatched, ", "), ColorReset)
	}
	for _, d := range r.Duplicates {
		fmt.Fprintf(w, "%s%s matched twice, using %s instead of %s%s\n", ColorYellow, d.Band, d.Kept, d.Replaced, ColorReset)
	}

	fmt.Fprintf(w, "\n%s%s statistics%s\n", ColorBlue, r.Index, ColorReset)
	if r.Summary.Count == 0 {
		fmt.Fprintf(w, "  no valid pixels\n")
	} else {
		fmt.Fprintf(w, "  mean %.4f  median %.4f  std %.4f\n", r.Summary.Mean, r.Summary.Median, r.Summary.Std)
		fmt.Fprintf(w, "  min %.4f  max %.4f  pixels %d\n", r.Summary.Min, r.Summary.Max, r.Summary.Count)
		for _, p := range r.Summary.Percentiles {
			fmt.Fprintf(w, "  P%g %.4f\n", p.Rank, p.Value)
		}
	}
	source := "manual"
	if r.ScaleFromRaster {
		source = "raster"
	}
	fmt.Fprintf(w, "  scale %.2f m/px (%s)", r.MetersPerPixel, source)
	if r.ScaleLabel != "" {
		fmt.Fprintf(w, ", bar %s", r.ScaleLabel)
	}
	fmt.Fprintln(w)
	if r.Zonal != nil {
		fmt.Fprintf(w, "  zonal statistics for %d features\n", len(r.Zonal))
	}

	fmt.Fprintf(w, "\n%sFiles:%s\n", ColorGreen, ColorReset)
	for _, f := range []string{r.Files.Raster, r.Files.Figure, r.Files.Report, r.Files.Zonal, r.Files.Footprint} {
		if f != "" {
			fmt.Fprintf(w, "%s- %s%s\n", ColorGreen, f, ColorReset)
		}
	}
}

// Describe turns a run failure into a message that tells the user what to
// change.
func Describe(err error) string {
	var (
		unknown   *index.UnknownIndexError
		missing   *index.MissingBandsError
		ambiguous *sentinel.AmbiguousBandError
		zerr      *zonal.Error
		ioErr     *delivery.IOError
	)
	switch {
	case errors.As(err, &unknown):
		names := make([]string, 0, len(index.All()))
		for _, i := range index.All() {
			names = append(names, i.String())
		}
		return fmt.Sprintf("%v. Available indices: %s", err, strings.Join(names, ", "))
	case errors.As(err, &missing):
		return fmt.Sprintf("%v. Add files whose names contain the band code, for example T33TUL_%s_10m.tif",
			err, missing.Missing[0].ProcessAPIName())
	case errors.As(err, &ambiguous):
		return fmt.Sprintf("%v. Keep a single file per band or disable strict matching", err)
	case errors.As(err, &zerr):
		if errors.Is(err, zonal.ErrCRSMismatch) {
			return fmt.Sprintf("%v. Reproject the vector layer to the raster reference first", err)
		}
		return fmt.Sprintf("Zonal statistics failed: %v", err)
	case errors.As(err, &ioErr):
		return fmt.Sprintf("File error: %v", err)
	}
	return err.Error()
}
