package main

import (
	"fmt"
	"os"

	"github.com/forest-guardian/invisterra/internal/delivery"
	"github.com/forest-guardian/invisterra/internal/notification"
	"github.com/forest-guardian/invisterra/internal/scale"
	"github.com/forest-guardian/invisterra/internal/ui"
	"github.com/spf13/cobra"
)

type analyzeFlags struct {
	bands        []string
	index        string
	palette      string
	reverse      bool
	title        string
	noLegend     bool
	noNorthArrow bool
	noScaleBar   bool
	scaleMode    string
	mpp          float64
	barPercent   float64
	percentiles  []float64
	width        int
	vector       string
	strict       bool
	out          string
}

func analyzeCommand(notifier *notification.Discord) *cobra.Command {
	flags := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze --bands DIR|FILE... --index NAME",
		Short: "Compute a spectral index from band files and export the results",
		Long: `Compute a spectral index from Sentinel-2 band files.

Band files are matched by the band code in their name (B04, B8A, B11, ...).
The index raster, a rendered map, a statistics report and the raster footprint
are written to the output folder; with --vector the per-feature zonal
statistics are written too. Flags that are not given fall back to the values of
the previous run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			uploads, closeAll, err := flags.uploads()
			if err != nil {
				return err
			}
			defer closeAll()
			vector, err := delivery.ReadVector(flags.vector)
			if err != nil {
				return err
			}

			app := newApp(cmd.Context(), ui.NewConsole(os.Stdin, cmd.OutOrStdout()), notifier)
			_, err = app.Run(cmd.Context(), req, delivery.Inputs{Bands: uploads, Vector: vector})
			return err
		},
	}
	setupAnalyzeFlags(cmd, flags)
	return cmd
}

func setupAnalyzeFlags(cmd *cobra.Command, f *analyzeFlags) {
	cmd.Flags().StringSliceVarP(&f.bands, "bands", "b", nil, "Folder with band files, or a list of band files")
	cmd.Flags().StringVarP(&f.index, "index", "i", "", "Spectral index to compute (see the indices command)")
	cmd.Flags().StringVarP(&f.palette, "palette", "p", "", "Colour palette of the map")
	cmd.Flags().BoolVar(&f.reverse, "reverse", false, "Reverse the colour palette")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Map title")
	cmd.Flags().BoolVar(&f.noLegend, "no-legend", false, "Hide the colour legend")
	cmd.Flags().BoolVar(&f.noNorthArrow, "no-north-arrow", false, "Hide the north arrow")
	cmd.Flags().BoolVar(&f.noScaleBar, "no-scale-bar", false, "Hide the scale bar")
	cmd.Flags().StringVar(&f.scaleMode, "scale-mode", "", "Ground resolution source: auto or manual")
	cmd.Flags().Float64Var(&f.mpp, "mpp", 0, "Meters per pixel, used in manual mode or when the raster is not projected")
	cmd.Flags().Float64Var(&f.barPercent, "bar-percent", 0, "Scale bar width in percent of the legend, 50 to 100")
	cmd.Flags().Float64SliceVar(&f.percentiles, "percentiles", nil, "Extra percentiles for the report, e.g. 10,90")
	cmd.Flags().IntVar(&f.width, "width", 0, "Figure width in pixels")
	cmd.Flags().StringVar(&f.vector, "vector", "", "GeoJSON polygon layer for zonal statistics")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail when two files resolve to the same band")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output folder")
	_ = cmd.MarkFlagRequired("bands")
}

// request starts from the remembered settings and applies the flags that
// were set on the command line.
func (f *analyzeFlags) request(cmd *cobra.Command) (delivery.Request, error) {
	req := delivery.NewSettingsStore().Defaults(f.index)
	if req.Index == "" {
		return req, fmt.Errorf("--index is required on the first run")
	}
	changed := cmd.Flags().Changed

	if changed("palette") {
		req.Palette = f.palette
	}
	if changed("reverse") {
		req.Reverse = f.reverse
	}
	req.Title = f.title
	if req.Title == "" {
		req.Title = req.Index + " Analysis"
	}
	if changed("no-legend") {
		req.ShowLegend = !f.noLegend
	}
	if changed("no-north-arrow") {
		req.ShowNorthArrow = !f.noNorthArrow
	}
	if changed("no-scale-bar") {
		req.ShowScaleBar = !f.noScaleBar
	}
	if changed("scale-mode") {
		mode, err := scale.ParseMode(f.scaleMode)
		if err != nil {
			return req, err
		}
		req.ScaleMode = mode
	}
	if changed("mpp") {
		req.MetersPerPixel = f.mpp
	}
	if changed("bar-percent") {
		req.BarPercent = f.barPercent
	}
	if changed("percentiles") {
		req.Percentiles = f.percentiles
	}
	if changed("width") {
		req.FigureWidth = f.width
	}
	if changed("out") {
		req.OutputDir = f.out
	}
	req.Strict = f.strict
	return req, req.Validate()
}

// uploads opens a single folder argument as a folder of bands, anything
// else as a list of files.
func (f *analyzeFlags) uploads() ([]delivery.Upload, func(), error) {
	if len(f.bands) == 1 {
		if info, err := os.Stat(f.bands[0]); err == nil && info.IsDir() {
			uploads, closeAll, err := delivery.FolderUploads(f.bands[0])
			if err == nil && len(uploads) == 0 {
				closeAll()
				return nil, func() {}, fmt.Errorf("no raster files found in %s", f.bands[0])
			}
			return uploads, closeAll, err
		}
	}
	return delivery.FileUploads(f.bands)
}
