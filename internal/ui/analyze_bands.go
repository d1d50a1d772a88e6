package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forest-guardian/invisterra/internal/delivery"
	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/notification"
	"github.com/forest-guardian/invisterra/internal/scale"
	"github.com/forest-guardian/invisterra/output"
)

// AnalyzeBands asks for a band folder and the run parameters, runs the
// analysis and remembers the choices for the next run.
func (a *App) AnalyzeBands(ctx context.Context) error {
	c := a.console()
	c.Warning("- Band files are matched by the band code in their name (B04, B8A, B11, ...).\n" +
		"- Files without a band code are skipped.")

	dir, err := c.ReadString("Enter the folder with the band files: ")
	if err != nil {
		return err
	}
	uploads, closeAll, err := delivery.FolderUploads(dir)
	if err != nil {
		return err
	}
	defer closeAll()
	if len(uploads) == 0 {
		return fmt.Errorf("no raster files found in %s", dir)
	}
	c.Listing(fmt.Sprintf("\nFound %d raster files", len(uploads)))

	req, err := a.readRequest(c)
	if err != nil {
		return err
	}

	vectorPath, err := c.ReadString("Enter a GeoJSON file for zonal statistics (empty to skip): ")
	if err != nil {
		return err
	}
	vector, err := delivery.ReadVector(vectorPath)
	if err != nil {
		return err
	}

	_, err = a.Run(ctx, req, delivery.Inputs{Bands: uploads, Vector: vector})
	return err
}

// Run analyzes inputs, prints the report and remembers req as the defaults
// of the next run. Both outcomes are sent to the notifier when one is set.
func (a *App) Run(ctx context.Context, req delivery.Request, inputs delivery.Inputs) (*delivery.Report, error) {
	c := a.console()
	report, err := a.Analyzer.Analyze(ctx, req, inputs)
	if err != nil {
		a.notifyError(ctx, Describe(err))
		return nil, err
	}
	PrintReport(c.out, report)
	c.Success("Successful analysis!")

	if a.Settings != nil {
		if err := a.Settings.Remember(req); err != nil {
			c.Warning("Could not remember the settings: " + err.Error())
		}
	}
	a.notifySuccess(ctx, report)
	return report, nil
}

func (a *App) readRequest(c *Console) (delivery.Request, error) {
	req := delivery.NewRequest("")
	if a.Settings != nil {
		req = a.Settings.Defaults("")
	}

	indices := index.All()
	options := make([]string, len(indices))
	def := 0
	for i, idx := range indices {
		d := index.Lookup(idx)
		options[i] = fmt.Sprintf("%-6s %s (%s)", idx, d.LongName, index.BandsFor(idx))
		if strings.EqualFold(idx.String(), req.Index) {
			def = i
		}
	}
	choice, err := c.Choose("Available indices", options, def)
	if err != nil {
		return req, err
	}
	req.Index = indices[choice].String()

	palettes := output.PaletteNames()
	def = 0
	for i, p := range palettes {
		if strings.EqualFold(p, req.Palette) {
			def = i
		}
	}
	if choice, err = c.Choose("Available palettes", palettes, def); err != nil {
		return req, err
	}
	req.Palette = palettes[choice]

	if req.Reverse, err = c.ReadBool("Reverse the palette? ", req.Reverse); err != nil {
		return req, err
	}
	if req.Title, err = c.ReadStringDefault("Enter the map title: ", req.Index+" Analysis"); err != nil {
		return req, err
	}
	if req.ShowLegend, err = c.ReadBool("Show the colour legend? ", req.ShowLegend); err != nil {
		return req, err
	}
	if req.ShowNorthArrow, err = c.ReadBool("Show the north arrow? ", req.ShowNorthArrow); err != nil {
		return req, err
	}
	if req.ShowScaleBar, err = c.ReadBool("Show the scale bar? ", req.ShowScaleBar); err != nil {
		return req, err
	}

	modes := []string{string(scale.Auto), string(scale.Manual)}
	def = 0
	if req.ScaleMode == scale.Manual {
		def = 1
	}
	if choice, err = c.Choose("Scale mode", modes, def); err != nil {
		return req, err
	}
	req.ScaleMode = scale.Mode(modes[choice])

	prompt := "Enter the meters per pixel: "
	if req.ScaleMode == scale.Auto {
		prompt = "Enter the meters per pixel used when the raster has no projected CRS: "
	}
	if req.MetersPerPixel, err = c.ReadFloat(prompt, 0.01, 100000, req.MetersPerPixel); err != nil {
		return req, err
	}
	if req.ShowScaleBar {
		if req.BarPercent, err = c.ReadFloat("Enter the scale bar width in % of the legend (50-100): ", 50, 100, req.BarPercent); err != nil {
			return req, err
		}
	}

	raw, err := c.ReadStringDefault("Enter percentiles for the report (comma separated): ", formatPercentiles(req.Percentiles))
	if err != nil {
		return req, err
	}
	if req.Percentiles, err = ParsePercentiles(raw); err != nil {
		return req, err
	}
	if req.OutputDir, err = c.ReadStringDefault("Enter the output folder: ", req.OutputDir); err != nil {
		return req, err
	}
	return req, req.Validate()
}

func (a *App) notifyError(ctx context.Context, message string) {
	if a.Notifier == nil {
		return
	}
	if err := a.Notifier.Error(ctx, message); err != nil {
		a.console().Warning("Failed to send notification: " + err.Error())
	}
}

func (a *App) notifySuccess(ctx context.Context, r *delivery.Report) {
	if a.Notifier == nil {
		return
	}
	fields := []notification.DiscordField{
		{Name: "Pixels", Value: fmt.Sprintf("%d", r.Summary.Count), Inline: true},
		{Name: "Output", Value: r.Files.Raster},
	}
	if r.Summary.Count > 0 {
		fields = append(fields, notification.DiscordField{Name: "Mean", Value: fmt.Sprintf("%.4f", r.Summary.Mean), Inline: true})
	}
	if err := a.Notifier.Success(ctx, fmt.Sprintf("%s analysis finished in %s", r.Index, r.Elapsed.Round(time.Millisecond)), fields...); err != nil {
		a.console().Warning("Failed to send notification: " + err.Error())
	}
}
