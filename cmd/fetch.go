package main

import (
	"fmt"
	"time"

	"github.com/forest-guardian/invisterra/internal/notification"
	"github.com/forest-guardian/invisterra/internal/properties"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/forest-guardian/invisterra/internal/ui"
	"github.com/spf13/cobra"
)

type fetchFlags struct {
	bbox       string
	to         string
	days       int
	bands      string
	resolution float64
	out        string
}

func fetchCommand(notifier *notification.Discord) *cobra.Command {
	flags := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch --bbox minLon,minLat,maxLon,maxLat",
		Short: "Download Sentinel-2 L2A bands for an area from Copernicus",
		Long: `Download the most recent Sentinel-2 L2A acquisition of an area.

Each band is written to its own GeoTIFF named after the band code, so the
output folder can be passed straight to the analyze command. Credentials are
read from COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET and
COPERNICUS_TOKEN_URL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			fetcher, err := newFetcher()
			if err != nil {
				return err
			}

			prefix := "S2_" + req.To.Format("20060102")
			dir := flags.out
			if dir == "" {
				dir = properties.DataPath() + "/bands/" + prefix
			}
			paths, err := fetcher.Fetch(cmd.Context(), req, dir, prefix)
			if err != nil {
				if nerr := notifier.Error(cmd.Context(), "Band download failed: "+err.Error()); nerr != nil {
					ui.PrintWarning("Failed to send notification: " + nerr.Error())
				}
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.bbox, "bbox", "", "Area as minLon,minLat,maxLon,maxLat")
	cmd.Flags().StringVar(&flags.to, "to", "", "End date YYYY-MM-DD, defaults to today")
	cmd.Flags().IntVar(&flags.days, "days", 10, "Number of days before the end date to search")
	cmd.Flags().StringVar(&flags.bands, "bands", "", "Bands to download, e.g. B04,B08; defaults to all")
	cmd.Flags().Float64Var(&flags.resolution, "resolution", 10, "Target resolution in meters")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Destination folder")
	_ = cmd.MarkFlagRequired("bbox")
	return cmd
}

func (f *fetchFlags) request() (sentinel.BandRequest, error) {
	bound, err := ui.ParseBBox(f.bbox)
	if err != nil {
		return sentinel.BandRequest{}, err
	}
	to := time.Now().UTC().Truncate(24 * time.Hour)
	if f.to != "" {
		if to, err = time.Parse(time.DateOnly, f.to); err != nil {
			return sentinel.BandRequest{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", f.to)
		}
	}
	if f.days < 1 {
		return sentinel.BandRequest{}, fmt.Errorf("--days must be at least 1")
	}
	bands := sentinel.CanonicalBands
	if f.bands != "" {
		if bands, err = ui.ParseBands(f.bands); err != nil {
			return sentinel.BandRequest{}, err
		}
	}
	return sentinel.BandRequest{
		Bound:      bound,
		From:       to.AddDate(0, 0, -f.days),
		To:         to,
		Bands:      bands,
		Resolution: f.resolution,
	}, nil
}
