package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/forest-guardian/invisterra/internal/properties"
	"github.com/forest-guardian/invisterra/internal/sentinel"
	"github.com/paulmach/orb"
)

// FetchBands downloads Sentinel-2 bands for a bounding box into a folder
// that AnalyzeBands can read.
func (a *App) FetchBands(ctx context.Context) error {
	c := a.console()
	if a.Fetcher == nil {
		return fmt.Errorf("downloads need COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET and COPERNICUS_TOKEN_URL")
	}
	c.Warning("- The area is a lon/lat bounding box: minLon,minLat,maxLon,maxLat.\n" +
		"- The most recent acquisition in the date range is used.")

	raw, err := c.ReadString("Enter the bounding box: ")
	if err != nil {
		return err
	}
	bound, err := ParseBBox(raw)
	if err != nil {
		return err
	}
	from, to, err := c.ReadDateRange()
	if err != nil {
		return err
	}

	names := make([]string, len(sentinel.CanonicalBands))
	for i, b := range sentinel.CanonicalBands {
		names[i] = string(b)
	}
	rawBands, err := c.ReadStringDefault("Enter the bands to download: ", strings.Join(names, ","))
	if err != nil {
		return err
	}
	bands, err := ParseBands(rawBands)
	if err != nil {
		return err
	}

	prefix := "S2_" + to.Format("20060102")
	dir, err := c.ReadStringDefault("Enter the destination folder: ", properties.DataPath()+"/bands/"+prefix)
	if err != nil {
		return err
	}

	paths, err := a.Fetcher.Fetch(ctx, sentinel.BandRequest{Bound: bound, From: from, To: to, Bands: bands}, dir, prefix)
	if err != nil {
		a.notifyError(ctx, err.Error())
		return err
	}
	for _, p := range paths {
		c.Listing("- " + p)
	}
	c.Success(fmt.Sprintf("Downloaded %d bands into %s", len(paths), dir))
	return nil
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box needs 4 comma separated numbers, got %q", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bounding box value %q", p)
		}
		v[i] = f
	}
	b := orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}
	if b.Min.X() >= b.Max.X() || b.Min.Y() >= b.Max.Y() {
		return orb.Bound{}, fmt.Errorf("bounding box minimum must be below its maximum")
	}
	if b.Min.X() < -180 || b.Max.X() > 180 || b.Min.Y() < -90 || b.Max.Y() > 90 {
		return orb.Bound{}, fmt.Errorf("bounding box must be in lon/lat degrees")
	}
	return b, nil
}

// ParseBands parses band codes such as "B04, B8A, 11".
func ParseBands(s string) ([]sentinel.BandID, error) {
	var out []sentinel.BandID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToUpper(part), "B") {
			part = "B" + part
		}
		id, ok := sentinel.Identify(part + "_")
		if !ok {
			return nil, fmt.Errorf("unknown band %q", part)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no bands given")
	}
	return out, nil
}
