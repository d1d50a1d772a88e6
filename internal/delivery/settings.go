package delivery

import (
	"github.com/forest-guardian/invisterra/internal/cache"
	"github.com/forest-guardian/invisterra/internal/scale"
)

const settingsKey = "last_run"

// Settings are the user-facing choices remembered from the last successful
// run and offered as defaults for the next one.
type Settings struct {
	Index          string     `json:"index"`
	Palette        string     `json:"palette"`
	Reverse        bool       `json:"reverse"`
	ShowScaleBar   bool       `json:"show_scale_bar"`
	ShowNorthArrow bool       `json:"show_north_arrow"`
	ShowLegend     bool       `json:"show_legend"`
	ScaleMode      scale.Mode `json:"scale_mode"`
	MetersPerPixel float64    `json:"meters_per_pixel"`
	BarPercent     float64    `json:"bar_percent"`
	Percentiles    []float64  `json:"percentiles,omitempty"`
}

func SettingsFromRequest(r Request) Settings {
	return Settings{
		Index:          r.Index,
		Palette:        r.Palette,
		Reverse:        r.Reverse,
		ShowScaleBar:   r.ShowScaleBar,
		ShowNorthArrow: r.ShowNorthArrow,
		ShowLegend:     r.ShowLegend,
		ScaleMode:      r.ScaleMode,
		MetersPerPixel: r.MetersPerPixel,
		BarPercent:     r.BarPercent,
		Percentiles:    append([]float64(nil), r.Percentiles...),
	}
}

// Apply copies the remembered choices onto a request. The title, output
// directory and strictness are per run and left untouched.
func (s Settings) Apply(r Request) Request {
	r.Index = s.Index
	r.Palette = s.Palette
	r.Reverse = s.Reverse
	r.ShowScaleBar = s.ShowScaleBar
	r.ShowNorthArrow = s.ShowNorthArrow
	r.ShowLegend = s.ShowLegend
	r.ScaleMode = s.ScaleMode
	r.MetersPerPixel = s.MetersPerPixel
	r.BarPercent = s.BarPercent
	r.Percentiles = append([]float64(nil), s.Percentiles...)
	return r
}

type SettingsStore struct {
	cache cache.CacheService[Settings]
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{cache: cache.NewFileCache[Settings]("settings")}
}

func NewSettingsStoreWith(c cache.CacheService[Settings]) *SettingsStore {
	return &SettingsStore{cache: c}
}

// Defaults returns the configured request for idx with the remembered
// settings applied when they still validate.
func (s *SettingsStore) Defaults(idx string) Request {
	req := NewRequest(idx)
	saved, ok := s.cache.Get(settingsKey)
	if !ok {
		return req
	}
	remembered := saved.Apply(req)
	if idx != "" {
		remembered.Index = idx
	}
	if remembered.Index == "" || remembered.Validate() != nil {
		return req
	}
	return remembered
}

func (s *SettingsStore) Remember(r Request) error {
	return s.cache.Set(settingsKey, SettingsFromRequest(r))
}
