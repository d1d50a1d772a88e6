package output

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// paletteStops holds the colour ramps offered for index maps, sampled at
// evenly spaced control points from low to high values.
var paletteStops = map[string][]string{
	"RdYlGn":   {"#a50026", "#d73027", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#d9ef8b", "#a6d96a", "#66bd63", "#1a9850", "#006837"},
	"RdBu":     {"#67001f", "#b2182b", "#d6604d", "#f4a582", "#fddbc7", "#f7f7f7", "#d1e5f0", "#92c5de", "#4393c3", "#2166ac", "#053061"},
	"Spectral": {"#9e0142", "#d53e4f", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#e6f598", "#abdda4", "#66c2a5", "#3288bd", "#5e4fa2"},
	"viridis":  {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"plasma":   {"#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"},
	"inferno":  {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"magma":    {"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"},
	"coolwarm": {"#3b4cc0", "#6f92f3", "#aac7fd", "#dddcdc", "#f7b89c", "#e7745b", "#b40426"},
	"YlOrRd":   {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"PuOr":     {"#7f3b08", "#b35806", "#e08214", "#fdb863", "#fee0b6", "#f7f7f7", "#d8daeb", "#b2abd2", "#8073ac", "#542788", "#2d004b"},
	"BrBG":     {"#543005", "#8c510a", "#bf812d", "#dfc27d", "#f6e8c3", "#f5f5f5", "#c7eae5", "#80cdc1", "#35978f", "#01665e", "#003c30"},
	"Greys":    {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
}

var paletteOrder = []string{"RdYlGn", "RdBu", "Spectral", "viridis", "plasma", "inferno", "magma", "coolwarm", "YlOrRd", "PuOr", "BrBG", "Greys"}

// PaletteNames lists the palettes in menu order.
func PaletteNames() []string {
	return append([]string(nil), paletteOrder...)
}

type Palette struct {
	Name  string
	stops []colorful.Color
}

// LookupPalette resolves a palette by name, case-insensitively.
func LookupPalette(name string, reverse bool) (Palette, error) {
	for _, n := range paletteOrder {
		if !strings.EqualFold(n, strings.TrimSpace(name)) {
			continue
		}
		p := Palette{Name: n}
		for _, hex := range paletteStops[n] {
			c, err := colorful.Hex(hex)
			if err != nil {
				return Palette{}, fmt.Errorf("palette %s: %w", n, err)
			}
			p.stops = append(p.stops, c)
		}
		if reverse {
			p = p.Reversed()
		}
		return p, nil
	}
	return Palette{}, fmt.Errorf("unknown palette %q, available: %s", name, strings.Join(paletteOrder, ", "))
}

func (p Palette) Reversed() Palette {
	stops := make([]colorful.Color, len(p.stops))
	for i, c := range p.stops {
		stops[len(stops)-1-i] = c
	}
	name := p.Name + "_r"
	if strings.HasSuffix(p.Name, "_r") {
		name = strings.TrimSuffix(p.Name, "_r")
	}
	return Palette{Name: name, stops: stops}
}

// At maps t in [0, 1] onto the ramp.
func (p Palette) At(t float64) color.RGBA {
	t = normalize(t, 0, 1)
	pos := t * float64(len(p.stops)-1)
	i := int(math.Floor(pos))
	if i >= len(p.stops)-1 {
		i = len(p.stops) - 2
	}
	c := p.stops[i].BlendRgb(p.stops[i+1], pos-float64(i)).Clamped()
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Value maps an index value on [vmin, vmax] to its colour.
func (p Palette) Value(v, vmin, vmax float64) color.RGBA {
	return p.At(normalize(v, vmin, vmax))
}

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}
