package output

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/invisterra/internal/index"
	"github.com/forest-guardian/invisterra/internal/scale"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
)

// Figure proportions. Every position below is a fraction of the figure,
// measured from the bottom-left corner.
const (
	figureAspect = 14.0 / 20.0

	legendLeft   = 0.01
	legendBottom = 0.01
	legendHeight = 0.20

	colorbarBottom = legendBottom + 0.09
	colorbarHeight = 0.04

	scaleBarBottom = legendBottom + 0.03
	scaleBarHeight = 0.025

	northX    = 0.945
	northY    = 0.92
	northSize = 0.045

	metadataLeft   = 0.72
	metadataBottom = 0.01
	metadataWidth  = 0.27
	metadataHeight = 0.08
)

type RenderOptions struct {
	Title          string
	Palette        Palette
	ShowLegend     bool
	ShowScaleBar   bool
	ShowNorthArrow bool
	ScaleMode      scale.Mode
	MetersPerPixel float64
	// BarPercent is the share (50-100) of the usable legend width taken by
	// the scale bar.
	BarPercent float64
	// Width of the figure in pixels.
	Width int
}

// Figure is a rendered index map.
type Figure struct {
	Image image.Image
	// ScaleLabel is empty when the scale bar is hidden.
	ScaleLabel string
	BarMeters  float64
}

var (
	fontsOnce sync.Once
	boldFont  *truetype.Font
	italic    *truetype.Font
	fontsErr  error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if boldFont, fontsErr = truetype.Parse(gobold.TTF); fontsErr != nil {
			return
		}
		italic, fontsErr = truetype.Parse(goitalic.TTF)
	})
	return fontsErr
}

type canvas struct {
	dc   *gg.Context
	w, h float64
}

func (c canvas) x(fx float64) float64 { return fx * c.w }
func (c canvas) y(fy float64) float64 { return (1 - fy) * c.h }

// pt converts a point size to pixels, keeping text proportional to the
// figure width.
func (c canvas) pt(size float64) float64 { return size * 150 / 72 * c.w / 3000 }

func (c canvas) text(f *truetype.Font, size float64, s string, fx, fy, ax, ay float64) {
	c.dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: c.pt(size)}))
	c.dc.DrawStringAnchored(s, c.x(fx), c.y(fy), ax, ay)
}

// rect draws a filled and outlined rectangle given in figure fractions.
func (c canvas) rect(fx, fy, fw, fh float64, fill color.Color, lineWidth float64) {
	x, y := c.x(fx), c.y(fy+fh)
	w, h := fw*c.w, fh*c.h
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.SetColor(fill)
	c.dc.FillPreserve()
	c.dc.SetColor(color.Black)
	c.dc.SetLineWidth(c.pt(lineWidth))
	c.dc.Stroke()
}

// Render draws the index map with its legend, scale bar, north arrow and
// metadata box.
func Render(res *index.Result, opts RenderOptions) (*Figure, error) {
	band := res.Band
	if band.Width == 0 || band.Height == 0 {
		return nil, fmt.Errorf("cannot render an empty %s grid", res.Index)
	}
	if opts.Width < 200 {
		return nil, fmt.Errorf("figure width %d is too small", opts.Width)
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	width := opts.Width
	height := int(math.Round(float64(width) * figureAspect))
	c := canvas{dc: gg.NewContext(width, height), w: float64(width), h: float64(height)}
	c.dc.SetRGB(1, 1, 1)
	c.dc.Clear()

	c.dc.DrawImage(mapImage(res, opts.Palette, width, height), 0, 0)

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = res.Index.String() + " Analysis"
	}
	c.rect(legendLeft, legendBottom, scale.LegendWidth, legendHeight, color.White, 3)
	c.dc.SetColor(color.Black)
	c.text(boldFont, 20, title, legendLeft+scale.LegendWidth/2, legendBottom+legendHeight-0.02, 0.5, 1)

	if opts.ShowLegend {
		drawColorbar(c, opts.Palette, res.Index)
	}

	fig := &Figure{}
	if opts.ShowScaleBar {
		fraction := scale.BarFraction(opts.BarPercent)
		fig.BarMeters = scale.BarDistance(fraction, band.Width, opts.MetersPerPixel)
		fig.ScaleLabel = scale.FormatDistance(fig.BarMeters)
		drawScaleBar(c, fraction, fig.ScaleLabel)
	}

	if opts.ShowNorthArrow {
		drawNorthArrow(c)
	}

	c.rect(metadataLeft, metadataBottom, metadataWidth, metadataHeight, color.White, 2)
	c.dc.SetColor(color.Black)
	lines := []string{
		"Source: Sentinel-2",
		"CRS: " + band.CRS.Label(),
		fmt.Sprintf("Scale: %.2f m/px (%s)", opts.MetersPerPixel, opts.ScaleMode),
	}
	lineHeight := 0.022
	for i, line := range lines {
		fy := metadataBottom + metadataHeight/2 + lineHeight*(1-float64(i))
		c.text(italic, 10, line, metadataLeft+metadataWidth/2, fy, 0.5, 0.5)
	}

	fig.Image = c.dc.Image()
	return fig, nil
}

// mapImage colours the grid over [-1, 1] and stretches it bilinearly over
// the whole figure. Missing cells stay transparent.
func mapImage(res *index.Result, p Palette, width, height int) image.Image {
	band := res.Band
	src := image.NewNRGBA(image.Rect(0, 0, band.Width, band.Height))
	for y, row := range band.Data {
		for x, v := range row {
			if math.IsNaN(v) {
				continue
			}
			src.Set(x, y, p.Value(v, -1, 1))
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}

func drawColorbar(c canvas, p Palette, idx index.Index) {
	left := legendLeft + scale.LegendPadding
	width := scale.LegendWidth - 2*scale.LegendPadding

	x0, y0 := c.x(left), c.y(colorbarBottom+colorbarHeight)
	w, h := width*c.w, colorbarHeight*c.h
	const steps = 256
	for i := 0; i < steps; i++ {
		c.dc.SetColor(p.At((float64(i) + 0.5) / steps))
		c.dc.DrawRectangle(x0+w*float64(i)/steps, y0, w/steps+1, h)
		c.dc.Fill()
	}
	c.dc.SetColor(color.Black)
	c.dc.SetLineWidth(c.pt(2.5))
	c.dc.DrawRectangle(x0, y0, w, h)
	c.dc.Stroke()

	tickLen := c.pt(6)
	c.dc.SetLineWidth(c.pt(2))
	for _, tick := range []float64{-1, -0.5, 0, 0.5, 1} {
		tx := x0 + w*(tick+1)/2
		c.dc.DrawLine(tx, y0+h, tx, y0+h+tickLen)
		c.dc.Stroke()
		c.dc.SetFontFace(truetype.NewFace(boldFont, &truetype.Options{Size: c.pt(11)}))
		c.dc.DrawStringAnchored(fmt.Sprintf("%.1f", tick), tx, y0+h+tickLen*1.5, 0.5, 1)
	}

	c.text(boldFont, 13, idx.String()+" Value", left+width/2, colorbarBottom+colorbarHeight+0.012, 0.5, 0)
}

func drawScaleBar(c canvas, fraction float64, label string) {
	left := legendLeft + scale.LegendPadding
	half := fraction / 2
	c.rect(left, scaleBarBottom, half, scaleBarHeight, color.Black, 2)
	c.rect(left+half, scaleBarBottom, half, scaleBarHeight, color.White, 2)

	c.dc.SetColor(color.Black)
	labelY := scaleBarBottom - 0.012
	c.text(boldFont, 12, "0", left, labelY, 0, 1)
	c.text(boldFont, 12, label, left+fraction, labelY, 1, 1)
}

// drawNorthArrow draws an upward arrow topped by a circled N in a small box
// at the top-right corner.
func drawNorthArrow(c canvas) {
	boxW, boxH := northSize*c.w, northSize*1.5*c.h
	ox, oy := c.x(northX), c.y(northY)
	at := func(ax, ay float64) (float64, float64) { return ox + ax*boxW, oy - ay*boxH }

	shaft := 0.3 / 2
	head := 0.5 / 2
	points := [][2]float64{
		{0.5 - shaft, 0.1}, {0.5 + shaft, 0.1}, {0.5 + shaft, 0.8},
		{0.5 + head, 0.8}, {0.5, 0.95}, {0.5 - head, 0.8}, {0.5 - shaft, 0.8},
	}
	for i, p := range points {
		x, y := at(p[0], p[1])
		if i == 0 {
			c.dc.MoveTo(x, y)
		} else {
			c.dc.LineTo(x, y)
		}
	}
	c.dc.ClosePath()
	c.dc.SetColor(color.Black)
	c.dc.FillPreserve()
	c.dc.SetColor(color.White)
	c.dc.SetLineWidth(c.pt(3))
	c.dc.Stroke()

	cx, cy := at(0.5, 0.95)
	r := c.pt(26) * 0.8
	c.dc.DrawCircle(cx, cy, r)
	c.dc.SetColor(color.White)
	c.dc.FillPreserve()
	c.dc.SetColor(color.Black)
	c.dc.SetLineWidth(c.pt(2.5))
	c.dc.Stroke()
	c.dc.SetFontFace(truetype.NewFace(boldFont, &truetype.Options{Size: c.pt(26)}))
	c.dc.DrawStringAnchored("N", cx, cy, 0.5, 0.5)
}

// EncodePNG writes the figure as PNG.
func (f *Figure) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, f.Image); err != nil {
		return fmt.Errorf("failed to encode figure: %w", err)
	}
	return nil
}
