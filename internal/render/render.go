// Package render draws a classified severity raster as a PNG map with a
// title and a colour legend.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/robert-malhotra/burn-severity/internal/severity"
)

// DefaultTitle is drawn above the map.
const DefaultTitle = "Burn Severity Map"

// MinSize is the smallest length, in pixels, of the map's longer side.
// Smaller rasters are upscaled with nearest-neighbour sampling.
const MinSize = 600

const (
	margin      = 16
	titleHeight = 28
	swatch      = 14
	legendWidth = 300
	lineHeight  = 22
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

// Palette maps classes to their map colour. Unclassified pixels share the
// high severity colour; codes outside the table are drawn white.
var Palette = map[severity.Class]color.RGBA{
	severity.Water:                {0, 0, 255, 255},     // blue
	severity.EnhancedRegrowthHigh: {255, 0, 0, 255},     // red
	severity.EnhancedRegrowthLow:  {255, 165, 0, 255},   // orange
	severity.Unburned:             {0, 128, 0, 255},     // green
	severity.LowSeverity:          {255, 255, 0, 255},   // yellow
	severity.ModerateLowSeverity:  {165, 42, 42, 255},   // brown
	severity.ModerateHighSeverity: {238, 130, 238, 255}, // violet
	severity.HighSeverity:         {128, 0, 128, 255},   // purple
	severity.Unclassified:         {128, 0, 128, 255},
}

// FileName returns the map image name for a fire between start and end.
func FileName(start, end time.Time) string {
	return fmt.Sprintf("Fire_%s_%s.png", start.Format(time.DateOnly), end.Format(time.DateOnly))
}

// Raster returns the classified codes as a paletted image, one pixel per cell.
func Raster(c *severity.Classified) *image.Paletted {
	pal := color.Palette{white}
	slot := map[severity.Class]uint8{}
	for code := severity.Water; code <= severity.Unclassified; code++ {
		slot[code] = uint8(len(pal))
		pal = append(pal, Palette[code])
	}

	img := image.NewPaletted(image.Rect(0, 0, c.Cols, c.Rows), pal)
	for i, code := range c.Codes {
		if s, ok := slot[severity.Class(code)]; ok {
			img.Pix[(i/c.Cols)*img.Stride+i%c.Cols] = s
		}
	}
	return img
}

// Map draws the full figure: title, scaled raster and legend.
func Map(c *severity.Classified, title string) image.Image {
	src := Raster(c)

	scale := 1
	if longest := max(c.Rows, c.Cols); longest > 0 && longest < MinSize {
		scale = (MinSize + longest - 1) / longest
	}
	mapW, mapH := c.Cols*scale, c.Rows*scale

	legendH := lineHeight * int(severity.HighSeverity)
	width := margin + mapW + margin + legendWidth
	height := titleHeight + max(mapH, legendH) + 2*margin
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)

	mapRect := image.Rect(margin, titleHeight+margin, margin+mapW, titleHeight+margin+mapH)
	draw.NearestNeighbor.Scale(canvas, mapRect, src, src.Bounds(), draw.Src, nil)

	text(canvas, margin, titleHeight-8, title)

	x := mapRect.Max.X + margin
	y := mapRect.Min.Y
	for code := severity.Water; code <= severity.HighSeverity; code++ {
		box := image.Rect(x, y, x+swatch, y+swatch)
		draw.Draw(canvas, box, image.NewUniform(Palette[code]), image.Point{}, draw.Src)
		text(canvas, x+swatch+8, y+swatch-2, code.Label())
		y += lineHeight
	}
	return canvas
}

func text(dst draw.Image, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// WritePNG renders c and writes it to path.
func WritePNG(path string, c *severity.Classified, title string) error {
	if len(c.Codes) != c.Rows*c.Cols || c.Rows == 0 {
		return fmt.Errorf("classified raster is %dx%d with %d codes", c.Rows, c.Cols, len(c.Codes))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, Map(c, title)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
