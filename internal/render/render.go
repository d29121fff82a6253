// Package render draws the classified raster as a thematic map image
// with a legend, scale bar, and north arrow.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/grangerlab/landcover/internal/classify"
)

const (
	legendRowH   = 18
	legendSwatch = 12
	marginPx     = 8
	minMapPx     = 256
)

var (
	legendBG = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	inkColor = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
)

// WritePNG renders the classified raster to a PNG at path. Cells are
// colored by class through the palette, no-data left transparent; a
// white footer carries the legend, a scale bar in map units, and a
// north arrow. Small rasters are scaled up by an integer factor so the
// map stays legible.
func WritePNG(res *classify.Result, pal Palette, path string) error {
	if res.W <= 0 || res.H <= 0 {
		return eris.New("render: empty classified raster")
	}

	zoom := 1
	if res.W < minMapPx && res.H < minMapPx {
		zoom = minMapPx / max(res.W, res.H)
		if zoom < 1 {
			zoom = 1
		}
	}
	mapW, mapH := res.W*zoom, res.H*zoom
	footerH := legendRowH*len(res.Classes) + 2*marginPx + legendRowH // legend rows + scale bar row

	img := image.NewNRGBA(image.Rect(0, 0, mapW, mapH+footerH))

	// Classified cells.
	for row := 0; row < res.H; row++ {
		for col := 0; col < res.W; col++ {
			code := res.Codes[row*res.W+col]
			if code == 0 {
				continue
			}
			c := pal.colorFor(res.Classes[code-1], code-1)
			for dy := 0; dy < zoom; dy++ {
				for dx := 0; dx < zoom; dx++ {
					img.SetNRGBA(col*zoom+dx, row*zoom+dy, c)
				}
			}
		}
	}

	// Footer background.
	draw.Draw(img, image.Rect(0, mapH, mapW, mapH+footerH), image.NewUniform(legendBG), image.Point{}, draw.Src)

	// Legend: one swatch+label per class.
	for i, label := range res.Classes {
		y := mapH + marginPx + i*legendRowH
		swatch := image.Rect(marginPx, y, marginPx+legendSwatch, y+legendSwatch)
		draw.Draw(img, swatch, image.NewUniform(pal.colorFor(label, i)), image.Point{}, draw.Src)
		drawText(img, marginPx+legendSwatch+6, y+legendSwatch-2, label)
	}

	// Scale bar sized to a round number of map units.
	barY := mapH + footerH - marginPx - 4
	barLen, barPx := scaleBar(res.Dx/float64(zoom), mapW/3)
	draw.Draw(img, image.Rect(marginPx, barY, marginPx+barPx, barY+3), image.NewUniform(inkColor), image.Point{}, draw.Src)
	drawText(img, marginPx, barY-4, strconv.FormatFloat(barLen, 'f', -1, 64)+" map units")

	// North arrow in the footer's right corner.
	drawNorthArrow(img, mapW-marginPx-10, mapH+footerH-marginPx)

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		return eris.Wrapf(err, "render: encode %s", path)
	}

	zap.L().Info("render: map written",
		zap.String("path", path),
		zap.Int("w", mapW),
		zap.Int("h", mapH+footerH),
		zap.Int("zoom", zoom),
	)
	return nil
}

// scaleBar picks the largest power-of-ten length in map units whose
// pixel width fits maxPx, returning the length and its pixel width.
func scaleBar(unitsPerPx float64, maxPx int) (units float64, px int) {
	maxUnits := unitsPerPx * float64(maxPx)
	units = math.Pow(10, math.Floor(math.Log10(maxUnits)))
	px = int(units / unitsPerPx)
	if px < 1 {
		px = 1
	}
	return units, px
}

func drawText(img *image.NRGBA, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(inkColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawNorthArrow draws a small upward triangle with an N above it,
// anchored at its bottom-center.
func drawNorthArrow(img *image.NRGBA, cx, baseY int) {
	h := 12
	for dy := 0; dy < h; dy++ {
		half := dy * 5 / h
		y := baseY - h + dy
		for dx := -half; dx <= half; dx++ {
			img.SetNRGBA(cx+dx, y, inkColor)
		}
	}
	drawText(img, cx-3, baseY-h-3, "N")
}
