package raster

import (
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/image/tiff"
)

// ReadTIFF reads a single-band TIFF image and its ESRI world file
// (.tfw or .wld alongside the image) into a Grid. Rotated rasters are
// rejected; Landsat scenes are north-up.
func ReadTIFF(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: decode %s", path)
	}

	dx, dy, west, north, err := readWorldFile(path)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy(), west, north, dx, dy)
	switch im := img.(type) {
	case *image.Gray16:
		for row := 0; row < g.H; row++ {
			for col := 0; col < g.W; col++ {
				g.Set(row, col, float64(im.Gray16At(b.Min.X+col, b.Min.Y+row).Y))
			}
		}
	case *image.Gray:
		for row := 0; row < g.H; row++ {
			for col := 0; col < g.W; col++ {
				g.Set(row, col, float64(im.GrayAt(b.Min.X+col, b.Min.Y+row).Y))
			}
		}
	default:
		// Multi-sample images take the first channel; single-band scene
		// files should never reach this path.
		for row := 0; row < g.H; row++ {
			for col := 0; col < g.W; col++ {
				r16, _, _, _ := img.At(b.Min.X+col, b.Min.Y+row).RGBA()
				g.Set(row, col, float64(r16))
			}
		}
	}
	return g, nil
}

// readWorldFile locates and parses the six-line affine world file for
// an image. The world file gives the center of the upper-left pixel;
// Grid origins are cell edges.
func readWorldFile(imgPath string) (dx, dy, west, north float64, err error) {
	base := strings.TrimSuffix(imgPath, filepath.Ext(imgPath))
	var raw []byte
	for _, ext := range []string{".tfw", ".wld"} {
		raw, err = os.ReadFile(base + ext)
		if err == nil {
			break
		}
	}
	if raw == nil {
		return 0, 0, 0, 0, eris.Errorf("raster: no world file (.tfw/.wld) for %s", imgPath)
	}

	fields := strings.Fields(string(raw))
	if len(fields) != 6 {
		return 0, 0, 0, 0, eris.Errorf("raster: world file for %s has %d values, want 6", imgPath, len(fields))
	}
	vals := make([]float64, 6)
	for i, s := range fields {
		vals[i], err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, 0, 0, eris.Wrapf(err, "raster: world file for %s", imgPath)
		}
	}
	if vals[1] != 0 || vals[2] != 0 {
		return 0, 0, 0, 0, eris.Errorf("raster: %s: rotated rasters are not supported", imgPath)
	}
	dx = vals[0]
	dy = -vals[3]
	if dx <= 0 || dy <= 0 {
		return 0, 0, 0, 0, eris.Errorf("raster: %s: invalid cell size %g x %g", imgPath, vals[0], vals[3])
	}
	west = vals[4] - dx/2
	north = vals[5] + dy/2
	return dx, dy, west, north, nil
}
