package raster

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Crop clips the stack to the bounding box of boundary, snapped
// outward to the source cell lattice, and masks every cell whose
// center falls strictly outside the polygon to no-data. The boundary
// must already be in the stack's CRS. Band order and names carry over.
func Crop(s *Stack, boundary geom.Polygonal) (*Stack, error) {
	ref := s.Bands[0]
	bb := boundary.Bounds()
	if !bb.Overlaps(ref.Bounds()) {
		return nil, eris.New("raster: boundary does not intersect the scene")
	}

	col0 := int(math.Floor((bb.Min.X - ref.West) / ref.Dx))
	col1 := int(math.Ceil((bb.Max.X - ref.West) / ref.Dx))
	row0 := int(math.Floor((ref.North - bb.Max.Y) / ref.Dy))
	row1 := int(math.Ceil((ref.North - bb.Min.Y) / ref.Dy))
	col0 = clamp(col0, 0, ref.W)
	col1 = clamp(col1, 0, ref.W)
	row0 = clamp(row0, 0, ref.H)
	row1 = clamp(row1, 0, ref.H)
	w, h := col1-col0, row1-row0
	if w <= 0 || h <= 0 {
		return nil, eris.New("raster: boundary does not cover any whole cell")
	}

	west := ref.West + float64(col0)*ref.Dx
	north := ref.North - float64(row0)*ref.Dy

	// The mask is shared across bands: one containment test per cell.
	inside := make([]bool, w*h)
	var kept int
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			x, y := ref.CellCenter(row0+r, col0+c)
			if (geom.Point{X: x, Y: y}).Within(boundary) != geom.Outside {
				inside[r*w+c] = true
				kept++
			}
		}
	}

	out := &Stack{
		Bands:      make([]*Grid, len(s.Bands)),
		Names:      append([]string(nil), s.Names...),
		Proj4:      s.Proj4,
		SR:         s.SR,
		Normalized: s.Normalized,
	}
	for i, b := range s.Bands {
		g := NewGrid(w, h, west, north, ref.Dx, ref.Dy)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				if inside[r*w+c] {
					g.Set(r, c, b.At(row0+r, col0+c))
				}
			}
		}
		out.Bands[i] = g
	}

	zap.L().Info("raster: cropped to boundary",
		zap.Int("w", w),
		zap.Int("h", h),
		zap.Int("cells_inside", kept),
		zap.Int("cells_masked", w*h-kept),
	)
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
