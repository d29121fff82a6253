// Package raster provides the in-memory raster model for the
// classification pipeline: single-band grids, multi-band stacks, and
// the crop, mask, and reflectance-normalization operations applied to
// them.
package raster

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
)

// alignEps is the tolerance used when comparing georeferencing between
// bands. Cell sizes and origins coming from different files of the same
// scene can differ by float rounding in the last digits.
const alignEps = 1e-9

// ErrAlignment indicates that two grids do not share the same extent,
// resolution, or shape and therefore cannot be stacked or combined.
var ErrAlignment = eris.New("raster: grids are not spatially aligned")

// NoData returns the marker used for cells with no valid measurement.
func NoData() float64 { return math.NaN() }

// IsNoData reports whether v is the no-data marker.
func IsNoData(v float64) bool { return math.IsNaN(v) }

// Grid is a single-band raster: a row-major float64 array with an
// affine georeference. West and North are the outer edges of the
// top-left cell; Dx and Dy are positive cell sizes in map units.
// No-data cells hold NaN.
type Grid struct {
	W, H  int
	West  float64
	North float64
	Dx    float64
	Dy    float64
	Data  []float64
}

// NewGrid allocates a grid of the given shape with every cell set to
// no-data.
func NewGrid(w, h int, west, north, dx, dy float64) *Grid {
	g := &Grid{
		W:     w,
		H:     h,
		West:  west,
		North: north,
		Dx:    dx,
		Dy:    dy,
		Data:  make([]float64, w*h),
	}
	for i := range g.Data {
		g.Data[i] = math.NaN()
	}
	return g
}

// At returns the value at the given row and column.
func (g *Grid) At(row, col int) float64 { return g.Data[row*g.W+col] }

// Set assigns the value at the given row and column.
func (g *Grid) Set(row, col int, v float64) { g.Data[row*g.W+col] = v }

// CellCenter returns the map coordinates of the center of a cell.
func (g *Grid) CellCenter(row, col int) (x, y float64) {
	x = g.West + (float64(col)+0.5)*g.Dx
	y = g.North - (float64(row)+0.5)*g.Dy
	return x, y
}

// CellBounds returns the map-space rectangle covered by a cell.
func (g *Grid) CellBounds(row, col int) *geom.Bounds {
	x0 := g.West + float64(col)*g.Dx
	y1 := g.North - float64(row)*g.Dy
	return &geom.Bounds{
		Min: geom.Point{X: x0, Y: y1 - g.Dy},
		Max: geom.Point{X: x0 + g.Dx, Y: y1},
	}
}

// Bounds returns the full extent of the grid.
func (g *Grid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.West, Y: g.North - float64(g.H)*g.Dy},
		Max: geom.Point{X: g.West + float64(g.W)*g.Dx, Y: g.North},
	}
}

// CellArea returns the map-unit area of a single cell.
func (g *Grid) CellArea() float64 { return g.Dx * g.Dy }

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Data = make([]float64, len(g.Data))
	copy(out.Data, g.Data)
	return &out
}

// AlignedWith reports whether two grids share shape, origin, and cell
// size within tolerance.
func (g *Grid) AlignedWith(o *Grid) bool {
	return g.W == o.W && g.H == o.H &&
		math.Abs(g.West-o.West) < alignEps &&
		math.Abs(g.North-o.North) < alignEps &&
		math.Abs(g.Dx-o.Dx) < alignEps &&
		math.Abs(g.Dy-o.Dy) < alignEps
}

// Stack is an ordered set of co-registered bands with semantic names
// and a shared coordinate reference system. Normalized records whether
// the DN-to-reflectance transform has already been applied, guarding
// against double application.
type Stack struct {
	Bands      []*Grid
	Names      []string
	Proj4      string
	SR         *proj.SR
	Normalized bool
}

// NewStack builds a stack from co-registered bands, verifying strict
// spatial alignment and parsing the proj4 CRS definition.
func NewStack(bands []*Grid, names []string, proj4 string) (*Stack, error) {
	if len(bands) == 0 {
		return nil, eris.New("raster: stack requires at least one band")
	}
	if len(names) != len(bands) {
		return nil, eris.Errorf("raster: %d band names for %d bands", len(names), len(bands))
	}
	for i, b := range bands[1:] {
		if !bands[0].AlignedWith(b) {
			return nil, eris.Wrapf(ErrAlignment, "band %q does not match band %q", names[i+1], names[0])
		}
	}
	sr, err := proj.Parse(proj4)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: parse projection %q", proj4)
	}
	return &Stack{Bands: bands, Names: names, Proj4: proj4, SR: sr}, nil
}

// W returns the column count shared by all bands.
func (s *Stack) W() int { return s.Bands[0].W }

// H returns the row count shared by all bands.
func (s *Stack) H() int { return s.Bands[0].H }

// Band returns the band with the given name, or nil.
func (s *Stack) Band(name string) *Grid {
	for i, n := range s.Names {
		if n == name {
			return s.Bands[i]
		}
	}
	return nil
}

// Values fills dst with the per-band values at a cell and returns it.
// dst must have length equal to the band count.
func (s *Stack) Values(row, col int, dst []float64) []float64 {
	for i, b := range s.Bands {
		dst[i] = b.At(row, col)
	}
	return dst
}
