// Package classify applies a fitted decision tree to every cell of a
// normalized raster stack, producing a categorical land-cover raster.
package classify

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grangerlab/landcover/internal/raster"
	"github.com/grangerlab/landcover/internal/tree"
)

// Result is the classified raster: one int code per cell, row-major,
// with the same georeferencing as the input stack. Code 0 is no-data;
// code i >= 1 maps to Classes[i-1].
type Result struct {
	Codes   []int
	W, H    int
	West    float64
	North   float64
	Dx, Dy  float64
	Proj4   string
	Classes []string
}

// Label returns the class label for a cell code, or "" for no-data.
func (r *Result) Label(code int) string {
	if code < 1 || code > len(r.Classes) {
		return ""
	}
	return r.Classes[code-1]
}

// CellArea returns the map-unit area of one cell.
func (r *Result) CellArea() float64 { return r.Dx * r.Dy }

// Apply classifies every cell of the stack with the fitted model. A
// cell with any no-data band value stays no-data; all other cells get
// the tree's leaf class. Rows are classified in parallel chunks across
// workers (<= 0 means GOMAXPROCS); cells are independent, so the
// output is bit-identical regardless of worker count.
func Apply(ctx context.Context, m *tree.Model, s *raster.Stack, workers int) (*Result, error) {
	if len(s.Bands) != len(m.Bands) {
		return nil, eris.Errorf("classify: stack has %d bands, model expects %d", len(s.Bands), len(m.Bands))
	}
	for i, name := range m.Bands {
		if s.Names[i] != name {
			return nil, eris.Errorf("classify: band %d is %q, model was fitted on %q", i, s.Names[i], name)
		}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ref := s.Bands[0]
	out := &Result{
		Codes:   make([]int, ref.W*ref.H),
		W:       ref.W,
		H:       ref.H,
		West:    ref.West,
		North:   ref.North,
		Dx:      ref.Dx,
		Dy:      ref.Dy,
		Proj4:   s.Proj4,
		Classes: append([]string(nil), m.Classes...),
	}

	chunk := (ref.H + workers - 1) / workers
	g, gCtx := errgroup.WithContext(ctx)
	for start := 0; start < ref.H; start += chunk {
		start := start
		end := start + chunk
		if end > ref.H {
			end = ref.H
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			vals := make([]float64, len(s.Bands))
			for row := start; row < end; row++ {
				for col := 0; col < ref.W; col++ {
					s.Values(row, col, vals)
					if anyNaN(vals) {
						continue
					}
					out.Codes[row*ref.W+col] = m.PredictIndex(vals) + 1
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "classify: apply model")
	}

	var classified int
	for _, c := range out.Codes {
		if c != 0 {
			classified++
		}
	}
	zap.L().Info("classify: raster classified",
		zap.Int("cells", len(out.Codes)),
		zap.Int("classified", classified),
		zap.Int("nodata", len(out.Codes)-classified),
		zap.Int("workers", workers),
	)
	return out, nil
}

// ToGrid converts the result to a float grid (codes as values, no-data
// as NaN) so it can be written to a standard raster format.
func (r *Result) ToGrid() *raster.Grid {
	g := raster.NewGrid(r.W, r.H, r.West, r.North, r.Dx, r.Dy)
	for i, c := range r.Codes {
		if c != 0 {
			g.Data[i] = float64(c)
		}
	}
	return g
}

// FromGrid rebuilds a Result from a code grid and its class list, the
// inverse of ToGrid for re-rendering stored classifications.
func FromGrid(g *raster.Grid, classes []string, proj4 string) (*Result, error) {
	out := &Result{
		Codes:   make([]int, len(g.Data)),
		W:       g.W,
		H:       g.H,
		West:    g.West,
		North:   g.North,
		Dx:      g.Dx,
		Dy:      g.Dy,
		Proj4:   proj4,
		Classes: append([]string(nil), classes...),
	}
	for i, v := range g.Data {
		if raster.IsNoData(v) {
			continue
		}
		c := int(v)
		if float64(c) != v || c < 1 || c > len(classes) {
			return nil, eris.Errorf("classify: cell %d holds %g, not a class code", i, v)
		}
		out.Codes[i] = c
	}
	return out, nil
}

func anyNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
