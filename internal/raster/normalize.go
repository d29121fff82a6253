package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Landsat Collection 2 Level-2 surface reflectance constants: digital
// numbers outside the valid range carry no measurement, and valid DNs
// convert to percent reflectance with the documented gain and bias.
const (
	DefaultValidMin = 7273
	DefaultValidMax = 43636
	DefaultScale    = 0.0000275
	DefaultOffset   = -0.2
)

// NormalizeOptions configures the DN-to-reflectance conversion.
// ValidMin and ValidMax are inclusive bounds.
type NormalizeOptions struct {
	ValidMin float64
	ValidMax float64
	Scale    float64
	Offset   float64
}

// DefaultNormalizeOptions returns the Landsat Collection 2 constants.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		ValidMin: DefaultValidMin,
		ValidMax: DefaultValidMax,
		Scale:    DefaultScale,
		Offset:   DefaultOffset,
	}
}

// Normalize converts a raw digital-number stack to percent reflectance:
// first values outside [ValidMin, ValidMax] are reclassified to
// no-data, then the remaining values pass through the linear rescale
// (v*Scale + Offset) * 100. No-data cells are never rescaled. The input
// stack is left untouched.
//
// The transform is not safe to re-apply: normalized values no longer
// fall in the raw DN range and a second pass would void every cell, so
// a stack that is already normalized is rejected.
func Normalize(s *Stack, opts NormalizeOptions) (*Stack, error) {
	if s.Normalized {
		return nil, eris.New("raster: stack is already normalized")
	}
	if opts.ValidMin > opts.ValidMax {
		return nil, eris.Errorf("raster: invalid reflectance range [%g, %g]", opts.ValidMin, opts.ValidMax)
	}

	out := &Stack{
		Bands:      make([]*Grid, len(s.Bands)),
		Names:      append([]string(nil), s.Names...),
		Proj4:      s.Proj4,
		SR:         s.SR,
		Normalized: true,
	}
	var voided int
	for i, b := range s.Bands {
		g := b.Clone()
		reclassify(g, opts.ValidMin, opts.ValidMax, &voided)
		rescale(g, opts.Scale, opts.Offset)
		out.Bands[i] = g
	}
	zap.L().Info("raster: normalized to percent reflectance",
		zap.Float64("valid_min", opts.ValidMin),
		zap.Float64("valid_max", opts.ValidMax),
		zap.Int("cells_voided", voided),
	)
	return out, nil
}

// reclassify marks values outside the closed interval [lo, hi] as
// no-data in place.
func reclassify(g *Grid, lo, hi float64, voided *int) {
	for i, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		if v < lo || v > hi {
			g.Data[i] = math.NaN()
			*voided++
		}
	}
}

// rescale applies the linear DN-to-percent-reflectance transform in
// place, passing no-data through untouched.
func rescale(g *Grid, scale, offset float64) {
	for i, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		g.Data[i] = (v*scale + offset) * 100
	}
}
