package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleBandStack(t *testing.T, vals []float64) *Stack {
	t.Helper()
	g := NewGrid(len(vals), 1, 0, 10, 10, 10)
	copy(g.Data, vals)
	s, err := NewStack([]*Grid{g}, []string{"red"}, testProj)
	require.NoError(t, err)
	return s
}

func TestNormalizeRangeBounds(t *testing.T) {
	tests := []struct {
		name   string
		dn     float64
		voided bool
	}{
		{name: "below valid minimum", dn: 7272, voided: true},
		{name: "at valid minimum", dn: 7273, voided: false},
		{name: "at valid maximum", dn: 43636, voided: false},
		{name: "above valid maximum", dn: 43637, voided: true},
		{name: "zero fill value", dn: 0, voided: true},
		{name: "saturated sensor value", dn: 65535, voided: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := singleBandStack(t, []float64{tt.dn})
			out, err := Normalize(s, DefaultNormalizeOptions())
			require.NoError(t, err)

			got := out.Bands[0].At(0, 0)
			if tt.voided {
				assert.True(t, IsNoData(got))
			} else {
				assert.Equal(t, (tt.dn*DefaultScale+DefaultOffset)*100, got)
			}
		})
	}
}

func TestNormalizeRescaleFormula(t *testing.T) {
	s := singleBandStack(t, []float64{7273, 10000, 43636})
	out, err := Normalize(s, DefaultNormalizeOptions())
	require.NoError(t, err)

	b := out.Bands[0]
	assert.InDelta(t, 0.00075, b.At(0, 0), 1e-9)
	assert.InDelta(t, 7.5, b.At(0, 1), 1e-9)
	assert.InDelta(t, 99.999, b.At(0, 2), 1e-9)
}

func TestNormalizeNoDataPassthrough(t *testing.T) {
	s := singleBandStack(t, []float64{math.NaN(), 10000})
	out, err := Normalize(s, DefaultNormalizeOptions())
	require.NoError(t, err)

	assert.True(t, IsNoData(out.Bands[0].At(0, 0)))
	assert.False(t, IsNoData(out.Bands[0].At(0, 1)))

	// Input stack is untouched.
	assert.Equal(t, 10000.0, s.Bands[0].At(0, 1))
}

func TestNormalizeRejectsSecondPass(t *testing.T) {
	s := singleBandStack(t, []float64{10000})
	out, err := Normalize(s, DefaultNormalizeOptions())
	require.NoError(t, err)

	_, err = Normalize(out, DefaultNormalizeOptions())
	require.Error(t, err)
}

func TestNormalizeSecondPassWouldVoidEverything(t *testing.T) {
	// Percent-reflectance values all fall below the raw DN floor, so a
	// stack mislabeled as raw comes back entirely no-data.
	s := singleBandStack(t, []float64{7.5, 62.5, 99.9})
	out, err := Normalize(s, DefaultNormalizeOptions())
	require.NoError(t, err)
	for _, v := range out.Bands[0].Data {
		assert.True(t, IsNoData(v))
	}
}

func TestNormalizeInvalidRange(t *testing.T) {
	s := singleBandStack(t, []float64{10000})
	_, err := Normalize(s, NormalizeOptions{ValidMin: 100, ValidMax: 50, Scale: 1, Offset: 0})
	require.Error(t, err)
}
