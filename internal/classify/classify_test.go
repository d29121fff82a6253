package classify

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grangerlab/landcover/internal/raster"
	"github.com/grangerlab/landcover/internal/tree"
)

const testProj = "+proj=longlat +datum=WGS84 +no_defs"

// fixture builds a 4x2 two-band stack and a model trained to call low
// red "water" and high red "vegetation". Cell (1, 3) is no-data.
func fixture(t *testing.T) (*tree.Model, *raster.Stack) {
	t.Helper()

	red := raster.NewGrid(4, 2, 0, 20, 10, 10)
	nir := raster.NewGrid(4, 2, 0, 20, 10, 10)
	for row := 0; row < 2; row++ {
		for col := 0; col < 4; col++ {
			if col < 2 {
				red.Set(row, col, 2.5)
				nir.Set(row, col, 1.0)
			} else {
				red.Set(row, col, 62.0)
				nir.Set(row, col, 41.0)
			}
		}
	}
	red.Set(1, 3, math.NaN())

	s, err := raster.NewStack([]*raster.Grid{red, nir}, []string{"red", "nir"}, testProj)
	require.NoError(t, err)

	m, err := tree.Train(
		[][]float64{{2.0, 1.0}, {3.0, 1.2}, {60.0, 40.0}, {65.0, 42.0}},
		[]string{"water", "water", "vegetation", "vegetation"},
		[]string{"red", "nir"},
		tree.DefaultOptions(),
	)
	require.NoError(t, err)
	return m, s
}

func TestApply(t *testing.T) {
	m, s := fixture(t)

	r, err := Apply(context.Background(), m, s, 2)
	require.NoError(t, err)

	require.Equal(t, []string{"vegetation", "water"}, r.Classes)
	// Classes are sorted, so water = code 2, vegetation = code 1; the
	// no-data cell stays 0.
	assert.Equal(t, []int{2, 2, 1, 1, 2, 2, 1, 0}, r.Codes)

	assert.Equal(t, "water", r.Label(2))
	assert.Equal(t, "vegetation", r.Label(1))
	assert.Equal(t, "", r.Label(0))
	assert.Equal(t, 100.0, r.CellArea())
}

func TestApplyWorkerCountInvariant(t *testing.T) {
	m, s := fixture(t)

	base, err := Apply(context.Background(), m, s, 1)
	require.NoError(t, err)
	for _, workers := range []int{2, 3, 8} {
		r, err := Apply(context.Background(), m, s, workers)
		require.NoError(t, err)
		assert.Equal(t, base.Codes, r.Codes, "workers=%d", workers)
	}
}

func TestApplyBandCountMismatch(t *testing.T) {
	m, s := fixture(t)
	s.Bands = s.Bands[:1]
	s.Names = s.Names[:1]

	_, err := Apply(context.Background(), m, s, 1)
	require.Error(t, err)
}

func TestApplyBandOrderMismatch(t *testing.T) {
	m, s := fixture(t)
	// Same band count, different names: the stack was loaded with a
	// band order the model was not fitted on.
	s.Names = []string{"nir", "red"}

	_, err := Apply(context.Background(), m, s, 1)
	require.Error(t, err)
}

func TestApplyCanceledContext(t *testing.T) {
	m, s := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Apply(ctx, m, s, 2)
	require.Error(t, err)
}

func TestGridRoundTrip(t *testing.T) {
	m, s := fixture(t)
	r, err := Apply(context.Background(), m, s, 1)
	require.NoError(t, err)

	back, err := FromGrid(r.ToGrid(), r.Classes, r.Proj4)
	require.NoError(t, err)
	assert.Equal(t, r.Codes, back.Codes)
	assert.Equal(t, r.Classes, back.Classes)
}

func TestFromGridRejectsNonCodes(t *testing.T) {
	g := raster.NewGrid(2, 1, 0, 10, 10, 10)
	g.Set(0, 0, 1.5)
	_, err := FromGrid(g, []string{"water"}, testProj)
	require.Error(t, err)

	g.Set(0, 0, 3)
	_, err = FromGrid(g, []string{"water"}, testProj)
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	m, s := fixture(t)
	r, err := Apply(context.Background(), m, s, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	gridPath := filepath.Join(dir, "landcover.asc")
	metaPath := filepath.Join(dir, "landcover.json")
	require.NoError(t, r.Save(gridPath, metaPath))

	back, err := Load(gridPath, metaPath)
	require.NoError(t, err)
	assert.Equal(t, r.Codes, back.Codes)
	assert.Equal(t, r.Classes, back.Classes)
	assert.Equal(t, r.Proj4, back.Proj4)
	assert.Equal(t, r.West, back.West)
	assert.Equal(t, r.North, back.North)
}
