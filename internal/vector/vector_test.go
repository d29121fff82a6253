package vector

import (
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProj = "+proj=longlat +datum=WGS84 +no_defs"

// closedRing returns a clockwise shapefile ring over the given box.
func closedRing(minX, minY, maxX, maxY float64) []shp.Point {
	return []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
}

// writePolygons writes a polygon shapefile with one labeled attribute
// column per record. labels may be nil for an attribute-free fixture.
func writePolygons(t *testing.T, path, labelField string, rings [][]shp.Point, labels []string) {
	t.Helper()
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	if labelField != "" {
		w.SetFields([]shp.Field{shp.StringField(labelField, 25)})
	}
	for i, ring := range rings {
		poly := &shp.Polygon{
			Box:       shp.Box{MinX: ring[0].X, MinY: ring[0].Y, MaxX: ring[2].X, MaxY: ring[2].Y},
			NumParts:  1,
			NumPoints: int32(len(ring)),
			Parts:     []int32{0},
			Points:    ring,
		}
		w.Write(poly)
		if labelField != "" {
			w.WriteAttribute(i, 0, labels[i])
		}
	}
	w.Close()
}

func targetSR(t *testing.T) *proj.SR {
	t.Helper()
	sr, err := proj.Parse(testProj)
	require.NoError(t, err)
	return sr
}

func TestLoadBoundarySinglePolygon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "county.shp")
	writePolygons(t, path, "", [][]shp.Point{closedRing(10, 10, 30, 30)}, nil)

	b, err := LoadBoundary(path, testProj, targetSR(t))
	require.NoError(t, err)

	_, isMulti := b.(geom.MultiPolygon)
	assert.False(t, isMulti)

	bb := b.Bounds()
	assert.InDelta(t, 10, bb.Min.X, 1e-9)
	assert.InDelta(t, 10, bb.Min.Y, 1e-9)
	assert.InDelta(t, 30, bb.Max.X, 1e-9)
	assert.InDelta(t, 30, bb.Max.Y, 1e-9)
}

func TestLoadBoundaryMultipleRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "islands.shp")
	writePolygons(t, path, "", [][]shp.Point{
		closedRing(0, 0, 10, 10),
		closedRing(20, 20, 30, 30),
	}, nil)

	b, err := LoadBoundary(path, testProj, targetSR(t))
	require.NoError(t, err)

	mp, isMulti := b.(geom.MultiPolygon)
	require.True(t, isMulti)
	assert.Len(t, mp, 2)
}

func TestLoadBoundaryMissingFile(t *testing.T) {
	_, err := LoadBoundary(filepath.Join(t.TempDir(), "none.shp"), testProj, targetSR(t))
	require.Error(t, err)
}

func TestLoadBoundaryBadProjection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "county.shp")
	writePolygons(t, path, "", [][]shp.Point{closedRing(10, 10, 30, 30)}, nil)

	_, err := LoadBoundary(path, "not a projection", targetSR(t))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrProjection))
}

func TestLoadTrainingSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.shp")
	writePolygons(t, path, "CLASS",
		[][]shp.Point{closedRing(12, 22, 18, 28), closedRing(22, 22, 28, 28)},
		[]string{"water", "vegetation"},
	)

	sites, err := LoadTrainingSites(path, "CLASS", testProj, targetSR(t))
	require.NoError(t, err)
	require.Len(t, sites, 2)

	assert.Equal(t, 0, sites[0].ID)
	assert.Equal(t, "water", sites[0].Label)
	assert.Equal(t, 1, sites[1].ID)
	assert.Equal(t, "vegetation", sites[1].Label)

	bb := sites[0].Geom.Bounds()
	assert.InDelta(t, 12, bb.Min.X, 1e-9)
	assert.InDelta(t, 28, bb.Max.Y, 1e-9)
}

func TestLoadTrainingSitesBlankLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.shp")
	writePolygons(t, path, "CLASS",
		[][]shp.Point{closedRing(12, 22, 18, 28), closedRing(22, 22, 28, 28)},
		[]string{"water", "   "},
	)

	_, err := LoadTrainingSites(path, "CLASS", testProj, targetSR(t))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrJoin))
}

func TestLoadTrainingSitesMissingLabelColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.shp")
	writePolygons(t, path, "NAME",
		[][]shp.Point{closedRing(12, 22, 18, 28)},
		[]string{"site one"},
	)

	_, err := LoadTrainingSites(path, "CLASS", testProj, targetSR(t))
	require.Error(t, err)
}
