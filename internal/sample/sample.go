// Package sample extracts per-pixel training records from a raster
// stack at the footprints of labeled training-site polygons.
package sample

import (
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/grangerlab/landcover/internal/raster"
	"github.com/grangerlab/landcover/internal/vector"
)

// Record is one training observation: the band values of a single
// raster cell inside a training site, joined to the site's label.
// A band value may be no-data (NaN); such records are excluded later
// by the trainer, not here.
type Record struct {
	SiteID int
	Label  string
	Row    int
	Col    int
	Values []float64
}

// siteEntry adapts a training site for the spatial index: the embedded
// polygon supplies the geometry methods the index requires.
type siteEntry struct {
	geom.Polygonal
	site vector.TrainingSite
}

// Extract produces one Record per raster cell belonging to a training
// site. A cell belongs to a site when its center lies inside the
// polygon, or, for cells straddling the polygon edge, when the site
// covers the majority of the cell. Sites must already share the
// stack's CRS. When sites overlap, the lowest site ID wins, keeping
// extraction deterministic.
func Extract(s *raster.Stack, sites []vector.TrainingSite) ([]Record, error) {
	if len(sites) == 0 {
		return nil, eris.New("sample: no training sites")
	}

	index := rtree.NewTree(25, 50)
	for _, site := range sites {
		index.Insert(siteEntry{site.Geom, site})
	}

	ref := s.Bands[0]
	nb := len(s.Bands)
	var records []Record
	for row := 0; row < ref.H; row++ {
		for col := 0; col < ref.W; col++ {
			cell := ref.CellBounds(row, col)
			hits := index.SearchIntersect(cell)
			if len(hits) == 0 {
				continue
			}
			candidates := make([]vector.TrainingSite, 0, len(hits))
			for _, h := range hits {
				candidates = append(candidates, h.(siteEntry).site)
			}
			sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

			for _, site := range candidates {
				if !cellInSite(ref, row, col, cell, site.Geom) {
					continue
				}
				rec := Record{
					SiteID: site.ID,
					Label:  site.Label,
					Row:    row,
					Col:    col,
					Values: s.Values(row, col, make([]float64, nb)),
				}
				records = append(records, rec)
				break
			}
		}
	}

	if len(records) == 0 {
		return nil, eris.New("sample: no raster cells fall inside any training site")
	}
	zap.L().Info("sample: training records extracted",
		zap.Int("sites", len(sites)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// cellInSite applies the center-point test, falling back to a
// majority-overlap test for cells whose center sits outside a polygon
// that still covers part of the cell.
func cellInSite(g *raster.Grid, row, col int, cell *geom.Bounds, site geom.Polygonal) bool {
	x, y := g.CellCenter(row, col)
	if (geom.Point{X: x, Y: y}).Within(site) != geom.Outside {
		return true
	}
	isect := site.Intersection(cell)
	if isect == nil {
		return false
	}
	return isect.Area() >= g.CellArea()/2
}
