// Package vector loads the boundary and training-site polygons and
// reprojects them into the scene's coordinate reference system.
package vector

import (
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrProjection indicates a missing or unusable coordinate
	// reference system on a vector source.
	ErrProjection = eris.New("vector: undefined or invalid projection")

	// ErrJoin indicates a geometry whose attribute record lacks the
	// training label.
	ErrJoin = eris.New("vector: training label missing for geometry")

	// ErrNotPolygon indicates a shapefile whose geometries are not
	// polygonal.
	ErrNotPolygon = eris.New("vector: geometry is not polygonal")
)

// TrainingSite is one hand-labeled polygon. ID is the shapefile record
// index; Label is the land-cover class attribute.
type TrainingSite struct {
	ID    int
	Label string
	Geom  geom.Polygonal
}

// LoadBoundary reads a polygon shapefile and reprojects it to target.
// srcProj4 overrides the source CRS; when empty the CRS comes from the
// shapefile's .prj sidecar, and its absence is an error.
func LoadBoundary(path, srcProj4 string, target *proj.SR) (geom.Polygonal, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open boundary %s", path)
	}
	defer d.Close()

	trans, err := transformTo(d, srcProj4, target, path)
	if err != nil {
		return nil, err
	}

	var mp geom.MultiPolygon
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		poly, perr := reprojectPolygonal(g, trans, path)
		if perr != nil {
			return nil, perr
		}
		mp = appendPolygonal(mp, poly)
	}
	if err := d.Error(); err != nil {
		return nil, eris.Wrapf(err, "vector: decode boundary %s", path)
	}
	if len(mp) == 0 {
		return nil, eris.Errorf("vector: boundary %s holds no polygons", path)
	}

	zap.L().Info("vector: boundary loaded",
		zap.String("file", path),
		zap.Int("polygons", len(mp)),
	)
	if len(mp) == 1 {
		return mp[0], nil
	}
	return mp, nil
}

// LoadTrainingSites reads labeled polygons for training. labelField
// names the attribute column holding the land-cover class; a geometry
// with no usable label fails the attribute join.
func LoadTrainingSites(path, labelField, srcProj4 string, target *proj.SR) ([]TrainingSite, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: open training sites %s", path)
	}
	defer d.Close()

	trans, err := transformTo(d, srcProj4, target, path)
	if err != nil {
		return nil, err
	}

	var sites []TrainingSite
	for i := 0; ; i++ {
		g, fields, more := d.DecodeRowFields(labelField)
		if !more {
			break
		}
		label, ok := fields[labelField]
		if !ok {
			return nil, eris.Wrapf(ErrJoin, "site %d in %s has no attribute %q", i, path, labelField)
		}
		label = strings.TrimSpace(strings.TrimRight(label, "\x00"))
		if label == "" {
			return nil, eris.Wrapf(ErrJoin, "site %d in %s has a blank %q attribute", i, path, labelField)
		}
		poly, perr := reprojectPolygonal(g, trans, path)
		if perr != nil {
			return nil, perr
		}
		sites = append(sites, TrainingSite{ID: i, Label: label, Geom: poly})
	}
	if err := d.Error(); err != nil {
		return nil, eris.Wrapf(err, "vector: decode training sites %s", path)
	}
	if len(sites) == 0 {
		return nil, eris.Errorf("vector: training sites %s hold no polygons", path)
	}

	zap.L().Info("vector: training sites loaded",
		zap.String("file", path),
		zap.Int("sites", len(sites)),
	)
	return sites, nil
}

// transformTo builds the source-to-target reprojection for a decoder.
func transformTo(d *shp.Decoder, srcProj4 string, target *proj.SR, path string) (proj.Transformer, error) {
	var (
		src *proj.SR
		err error
	)
	if srcProj4 != "" {
		src, err = proj.Parse(srcProj4)
		if err != nil {
			return nil, eris.Wrapf(ErrProjection, "parse %q for %s: %v", srcProj4, path, err)
		}
	} else {
		src, err = d.SR()
		if err != nil {
			return nil, eris.Wrapf(ErrProjection, "read .prj for %s: %v", path, err)
		}
	}
	trans, err := src.NewTransform(target)
	if err != nil {
		return nil, eris.Wrapf(ErrProjection, "reproject %s: %v", path, err)
	}
	return trans, nil
}

// reprojectPolygonal transforms a decoded geometry and asserts it is
// polygonal.
func reprojectPolygonal(g geom.Geom, trans proj.Transformer, path string) (geom.Polygonal, error) {
	gg, err := g.Transform(trans)
	if err != nil {
		return nil, eris.Wrapf(err, "vector: reproject geometry from %s", path)
	}
	poly, ok := gg.(geom.Polygonal)
	if !ok {
		return nil, eris.Wrapf(ErrNotPolygon, "%s holds %T", path, gg)
	}
	return poly, nil
}

// appendPolygonal flattens a polygonal geometry onto a multipolygon.
func appendPolygonal(mp geom.MultiPolygon, p geom.Polygonal) geom.MultiPolygon {
	switch v := p.(type) {
	case geom.Polygon:
		return append(mp, v)
	case geom.MultiPolygon:
		return append(mp, v...)
	default:
		// Bounds and other polygonal implementations become a ring.
		b := p.Bounds()
		return append(mp, geom.Polygon{{
			{X: b.Min.X, Y: b.Min.Y},
			{X: b.Max.X, Y: b.Min.Y},
			{X: b.Max.X, Y: b.Max.Y},
			{X: b.Min.X, Y: b.Max.Y},
		}})
	}
}
