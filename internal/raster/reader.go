package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNoRasters indicates that the scene directory holds no readable
// raster files.
var ErrNoRasters = eris.New("raster: no raster files in scene directory")

// LoadDirectory reads every single-band raster file in dir (*.tif,
// *.tiff, *.asc; lexicographic order) and stacks them as one scene.
// names assigns a semantic band name to each file position and must
// match the file count; a nil names generates band_1..band_n. The scene
// CRS is supplied as a proj4 string since the supported formats do not
// carry one.
//
// Stacking requires strict spatial alignment across files; a mismatch
// fails before any further computation.
func LoadDirectory(dir string, names []string, proj4 string) (*Stack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: read scene directory %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff", ".asc":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, eris.Wrapf(ErrNoRasters, "%s", dir)
	}

	if names == nil {
		names = make([]string, len(paths))
		for i := range names {
			names[i] = fmt.Sprintf("band_%d", i+1)
		}
	}
	if len(names) != len(paths) {
		return nil, eris.Errorf("raster: %d band names configured for %d files in %s", len(names), len(paths), dir)
	}

	bands := make([]*Grid, len(paths))
	for i, p := range paths {
		var g *Grid
		if strings.EqualFold(filepath.Ext(p), ".asc") {
			g, err = ReadASCII(p)
		} else {
			g, err = ReadTIFF(p)
		}
		if err != nil {
			return nil, err
		}
		bands[i] = g
		zap.L().Debug("raster: loaded band",
			zap.String("file", filepath.Base(p)),
			zap.String("band", names[i]),
			zap.Int("w", g.W),
			zap.Int("h", g.H),
		)
	}

	s, err := NewStack(bands, names, proj4)
	if err != nil {
		return nil, err
	}
	zap.L().Info("raster: scene stacked",
		zap.String("dir", dir),
		zap.Int("bands", len(bands)),
		zap.Int("w", s.W()),
		zap.Int("h", s.H()),
	)
	return s, nil
}
