package classify

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/grangerlab/landcover/internal/raster"
)

// resultMeta is the sidecar carrying what the ASCII grid cannot: the
// class list behind the cell codes and the CRS.
type resultMeta struct {
	Classes []string `json:"classes"`
	Proj4   string   `json:"proj4"`
}

// Save writes the classified raster as an Esri ASCII grid plus a JSON
// sidecar with the class list and CRS, so it can be re-rendered
// without re-training.
func (r *Result) Save(gridPath, metaPath string) error {
	if err := raster.WriteASCII(r.ToGrid(), gridPath); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(resultMeta{Classes: r.Classes, Proj4: r.Proj4}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "classify: marshal result meta")
	}
	if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
		return eris.Wrapf(err, "classify: write %s", metaPath)
	}
	return nil
}

// Load reads a classified raster previously written by Save.
func Load(gridPath, metaPath string) (*Result, error) {
	g, err := raster.ReadASCII(gridPath)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read %s", metaPath)
	}
	var meta resultMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, eris.Wrapf(err, "classify: parse %s", metaPath)
	}
	return FromGrid(g, meta.Classes, meta.Proj4)
}
