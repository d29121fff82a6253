// Package report summarizes a classified raster into per-class area
// statistics and exports them as a spreadsheet.
package report

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/grangerlab/landcover/internal/classify"
)

// ClassArea is the cover statistics for one land-cover class.
type ClassArea struct {
	Label   string  `json:"label"`
	Cells   int     `json:"cells"`
	Area    float64 `json:"area"`    // map units squared
	AreaHa  float64 `json:"area_ha"` // hectares, assuming meter map units
	Percent float64 `json:"percent"` // of classified (non-nodata) cells
}

// Summarize counts cells per class and derives areas from the cell
// size. Percentages are over classified cells only; no-data is
// excluded. Classes keep their training order, so output is
// deterministic.
func Summarize(res *classify.Result) []ClassArea {
	counts := make([]float64, len(res.Classes))
	for _, code := range res.Codes {
		if code != 0 {
			counts[code-1]++
		}
	}
	total := floats.Sum(counts)

	cellArea := res.CellArea()
	out := make([]ClassArea, len(res.Classes))
	for i, label := range res.Classes {
		area := counts[i] * cellArea
		pct := 0.0
		if total > 0 {
			pct = counts[i] / total * 100
		}
		out[i] = ClassArea{
			Label:   label,
			Cells:   int(counts[i]),
			Area:    area,
			AreaHa:  area / 10000,
			Percent: pct,
		}
	}
	return out
}

// WriteXLSX exports the class-area table to an xlsx workbook.
func WriteXLSX(areas []ClassArea, path string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Class areas")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Class", "Cells", "Area (map units^2)", "Area (ha)", "Percent cover"} {
		header.AddCell().Value = h
	}
	for _, a := range areas {
		row := sheet.AddRow()
		row.AddCell().Value = a.Label
		row.AddCell().SetInt(a.Cells)
		row.AddCell().SetFloat(a.Area)
		row.AddCell().SetFloat(a.AreaHa)
		row.AddCell().SetFloat(a.Percent)
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	zap.L().Info("report: class areas written",
		zap.String("path", path),
		zap.Int("classes", len(areas)),
	)
	return nil
}
