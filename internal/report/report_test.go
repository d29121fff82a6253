package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/grangerlab/landcover/internal/classify"
)

func testResult() *classify.Result {
	return &classify.Result{
		// 3 water, 1 vegetation, 2 no-data.
		Codes:   []int{2, 2, 2, 1, 0, 0},
		W:       3,
		H:       2,
		Dx:      30,
		Dy:      30,
		Classes: []string{"vegetation", "water"},
	}
}

func TestSummarize(t *testing.T) {
	areas := Summarize(testResult())
	require.Len(t, areas, 2)

	assert.Equal(t, "vegetation", areas[0].Label)
	assert.Equal(t, 1, areas[0].Cells)
	assert.Equal(t, 900.0, areas[0].Area)
	assert.Equal(t, 0.09, areas[0].AreaHa)
	assert.Equal(t, 25.0, areas[0].Percent)

	assert.Equal(t, "water", areas[1].Label)
	assert.Equal(t, 3, areas[1].Cells)
	assert.Equal(t, 2700.0, areas[1].Area)
	assert.Equal(t, 75.0, areas[1].Percent)
}

func TestSummarizeAllNoData(t *testing.T) {
	res := &classify.Result{
		Codes:   []int{0, 0},
		W:       2,
		H:       1,
		Dx:      30,
		Dy:      30,
		Classes: []string{"water"},
	}

	areas := Summarize(res)
	require.Len(t, areas, 1)
	assert.Equal(t, 0, areas[0].Cells)
	assert.Equal(t, 0.0, areas[0].Percent)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class_areas.xlsx")
	require.NoError(t, WriteXLSX(Summarize(testResult()), path))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Class areas", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Class", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "vegetation", sheet.Rows[1].Cells[0].Value)

	cells, err := sheet.Rows[2].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, cells)

	pct, err := sheet.Rows[2].Cells[4].Float()
	require.NoError(t, err)
	assert.InDelta(t, 75.0, pct, 1e-9)
}
