package raster

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// asciiNoData is the no-data marker written to Esri ASCII grids.
const asciiNoData = -9999

// ReadASCII reads an Esri ASCII grid (.asc) into a Grid. Cells equal to
// the header's NODATA_value become NaN.
func ReadASCII(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	var (
		ncols, nrows       int
		xll, yll, cellsize float64
		nodata             = float64(asciiNoData)
		seen               = map[string]bool{}
	)

	// Header lines are "key value" pairs; the body starts at the first
	// line whose first token is numeric.
	var body []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToLower(fields[0])
		switch key {
		case "ncols", "nrows", "xllcorner", "yllcorner", "cellsize", "nodata_value":
			if len(fields) != 2 {
				return nil, eris.Errorf("raster: %s: malformed header line %q", path, line)
			}
			v, perr := strconv.ParseFloat(fields[1], 64)
			if perr != nil {
				return nil, eris.Wrapf(perr, "raster: %s: header %s", path, key)
			}
			seen[key] = true
			switch key {
			case "ncols":
				ncols = int(v)
			case "nrows":
				nrows = int(v)
			case "xllcorner":
				xll = v
			case "yllcorner":
				yll = v
			case "cellsize":
				cellsize = v
			case "nodata_value":
				nodata = v
			}
		default:
			body = append(body, fields...)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", path)
	}
	for _, k := range []string{"ncols", "nrows", "xllcorner", "yllcorner", "cellsize"} {
		if !seen[k] {
			return nil, eris.Errorf("raster: %s: missing header field %s", path, k)
		}
	}
	if ncols <= 0 || nrows <= 0 || cellsize <= 0 {
		return nil, eris.Errorf("raster: %s: invalid grid shape %dx%d cellsize %g", path, ncols, nrows, cellsize)
	}
	if len(body) != ncols*nrows {
		return nil, eris.Errorf("raster: %s: expected %d cells, found %d", path, ncols*nrows, len(body))
	}

	g := NewGrid(ncols, nrows, xll, yll+float64(nrows)*cellsize, cellsize, cellsize)
	for i, tok := range body {
		v, perr := strconv.ParseFloat(tok, 64)
		if perr != nil {
			return nil, eris.Wrapf(perr, "raster: %s: cell %d", path, i)
		}
		if v == nodata {
			v = math.NaN()
		}
		g.Data[i] = v
	}
	return g, nil
}

// WriteASCII writes a grid as an Esri ASCII grid. Square cells are
// required by the format; NaN cells are written as the NODATA_value.
func WriteASCII(g *Grid, path string) error {
	if math.Abs(g.Dx-g.Dy) > alignEps {
		return eris.Errorf("raster: ascii grid requires square cells, have %g x %g", g.Dx, g.Dy)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "raster: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "ncols %d\n", g.W)
	fmt.Fprintf(w, "nrows %d\n", g.H)
	fmt.Fprintf(w, "xllcorner %s\n", strconv.FormatFloat(g.West, 'f', -1, 64))
	fmt.Fprintf(w, "yllcorner %s\n", strconv.FormatFloat(g.North-float64(g.H)*g.Dy, 'f', -1, 64))
	fmt.Fprintf(w, "cellsize %s\n", strconv.FormatFloat(g.Dx, 'f', -1, 64))
	fmt.Fprintf(w, "NODATA_value %d\n", asciiNoData)
	for row := 0; row < g.H; row++ {
		for col := 0; col < g.W; col++ {
			if col > 0 {
				_ = w.WriteByte(' ')
			}
			v := g.At(row, col)
			if IsNoData(v) {
				fmt.Fprintf(w, "%d", asciiNoData)
			} else {
				_, _ = w.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "raster: write %s", path)
	}
	return nil
}
