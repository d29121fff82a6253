package render

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Palette maps a land-cover label to its map color.
type Palette map[string]color.NRGBA

// DefaultPalette covers the standard training labels; labels outside
// it fall back to a gray ramp at render time.
func DefaultPalette() Palette {
	return Palette{
		"green vegetation": {R: 0x22, G: 0x8b, B: 0x22, A: 0xff},
		"soil/dead grass":  {R: 0xd2, G: 0xb4, B: 0x8c, A: 0xff},
		"urban":            {R: 0x69, G: 0x69, B: 0x69, A: 0xff},
		"water":            {R: 0x1e, G: 0x5a, B: 0xa8, A: 0xff},
	}
}

// LoadPalette reads a yaml file mapping label to "#RRGGBB".
func LoadPalette(path string) (Palette, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "render: read palette %s", path)
	}
	var m map[string]string
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrapf(err, "render: parse palette %s", path)
	}
	p := make(Palette, len(m))
	for label, hex := range m {
		c, perr := parseHexColor(hex)
		if perr != nil {
			return nil, eris.Wrapf(perr, "render: palette entry %q in %s", label, path)
		}
		p[label] = c
	}
	return p, nil
}

func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, eris.Errorf("color %q is not #RRGGBB", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, eris.Errorf("color %q is not #RRGGBB", s)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// colorFor resolves a label's color, assigning grays to labels the
// palette does not name so every class stays visible.
func (p Palette) colorFor(label string, fallbackOrdinal int) color.NRGBA {
	if c, ok := p[label]; ok {
		return c
	}
	v := uint8(80 + (fallbackOrdinal*37)%150)
	return color.NRGBA{R: v, G: v, B: v, A: 0xff}
}
