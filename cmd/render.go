package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grangerlab/landcover/internal/classify"
	"github.com/grangerlab/landcover/internal/pipeline"
	"github.com/grangerlab/landcover/internal/render"
)

var renderOut string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render the stored classified grid as a thematic map",
	RunE: func(cmd *cobra.Command, args []string) error {
		gridPath := filepath.Join(cfg.Output.Dir, cfg.Output.GridASC)
		result, err := classify.Load(gridPath, pipeline.MetaPathFor(gridPath))
		if err != nil {
			return err
		}

		pal := render.DefaultPalette()
		if cfg.Output.Palette != "" {
			pal, err = render.LoadPalette(cfg.Output.Palette)
			if err != nil {
				return err
			}
		}

		out := renderOut
		if out == "" {
			out = filepath.Join(cfg.Output.Dir, cfg.Output.MapPNG)
		}
		return render.WritePNG(result, pal, out)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderOut, "out", "", "output PNG path (default: configured map path)")
	rootCmd.AddCommand(renderCmd)
}
