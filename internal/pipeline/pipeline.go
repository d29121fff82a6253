// Package pipeline orchestrates the land-cover classification stages:
// stack, boundary, crop, normalize, sample, train, classify, render,
// report. Execution is linear and fail-fast; every stage hands an
// immutable artifact to the next.
package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/grangerlab/landcover/internal/classify"
	"github.com/grangerlab/landcover/internal/config"
	"github.com/grangerlab/landcover/internal/raster"
	"github.com/grangerlab/landcover/internal/render"
	"github.com/grangerlab/landcover/internal/report"
	"github.com/grangerlab/landcover/internal/sample"
	"github.com/grangerlab/landcover/internal/store"
	"github.com/grangerlab/landcover/internal/tree"
	"github.com/grangerlab/landcover/internal/vector"
)

// Pipeline runs the classification workflow for one scene.
type Pipeline struct {
	cfg *config.Config
	st  store.Store
}

// New creates a Pipeline. The store may be nil, in which case runs are
// not persisted.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, st: st}
}

// PhaseResult records the timing of one pipeline stage.
type PhaseResult struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
}

// Result is the outcome of a full pipeline run.
type Result struct {
	RunID      string             `json:"run_id,omitempty"`
	SceneDir   string             `json:"scene_dir"`
	Classes    []string           `json:"classes"`
	Samples    int                `json:"samples"`
	TreeDepth  int                `json:"tree_depth"`
	TreeNodes  int                `json:"tree_nodes"`
	Areas      []report.ClassArea `json:"areas"`
	MapPath    string             `json:"map_path"`
	GridPath   string             `json:"grid_path"`
	MetaPath   string             `json:"meta_path"`
	ReportPath string             `json:"report_path"`
	Phases     []PhaseResult      `json:"phases"`
}

// Run executes the full pipeline: load and stack the scene rasters,
// reproject and apply the boundary, normalize reflectance, extract
// training samples, fit the tree, classify every cell, and write the
// map, grid, and report artifacts.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("scene", p.cfg.Scene.Dir))
	log.Info("pipeline: starting classification run")

	result := &Result{SceneDir: p.cfg.Scene.Dir}

	if p.st != nil {
		run, err := p.st.CreateRun(ctx, p.cfg.Scene.Dir)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
		p.setStatus(ctx, result.RunID, store.RunStatusRunning)
	}

	normalized, samples, err := p.prepare(ctx, result)
	if err != nil {
		p.fail(ctx, result.RunID)
		return nil, err
	}

	var model *tree.Model
	if err := p.phase(result, "train", func() error {
		X := make([][]float64, len(samples))
		y := make([]string, len(samples))
		for i, r := range samples {
			X[i] = r.Values
			y[i] = r.Label
		}
		var terr error
		model, terr = tree.Train(X, y, normalized.Names, tree.Options{
			MaxDepth:            p.cfg.Tree.MaxDepth,
			MinSamplesLeaf:      p.cfg.Tree.MinSamplesLeaf,
			MinImpurityDecrease: p.cfg.Tree.MinImpurityDecrease,
		})
		return terr
	}); err != nil {
		p.fail(ctx, result.RunID)
		return nil, err
	}
	result.Classes = model.Classes
	result.TreeDepth = model.Depth()
	result.TreeNodes = model.NodeCount()
	log.Debug("pipeline: fitted tree", zap.String("tree", model.String()))

	var classified *classify.Result
	if err := p.phase(result, "classify", func() error {
		var cerr error
		classified, cerr = classify.Apply(ctx, model, normalized, p.cfg.Classify.Workers)
		return cerr
	}); err != nil {
		p.fail(ctx, result.RunID)
		return nil, err
	}

	if err := p.writeArtifacts(result, classified); err != nil {
		p.fail(ctx, result.RunID)
		return nil, err
	}

	if p.st != nil {
		if err := p.st.SaveClassAreas(ctx, result.RunID, result.Areas); err != nil {
			log.Warn("pipeline: failed to save class areas", zap.Error(err))
		}
		raw, merr := json.Marshal(result)
		if merr != nil {
			log.Warn("pipeline: failed to marshal result", zap.Error(merr))
		} else if err := p.st.CompleteRun(ctx, result.RunID, store.RunStatusComplete, string(raw)); err != nil {
			log.Warn("pipeline: failed to complete run", zap.Error(err))
		}
	}

	log.Info("pipeline: run complete",
		zap.Int("samples", result.Samples),
		zap.Int("classes", len(result.Classes)),
		zap.String("map", result.MapPath),
	)
	return result, nil
}

// ExtractSamples runs only the sampling half of the pipeline (stack,
// boundary, crop, normalize, sample) and persists the records.
func (p *Pipeline) ExtractSamples(ctx context.Context) ([]sample.Record, error) {
	result := &Result{SceneDir: p.cfg.Scene.Dir}

	if p.st != nil {
		run, err := p.st.CreateRun(ctx, p.cfg.Scene.Dir)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: create run")
		}
		result.RunID = run.ID
		p.setStatus(ctx, result.RunID, store.RunStatusRunning)
	}

	_, samples, err := p.prepare(ctx, result)
	if err != nil {
		p.fail(ctx, result.RunID)
		return nil, err
	}

	if p.st != nil {
		raw, merr := json.Marshal(result)
		if merr == nil {
			if err := p.st.CompleteRun(ctx, result.RunID, store.RunStatusComplete, string(raw)); err != nil {
				zap.L().Warn("pipeline: failed to complete run", zap.Error(err))
			}
		}
	}
	return samples, nil
}

// prepare runs the shared front half of the pipeline up to sample
// extraction, returning the normalized cropped stack and the samples.
func (p *Pipeline) prepare(ctx context.Context, result *Result) (*raster.Stack, []sample.Record, error) {
	var stack *raster.Stack
	if err := p.phase(result, "stack", func() error {
		var serr error
		stack, serr = raster.LoadDirectory(p.cfg.Scene.Dir, p.cfg.Scene.BandNames, p.cfg.Scene.Proj4)
		return serr
	}); err != nil {
		return nil, nil, err
	}

	var boundary geom.Polygonal
	if err := p.phase(result, "boundary", func() error {
		var berr error
		boundary, berr = vector.LoadBoundary(p.cfg.Boundary.Path, p.cfg.Boundary.Proj4, stack.SR)
		return berr
	}); err != nil {
		return nil, nil, err
	}

	var cropped *raster.Stack
	if err := p.phase(result, "crop", func() error {
		var cerr error
		cropped, cerr = raster.Crop(stack, boundary)
		return cerr
	}); err != nil {
		return nil, nil, err
	}

	var normalized *raster.Stack
	if err := p.phase(result, "normalize", func() error {
		var nerr error
		normalized, nerr = raster.Normalize(cropped, raster.NormalizeOptions{
			ValidMin: p.cfg.Reflectance.ValidMin,
			ValidMax: p.cfg.Reflectance.ValidMax,
			Scale:    p.cfg.Reflectance.Scale,
			Offset:   p.cfg.Reflectance.Offset,
		})
		return nerr
	}); err != nil {
		return nil, nil, err
	}

	var samples []sample.Record
	if err := p.phase(result, "sample", func() error {
		sites, verr := vector.LoadTrainingSites(
			p.cfg.Training.Path, p.cfg.Training.LabelField, p.cfg.Training.Proj4, stack.SR)
		if verr != nil {
			return verr
		}
		var serr error
		samples, serr = sample.Extract(normalized, sites)
		return serr
	}); err != nil {
		return nil, nil, err
	}
	result.Samples = len(samples)

	if p.st != nil && result.RunID != "" {
		if err := p.st.SaveSamples(ctx, result.RunID, samples); err != nil {
			zap.L().Warn("pipeline: failed to save samples", zap.Error(err))
		}
	}
	return normalized, samples, nil
}

// writeArtifacts renders the map and writes the grid, sidecar, and
// report under the output directory.
func (p *Pipeline) writeArtifacts(result *Result, classified *classify.Result) error {
	return p.phase(result, "render", func() error {
		if err := os.MkdirAll(p.cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create output dir %s", p.cfg.Output.Dir)
		}
		result.GridPath = filepath.Join(p.cfg.Output.Dir, p.cfg.Output.GridASC)
		result.MetaPath = MetaPathFor(result.GridPath)
		result.MapPath = filepath.Join(p.cfg.Output.Dir, p.cfg.Output.MapPNG)
		result.ReportPath = filepath.Join(p.cfg.Output.Dir, p.cfg.Output.Report)

		if err := classified.Save(result.GridPath, result.MetaPath); err != nil {
			return err
		}

		pal := render.DefaultPalette()
		if p.cfg.Output.Palette != "" {
			var perr error
			pal, perr = render.LoadPalette(p.cfg.Output.Palette)
			if perr != nil {
				return perr
			}
		}
		if err := render.WritePNG(classified, pal, result.MapPath); err != nil {
			return err
		}

		result.Areas = report.Summarize(classified)
		return report.WriteXLSX(result.Areas, result.ReportPath)
	})
}

// MetaPathFor derives the JSON sidecar path for a classified grid.
func MetaPathFor(gridPath string) string {
	ext := filepath.Ext(gridPath)
	return gridPath[:len(gridPath)-len(ext)] + ".json"
}

// phase times a stage, logging its completion or failure.
func (p *Pipeline) phase(result *Result, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()
	result.Phases = append(result.Phases, PhaseResult{Name: name, DurationMS: duration})

	if err != nil {
		zap.L().Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return eris.Wrapf(err, "pipeline: phase %s", name)
	}
	zap.L().Info("pipeline: phase complete",
		zap.String("phase", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status store.RunStatus) {
	if p.st == nil || runID == "" {
		return
	}
	if err := p.st.UpdateRunStatus(ctx, runID, status); err != nil {
		zap.L().Warn("pipeline: failed to update status", zap.Error(err))
	}
}

func (p *Pipeline) fail(ctx context.Context, runID string) {
	p.setStatus(ctx, runID, store.RunStatusFailed)
}
