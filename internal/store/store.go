// Package store persists pipeline runs, extracted training samples,
// and class-area results for later inspection.
package store

import (
	"context"
	"time"

	"github.com/grangerlab/landcover/internal/report"
	"github.com/grangerlab/landcover/internal/sample"
)

// RunStatus tracks a pipeline run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the classification pipeline.
type Run struct {
	ID        string
	SceneDir  string
	Status    RunStatus
	Result    string // JSON-encoded pipeline result, set on completion
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store records pipeline runs and their artifacts.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, sceneDir string) (*Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus) error
	CompleteRun(ctx context.Context, runID string, status RunStatus, resultJSON string) error
	SaveSamples(ctx context.Context, runID string, records []sample.Record) error
	SaveClassAreas(ctx context.Context, runID string, areas []report.ClassArea) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
