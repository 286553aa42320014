// Package store persists the audit log of extraction runs. Persistence is
// optional: the pipeline runs fully without it.
package store

import (
	"context"

	"github.com/sells-group/submission-intake/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the extraction audit log.
type Store interface {
	CreateRun(ctx context.Context, emailName string, attachmentCount int) (string, error)
	CompleteRun(ctx context.Context, runID string, result *model.ExtractionResult) error
	FailRun(ctx context.Context, runID string, message string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
