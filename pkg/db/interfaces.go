package db

import (
	"context"
	"errors"
)

// ErrNoRuns is returned when no run has been committed yet
var ErrNoRuns = errors.New("no assignment runs found")

// SnapshotStore loads the inputs of a run
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// RunStore persists run results
type RunStore interface {
	// SaveRun writes the run, its results and its warnings atomically
	SaveRun(ctx context.Context, run *Run, results []AssignmentResult, warnings []WarningRecord) error

	// GetLatestRun returns the most recent committed run, or ErrNoRuns
	GetLatestRun(ctx context.Context) (*RunRecord, error)
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	SnapshotStore
	RunStore
}

// Migrator applies schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context) error
}
