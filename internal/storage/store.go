// Package storage persists optimization run history: one record per run and
// one per major optimizer iteration.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrNotInitialized = errors.New("store is not initialized")
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// Run describes one optimization run.
type Run struct {
	SchemaVersion int               `json:"schema_version"`
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Method        string            `json:"method"`
	Dim           int               `json:"dim"`
	Scale         float64           `json:"scale"`
	Params        map[string]string `json:"params,omitempty"`
	Status        RunStatus         `json:"status"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at,omitempty"`
	FinalJ        float64           `json:"final_j"`
	Iterations    int               `json:"iterations"`
	Message       string            `json:"message,omitempty"`
}

// RunResult closes a run.
type RunResult struct {
	Status     RunStatus
	FinalJ     float64
	Iterations int
	Message    string
}

// IterationRecord is one major optimizer iteration. J is unscaled.
type IterationRecord struct {
	Iter        int
	J           float64
	GradNorm    float64
	Evaluations int
	Elapsed     time.Duration
}

// Store defines persistence operations for run history.
type Store interface {
	Init(ctx context.Context) error
	// CreateRun stores run, assigning an ID and start time when unset, and
	// returns the stored record.
	CreateRun(ctx context.Context, run Run) (Run, error)
	AppendIteration(ctx context.Context, runID string, rec IterationRecord) error
	FinishRun(ctx context.Context, runID string, result RunResult) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	// ListRuns returns all runs, oldest first.
	ListRuns(ctx context.Context) ([]Run, error)
	GetIterations(ctx context.Context, runID string) ([]IterationRecord, bool, error)
}
