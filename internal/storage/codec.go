package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const CurrentSchemaVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(r Run) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (Run, error) {
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return Run{}, err
	}
	if run.SchemaVersion != CurrentSchemaVersion {
		return Run{}, fmt.Errorf("%w: schema=%d", ErrVersionMismatch, run.SchemaVersion)
	}
	return run, nil
}

// newRun fills the fields CreateRun owns.
func newRun(run Run) Run {
	run.SchemaVersion = CurrentSchemaVersion
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = RunRunning
	return run
}

// finish applies result to run.
func finish(run Run, result RunResult) Run {
	run.Status = result.Status
	if run.Status == "" {
		run.Status = RunFinished
	}
	run.FinalJ = result.FinalJ
	run.Iterations = result.Iterations
	run.Message = result.Message
	run.FinishedAt = time.Now().UTC()
	return run
}
