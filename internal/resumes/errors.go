package resumes

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists for an id.
var ErrNotFound = errors.New("not found")

// StageError is the single terminal failure type for a pipeline run. It
// names the stage that failed and carries a user-facing reason; the
// wrapped cause stays server-side.
type StageError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageFailure(stage, reason string, err error) *StageError {
	return &StageError{Stage: stage, Reason: reason, Err: err}
}
