// Package failure defines the error kinds an ingestion run can end with and
// the stage that produced them.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport marks network failures and non-2xx responses from the insight endpoints.
	ErrTransport = errors.New("transport error")

	// ErrResponseShape marks a response body that is not the JSON structure we expect.
	ErrResponseShape = errors.New("unexpected response shape")

	// ErrSchemaMismatch marks a value that cannot be coerced into its destination column type.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrAuthentication marks a credential file that cannot be used to build a warehouse client.
	ErrAuthentication = errors.New("authentication error")

	// ErrLoadJob marks a warehouse load job that could not be started or finished with an error.
	ErrLoadJob = errors.New("load job error")
)

// Stage names the part of a run that failed.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageNormalize Stage = "normalize"
	StageLoad      Stage = "load"
)

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err with stage. A nil err stays nil.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf reports the stage recorded in err's chain, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Kind returns the sentinel in err's chain, or nil when err is not classified.
func Kind(err error) error {
	for _, kind := range []error{ErrTransport, ErrResponseShape, ErrSchemaMismatch, ErrAuthentication, ErrLoadJob} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
