package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable failure classes. Unit-level failures
// wrapping these are contained and aggregated into stage reports; they never
// abort a run on their own.
var (
	ErrSourceUnavailable  = errors.New("source unavailable")
	ErrMalformedInput     = errors.New("malformed input")
	ErrModelOutputInvalid = errors.New("model output invalid")
	ErrBackendUnavailable = errors.New("model backend unavailable")
)

// MissingArtifactError is returned when a stage runs in isolation and the
// prerequisite stage's artifact is absent. Fatal to that invocation.
type MissingArtifactError struct {
	Stage Stage
	Path  string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("missing artifact of stage %s: %s", e.Stage, e.Path)
}

// ArtifactWriteError signals that a stage output could not be published.
// Fatal; the previous artifact, if any, is left untouched.
type ArtifactWriteError struct {
	Path string
	Err  error
}

func (e *ArtifactWriteError) Error() string {
	return fmt.Sprintf("write artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactWriteError) Unwrap() error {
	return e.Err
}
