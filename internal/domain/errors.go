package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTerm is returned for terms missing id, name or namespace.
	ErrInvalidTerm = errors.New("term is missing id, name or namespace")
	// ErrMissingEndpoint is returned when an edge endpoint node does not exist.
	ErrMissingEndpoint = errors.New("edge endpoint not found")
	// ErrStoreUnavailable is returned when every graph store call of a run failed.
	ErrStoreUnavailable = errors.New("graph store unavailable")
	// ErrInvalidIdentifier is returned for labels or edge types that are not safe graph identifiers.
	ErrInvalidIdentifier = errors.New("invalid graph identifier")
)

// StageError ties a persistence failure to the term and stage that produced it.
type StageError struct {
	Stage  string
	TermID string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s term %s: %v", e.Stage, e.TermID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
