package models

import (
	"errors"
	"fmt"
)

// ErrMemoryNotFound is returned by point operations (rename, forget) when
// the named memory does not exist. Lookups report absence with a nil result
// instead.
var ErrMemoryNotFound = errors.New("memory not found")

// ExtractionError reports that the reasoning service was unreachable or
// returned output that does not conform to the fact-list schema during fact
// extraction. The enclosing Remember call is aborted; nothing is persisted.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("fact extraction: %v", e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }

// RetrievalError reports an embedding or vector-search failure while
// gathering candidate memories. Candidates are never silently skipped, so
// the enclosing Remember call is aborted.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("candidate retrieval: %v", e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// ConsolidationError reports that the resolver produced an action set
// violating the coverage or identifier invariants (one action per fact;
// UPDATE/DELETE must name a candidate id), or that the reasoning service
// failed or returned non-conforming output during consolidation. The action
// set is discarded without touching storage.
type ConsolidationError struct {
	Reason string
	Err    error
}

func (e *ConsolidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("consolidation: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("consolidation: %s", e.Reason)
}

func (e *ConsolidationError) Unwrap() error { return e.Err }

// ApplyError reports a failure while executing a consolidation action.
// Application is fail-fast: actions before Index were applied and are
// durable, the action at Index and everything after it were not.
type ApplyError struct {
	Index  int
	Action ConsolidationAction
	Err    error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply action %d (%s): %v", e.Index, e.Action.Event, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
