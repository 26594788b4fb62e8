package services

import "errors"

var (
	// ErrInvalidStateTransition means a caller attempted an illegal capture
	// session transition (re-processing a terminal session, verifying a
	// session that is not completed, ...). Always a programming error.
	ErrInvalidStateTransition = errors.New("invalid capture session state transition")

	// ErrResultMismatch means RecordResult was called a second time with a
	// different analysis result for the same session.
	ErrResultMismatch = errors.New("analysis result already recorded with different content")

	// ErrSessionNotCompleted guards conversion and verification preconditions.
	ErrSessionNotCompleted = errors.New("capture session is not completed")
)
