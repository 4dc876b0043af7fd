package board

import "errors"

var (
	// ErrInvalidTransition means a move named a (source, destination) pair
	// outside the transition table. Rejected before any optimistic write.
	ErrInvalidTransition = errors.New("invalid status transition")
)
