// Package board implements the optimistic mutation layer for the staffing
// pipeline: it projects the expected post-write state into the cache before
// the resource API confirms it, then reconciles or rolls back.
package board

import (
	"fmt"

	"github.com/meridianhq/staffboard/internal/models"
)

// transitions is the allowed status-move table. Done is terminal.
var transitions = map[models.OpportunityStatus]map[models.OpportunityStatus]bool{
	models.StatusInProgress: {models.StatusOnHold: true, models.StatusDone: true},
	models.StatusOnHold:     {models.StatusInProgress: true, models.StatusDone: true},
	models.StatusDone:       {},
}

// CanTransition reports whether moving from one bucket to another is allowed.
func CanTransition(from, to models.OpportunityStatus) bool {
	return transitions[from][to]
}

// ValidateTransition rejects disallowed moves before any cache write happens.
func ValidateTransition(from, to models.OpportunityStatus) error {
	if from == to {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// PartitionFor maps an opportunity to its natural partition family, so the
// coordinator only fans out over descriptors of that one bucket instead of
// scanning the whole store for the entity.
func PartitionFor(o models.Opportunity) models.OpportunityStatus {
	return o.Status
}
