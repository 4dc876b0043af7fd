package board

import (
	"errors"
	"testing"

	"github.com/meridianhq/staffboard/internal/models"
)

func TestTransitionTable_Exhaustive(t *testing.T) {
	allowed := map[[2]models.OpportunityStatus]bool{
		{models.StatusInProgress, models.StatusOnHold}: true,
		{models.StatusOnHold, models.StatusInProgress}: true,
		{models.StatusInProgress, models.StatusDone}:   true,
		{models.StatusOnHold, models.StatusDone}:       true,
	}

	for _, from := range models.OpportunityStatuses {
		for _, to := range models.OpportunityStatuses {
			want := allowed[[2]models.OpportunityStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}

			err := ValidateTransition(from, to)
			if want && err != nil {
				t.Fatalf("ValidateTransition(%s, %s) unexpectedly failed: %v", from, to, err)
			}
			if !want {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("ValidateTransition(%s, %s) = %v, want ErrInvalidTransition", from, to, err)
				}
			}
		}
	}
}

func TestDoneIsTerminal(t *testing.T) {
	for _, to := range models.OpportunityStatuses {
		if CanTransition(models.StatusDone, to) {
			t.Fatalf("done must be terminal, but done -> %s is allowed", to)
		}
	}
}

func TestPartitionFor(t *testing.T) {
	o := models.Opportunity{Status: models.StatusOnHold}
	if PartitionFor(o) != models.StatusOnHold {
		t.Fatalf("expected on_hold family, got %s", PartitionFor(o))
	}
}
