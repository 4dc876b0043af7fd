package query

import (
	"testing"

	"github.com/meridianhq/staffboard/internal/models"
)

func TestDescriptorKey_Canonicalization(t *testing.T) {
	a := NewDescriptor(models.StatusInProgress, Criteria{
		Client:  "  Acme ",
		Grades:  []models.Grade{"senior", "junior", "senior"},
		ProbMin: 0,
		ProbMax: 0, // unset range
	})
	b := NewDescriptor(models.StatusInProgress, Criteria{
		Client:    "acme",
		Grades:    []models.Grade{"junior", "senior"},
		NeedsHire: NeedsHireAll,
		ProbMin:   0,
		ProbMax:   100,
	})

	if a.Key() != b.Key() {
		t.Fatalf("equivalent descriptors produced different keys:\n  %s\n  %s", a.Key(), b.Key())
	}
}

func TestDescriptorKey_DistinguishesStatusAndFilters(t *testing.T) {
	base := Default(models.StatusInProgress)

	variants := []Descriptor{
		Default(models.StatusOnHold),
		NewDescriptor(models.StatusInProgress, Criteria{Client: "acme"}),
		NewDescriptor(models.StatusInProgress, Criteria{Grades: []models.Grade{"senior"}}),
		NewDescriptor(models.StatusInProgress, Criteria{NeedsHire: NeedsHireYes}),
		NewDescriptor(models.StatusInProgress, Criteria{ProbMin: 50, ProbMax: 100}),
	}
	for _, v := range variants {
		if v.Key() == base.Key() {
			t.Fatalf("descriptor %+v collided with the default key", v)
		}
	}
}

func TestDefault_IsDefault(t *testing.T) {
	if !Default(models.StatusDone).IsDefault() {
		t.Fatal("Default descriptor must carry the identity filter")
	}
	if NewDescriptor(models.StatusDone, Criteria{Client: "x"}).IsDefault() {
		t.Fatal("filtered descriptor must not report as default")
	}
}

func TestDescriptorValues_OmitsDefaults(t *testing.T) {
	v := Default(models.StatusInProgress).Values()
	if v.Get("status") != "in_progress" {
		t.Fatalf("expected status param, got %q", v.Get("status"))
	}
	for _, key := range []string{"client", "grades", "needs_hire", "prob_min", "prob_max"} {
		if v.Has(key) {
			t.Fatalf("default descriptor must not serialize %s", key)
		}
	}

	filtered := NewDescriptor(models.StatusOnHold, Criteria{
		Client:    "Acme",
		Grades:    []models.Grade{"senior", "junior"},
		NeedsHire: NeedsHireYes,
		ProbMin:   10,
		ProbMax:   90,
	}).Values()
	if filtered.Get("grades") != "junior,senior" {
		t.Fatalf("grades must serialize sorted, got %q", filtered.Get("grades"))
	}
	if filtered.Get("client") != "acme" {
		t.Fatalf("client must serialize lowercased, got %q", filtered.Get("client"))
	}
}

func TestParseNeedsHire(t *testing.T) {
	if nh, err := ParseNeedsHire(""); err != nil || nh != NeedsHireAll {
		t.Fatalf("empty must default to all, got %q %v", nh, err)
	}
	if _, err := ParseNeedsHire("maybe"); err == nil {
		t.Fatal("expected unknown tri-state value to be rejected")
	}
}
