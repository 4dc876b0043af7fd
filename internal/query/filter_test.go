package query

import (
	"testing"

	"github.com/meridianhq/staffboard/internal/models"
)

func sampleOpportunity() models.Opportunity {
	return models.Opportunity{
		ID:          "o1",
		ClientName:  "Acme Corp",
		Probability: 70,
		Status:      models.StatusInProgress,
		Roles: []models.Role{
			{ID: "r1", RequiredGrade: "senior", NeedsHire: true},
			{ID: "r2", RequiredGrade: "junior", NeedsHire: false},
		},
	}
}

func TestMatches_DefaultCriteriaMatchesEverything(t *testing.T) {
	entities := []models.Opportunity{
		sampleOpportunity(),
		{ID: "bare"}, // zero-value fields, no roles
		{ID: "max", Probability: 100},
	}
	for _, o := range entities {
		if !Matches(o, DefaultCriteria()) {
			t.Fatalf("default criteria must match %s", o.ID)
		}
	}
}

func TestMatches_ClientSubstringCaseInsensitive(t *testing.T) {
	o := sampleOpportunity()

	if !Matches(o, Criteria{Client: "acme"}) {
		t.Fatal("lowercase substring should match Acme Corp")
	}
	if !Matches(o, Criteria{Client: "ME CoR"}) {
		t.Fatal("mixed-case inner substring should match")
	}
	if Matches(o, Criteria{Client: "globex"}) {
		t.Fatal("unrelated client should not match")
	}
}

func TestMatches_GradesAreOrAcrossRoles(t *testing.T) {
	o := sampleOpportunity()

	if !Matches(o, Criteria{Grades: []models.Grade{"senior"}}) {
		t.Fatal("one matching role grade should suffice")
	}
	if !Matches(o, Criteria{Grades: []models.Grade{"principal", "junior"}}) {
		t.Fatal("any grade in the set should suffice")
	}
	if Matches(o, Criteria{Grades: []models.Grade{"principal"}}) {
		t.Fatal("no role carries principal")
	}

	noRoles := models.Opportunity{ID: "empty"}
	if Matches(noRoles, Criteria{Grades: []models.Grade{"senior"}}) {
		t.Fatal("entity without roles cannot match a grade filter")
	}
}

// Both needs-hire directions are existential: "no" means at least one role
// does NOT need a hire, not "no role needs a hire". The mixed entity below
// therefore matches both directions.
func TestMatches_NeedsHireTriState(t *testing.T) {
	mixed := sampleOpportunity()

	if !Matches(mixed, Criteria{NeedsHire: NeedsHireYes}) {
		t.Fatal("yes: r1 needs a hire")
	}
	if !Matches(mixed, Criteria{NeedsHire: NeedsHireNo}) {
		t.Fatal("no: r2 does not need a hire, existential rule must match")
	}

	allHire := models.Opportunity{Roles: []models.Role{{NeedsHire: true}}}
	if Matches(allHire, Criteria{NeedsHire: NeedsHireNo}) {
		t.Fatal("no: every role needs a hire, nothing satisfies the rule")
	}

	noRoles := models.Opportunity{}
	if Matches(noRoles, Criteria{NeedsHire: NeedsHireYes}) {
		t.Fatal("yes: entity without roles has no hiring need")
	}
	if !Matches(noRoles, Criteria{NeedsHire: NeedsHireAll}) {
		t.Fatal("all: must match regardless of roles")
	}
}

func TestMatches_ProbabilityRangeInclusive(t *testing.T) {
	o := sampleOpportunity() // probability 70

	if !Matches(o, Criteria{ProbMin: 70, ProbMax: 70}) {
		t.Fatal("range endpoints are inclusive")
	}
	if Matches(o, Criteria{ProbMin: 71, ProbMax: 100}) {
		t.Fatal("below min must not match")
	}
	if Matches(o, Criteria{ProbMin: 1, ProbMax: 69}) {
		t.Fatal("above max must not match")
	}
}

func TestMatches_FieldsCombineWithAnd(t *testing.T) {
	o := sampleOpportunity()

	all := Criteria{
		Client:    "acme",
		Grades:    []models.Grade{"senior"},
		NeedsHire: NeedsHireYes,
		ProbMin:   0,
		ProbMax:   100,
	}
	if !Matches(o, all) {
		t.Fatal("all field rules hold, combined criteria must match")
	}

	narrowed := all
	narrowed.ProbMin, narrowed.ProbMax = 80, 100
	if Matches(o, narrowed) {
		t.Fatal("one failing field rule must fail the combined criteria")
	}
}
