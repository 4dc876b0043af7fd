package db

import (
	"strings"
	"testing"

	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

func TestBuildListWhere_NoFilters(t *testing.T) {
	where, args := buildListWhere(ListParams{})
	if where != "WHERE 1=1" {
		t.Fatalf("unexpected clause: %s", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %v", args)
	}
}

func TestBuildListWhere_StatusAndClient(t *testing.T) {
	where, args := buildListWhere(ListParams{
		Status: models.StatusInProgress,
		Client: "acme",
	})

	if !strings.Contains(where, "status = $1") {
		t.Fatalf("missing status constraint: %s", where)
	}
	if !strings.Contains(where, "client_name ILIKE '%' || $2 || '%'") {
		t.Fatalf("missing client constraint: %s", where)
	}
	if len(args) != 2 || args[0] != "in_progress" || args[1] != "acme" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildListWhere_GradesUseExistsOverRoles(t *testing.T) {
	where, args := buildListWhere(ListParams{
		Grades: []models.Grade{"senior", "junior"},
	})

	if !strings.Contains(where, "EXISTS (SELECT 1 FROM roles r") {
		t.Fatalf("grade filter must be existential over roles: %s", where)
	}
	if !strings.Contains(where, "r.required_grade = ANY($1)") {
		t.Fatalf("grade filter must match any of the set: %s", where)
	}
	grades, ok := args[0].([]string)
	if !ok || len(grades) != 2 {
		t.Fatalf("grades must bind as a string slice: %v", args[0])
	}
}

// Both needs-hire directions are existential. "no" selects opportunities
// with at least one role that does not need a hire, matching the
// dashboard's in-memory evaluator.
func TestBuildListWhere_NeedsHireBothDirections(t *testing.T) {
	yes, _ := buildListWhere(ListParams{NeedsHire: query.NeedsHireYes})
	if !strings.Contains(yes, "r.needs_hire = true") {
		t.Fatalf("yes direction wrong: %s", yes)
	}

	no, _ := buildListWhere(ListParams{NeedsHire: query.NeedsHireNo})
	if !strings.Contains(no, "EXISTS") || !strings.Contains(no, "r.needs_hire = false") {
		t.Fatalf("no direction must stay existential: %s", no)
	}

	all, _ := buildListWhere(ListParams{NeedsHire: query.NeedsHireAll})
	if strings.Contains(all, "needs_hire") {
		t.Fatalf("all must add no constraint: %s", all)
	}
}

func TestBuildListWhere_ProbabilityBounds(t *testing.T) {
	where, args := buildListWhere(ListParams{ProbMin: 20, ProbMax: 80})
	if !strings.Contains(where, "probability >= $1") || !strings.Contains(where, "probability <= $2") {
		t.Fatalf("missing probability bounds: %s", where)
	}
	if len(args) != 2 || args[0] != 20 || args[1] != 80 {
		t.Fatalf("unexpected args: %v", args)
	}

	// The full range adds no constraint at all.
	full, fullArgs := buildListWhere(ListParams{ProbMin: 0, ProbMax: 100})
	if strings.Contains(full, "probability") || len(fullArgs) != 0 {
		t.Fatalf("full range must be unconstrained: %s %v", full, fullArgs)
	}
}

func TestBuildListWhere_PlaceholdersStaySequential(t *testing.T) {
	where, args := buildListWhere(ListParams{
		Status:    models.StatusOnHold,
		Client:    "globex",
		Grades:    []models.Grade{"principal"},
		NeedsHire: query.NeedsHireYes,
		ProbMin:   10,
		ProbMax:   90,
	})

	for _, ph := range []string{"$1", "$2", "$3", "$4", "$5"} {
		if !strings.Contains(where, ph) {
			t.Fatalf("missing placeholder %s in: %s", ph, where)
		}
	}
	if strings.Contains(where, "$6") {
		t.Fatalf("placeholder numbering ran ahead of args: %s", where)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d: %v", len(args), args)
	}
}
