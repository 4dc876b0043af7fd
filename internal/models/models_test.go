package models

import "testing"

func TestParseOpportunityStatus(t *testing.T) {
	for _, valid := range []string{"in_progress", "on_hold", "done"} {
		if _, err := ParseOpportunityStatus(valid); err != nil {
			t.Fatalf("expected %q to parse, got %v", valid, err)
		}
	}

	if _, err := ParseOpportunityStatus("completed"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, err := ParseOpportunityStatus(""); err == nil {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestGradeRegistry_HasEightLevels(t *testing.T) {
	grades := Grades()
	if len(grades) != 8 {
		t.Fatalf("expected 8 grades in registry, got %d", len(grades))
	}

	for i := 1; i < len(grades); i++ {
		if grades[i].Rank <= grades[i-1].Rank {
			t.Fatalf("grades not in ascending rank order: %v", grades)
		}
	}
}

func TestParseGrade(t *testing.T) {
	g, err := ParseGrade("senior")
	if err != nil {
		t.Fatalf("expected senior to parse, got %v", err)
	}
	if g.Label() != "Senior Engineer" {
		t.Fatalf("expected label Senior Engineer, got %s", g.Label())
	}

	if _, err := ParseGrade("wizard"); err == nil {
		t.Fatal("expected unknown grade to be rejected")
	}
}

func TestValidatePercent(t *testing.T) {
	if err := ValidatePercent("probability", 0); err != nil {
		t.Fatalf("0 should be valid: %v", err)
	}
	if err := ValidatePercent("probability", 100); err != nil {
		t.Fatalf("100 should be valid: %v", err)
	}
	if err := ValidatePercent("probability", 101); err == nil {
		t.Fatal("101 should be rejected")
	}
	if err := ValidatePercent("allocation", -1); err == nil {
		t.Fatal("-1 should be rejected")
	}
}

func TestClone_RolesAreIndependent(t *testing.T) {
	orig := Opportunity{
		ID:    "a",
		Roles: []Role{{ID: "r1", Name: "Backend"}},
	}

	c := orig.Clone()
	c.Roles[0].Name = "Frontend"

	if orig.Roles[0].Name != "Backend" {
		t.Fatalf("clone mutation leaked into original: %s", orig.Roles[0].Name)
	}
}
