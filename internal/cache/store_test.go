package cache

import (
	"testing"

	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

func opp(id string, status models.OpportunityStatus) models.Opportunity {
	return models.Opportunity{ID: id, Status: status, Roles: []models.Role{{ID: id + "-r1"}}}
}

func TestStore_GetAbsentDescriptor(t *testing.T) {
	s := New()
	if _, ok := s.Get(query.Default(models.StatusInProgress)); ok {
		t.Fatal("absent partition must report !ok")
	}
}

func TestStore_SetThenGet(t *testing.T) {
	s := New()
	d := query.Default(models.StatusInProgress)

	s.Set(d, []models.Opportunity{opp("a", models.StatusInProgress)})

	got, ok := s.Get(d)
	if !ok || len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("unexpected partition contents: %v ok=%v", got, ok)
	}

	// Reading twice without intervening writes yields equal results.
	again, _ := s.Get(d)
	if len(again) != 1 || again[0].ID != got[0].ID {
		t.Fatalf("repeated read diverged: %v vs %v", got, again)
	}
}

func TestStore_GetReturnsIsolatedCopy(t *testing.T) {
	s := New()
	d := query.Default(models.StatusInProgress)
	s.Set(d, []models.Opportunity{opp("a", models.StatusInProgress)})

	got, _ := s.Get(d)
	got[0].ID = "mangled"
	got[0].Roles[0].ID = "mangled-role"

	fresh, _ := s.Get(d)
	if fresh[0].ID != "a" || fresh[0].Roles[0].ID != "a-r1" {
		t.Fatalf("caller mutation leaked into cache: %+v", fresh[0])
	}
}

func TestStore_UpdateAbsentIsNoOp(t *testing.T) {
	s := New()
	d := query.Default(models.StatusOnHold)

	s.Update(d, func(list []models.Opportunity) []models.Opportunity {
		return append(list, opp("ghost", models.StatusOnHold))
	})

	if _, ok := s.Get(d); ok {
		t.Fatal("update must not create partitions")
	}
}

func TestStore_InvalidateMarksStaleButKeepsContents(t *testing.T) {
	s := New()
	d := query.Default(models.StatusInProgress)
	s.Set(d, []models.Opportunity{opp("a", models.StatusInProgress)})

	s.Invalidate(d)

	if !s.Stale(d) {
		t.Fatal("invalidated partition must be stale")
	}
	if got, ok := s.Get(d); !ok || len(got) != 1 {
		t.Fatal("stale partition must remain readable")
	}

	s.Set(d, []models.Opportunity{opp("b", models.StatusInProgress)})
	if s.Stale(d) {
		t.Fatal("set must clear the stale mark")
	}
}

func TestStore_DescriptorsForFamilyOnly(t *testing.T) {
	s := New()
	s.Set(query.Default(models.StatusInProgress), nil)
	s.Set(query.NewDescriptor(models.StatusInProgress, query.Criteria{Client: "acme"}), nil)
	s.Set(query.Default(models.StatusDone), nil)

	descs := s.DescriptorsFor(models.StatusInProgress)
	if len(descs) != 2 {
		t.Fatalf("expected 2 in-progress descriptors, got %d", len(descs))
	}
	for _, d := range descs {
		if d.Status != models.StatusInProgress {
			t.Fatalf("descriptor from wrong family: %+v", d)
		}
	}
}

func TestSnapshot_RestoreIsExact(t *testing.T) {
	s := New()
	d1 := query.Default(models.StatusInProgress)
	d2 := query.NewDescriptor(models.StatusInProgress, query.Criteria{Client: "acme"})
	s.Set(d1, []models.Opportunity{opp("a", models.StatusInProgress), opp("b", models.StatusInProgress)})
	s.Set(d2, []models.Opportunity{opp("a", models.StatusInProgress)})

	snap := Capture(s, d1, d2)

	s.Set(d1, []models.Opportunity{opp("x", models.StatusInProgress)})
	s.Update(d2, func([]models.Opportunity) []models.Opportunity { return nil })

	snap.Restore(s)

	got1, _ := s.Get(d1)
	if len(got1) != 2 || got1[0].ID != "a" || got1[1].ID != "b" {
		t.Fatalf("d1 not restored exactly: %v", got1)
	}
	got2, _ := s.Get(d2)
	if len(got2) != 1 || got2[0].ID != "a" {
		t.Fatalf("d2 not restored exactly: %v", got2)
	}
}

func TestSnapshot_CaptureIsImmuneToLaterWrites(t *testing.T) {
	s := New()
	d := query.Default(models.StatusInProgress)
	s.Set(d, []models.Opportunity{opp("a", models.StatusInProgress)})

	snap := Capture(s, d)

	// Edit the live partition in place, including nested role state.
	s.Update(d, func(list []models.Opportunity) []models.Opportunity {
		list[0].Roles[0].ID = "edited"
		return list
	})

	snap.Restore(s)
	got, _ := s.Get(d)
	if got[0].Roles[0].ID != "a-r1" {
		t.Fatalf("snapshot was corrupted by a live edit: %+v", got[0].Roles[0])
	}
}

func TestSnapshot_SkipsAbsentPartitions(t *testing.T) {
	s := New()
	present := query.Default(models.StatusInProgress)
	absent := query.Default(models.StatusOnHold)
	s.Set(present, []models.Opportunity{opp("a", models.StatusInProgress)})

	snap := Capture(s, present, absent)
	snap.Restore(s)

	if _, ok := s.Get(absent); ok {
		t.Fatal("restore must not conjure partitions that were absent at capture")
	}
	if len(snap.Descriptors()) != 1 {
		t.Fatalf("expected 1 captured descriptor, got %d", len(snap.Descriptors()))
	}
}
