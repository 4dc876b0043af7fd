package board

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/meridianhq/staffboard/internal/cache"
	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

// Coordinator runs mutations with an optimistic-then-reconcile protocol:
// snapshot the affected partitions, write the expected post-mutation state,
// issue the remote call, then either swap in the authoritative entity or
// restore the snapshot.
//
// Overlapping mutations on the same descriptor are NOT serialized. Last
// write wins at the store, so a slow mutation settling after a fast one can
// overwrite the fast one's optimistic state with its own authoritative
// entity. Callers that need stricter ordering must queue at their layer.
type Coordinator struct {
	store   *cache.Store
	remote  Remote
	tempSeq atomic.Int64
}

func NewCoordinator(store *cache.Store, remote Remote) *Coordinator {
	return &Coordinator{store: store, remote: remote}
}

// Read returns the current contents of a partition, which may include
// optimistic state from unsettled mutations. Absent partitions read empty.
func (c *Coordinator) Read(d query.Descriptor) []models.Opportunity {
	entities, _ := c.store.Get(d)
	return entities
}

// Store exposes the underlying cache, for priming partitions from fetches.
func (c *Coordinator) Store() *cache.Store {
	return c.store
}

// nextTempID mints a placeholder id. The "tmp-" prefix keeps optimistic ids
// disjoint from the server's UUID space for the life of the session.
func (c *Coordinator) nextTempID() string {
	return fmt.Sprintf("tmp-%d", c.tempSeq.Add(1))
}

// Create adds an opportunity. The synthesized placeholder lands at the end
// of the unfiltered in-progress partition before the remote call is issued;
// once the server replies, the placeholder is swapped for the authoritative
// record wherever it appears.
func (c *Coordinator) Create(ctx context.Context, draft OpportunityDraft) (models.Opportunity, error) {
	if err := models.ValidatePercent("probability", draft.Probability); err != nil {
		return models.Opportunity{}, err
	}

	now := time.Now()
	temp := models.Opportunity{
		ID:              c.nextTempID(),
		ClientName:      draft.ClientName,
		OpportunityName: draft.OpportunityName,
		StartDate:       draft.StartDate,
		EndDate:         draft.EndDate,
		Probability:     draft.Probability,
		Status:          models.StatusInProgress,
		Notes:           draft.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	desc := query.Default(models.StatusInProgress)
	snap := cache.Capture(c.store, desc)
	c.store.Update(desc, func(list []models.Opportunity) []models.Opportunity {
		return append(list, temp)
	})

	authoritative, err := c.remote.CreateOpportunity(ctx, draft)
	if err != nil {
		snap.Restore(c.store)
		return models.Opportunity{}, fmt.Errorf("create opportunity: %w", err)
	}

	c.replaceByID(models.StatusInProgress, temp.ID, authoritative)
	return authoritative, nil
}

// Update applies a partial field update to an opportunity. The caller hands
// in the entity as currently rendered; its status names the partition family
// to fan out over. If a concurrent delete already removed it from every
// partition the optimistic phase is a no-op, but the remote write still goes
// out and the response stays authoritative.
func (c *Coordinator) Update(ctx context.Context, opp models.Opportunity, patch OpportunityPatch) (models.Opportunity, error) {
	if patch.Probability != nil {
		if err := models.ValidatePercent("probability", *patch.Probability); err != nil {
			return models.Opportunity{}, err
		}
	}

	affected := c.descriptorsContaining(PartitionFor(opp), opp.ID)
	snap := cache.Capture(c.store, affected...)

	now := time.Now()
	for _, d := range affected {
		c.store.Update(d, func(list []models.Opportunity) []models.Opportunity {
			for i := range list {
				if list[i].ID == opp.ID {
					list[i] = applyPatch(list[i], patch, now)
				}
			}
			return list
		})
	}

	authoritative, err := c.remote.UpdateOpportunity(ctx, opp.ID, patch)
	if err != nil {
		snap.Restore(c.store)
		return models.Opportunity{}, fmt.Errorf("update opportunity %s: %w", opp.ID, err)
	}

	c.replaceByID(PartitionFor(opp), opp.ID, authoritative)
	return authoritative, nil
}

// Move shifts an opportunity between status buckets. Disallowed transitions
// fail before any snapshot or cache write. The entity leaves every source
// partition that holds it and enters the destination partitions whose
// filters it matches (the unfiltered one always does, if cached).
func (c *Coordinator) Move(ctx context.Context, opp models.Opportunity, dest models.OpportunityStatus) (models.Opportunity, error) {
	source := PartitionFor(opp)
	if err := ValidateTransition(source, dest); err != nil {
		return models.Opportunity{}, err
	}

	moved := opp.Clone()
	moved.Status = dest
	moved.UpdatedAt = time.Now()

	sourceDescs := c.descriptorsContaining(source, opp.ID)
	var destDescs []query.Descriptor
	for _, d := range c.store.DescriptorsFor(dest) {
		if d.Matches(moved) {
			destDescs = append(destDescs, d)
		}
	}

	snap := cache.Capture(c.store, append(append([]query.Descriptor{}, sourceDescs...), destDescs...)...)

	for _, d := range sourceDescs {
		c.removeFrom(d, opp.ID)
	}
	for _, d := range destDescs {
		m := moved
		c.store.Update(d, func(list []models.Opportunity) []models.Opportunity {
			return append(list, m)
		})
	}

	authoritative, err := c.remote.MoveOpportunity(ctx, opp.ID, dest)
	if err != nil {
		snap.Restore(c.store)
		return models.Opportunity{}, fmt.Errorf("move opportunity %s to %s: %w", opp.ID, dest, err)
	}

	c.replaceByID(dest, opp.ID, authoritative)
	// Settlement must not leave the entity in both buckets, whatever landed
	// in the source family while the call was in flight.
	for _, d := range c.store.DescriptorsFor(source) {
		c.removeFrom(d, opp.ID)
	}
	return authoritative, nil
}

// Delete removes an opportunity from every partition that holds it, then
// confirms with the server.
func (c *Coordinator) Delete(ctx context.Context, opp models.Opportunity) error {
	affected := c.descriptorsContaining(PartitionFor(opp), opp.ID)
	snap := cache.Capture(c.store, affected...)

	for _, d := range affected {
		c.removeFrom(d, opp.ID)
	}

	if err := c.remote.DeleteOpportunity(ctx, opp.ID); err != nil {
		snap.Restore(c.store)
		return fmt.Errorf("delete opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// AddRole attaches a role to an opportunity, optimistically growing the
// parent's role list in place.
func (c *Coordinator) AddRole(ctx context.Context, opp models.Opportunity, draft RoleDraft) (models.Opportunity, error) {
	if err := models.ValidatePercent("allocation", draft.Allocation); err != nil {
		return models.Opportunity{}, err
	}

	temp := models.Role{
		ID:            c.nextTempID(),
		Name:          draft.Name,
		RequiredGrade: draft.RequiredGrade,
		Status:        models.RoleOpen,
		Allocation:    draft.Allocation,
		NeedsHire:     draft.NeedsHire,
	}

	return c.mutateParent(ctx, opp, func(parent models.Opportunity) models.Opportunity {
		parent.Roles = append(parent.Roles, temp)
		return parent
	}, func(ctx context.Context) (models.Opportunity, error) {
		return c.remote.AddRole(ctx, opp.ID, draft)
	})
}

// UpdateRole applies a partial update to one role of an opportunity.
func (c *Coordinator) UpdateRole(ctx context.Context, opp models.Opportunity, roleID string, patch RolePatch) (models.Opportunity, error) {
	if patch.Allocation != nil {
		if err := models.ValidatePercent("allocation", *patch.Allocation); err != nil {
			return models.Opportunity{}, err
		}
	}

	return c.mutateParent(ctx, opp, func(parent models.Opportunity) models.Opportunity {
		for i := range parent.Roles {
			if parent.Roles[i].ID == roleID {
				parent.Roles[i] = applyRolePatch(parent.Roles[i], patch)
			}
		}
		return parent
	}, func(ctx context.Context) (models.Opportunity, error) {
		return c.remote.UpdateRole(ctx, opp.ID, roleID, patch)
	})
}

// RemoveRole detaches a role from an opportunity.
func (c *Coordinator) RemoveRole(ctx context.Context, opp models.Opportunity, roleID string) (models.Opportunity, error) {
	return c.mutateParent(ctx, opp, func(parent models.Opportunity) models.Opportunity {
		kept := parent.Roles[:0]
		for _, r := range parent.Roles {
			if r.ID != roleID {
				kept = append(kept, r)
			}
		}
		parent.Roles = kept
		return parent
	}, func(ctx context.Context) (models.Opportunity, error) {
		return c.remote.RemoveRole(ctx, opp.ID, roleID)
	})
}

// mutateParent is the shared protocol for role mutations: edit the parent
// opportunity optimistically in every partition that holds it, call the
// remote, then swap in the authoritative parent or roll back.
func (c *Coordinator) mutateParent(ctx context.Context, opp models.Opportunity,
	edit func(models.Opportunity) models.Opportunity,
	call func(context.Context) (models.Opportunity, error),
) (models.Opportunity, error) {
	family := PartitionFor(opp)
	affected := c.descriptorsContaining(family, opp.ID)
	snap := cache.Capture(c.store, affected...)

	now := time.Now()
	for _, d := range affected {
		c.store.Update(d, func(list []models.Opportunity) []models.Opportunity {
			for i := range list {
				if list[i].ID == opp.ID {
					edited := edit(list[i].Clone())
					edited.UpdatedAt = now
					list[i] = edited
				}
			}
			return list
		})
	}

	authoritative, err := call(ctx)
	if err != nil {
		snap.Restore(c.store)
		return models.Opportunity{}, fmt.Errorf("mutate roles of opportunity %s: %w", opp.ID, err)
	}

	c.replaceByID(family, opp.ID, authoritative)
	return authoritative, nil
}

// descriptorsContaining lists the live descriptors of one status family
// whose partition currently holds the given id.
func (c *Coordinator) descriptorsContaining(status models.OpportunityStatus, id string) []query.Descriptor {
	var descs []query.Descriptor
	for _, d := range c.store.DescriptorsFor(status) {
		if c.store.Contains(d, id) {
			descs = append(descs, d)
		}
	}
	return descs
}

// replaceByID swaps the entity (temporary or stale) for the authoritative
// one in every partition of the family that holds the matched id.
func (c *Coordinator) replaceByID(status models.OpportunityStatus, matchID string, authoritative models.Opportunity) {
	for _, d := range c.store.DescriptorsFor(status) {
		c.store.Update(d, func(list []models.Opportunity) []models.Opportunity {
			for i := range list {
				if list[i].ID == matchID || list[i].ID == authoritative.ID {
					list[i] = authoritative.Clone()
				}
			}
			return list
		})
	}
}

func (c *Coordinator) removeFrom(d query.Descriptor, id string) {
	c.store.Update(d, func(list []models.Opportunity) []models.Opportunity {
		kept := list[:0]
		for _, o := range list {
			if o.ID != id {
				kept = append(kept, o)
			}
		}
		return kept
	})
}

func applyPatch(o models.Opportunity, patch OpportunityPatch, now time.Time) models.Opportunity {
	if patch.ClientName != nil {
		o.ClientName = *patch.ClientName
	}
	if patch.OpportunityName != nil {
		o.OpportunityName = *patch.OpportunityName
	}
	if patch.StartDate != nil {
		o.StartDate = patch.StartDate
	}
	if patch.EndDate != nil {
		o.EndDate = patch.EndDate
	}
	if patch.Probability != nil {
		o.Probability = *patch.Probability
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	o.UpdatedAt = now
	return o
}

func applyRolePatch(r models.Role, patch RolePatch) models.Role {
	if patch.Name != nil {
		r.Name = *patch.Name
	}
	if patch.Grade != nil {
		r.RequiredGrade = *patch.Grade
	}
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.MemberID != nil {
		r.MemberID = patch.MemberID
	}
	if patch.Allocation != nil {
		r.Allocation = *patch.Allocation
	}
	if patch.NeedsHire != nil {
		r.NeedsHire = *patch.NeedsHire
	}
	return r
}
