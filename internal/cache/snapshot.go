package cache

import (
	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

// Snapshot is an immutable pre-mutation capture of one or more partitions.
// It belongs to exactly one in-flight mutation: dropped on success, restored
// verbatim on failure. Partitions absent at capture time are skipped, so a
// restore never conjures partitions the mutation did not touch.
type Snapshot struct {
	parts []snapshotPart
}

type snapshotPart struct {
	desc     query.Descriptor
	entities []models.Opportunity
}

// Capture deep-copies the current contents of every present descriptor.
func Capture(s *Store, descs ...query.Descriptor) *Snapshot {
	snap := &Snapshot{}
	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		if seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true

		entities, ok := s.Get(d)
		if !ok {
			continue
		}
		snap.parts = append(snap.parts, snapshotPart{desc: d, entities: entities})
	}
	return snap
}

// Restore writes every captured partition back exactly as it was.
func (snap *Snapshot) Restore(s *Store) {
	for _, p := range snap.parts {
		s.Set(p.desc, p.entities)
	}
}

// Descriptors lists what the snapshot captured.
func (snap *Snapshot) Descriptors() []query.Descriptor {
	descs := make([]query.Descriptor, len(snap.parts))
	for i, p := range snap.parts {
		descs[i] = p.desc
	}
	return descs
}
