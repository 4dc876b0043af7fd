// Package cache holds the board's partitioned entity cache. Each partition
// is the materialized list for one query descriptor and is mutated only
// through the coordinator's snapshot/write/rollback protocol.
package cache

import (
	"sync"

	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

type partition struct {
	desc     query.Descriptor
	entities []models.Opportunity
	stale    bool
}

// Store maps descriptor keys to partitions. Partitions come into existence
// on the first Set (normally the first successful fetch); reads of unknown
// descriptors report absence rather than erroring.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
}

func New() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

// Get returns a copy of the partition's contents. The copy is deep enough
// that callers may hold or edit rows without corrupting the cache.
func (s *Store) Get(d query.Descriptor) ([]models.Opportunity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[d.Key()]
	if !ok {
		return nil, false
	}
	return models.CloneAll(p.entities), true
}

// Set replaces a partition's contents wholesale and clears its stale mark,
// creating the partition if needed. Last write wins under concurrent Sets on
// the same descriptor.
func (s *Store) Set(d query.Descriptor, entities []models.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.partitions[d.Key()] = &partition{
		desc:     d,
		entities: models.CloneAll(entities),
	}
}

// Update applies fn to the partition's contents under the lock. Absent
// partitions are a no-op. fn receives a private copy and its return value
// becomes the new contents.
func (s *Store) Update(d query.Descriptor, fn func([]models.Opportunity) []models.Opportunity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partitions[d.Key()]
	if !ok {
		return
	}
	p.entities = fn(models.CloneAll(p.entities))
}

// Invalidate marks a partition stale so the data layer refetches it on next
// use. Contents stay readable until the refetch lands.
func (s *Store) Invalidate(d query.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.partitions[d.Key()]; ok {
		p.stale = true
	}
}

// Stale reports whether a partition needs a refetch. Unknown partitions are
// stale by definition.
func (s *Store) Stale(d query.Descriptor) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[d.Key()]
	return !ok || p.stale
}

// DescriptorsFor lists the live descriptors in one status family. The
// coordinator fans mutations out across exactly this set, so it never scans
// partitions belonging to other buckets.
func (s *Store) DescriptorsFor(status models.OpportunityStatus) []query.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var descs []query.Descriptor
	for _, p := range s.partitions {
		if p.desc.Status == status {
			descs = append(descs, p.desc)
		}
	}
	return descs
}

// Contains reports whether the partition currently holds the given id.
func (s *Store) Contains(d query.Descriptor, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.partitions[d.Key()]
	if !ok {
		return false
	}
	for _, o := range p.entities {
		if o.ID == id {
			return true
		}
	}
	return false
}
