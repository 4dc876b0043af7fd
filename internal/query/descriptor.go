// Package query defines the canonical cache keys for board partitions and
// the pure filter predicate shared by the dashboard and the list endpoint.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/meridianhq/staffboard/internal/models"
)

// NeedsHire is the tri-state hiring filter.
type NeedsHire string

const (
	NeedsHireAll NeedsHire = "all"
	NeedsHireYes NeedsHire = "yes"
	NeedsHireNo  NeedsHire = "no"
)

func ParseNeedsHire(s string) (NeedsHire, error) {
	switch NeedsHire(s) {
	case NeedsHireAll, NeedsHireYes, NeedsHireNo:
		return NeedsHire(s), nil
	case "":
		return NeedsHireAll, nil
	}
	return "", fmt.Errorf("unknown needs-hire filter %q", s)
}

// Criteria is a filter over one status bucket. The zero value is NOT the
// identity filter; use DefaultCriteria.
type Criteria struct {
	Client    string         // case-insensitive substring of the client name
	Grades    []models.Grade // OR semantics across the set
	NeedsHire NeedsHire
	ProbMin   int // inclusive
	ProbMax   int // inclusive
}

// DefaultCriteria matches every opportunity.
func DefaultCriteria() Criteria {
	return Criteria{NeedsHire: NeedsHireAll, ProbMin: 0, ProbMax: 100}
}

// normalize rewrites equivalent criteria to a single canonical form so that
// two descriptors with the same effective filters produce the same key.
func (c Criteria) normalize() Criteria {
	c.Client = strings.ToLower(strings.TrimSpace(c.Client))

	if len(c.Grades) > 0 {
		seen := make(map[models.Grade]bool, len(c.Grades))
		grades := make([]models.Grade, 0, len(c.Grades))
		for _, g := range c.Grades {
			if !seen[g] {
				seen[g] = true
				grades = append(grades, g)
			}
		}
		sort.Slice(grades, func(i, j int) bool { return grades[i] < grades[j] })
		c.Grades = grades
	} else {
		c.Grades = nil
	}

	if c.NeedsHire == "" {
		c.NeedsHire = NeedsHireAll
	}
	// The zero interval [0,0] means "unset" and widens to the full range.
	if c.ProbMin == 0 && c.ProbMax == 0 {
		c.ProbMax = 100
	}
	if c.ProbMin < 0 {
		c.ProbMin = 0
	}
	if c.ProbMax > 100 {
		c.ProbMax = 100
	}
	return c
}

// isDefault reports whether the (normalized) criteria is the identity filter.
func (c Criteria) isDefault() bool {
	return c.Client == "" && len(c.Grades) == 0 &&
		c.NeedsHire == NeedsHireAll && c.ProbMin == 0 && c.ProbMax == 100
}

// Descriptor addresses one cache partition: a status bucket plus normalized
// criteria. Build one with NewDescriptor or Default; a hand-rolled Descriptor
// may carry a non-canonical criteria form and silently duplicate partitions.
type Descriptor struct {
	Status   models.OpportunityStatus
	Criteria Criteria
}

func NewDescriptor(status models.OpportunityStatus, c Criteria) Descriptor {
	return Descriptor{Status: status, Criteria: c.normalize()}
}

// Default is the unfiltered partition for a status bucket.
func Default(status models.OpportunityStatus) Descriptor {
	return Descriptor{Status: status, Criteria: DefaultCriteria()}
}

// IsDefault reports whether this descriptor carries the identity filter.
func (d Descriptor) IsDefault() bool {
	return d.Criteria.normalize().isDefault()
}

// Key is the canonical cache key. Equal effective filters yield equal keys
// regardless of grade order, client casing, or unset range endpoints.
func (d Descriptor) Key() string {
	c := d.Criteria.normalize()

	parts := make([]string, 0, len(c.Grades))
	for _, g := range c.Grades {
		parts = append(parts, string(g))
	}

	return fmt.Sprintf("status=%s|client=%s|grades=%s|hire=%s|prob=%d-%d",
		d.Status, c.Client, strings.Join(parts, ","), c.NeedsHire, c.ProbMin, c.ProbMax)
}

// Values serializes the descriptor into list-endpoint query parameters, so a
// partition is always refetched with exactly the filters that keyed it.
func (d Descriptor) Values() url.Values {
	c := d.Criteria.normalize()

	v := url.Values{}
	v.Set("status", string(d.Status))
	if c.Client != "" {
		v.Set("client", c.Client)
	}
	if len(c.Grades) > 0 {
		parts := make([]string, len(c.Grades))
		for i, g := range c.Grades {
			parts[i] = string(g)
		}
		v.Set("grades", strings.Join(parts, ","))
	}
	if c.NeedsHire != NeedsHireAll {
		v.Set("needs_hire", string(c.NeedsHire))
	}
	if c.ProbMin != 0 {
		v.Set("prob_min", fmt.Sprintf("%d", c.ProbMin))
	}
	if c.ProbMax != 100 {
		v.Set("prob_max", fmt.Sprintf("%d", c.ProbMax))
	}
	return v
}
