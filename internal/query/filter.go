package query

import (
	"strings"

	"github.com/meridianhq/staffboard/internal/models"
)

// Matches reports whether an opportunity belongs in the view filtered by c.
// Field rules combine with AND; the grade set uses OR across an
// opportunity's roles. Default criteria match everything.
//
// The needs-hire rule is deliberately existential in both directions: "no"
// matches when at least one role does NOT need a hire, not when none does.
// That mirrors the shipped dashboard behavior; keep it unless product says
// otherwise.
func Matches(o models.Opportunity, c Criteria) bool {
	c = c.normalize()

	if c.Client != "" && !strings.Contains(strings.ToLower(o.ClientName), c.Client) {
		return false
	}

	if len(c.Grades) > 0 {
		found := false
		for _, r := range o.Roles {
			for _, g := range c.Grades {
				if r.RequiredGrade == g {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}

	switch c.NeedsHire {
	case NeedsHireYes:
		if !anyRole(o, func(r models.Role) bool { return r.NeedsHire }) {
			return false
		}
	case NeedsHireNo:
		if !anyRole(o, func(r models.Role) bool { return !r.NeedsHire }) {
			return false
		}
	}

	if o.Probability < c.ProbMin || o.Probability > c.ProbMax {
		return false
	}

	return true
}

// Matches applies the descriptor's criteria. Status is not checked here; the
// partition an entity sits in already encodes its bucket.
func (d Descriptor) Matches(o models.Opportunity) bool {
	return Matches(o, d.Criteria)
}

func anyRole(o models.Opportunity, pred func(models.Role) bool) bool {
	for _, r := range o.Roles {
		if pred(r) {
			return true
		}
	}
	return false
}
