package models

import (
	"fmt"
	"time"
)

// OpportunityStatus is the pipeline bucket an opportunity lives in.
type OpportunityStatus string

const (
	StatusInProgress OpportunityStatus = "in_progress"
	StatusOnHold     OpportunityStatus = "on_hold"
	StatusDone       OpportunityStatus = "done"
)

// OpportunityStatuses lists every bucket in board order.
var OpportunityStatuses = []OpportunityStatus{StatusInProgress, StatusOnHold, StatusDone}

func ParseOpportunityStatus(s string) (OpportunityStatus, error) {
	switch OpportunityStatus(s) {
	case StatusInProgress, StatusOnHold, StatusDone:
		return OpportunityStatus(s), nil
	}
	return "", fmt.Errorf("unknown opportunity status %q", s)
}

// RoleStatus tracks the staffing outcome of a single role.
type RoleStatus string

const (
	RoleOpen    RoleStatus = "open"
	RoleStaffed RoleStatus = "staffed"
	RoleWon     RoleStatus = "won"
	RoleLost    RoleStatus = "lost"
)

func ParseRoleStatus(s string) (RoleStatus, error) {
	switch RoleStatus(s) {
	case RoleOpen, RoleStaffed, RoleWon, RoleLost:
		return RoleStatus(s), nil
	}
	return "", fmt.Errorf("unknown role status %q", s)
}

// Role is a staffing slot attached to an opportunity.
type Role struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	RequiredGrade Grade      `json:"required_grade"`
	Status        RoleStatus `json:"status"`
	MemberID      *string    `json:"member_id"`
	Allocation    int        `json:"allocation"` // percent of a full-time assignment, 0-100
	NeedsHire     bool       `json:"needs_hire"`
}

// Opportunity is a sales-pipeline item with its staffing roles.
//
// IDs are opaque strings. Server-assigned ids are UUIDs; optimistic
// placeholders use a "tmp-" prefix, which the server never emits, so the
// two id spaces cannot collide.
type Opportunity struct {
	ID              string            `json:"id"`
	ClientName      string            `json:"client_name"`
	OpportunityName string            `json:"opportunity_name"`
	StartDate       *time.Time        `json:"start_date"`
	EndDate         *time.Time        `json:"end_date"`
	Probability     int               `json:"probability"` // 0-100
	Status          OpportunityStatus `json:"status"`
	Notes           string            `json:"notes"`
	Roles           []Role            `json:"roles"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Clone returns a copy whose role slice is independent of the receiver's.
// Date pointers are shared; they are never mutated in place.
func (o Opportunity) Clone() Opportunity {
	c := o
	if o.Roles != nil {
		c.Roles = make([]Role, len(o.Roles))
		copy(c.Roles, o.Roles)
	}
	return c
}

// CloneAll deep-copies a partition's worth of opportunities.
func CloneAll(opps []Opportunity) []Opportunity {
	if opps == nil {
		return nil
	}
	out := make([]Opportunity, len(opps))
	for i, o := range opps {
		out[i] = o.Clone()
	}
	return out
}

// ValidatePercent checks a probability or allocation value.
func ValidatePercent(field string, v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s must be within [0,100], got %d", field, v)
	}
	return nil
}

// Client is an account the opportunities belong to.
type Client struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Industry     string    `json:"industry"`
	ContactEmail string    `json:"contact_email"`
	CreatedAt    time.Time `json:"created_at"`
}

// Member is a staffable person.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     Grade     `json:"grade"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
