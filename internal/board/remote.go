package board

import (
	"context"
	"time"

	"github.com/meridianhq/staffboard/internal/models"
)

// OpportunityDraft is the payload for creating an opportunity. New
// opportunities always start in the in-progress bucket.
type OpportunityDraft struct {
	ClientName      string     `json:"client_name"`
	OpportunityName string     `json:"opportunity_name"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Probability     int        `json:"probability"`
	Notes           string     `json:"notes,omitempty"`
}

// OpportunityPatch carries partial field updates; nil means "leave as is".
type OpportunityPatch struct {
	ClientName      *string    `json:"client_name,omitempty"`
	OpportunityName *string    `json:"opportunity_name,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Probability     *int       `json:"probability,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// RoleDraft is the payload for attaching a role to an opportunity.
type RoleDraft struct {
	Name          string       `json:"name"`
	RequiredGrade models.Grade `json:"required_grade"`
	Allocation    int          `json:"allocation"`
	NeedsHire     bool         `json:"needs_hire"`
}

// RolePatch carries partial role updates; nil means "leave as is".
type RolePatch struct {
	Name       *string            `json:"name,omitempty"`
	Grade      *models.Grade      `json:"required_grade,omitempty"`
	Status     *models.RoleStatus `json:"status,omitempty"`
	MemberID   *string            `json:"member_id,omitempty"`
	Allocation *int               `json:"allocation,omitempty"`
	NeedsHire  *bool              `json:"needs_hire,omitempty"`
}

// Remote is the resource API the coordinator writes through. Role mutations
// return the full parent opportunity so reconciliation is a single replace.
// Errors are opaque: the coordinator only distinguishes success from failure.
type Remote interface {
	CreateOpportunity(ctx context.Context, draft OpportunityDraft) (models.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, patch OpportunityPatch) (models.Opportunity, error)
	MoveOpportunity(ctx context.Context, id string, dest models.OpportunityStatus) (models.Opportunity, error)
	DeleteOpportunity(ctx context.Context, id string) error

	AddRole(ctx context.Context, oppID string, draft RoleDraft) (models.Opportunity, error)
	UpdateRole(ctx context.Context, oppID, roleID string, patch RolePatch) (models.Opportunity, error)
	RemoveRole(ctx context.Context, oppID, roleID string) (models.Opportunity, error)
}
