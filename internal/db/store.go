package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianhq/staffboard/internal/board"
	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListParams mirrors the list endpoint's filters. The server applies the
// same semantics the dashboard's filter evaluator applies locally, so
// optimistic filtering and the authoritative refetch agree.
type ListParams struct {
	Status    models.OpportunityStatus
	Client    string
	Grades    []models.Grade
	NeedsHire query.NeedsHire
	ProbMin   int
	ProbMax   int
	Limit     int
	Offset    int
}

type ListResult struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

const oppCols = `id, client_name, opportunity_name, start_date, end_date,
	probability, status, notes, created_at, updated_at`

// buildListWhere constructs the WHERE clause for ListOpportunities. Grade
// and needs-hire filters are existential over the opportunity's roles,
// matching the dashboard's in-memory evaluator (including the literal
// needs_hire=no rule: at least one role that does not need a hire).
func buildListWhere(params ListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(params.Status))
		argIdx++
	}
	if params.Client != "" {
		where += fmt.Sprintf(" AND client_name ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Client)
		argIdx++
	}
	if len(params.Grades) > 0 {
		grades := make([]string, len(params.Grades))
		for i, g := range params.Grades {
			grades[i] = string(g)
		}
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM roles r WHERE r.opportunity_id = opportunities.id AND r.required_grade = ANY($%d))", argIdx)
		args = append(args, grades)
		argIdx++
	}
	switch params.NeedsHire {
	case query.NeedsHireYes:
		where += " AND EXISTS (SELECT 1 FROM roles r WHERE r.opportunity_id = opportunities.id AND r.needs_hire = true)"
	case query.NeedsHireNo:
		where += " AND EXISTS (SELECT 1 FROM roles r WHERE r.opportunity_id = opportunities.id AND r.needs_hire = false)"
	}
	if params.ProbMin > 0 {
		where += fmt.Sprintf(" AND probability >= $%d", argIdx)
		args = append(args, params.ProbMin)
		argIdx++
	}
	if params.ProbMax > 0 && params.ProbMax < 100 {
		where += fmt.Sprintf(" AND probability <= $%d", argIdx)
		args = append(args, params.ProbMax)
		argIdx++
	}

	return where, args
}

func (s *Store) ListOpportunities(ctx context.Context, params ListParams) (*ListResult, error) {
	where, args := buildListWhere(params)

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM opportunities "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM opportunities %s ORDER BY updated_at DESC, created_at DESC LIMIT $%d OFFSET $%d",
		oppCols, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if err := s.attachRoles(ctx, opps); err != nil {
		return nil, err
	}

	if opps == nil {
		opps = []models.Opportunity{}
	}

	return &ListResult{
		Opportunities: opps,
		Total:         total,
		Limit:         params.Limit,
		Offset:        params.Offset,
	}, nil
}

func scanOpportunity(scan func(dest ...interface{}) error) (models.Opportunity, error) {
	var o models.Opportunity
	var status string
	err := scan(
		&o.ID, &o.ClientName, &o.OpportunityName, &o.StartDate, &o.EndDate,
		&o.Probability, &status, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = models.OpportunityStatus(status)
	return o, nil
}

// attachRoles loads the roles for every listed opportunity in one query.
func (s *Store) attachRoles(ctx context.Context, opps []models.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	ids := make([]string, len(opps))
	index := make(map[string]int, len(opps))
	for i, o := range opps {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, opportunity_id, name, required_grade, status, member_id, allocation, needs_hire
		FROM roles
		WHERE opportunity_id = ANY($1)
		ORDER BY created_at ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("roles query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Role
		var oppID, grade, status string
		if err := rows.Scan(&r.ID, &oppID, &r.Name, &grade, &status, &r.MemberID, &r.Allocation, &r.NeedsHire); err != nil {
			return fmt.Errorf("role scan failed: %w", err)
		}
		r.RequiredGrade = models.Grade(grade)
		r.Status = models.RoleStatus(status)
		if i, ok := index[oppID]; ok {
			opps[i].Roles = append(opps[i].Roles, r)
		}
	}
	return rows.Err()
}

func (s *Store) GetOpportunity(ctx context.Context, id string) (*models.Opportunity, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM opportunities WHERE id = $1", oppCols), id)
	o, err := scanOpportunity(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity failed: %w", err)
	}

	opps := []models.Opportunity{o}
	if err := s.attachRoles(ctx, opps); err != nil {
		return nil, err
	}
	return &opps[0], nil
}

func (s *Store) CreateOpportunity(ctx context.Context, draft board.OpportunityDraft) (*models.Opportunity, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO opportunities (client_name, opportunity_name, start_date, end_date, probability, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, draft.ClientName, draft.OpportunityName, draft.StartDate, draft.EndDate, draft.Probability, draft.Notes).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert opportunity failed: %w", err)
	}
	return s.GetOpportunity(ctx, id)
}

func (s *Store) UpdateOpportunity(ctx context.Context, id string, patch board.OpportunityPatch) (*models.Opportunity, error) {
	sets := []string{"updated_at = NOW()"}
	var args []interface{}
	argIdx := 1

	addSet := func(col string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if patch.ClientName != nil {
		addSet("client_name", *patch.ClientName)
	}
	if patch.OpportunityName != nil {
		addSet("opportunity_name", *patch.OpportunityName)
	}
	if patch.StartDate != nil {
		addSet("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		addSet("end_date", *patch.EndDate)
	}
	if patch.Probability != nil {
		addSet("probability", *patch.Probability)
	}
	if patch.Notes != nil {
		addSet("notes", *patch.Notes)
	}

	sql := fmt.Sprintf("UPDATE opportunities SET %s WHERE id = $%d", strings.Join(sets, ", "), argIdx)
	args = append(args, id)

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update opportunity failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetOpportunity(ctx, id)
}

// MoveOpportunity re-validates the status transition server-side before
// applying it, so a stale client cannot push an entity out of a terminal
// bucket.
func (s *Store) MoveOpportunity(ctx context.Context, id string, dest models.OpportunityStatus) (*models.Opportunity, error) {
	var current string
	err := s.pool.QueryRow(ctx, "SELECT status FROM opportunities WHERE id = $1", id).Scan(&current)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read status failed: %w", err)
	}

	if err := board.ValidateTransition(models.OpportunityStatus(current), dest); err != nil {
		return nil, err
	}

	if _, err := s.pool.Exec(ctx, "UPDATE opportunities SET status = $1, updated_at = NOW() WHERE id = $2", string(dest), id); err != nil {
		return nil, fmt.Errorf("move opportunity failed: %w", err)
	}
	return s.GetOpportunity(ctx, id)
}

func (s *Store) DeleteOpportunity(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM opportunities WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete opportunity failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AddRole(ctx context.Context, oppID string, draft board.RoleDraft) (*models.Opportunity, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO roles (opportunity_id, name, required_grade, allocation, needs_hire)
		VALUES ($1, $2, $3, $4, $5)
	`, oppID, draft.Name, string(draft.RequiredGrade), draft.Allocation, draft.NeedsHire)
	if err != nil {
		return nil, fmt.Errorf("insert role failed: %w", err)
	}
	return s.touchAndGet(ctx, oppID)
}

func (s *Store) UpdateRole(ctx context.Context, oppID, roleID string, patch board.RolePatch) (*models.Opportunity, error) {
	sets := []string{}
	var args []interface{}
	argIdx := 1

	addSet := func(col string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}

	if patch.Name != nil {
		addSet("name", *patch.Name)
	}
	if patch.Grade != nil {
		addSet("required_grade", string(*patch.Grade))
	}
	if patch.Status != nil {
		addSet("status", string(*patch.Status))
	}
	if patch.MemberID != nil {
		addSet("member_id", *patch.MemberID)
	}
	if patch.Allocation != nil {
		addSet("allocation", *patch.Allocation)
	}
	if patch.NeedsHire != nil {
		addSet("needs_hire", *patch.NeedsHire)
	}
	if len(sets) == 0 {
		return s.GetOpportunity(ctx, oppID)
	}

	sql := fmt.Sprintf("UPDATE roles SET %s WHERE id = $%d AND opportunity_id = $%d",
		strings.Join(sets, ", "), argIdx, argIdx+1)
	args = append(args, roleID, oppID)

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("update role failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.touchAndGet(ctx, oppID)
}

func (s *Store) RemoveRole(ctx context.Context, oppID, roleID string) (*models.Opportunity, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM roles WHERE id = $1 AND opportunity_id = $2", roleID, oppID)
	if err != nil {
		return nil, fmt.Errorf("delete role failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.touchAndGet(ctx, oppID)
}

// AssignRole staffs a member onto a role: the slot is no longer open and no
// longer needs a hire.
func (s *Store) AssignRole(ctx context.Context, oppID, roleID, memberID string) (*models.Opportunity, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE roles SET member_id = $1, status = 'staffed', needs_hire = false
		WHERE id = $2 AND opportunity_id = $3
	`, memberID, roleID, oppID)
	if err != nil {
		return nil, fmt.Errorf("assign role failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.touchAndGet(ctx, oppID)
}

func (s *Store) touchAndGet(ctx context.Context, oppID string) (*models.Opportunity, error) {
	if _, err := s.pool.Exec(ctx, "UPDATE opportunities SET updated_at = NOW() WHERE id = $1", oppID); err != nil {
		return nil, fmt.Errorf("touch opportunity failed: %w", err)
	}
	return s.GetOpportunity(ctx, oppID)
}

func (s *Store) CreateClient(ctx context.Context, client models.Client) (*models.Client, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO clients (name, industry, contact_email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, client.Name, client.Industry, client.ContactEmail).Scan(&client.ID, &client.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert client failed: %w", err)
	}
	return &client, nil
}

func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, industry, contact_email, created_at FROM clients ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Industry, &c.ContactEmail, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *Store) CreateMember(ctx context.Context, member models.Member) (*models.Member, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO members (name, grade, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, member.Name, string(member.Grade), member.Email).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert member failed: %w", err)
	}
	return &member, nil
}

func (s *Store) ListMembers(ctx context.Context) ([]models.Member, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, grade, email, created_at FROM members ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		var grade string
		if err := rows.Scan(&m.ID, &m.Name, &grade, &m.Email, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Grade = models.Grade(grade)
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	statusCounts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM opportunities GROUP BY status")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if scanErr := rows.Scan(&status, &count); scanErr == nil {
				statusCounts[status] = count
			}
		}
	}
	stats["status_counts"] = statusCounts

	var openRoles int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM roles WHERE status = 'open'").Scan(&openRoles)
	stats["open_roles"] = openRoles

	var needsHire int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM roles WHERE needs_hire = true").Scan(&needsHire)
	stats["roles_needing_hire"] = needsHire

	var clients int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients").Scan(&clients)
	stats["clients"] = clients

	return stats, nil
}
