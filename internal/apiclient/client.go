// Package apiclient is the HTTP client for the staffboard resource API. It
// implements board.Remote, so the mutation coordinator can write through it,
// and exposes the list endpoint for priming cache partitions.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/meridianhq/staffboard/internal/board"
	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

type Client struct {
	BaseURL string
	Token   string

	http *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListResult mirrors the list endpoint's response envelope.
type ListResult struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
	Limit         int                  `json:"limit"`
	Offset        int                  `json:"offset"`
}

// ListOpportunities fetches the partition addressed by the descriptor, using
// the descriptor's own canonical serialization so server-side and cached
// filters cannot drift apart.
func (c *Client) ListOpportunities(ctx context.Context, d query.Descriptor) ([]models.Opportunity, error) {
	var result ListResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/opportunities", d.Values(), nil, &result); err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	return result.Opportunities, nil
}

func (c *Client) GetOpportunity(ctx context.Context, id string) (models.Opportunity, error) {
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodGet, "/api/v1/opportunities/"+id, nil, nil, &opp); err != nil {
		return models.Opportunity{}, fmt.Errorf("get opportunity %s: %w", id, err)
	}
	return opp, nil
}

func (c *Client) CreateOpportunity(ctx context.Context, draft board.OpportunityDraft) (models.Opportunity, error) {
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodPost, "/api/v1/opportunities", nil, draft, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

func (c *Client) UpdateOpportunity(ctx context.Context, id string, patch board.OpportunityPatch) (models.Opportunity, error) {
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodPatch, "/api/v1/opportunities/"+id, nil, patch, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

func (c *Client) MoveOpportunity(ctx context.Context, id string, dest models.OpportunityStatus) (models.Opportunity, error) {
	body := map[string]string{"status": string(dest)}
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodPost, "/api/v1/opportunities/"+id+"/move", nil, body, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

func (c *Client) DeleteOpportunity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/opportunities/"+id, nil, nil, nil)
}

func (c *Client) AddRole(ctx context.Context, oppID string, draft board.RoleDraft) (models.Opportunity, error) {
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodPost, "/api/v1/opportunities/"+oppID+"/roles", nil, draft, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

func (c *Client) UpdateRole(ctx context.Context, oppID, roleID string, patch board.RolePatch) (models.Opportunity, error) {
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodPatch, "/api/v1/opportunities/"+oppID+"/roles/"+roleID, nil, patch, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

func (c *Client) RemoveRole(ctx context.Context, oppID, roleID string) (models.Opportunity, error) {
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodDelete, "/api/v1/opportunities/"+oppID+"/roles/"+roleID, nil, nil, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

// AssignRole staffs a member onto a role.
func (c *Client) AssignRole(ctx context.Context, oppID, roleID, memberID string) (models.Opportunity, error) {
	body := map[string]string{"member_id": memberID}
	var opp models.Opportunity
	if err := c.do(ctx, http.MethodPost, "/api/v1/opportunities/"+oppID+"/roles/"+roleID+"/assign", nil, body, &opp); err != nil {
		return models.Opportunity{}, err
	}
	return opp, nil
}

func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := c.do(ctx, http.MethodGet, "/api/v1/clients", nil, nil, &clients); err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (c *Client) ListMembers(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := c.do(ctx, http.MethodGet, "/api/v1/members", nil, nil, &members); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Stats returns per-bucket opportunity counts and staffing totals.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, nil, &stats); err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	return stats, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a JWT and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, loginRequest{Email: email, Password: password}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.Token = resp.Token
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("api returned status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
