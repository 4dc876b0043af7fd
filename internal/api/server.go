package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/meridianhq/staffboard/internal/auth"
	"github.com/meridianhq/staffboard/internal/board"
	"github.com/meridianhq/staffboard/internal/db"
	"github.com/meridianhq/staffboard/internal/models"
	"github.com/meridianhq/staffboard/internal/query"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo

	sanitizer *bluemonday.Policy
}

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s := &Server{
		Store:       db.NewStore(pool),
		AuthService: auth.NewService(pool),
		Echo:        e,
		sanitizer:   bluemonday.UGCPolicy(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/opportunities/:id", s.handleGetOpportunity)
	api.GET("/clients", s.handleListClients)
	api.GET("/members", s.handleListMembers)
	api.GET("/stats", s.handleGetStats)

	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Writes require a logged-in user.
	writes := api.Group("")
	writes.Use(auth.Middleware)
	writes.POST("/opportunities", s.handleCreateOpportunity)
	writes.PATCH("/opportunities/:id", s.handleUpdateOpportunity)
	writes.POST("/opportunities/:id/move", s.handleMoveOpportunity)
	writes.DELETE("/opportunities/:id", s.handleDeleteOpportunity)
	writes.POST("/opportunities/:id/roles", s.handleAddRole)
	writes.PATCH("/opportunities/:id/roles/:roleID", s.handleUpdateRole)
	writes.DELETE("/opportunities/:id/roles/:roleID", s.handleRemoveRole)
	writes.POST("/opportunities/:id/roles/:roleID/assign", s.handleAssignRole)
	writes.POST("/clients", s.handleCreateClient)
	writes.POST("/members", s.handleCreateMember)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	params := db.ListParams{
		Client: c.QueryParam("client"),
	}

	if raw := c.QueryParam("status"); raw != "" {
		status, err := models.ParseOpportunityStatus(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		params.Status = status
	}

	for _, part := range splitCSV(c.QueryParam("grades")) {
		grade, err := models.ParseGrade(part)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		params.Grades = append(params.Grades, grade)
	}

	needsHire, err := query.ParseNeedsHire(c.QueryParam("needs_hire"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	params.NeedsHire = needsHire

	if v, err := strconv.Atoi(c.QueryParam("prob_min")); err == nil && v > 0 {
		params.ProbMin = v
	}
	if v, err := strconv.Atoi(c.QueryParam("prob_max")); err == nil && v > 0 {
		params.ProbMax = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		params.Offset = v
	}

	result, err := s.Store.ListOpportunities(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("Failed to list opportunities: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	opp, err := s.Store.GetOpportunity(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleCreateOpportunity(c echo.Context) error {
	var draft board.OpportunityDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(draft.ClientName) == "" || strings.TrimSpace(draft.OpportunityName) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "client_name and opportunity_name are required"})
	}
	if err := models.ValidatePercent("probability", draft.Probability); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	draft.Notes = s.sanitizer.Sanitize(draft.Notes)

	opp, err := s.Store.CreateOpportunity(c.Request().Context(), draft)
	if err != nil {
		c.Logger().Errorf("Failed to create opportunity: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}
	return c.JSON(http.StatusCreated, opp)
}

func (s *Server) handleUpdateOpportunity(c echo.Context) error {
	var patch board.OpportunityPatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if patch.Probability != nil {
		if err := models.ValidatePercent("probability", *patch.Probability); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	if patch.Notes != nil {
		clean := s.sanitizer.Sanitize(*patch.Notes)
		patch.Notes = &clean
	}

	opp, err := s.Store.UpdateOpportunity(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleMoveOpportunity(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	dest, err := models.ParseOpportunityStatus(req.Status)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	opp, err := s.Store.MoveOpportunity(c.Request().Context(), c.Param("id"), dest)
	if err != nil {
		if errors.Is(err, board.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleDeleteOpportunity(c echo.Context) error {
	if err := s.Store.DeleteOpportunity(c.Request().Context(), c.Param("id")); err != nil {
		return s.storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAddRole(c echo.Context) error {
	var draft board.RoleDraft
	if err := c.Bind(&draft); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if _, err := models.ParseGrade(string(draft.RequiredGrade)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if err := models.ValidatePercent("allocation", draft.Allocation); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	opp, err := s.Store.AddRole(c.Request().Context(), c.Param("id"), draft)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusCreated, opp)
}

func (s *Server) handleUpdateRole(c echo.Context) error {
	var patch board.RolePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if patch.Grade != nil {
		if _, err := models.ParseGrade(string(*patch.Grade)); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	if patch.Status != nil {
		if _, err := models.ParseRoleStatus(string(*patch.Status)); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}
	if patch.Allocation != nil {
		if err := models.ValidatePercent("allocation", *patch.Allocation); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
	}

	opp, err := s.Store.UpdateRole(c.Request().Context(), c.Param("id"), c.Param("roleID"), patch)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleRemoveRole(c echo.Context) error {
	opp, err := s.Store.RemoveRole(c.Request().Context(), c.Param("id"), c.Param("roleID"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleAssignRole(c echo.Context) error {
	var req struct {
		MemberID string `json:"member_id"`
	}
	if err := c.Bind(&req); err != nil || req.MemberID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "member_id is required"})
	}

	opp, err := s.Store.AssignRole(c.Request().Context(), c.Param("id"), c.Param("roleID"), req.MemberID)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, opp)
}

func (s *Server) handleListClients(c echo.Context) error {
	clients, err := s.Store.ListClients(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, clients)
}

func (s *Server) handleCreateClient(c echo.Context) error {
	var client models.Client
	if err := c.Bind(&client); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if strings.TrimSpace(client.Name) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	created, err := s.Store.CreateClient(c.Request().Context(), client)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListMembers(c echo.Context) error {
	members, err := s.Store.ListMembers(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, members)
}

func (s *Server) handleCreateMember(c echo.Context) error {
	var member models.Member
	if err := c.Bind(&member); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if _, err := models.ParseGrade(string(member.Grade)); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	created, err := s.Store.CreateMember(c.Request().Context(), member)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.Store.GetStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) storeError(c echo.Context, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	c.Logger().Errorf("Store error: %v", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}

// splitCSV splits a comma-separated query parameter into trimmed non-empty strings.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
