package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/internal/feed"
	"github.com/gethired/jobagents/internal/task"
	"github.com/gethired/jobagents/internal/tools"
)

// Handler handles HTTP requests for the task surface.
type Handler struct {
	manager   *task.Manager
	approvals *tools.Approvals
	registry  *tools.Registry
	card      AgentCard
	feedSrv   *feed.Server
}

// AgentCard is the discovery document served at the well-known path.
type AgentCard struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Version     string   `json:"version"`
	Skills      []string `json:"skills"`
}

// NewHandler creates a new handler.
func NewHandler(manager *task.Manager, approvals *tools.Approvals, registry *tools.Registry, card AgentCard, feedSrv *feed.Server) *Handler {
	return &Handler{
		manager:   manager,
		approvals: approvals,
		registry:  registry,
		card:      card,
		feedSrv:   feedSrv,
	}
}

// RegisterRoutes registers the task routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/run", h.Run)
	e.GET("/.well-known/agent.json", h.Card)

	// Tool API: the engine routes agent tool calls back through here so
	// every invocation is policy-gated.
	e.POST("/v1/tools/:tool_name/invoke", h.InvokeTool)

	// Human-in-the-loop approvals
	e.GET("/v1/approvals/:ticket_id", h.GetApproval)
	e.POST("/v1/approvals/:ticket_id/decide", h.DecideApproval)

	if h.feedSrv != nil {
		e.GET("/ws", h.feedSrv.HandleWebSocket)
	}

	e.GET("/health", h.Health)
}

// Run executes one task.
// POST /run
func (h *Handler) Run(c echo.Context) error {
	var req domain.TaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	outcome := h.manager.ProcessTask(c.Request().Context(), &req)
	logrus.WithFields(logrus.Fields{
		"session_id": outcome.SessionID,
		"status":     outcome.Status,
	}).Info("task processed")

	// Failures are reported inside the envelope, the transport call itself
	// succeeded.
	return c.JSON(http.StatusOK, outcome)
}

// Card serves the agent discovery document.
// GET /.well-known/agent.json
func (h *Handler) Card(c echo.Context) error {
	return c.JSON(http.StatusOK, h.card)
}

type invokeToolRequest struct {
	UserID string                 `json:"user_id"`
	Args   map[string]interface{} `json:"args"`
}

// InvokeTool dispatches one tool call through the policy gate. Blocked calls
// come back rejected, approval-gated calls come back pending with a ticket
// id.
// POST /v1/tools/:tool_name/invoke
func (h *Handler) InvokeTool(c echo.Context) error {
	var req invokeToolRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	toolName := c.Param("tool_name")
	if h.registry.Lookup(toolName) == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown tool " + toolName})
	}

	result, err := h.registry.Call(c.Request().Context(), req.UserID, toolName, req.Args)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

type decideRequest struct {
	Approve   bool   `json:"approve"`
	DecidedBy string `json:"decided_by"`
	Reason    string `json:"reason"`
}

// GetApproval returns the state of one approval ticket.
// GET /v1/approvals/:ticket_id
func (h *Handler) GetApproval(c echo.Context) error {
	ticket := h.approvals.Get(c.Param("ticket_id"))
	if ticket == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "approval not found"})
	}
	return c.JSON(http.StatusOK, ticket)
}

// DecideApproval settles a pending approval ticket.
// POST /v1/approvals/:ticket_id/decide
func (h *Handler) DecideApproval(c echo.Context) error {
	var req decideRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ticketID := c.Param("ticket_id")
	if h.approvals.Get(ticketID) == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "approval not found"})
	}
	ticket, err := h.approvals.Decide(ticketID, req.Approve, req.DecidedBy, req.Reason)
	if err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, ticket)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
