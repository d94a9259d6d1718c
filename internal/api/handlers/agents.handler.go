package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callcoach/callcoach-core/internal/api/middleware"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

const defaultOverviewDays = 30

// AgentsHandler serves the coaching dashboard's per-agent overview. The
// same scope rules as the chat pipeline apply: the path parameter is
// checked against the caller's scope before any data fetch.
type AgentsHandler struct {
	roster     repo.RosterStore
	calls      repo.CallStore
	goals      repo.GoalStore
	objections repo.ObjectionReader
	scopes     *scope.Resolver
	logger     logger.Logger
}

func NewAgentsHandler(
	roster repo.RosterStore,
	calls repo.CallStore,
	goals repo.GoalStore,
	objections repo.ObjectionReader,
	scopes *scope.Resolver,
	log logger.Logger,
) *AgentsHandler {
	return &AgentsHandler{
		roster:     roster,
		calls:      calls,
		goals:      goals,
		objections: objections,
		scopes:     scopes,
		logger:     log,
	}
}

// GET /api/v1/agents/:id/overview?days=30
//
// Stats, goals and recent objections are fetched concurrently; a failed
// branch degrades to an absent section rather than failing the request.
func (h *AgentsHandler) GetOverview(c *gin.Context) {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"status": "error",
			"error":  "Authentication required",
		})
		return
	}

	agentID := c.Param("id")
	days := defaultOverviewDays
	if raw := c.Query("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	dataScope, err := h.scopes.Resolve(c.Request.Context(), identity, false)
	if err != nil {
		h.logger.Error("scope resolution failed", "user_id", identity.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Internal server error",
		})
		return
	}

	if err := scope.CheckAccess(dataScope, identity, agentID); err != nil {
		var permErr *scope.PermissionError
		if errors.As(err, &permErr) {
			c.JSON(http.StatusForbidden, gin.H{
				"status": "error",
				"error":  permErr.Message,
			})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{
			"status": "error",
			"error":  "You do not have access to that agent's data.",
		})
		return
	}

	agent, err := h.roster.GetAgent(c.Request.Context(), agentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Agent not found",
		})
		return
	}

	overview := h.gatherOverview(c, agent, days)
	c.JSON(http.StatusOK, overview)
}

func (h *AgentsHandler) gatherOverview(c *gin.Context, agent *models.Agent, days int) gin.H {
	ctx := c.Request.Context()
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	var (
		wg         sync.WaitGroup
		stats      *models.CallStats
		goals      []models.GoalProgress
		objections []models.ObjectionRecord
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		calls, err := h.calls.ListCalls(ctx, agent.ID, from, to, 0)
		if err != nil {
			h.logger.Warn("overview call lookup failed", "agent_id", agent.ID, "error", err)
			return
		}
		stats = overviewStats(agent.ID, calls, days)
	}()
	go func() {
		defer wg.Done()
		var err error
		goals, err = h.goals.GoalsForAgent(ctx, agent.ID)
		if err != nil {
			h.logger.Warn("overview goal lookup failed", "agent_id", agent.ID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		objections, err = h.objections.RecentObjections(ctx, agent.ID, from)
		if err != nil {
			h.logger.Warn("overview objection lookup failed", "agent_id", agent.ID, "error", err)
		}
	}()
	wg.Wait()

	out := gin.H{
		"agent":       agent,
		"window_days": days,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	if stats != nil {
		out["stats"] = stats
	}
	if goals != nil {
		out["goals"] = goals
	}
	if objections != nil {
		out["recent_objections"] = objections
	}
	return out
}

func overviewStats(agentID string, calls []*models.Call, days int) *models.CallStats {
	stats := &models.CallStats{
		AgentID:       agentID,
		TotalCalls:    len(calls),
		OutcomeCounts: make(map[string]int),
		WindowDays:    days,
	}
	if len(calls) == 0 {
		return stats
	}

	var ratioSum float64
	var ratioCount int
	for _, call := range calls {
		stats.TotalDurationSecs += call.DurationSeconds
		if call.Outcome != "" {
			stats.OutcomeCounts[call.Outcome]++
		}
		if call.TalkRatio != nil {
			ratioSum += *call.TalkRatio
			ratioCount++
		}
		started := call.StartedAt
		if stats.FirstCallInWindow == nil || started.Before(*stats.FirstCallInWindow) {
			t := started
			stats.FirstCallInWindow = &t
		}
		if stats.LatestCallInWindow == nil || started.After(*stats.LatestCallInWindow) {
			t := started
			stats.LatestCallInWindow = &t
		}
	}
	stats.AvgDurationSecs = float64(stats.TotalDurationSecs) / float64(len(calls))
	if ratioCount > 0 {
		avg := ratioSum / float64(ratioCount)
		stats.AvgTalkRatio = &avg
	}
	return stats
}
