package handlers

import (
	"context"
	"fmt"

	"github.com/callcoach/callcoach-core/internal/models"
)

// HandleAgentStats aggregates one agent's performance over the window.
// Zero calls in the window is a valid outcome, not an error.
func (s *Set) HandleAgentStats(ctx context.Context, p *Params, message string) *Result {
	agent, errRes := s.resolveScopedAgent(ctx, p)
	if errRes != nil {
		return errRes
	}

	from, to, days := s.window(p)
	calls, err := s.calls.ListCalls(ctx, agent.ID, from, to, 0)
	if err != nil {
		s.logger.Error("stats call fetch failed", "agent_id", agent.ID, "error", err)
		return fail(CategoryUpstream, "I couldn't fetch that agent's stats right now. Please try again.")
	}
	if len(calls) == 0 {
		return okMessage(fmt.Sprintf("%s has no calls in the last %d days, so there are no stats to report.", agent.Name, days))
	}

	return ok(&AgentStatsData{
		Type:  "agent_stats",
		Agent: agent,
		Stats: aggregateStats(agent.ID, calls, days),
	})
}

// aggregateStats folds call rows into a stats summary. Optional fields
// (talk ratio) are averaged over only the calls that carry them.
func aggregateStats(agentID string, calls []*models.Call, days int) *models.CallStats {
	stats := &models.CallStats{
		AgentID:       agentID,
		TotalCalls:    len(calls),
		OutcomeCounts: make(map[string]int),
		WindowDays:    days,
	}

	var ratioSum float64
	var ratioCount int
	for _, c := range calls {
		stats.TotalDurationSecs += c.DurationSeconds
		if c.Outcome != "" {
			stats.OutcomeCounts[c.Outcome]++
		}
		if c.TalkRatio != nil {
			ratioSum += *c.TalkRatio
			ratioCount++
		}
		started := c.StartedAt
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
