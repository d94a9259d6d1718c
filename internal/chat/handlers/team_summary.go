package handlers

import (
	"context"
	"fmt"

	"github.com/callcoach/callcoach-core/internal/models"
)

// HandleTeamSummary aggregates call activity across a department,
// restricted to the agents inside the caller's scope. A manager with a
// floor-wide scope sees every team's agents; otherwise only their own.
func (s *Set) HandleTeamSummary(ctx context.Context, p *Params, message string) *Result {
	if p.Scope.Empty() && (p.Identity == nil || p.Identity.Role != models.RoleAdmin) {
		return fail(CategoryPermission, "You don't currently have access to any team data.")
	}

	department := p.Department
	if department == "" {
		department = s.defaults.Department
	}

	deptAgents, err := s.roster.DepartmentAgents(ctx, department)
	if err != nil {
		s.logger.Error("department roster fetch failed", "department", department, "error", err)
		return fail(CategoryUpstream, "I couldn't fetch the team roster right now. Please try again.")
	}

	isAdmin := p.Identity != nil && p.Identity.Role == models.RoleAdmin
	visible := make([]*models.Agent, 0, len(deptAgents))
	for _, a := range deptAgents {
		if isAdmin || p.Scope.Allows(a.ID) {
			visible = append(visible, a)
		}
	}
	if len(visible) == 0 {
		return okMessage(fmt.Sprintf("No agents you can access are in the %q department.", department))
	}

	from, to, days := s.window(p)
	summary := &models.TeamSummary{
		Department: department,
		AgentCount: len(visible),
		WindowDays: days,
	}

	var totalDuration int
	for _, a := range visible {
		calls, err := s.calls.ListCalls(ctx, a.ID, from, to, 0)
		if err != nil {
			s.logger.Error("team summary call fetch failed", "agent_id", a.ID, "error", err)
			return fail(CategoryUpstream, "I couldn't fetch the team's call data right now. Please try again.")
		}

		agg := models.TeamAggregate{AgentID: a.ID, AgentName: a.Name, TotalCalls: len(calls)}
		var dur int
		for _, c := range calls {
			dur += c.DurationSeconds
		}
		if len(calls) > 0 {
			agg.AvgDurationSecs = float64(dur) / float64(len(calls))
		}
		summary.PerAgent = append(summary.PerAgent, agg)
		summary.TotalCalls += len(calls)
		totalDuration += dur
	}

	if summary.TotalCalls == 0 {
		return okMessage(fmt.Sprintf("The %q department has no recorded calls in the last %d days.", department, days))
	}
	summary.AvgDurationSecs = float64(totalDuration) / float64(summary.TotalCalls)

	return ok(&TeamSummaryData{Type: "team_summary", Summary: summary})
}
