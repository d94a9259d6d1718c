package handlers

import (
	"context"
	"fmt"
)

// HandleListCalls lists one agent's calls inside the query window.
func (s *Set) HandleListCalls(ctx context.Context, p *Params, message string) *Result {
	agent, errRes := s.resolveScopedAgent(ctx, p)
	if errRes != nil {
		return errRes
	}

	from, to, days := s.window(p)
	limit := p.Limit
	if limit <= 0 {
		limit = s.defaults.Limit
	}

	calls, err := s.calls.ListCalls(ctx, agent.ID, from, to, limit)
	if err != nil {
		s.logger.Error("call listing failed", "agent_id", agent.ID, "error", err)
		return fail(CategoryUpstream, "I couldn't fetch the call list right now. Please try again.")
	}
	if len(calls) == 0 {
		return okMessage(fmt.Sprintf("%s has no recorded calls in the last %d days.", agent.Name, days))
	}

	return ok(&CallListData{
		Type:       "call_list",
		Agent:      agent,
		Calls:      calls,
		WindowDays: days,
	})
}
