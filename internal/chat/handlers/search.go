package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/services"
)

// HandleSearchCalls runs semantic search over call snippets inside the
// caller's scope. An empty query is a validation error and never
// reaches the search collaborator.
func (s *Set) HandleSearchCalls(ctx context.Context, p *Params, message string) *Result {
	query := strings.TrimSpace(p.SearchQuery)
	if query == "" {
		return fail(CategoryValidation, "Please tell me what to search for, for example \"find calls where the customer mentioned pricing\".")
	}
	if p.Scope.Empty() && (p.Identity == nil || p.Identity.Role != models.RoleAdmin) {
		return fail(CategoryPermission, "You don't currently have access to any call data.")
	}

	opts := services.SearchOptions{Limit: p.Limit}
	if p.Identity == nil || p.Identity.Role != models.RoleAdmin {
		opts.Allowed = p.Scope.Allows
	}

	if p.AgentName != "" || p.AgentID != "" {
		agent, errRes := s.resolveScopedAgent(ctx, p)
		if errRes != nil {
			return errRes
		}
		opts.AgentID = agent.ID
	}

	results, err := s.searcher.Search(ctx, query, opts)
	if err != nil {
		s.logger.Error("call search failed", "query", query, "error", err)
		return fail(CategoryUpstream, "Search isn't available right now. Please try again in a moment.")
	}
	if len(results) == 0 {
		return okMessage(fmt.Sprintf("I didn't find any calls matching %q. Try different wording or a broader phrase.", query))
	}

	return ok(&SearchResultsData{
		Type:    "search_results",
		Query:   query,
		Results: results,
	})
}
