// Package scope computes the set of agent identifiers a caller may query.
// The resolver is pure over the caller identity and the injected roster;
// nothing here is cached between requests. Every data handler must check
// its target against the resolved scope before fetching anything.
package scope

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
)

// DataAccessScope is the derived, request-scoped permission set.
// An empty AllowedAgentIDs denies all data access; it never falls back
// to "all".
type DataAccessScope struct {
	AllowedAgentIDs []string `json:"allowed_agent_ids"`
	IsFloorWide     bool     `json:"is_floor_wide"`
	IsTeamScope     bool     `json:"is_team_scope"`
	TeamID          string   `json:"team_id,omitempty"`
	TeamName        string   `json:"team_name,omitempty"`

	allowed map[string]struct{}
}

// Allows reports whether agentID is inside the scope.
func (s *DataAccessScope) Allows(agentID string) bool {
	if s == nil || agentID == "" {
		return false
	}
	_, ok := s.allowed[agentID]
	return ok
}

// Empty reports whether the scope denies everything.
func (s *DataAccessScope) Empty() bool {
	return s == nil || len(s.AllowedAgentIDs) == 0
}

func newScope(ids []string) *DataAccessScope {
	sort.Strings(ids)
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return &DataAccessScope{AllowedAgentIDs: ids, allowed: allowed}
}

// PermissionError is returned when a target agent falls outside the
// caller's scope. Message is user-safe and names the remediation.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// Resolver computes scopes from identities and detects floor-wide intent
// in query text. The phrase lexicon is hot-reloadable.
type Resolver struct {
	roster repo.RosterStore

	mu      sync.RWMutex
	phrases []string
}

// NewResolver builds a resolver over the given roster. phrases is the
// floor-wide lexicon; entries are matched case-insensitively as substrings.
func NewResolver(roster repo.RosterStore, phrases []string) *Resolver {
	r := &Resolver{roster: roster}
	r.SetFloorWidePhrases(phrases)
	return r
}

// SetFloorWidePhrases replaces the lexicon. Called on config reload.
func (r *Resolver) SetFloorWidePhrases(phrases []string) {
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	r.mu.Lock()
	r.phrases = lowered
	r.mu.Unlock()
}

// FloorWideRequested scans the raw message for the floor-wide lexicon.
// The lexicon is conservative: a false positive here widens a manager's
// scope across teams, so only explicit multi-word phrases belong in it.
func (r *Resolver) FloorWideRequested(message string) bool {
	m := strings.ToLower(message)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.phrases {
		if strings.Contains(m, p) {
			return true
		}
	}
	return false
}

// Resolve computes the caller's data access scope.
//
//	admin                          -> all agents, floor-wide
//	manager, floor-wide requested  -> all agents, floor-wide
//	manager                        -> own team's agents
//	agent                          -> own linked agent, or nothing
//	anything else                  -> nothing
func (r *Resolver) Resolve(ctx context.Context, identity *models.CallerIdentity, floorWideRequested bool) (*DataAccessScope, error) {
	if identity == nil || !identity.Active {
		return newScope(nil), nil
	}

	switch identity.Role {
	case models.RoleAdmin:
		return r.floorWideScope(ctx)

	case models.RoleManager:
		if floorWideRequested {
			return r.floorWideScope(ctx)
		}
		if identity.TeamID == "" {
			// A manager without a team can see nothing team-scoped.
			return newScope(nil), nil
		}
		agents, err := r.roster.TeamAgents(ctx, identity.TeamID)
		if err != nil {
			return nil, fmt.Errorf("team roster lookup failed: %w", err)
		}
		s := newScope(agentIDs(agents))
		s.IsTeamScope = true
		s.TeamID = identity.TeamID
		return s, nil

	case models.RoleAgent:
		if identity.LinkedAgentID == "" {
			return newScope(nil), nil
		}
		return newScope([]string{identity.LinkedAgentID}), nil

	default:
		// Unrecognized role: maximally restrictive, never permissive.
		return newScope(nil), nil
	}
}

func (r *Resolver) floorWideScope(ctx context.Context) (*DataAccessScope, error) {
	agents, err := r.roster.AllAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("global roster lookup failed: %w", err)
	}
	s := newScope(agentIDs(agents))
	s.IsFloorWide = true
	return s, nil
}

// CheckAccess verifies that the caller may read targetAgentID's data.
// Admins always pass; everyone else needs the target inside their scope.
// The permission check runs before any data fetch.
func CheckAccess(s *DataAccessScope, identity *models.CallerIdentity, targetAgentID string) error {
	if identity != nil && identity.Role == models.RoleAdmin {
		return nil
	}
	if s.Allows(targetAgentID) {
		return nil
	}
	if identity != nil && identity.Role == models.RoleAgent {
		return &PermissionError{Message: "You can only access your own call data."}
	}
	if identity != nil && identity.Role == models.RoleManager {
		return &PermissionError{Message: "That agent is not in your team. Use a floor-wide query to look across teams."}
	}
	return &PermissionError{Message: "You do not have access to that agent's data."}
}

func agentIDs(agents []*models.Agent) []string {
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids
}
