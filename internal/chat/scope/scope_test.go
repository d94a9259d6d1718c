package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
)

func seededRoster() *repo.MemoryStore {
	store := repo.NewMemoryStore()
	// Team A has three agents, team B two; the sets are disjoint.
	store.AddAgent(&models.Agent{ID: "a1", Name: "Alice", TeamID: "team-a", Active: true})
	store.AddAgent(&models.Agent{ID: "a2", Name: "Aaron", TeamID: "team-a", Active: true})
	store.AddAgent(&models.Agent{ID: "a3", Name: "Amy", TeamID: "team-a", Active: true})
	store.AddAgent(&models.Agent{ID: "b1", Name: "Bob", TeamID: "team-b", Active: true})
	store.AddAgent(&models.Agent{ID: "b2", Name: "Bella", TeamID: "team-b", Active: true})
	return store
}

func defaultPhrases() []string {
	return []string{"floor-wide", "floor wide", "all teams", "company-wide", "entire floor"}
}

func TestResolve_ManagerTeamScopeIsExactlyTheTeam(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleManager, TeamID: "team-a", Active: true}

	s, err := r.Resolve(context.Background(), identity, false)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, s.AllowedAgentIDs)
	assert.True(t, s.IsTeamScope)
	assert.False(t, s.IsFloorWide)
	assert.Equal(t, "team-a", s.TeamID)
	assert.False(t, s.Allows("b1"))
	assert.False(t, s.Allows("b2"))
}

func TestResolve_ManagerFloorWide(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleManager, TeamID: "team-a", Active: true}

	s, err := r.Resolve(context.Background(), identity, true)
	require.NoError(t, err)

	assert.Len(t, s.AllowedAgentIDs, 5)
	assert.True(t, s.IsFloorWide)
	assert.True(t, s.Allows("b1"))
}

func TestResolve_AdminAlwaysFloorWide(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleAdmin, Active: true}

	for _, floorWide := range []bool{false, true} {
		s, err := r.Resolve(context.Background(), identity, floorWide)
		require.NoError(t, err)
		assert.Len(t, s.AllowedAgentIDs, 5)
		assert.True(t, s.IsFloorWide)
	}
}

func TestResolve_AgentSelfOnly(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleAgent, LinkedAgentID: "a2", Active: true}

	s, err := r.Resolve(context.Background(), identity, true) // floor-wide request changes nothing for agents
	require.NoError(t, err)

	assert.Equal(t, []string{"a2"}, s.AllowedAgentIDs)
	assert.False(t, s.IsFloorWide)
}

func TestResolve_UnlinkedAgentDeniesEverything(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleAgent, Active: true}

	s, err := r.Resolve(context.Background(), identity, false)
	require.NoError(t, err)

	assert.True(t, s.Empty())
	assert.False(t, s.Allows("a1"))
}

func TestResolve_UnknownRoleIsMaximallyRestrictive(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: "superuser", Active: true}

	s, err := r.Resolve(context.Background(), identity, true)
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestResolve_InactiveCallerDenied(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleAdmin, Active: false}

	s, err := r.Resolve(context.Background(), identity, false)
	require.NoError(t, err)
	assert.True(t, s.Empty())
}

func TestResolve_Idempotent(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleManager, TeamID: "team-b", Active: true}

	first, err := r.Resolve(context.Background(), identity, false)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), identity, false)
	require.NoError(t, err)

	assert.Equal(t, first.AllowedAgentIDs, second.AllowedAgentIDs)
	assert.Equal(t, first.IsTeamScope, second.IsTeamScope)
	assert.Equal(t, first.TeamID, second.TeamID)
}

func TestFloorWideRequested(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())

	assert.True(t, r.FloorWideRequested("floor-wide team performance this month"))
	assert.True(t, r.FloorWideRequested("show me ALL TEAMS please"))
	// Single ambiguous words must not trigger.
	assert.False(t, r.FloorWideRequested("show me all calls for Sarah"))
	assert.False(t, r.FloorWideRequested("how is everyone's mood"))
}

func TestSetFloorWidePhrases_Reload(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())
	assert.False(t, r.FloorWideRequested("the whole org"))

	r.SetFloorWidePhrases([]string{"whole org"})
	assert.True(t, r.FloorWideRequested("the whole org"))
	assert.False(t, r.FloorWideRequested("floor-wide")) // old lexicon replaced
}

func TestCheckAccess(t *testing.T) {
	r := NewResolver(seededRoster(), defaultPhrases())

	manager := &models.CallerIdentity{ID: "u1", Role: models.RoleManager, TeamID: "team-a", Active: true}
	s, err := r.Resolve(context.Background(), manager, false)
	require.NoError(t, err)

	assert.NoError(t, CheckAccess(s, manager, "a1"))

	err = CheckAccess(s, manager, "b1")
	require.Error(t, err)
	var perm *PermissionError
	require.ErrorAs(t, err, &perm)
	assert.Contains(t, perm.Message, "not in your team")

	agent := &models.CallerIdentity{ID: "u2", Role: models.RoleAgent, LinkedAgentID: "a2", Active: true}
	as, err := r.Resolve(context.Background(), agent, false)
	require.NoError(t, err)
	assert.NoError(t, CheckAccess(as, agent, "a2"))
	err = CheckAccess(as, agent, "a1")
	require.Error(t, err)
	require.ErrorAs(t, err, &perm)
	assert.Contains(t, perm.Message, "your own")

	admin := &models.CallerIdentity{ID: "u3", Role: models.RoleAdmin, Active: true}
	assert.NoError(t, CheckAccess(newScope(nil), admin, "b2"))
}

func TestCheckAccess_EmptyScopeDeniesAll(t *testing.T) {
	identity := &models.CallerIdentity{ID: "u1", Role: models.RoleAgent, Active: true}
	s := newScope(nil)
	assert.Error(t, CheckAccess(s, identity, "a1"))
	assert.Error(t, CheckAccess(s, identity, ""))
}
