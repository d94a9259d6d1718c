package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcoach/callcoach-core/internal/chat/agents"
	"github.com/callcoach/callcoach-core/internal/chat/intent"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/internal/services"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

type fakeAnalyzer struct {
	coaching   *models.CoachingAnalysis
	objections *models.ObjectionAnalysis
	err        error
}

func (f *fakeAnalyzer) AnalyzeCoaching(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.CoachingAnalysis, error) {
	return f.coaching, f.err
}

func (f *fakeAnalyzer) AnalyzeObjections(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.ObjectionAnalysis, error) {
	return f.objections, f.err
}

type fakeSearcher struct {
	results []models.CallSearchResult
	err     error
	calls   int
	lastOpt services.SearchOptions
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts services.SearchOptions) ([]models.CallSearchResult, error) {
	f.calls++
	f.lastOpt = opts
	return f.results, f.err
}

type fakeTelemetry struct {
	recorded []*models.ObjectionAnalysis
	agentIDs []string
}

func (f *fakeTelemetry) Record(agentID string, analysis *models.ObjectionAnalysis) {
	f.agentIDs = append(f.agentIDs, agentID)
	f.recorded = append(f.recorded, analysis)
}

type fixture struct {
	store     *repo.MemoryStore
	set       *Set
	dispatch  *Dispatcher
	resolver  *scope.Resolver
	analyzer  *fakeAnalyzer
	searcher  *fakeSearcher
	telemetry *fakeTelemetry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repo.NewMemoryStore()

	// team t1: Sarah, Mike, Jess; team t2: Dana, Omar
	store.AddAgent(&models.Agent{ID: "a1", Name: "Sarah Chen", TeamID: "t1", Department: "sales", Active: true})
	store.AddAgent(&models.Agent{ID: "a2", Name: "Mike Ross", TeamID: "t1", Department: "sales", Active: true})
	store.AddAgent(&models.Agent{ID: "a3", Name: "Jess Wu", TeamID: "t1", Department: "sales", Active: true})
	store.AddAgent(&models.Agent{ID: "b1", Name: "Dana Hill", TeamID: "t2", Department: "sales", Active: true})
	store.AddAgent(&models.Agent{ID: "b2", Name: "Omar Diaz", TeamID: "t2", Department: "sales", Active: true})

	now := time.Now().UTC()
	ratio := 0.55
	store.AddCall(&models.Call{ID: "c1", AgentID: "a1", StartedAt: now.Add(-48 * time.Hour), DurationSeconds: 600, Outcome: "won", TalkRatio: &ratio})
	store.AddCall(&models.Call{ID: "c2", AgentID: "a1", StartedAt: now.Add(-72 * time.Hour), DurationSeconds: 300, Outcome: "lost"})
	store.AddCall(&models.Call{ID: "c3", AgentID: "a1", StartedAt: now.Add(-40 * 24 * time.Hour), DurationSeconds: 900})
	store.AddCall(&models.Call{ID: "c4", AgentID: "b1", StartedAt: now.Add(-24 * time.Hour), DurationSeconds: 450})
	store.AddTurns("c1", []models.TranscriptTurn{
		{CallID: "c1", Seq: 1, Speaker: "agent", Text: "Hi, thanks for joining."},
		{CallID: "c1", Seq: 2, Speaker: "customer", Text: "Happy to be here."},
	})
	store.AddCall(&models.Call{
		ID: "c5", AgentID: "a2", StartedAt: now.Add(-20 * time.Hour), DurationSeconds: 500,
		RawTranscript: "Agent: Good morning!\nCustomer: We think it's too expensive.\nAgent: Let's walk through the value.",
	})

	analyzer := &fakeAnalyzer{}
	searcher := &fakeSearcher{}
	telemetry := &fakeTelemetry{}

	set := NewSet(
		store, store, store,
		agents.NewResolver(store),
		analyzer, searcher, telemetry,
		Defaults{Department: "sales", DaysBack: 30, Limit: 10},
		logger.NewNop(),
	)
	dispatch, err := NewDispatcher(set)
	require.NoError(t, err)

	return &fixture{
		store:     store,
		set:       set,
		dispatch:  dispatch,
		resolver:  scope.NewResolver(store, []string{"floor-wide", "all teams", "company-wide"}),
		analyzer:  analyzer,
		searcher:  searcher,
		telemetry: telemetry,
	}
}

func (f *fixture) managerParams(t *testing.T) *Params {
	t.Helper()
	identity := &models.CallerIdentity{ID: "u-mgr", Role: models.RoleManager, TeamID: "t1", Active: true}
	sc, err := f.resolver.Resolve(context.Background(), identity, false)
	require.NoError(t, err)
	return &Params{Scope: sc, Identity: identity}
}

func (f *fixture) agentParams(t *testing.T, linked string) *Params {
	t.Helper()
	identity := &models.CallerIdentity{ID: "u-agent", Role: models.RoleAgent, LinkedAgentID: linked, Active: true}
	sc, err := f.resolver.Resolve(context.Background(), identity, false)
	require.NoError(t, err)
	return &Params{Scope: sc, Identity: identity}
}

func TestDispatcher_TotalOverIntentEnum(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.dispatch.Intents(), len(intent.All()))
	for _, it := range intent.All() {
		assert.NotNil(t, f.dispatch.Handler(it), "intent %s", it)
	}
}

func TestDispatcher_UnknownIntentFallsBackToGeneral(t *testing.T) {
	f := newFixture(t)
	h := f.dispatch.Handler(intent.Intent("BOGUS"))
	res := h(context.Background(), f.managerParams(t), "hi")
	assert.True(t, res.Success)
	assert.Nil(t, res.Data)
}

func TestListCalls_ManagerSeesTeamAgentWindow(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.AgentName = "Sarah"
	p.DaysBack = 7

	res := f.set.HandleListCalls(context.Background(), p, "Show me Sarah's calls from the last 7 days")
	require.True(t, res.Success, res.Error)

	data, okCast := res.Data.(*CallListData)
	require.True(t, okCast)
	assert.Equal(t, "a1", data.Agent.ID)
	assert.Equal(t, 7, data.WindowDays)
	// c3 is 40 days old and must be excluded; newest first
	require.Len(t, data.Calls, 2)
	assert.Equal(t, "c1", data.Calls[0].ID)
	assert.Equal(t, "c2", data.Calls[1].ID)
}

func TestListCalls_UnresolvedNameIsNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.AgentName = "Zebulon"

	res := f.set.HandleListCalls(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryNotFound, res.Category)
	assert.Nil(t, res.Data)
	assert.NotEmpty(t, res.Error)
}

func TestListCalls_OutOfScopeAgentIsPermissionError(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.AgentName = "Dana" // exists, but team t2

	res := f.set.HandleListCalls(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryPermission, res.Category)
	assert.Contains(t, res.Error, "not in your team")
}

func TestListCalls_ExplicitIDOutOfScope(t *testing.T) {
	f := newFixture(t)
	p := f.agentParams(t, "a1")
	p.AgentID = "a2"

	res := f.set.HandleListCalls(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryPermission, res.Category)
	assert.Contains(t, res.Error, "your own call data")
}

func TestListCalls_UnlinkedAgentDeniedEverything(t *testing.T) {
	f := newFixture(t)
	p := f.agentParams(t, "")
	p.AgentName = "Sarah"

	res := f.set.HandleListCalls(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryPermission, res.Category)
}

func TestAgentStats_Aggregates(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.AgentName = "Sarah"
	p.DaysBack = 7

	res := f.set.HandleAgentStats(context.Background(), p, "")
	require.True(t, res.Success, res.Error)

	data := res.Data.(*AgentStatsData)
	assert.Equal(t, 2, data.Stats.TotalCalls)
	assert.Equal(t, 900, data.Stats.TotalDurationSecs)
	assert.InDelta(t, 450.0, data.Stats.AvgDurationSecs, 0.001)
	assert.Equal(t, 1, data.Stats.OutcomeCounts["won"])
	require.NotNil(t, data.Stats.AvgTalkRatio)
	assert.InDelta(t, 0.55, *data.Stats.AvgTalkRatio, 0.001)
}

func TestAgentStats_ZeroCallsIsSuccessWithNilData(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.AgentName = "Jess" // no calls seeded
	p.DaysBack = 7

	res := f.set.HandleAgentStats(context.Background(), p, "")
	require.True(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Contains(t, res.Message, "no calls")
	assert.Empty(t, res.Error)
}

func TestTeamSummary_ManagerRestrictedToOwnTeam(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.DaysBack = 7

	res := f.set.HandleTeamSummary(context.Background(), p, "how did the team do")
	require.True(t, res.Success, res.Error)

	data := res.Data.(*TeamSummaryData)
	assert.Equal(t, "sales", data.Summary.Department)
	assert.Equal(t, 3, data.Summary.AgentCount)
	// Dana's c4 is outside the manager's scope
	assert.Equal(t, 3, data.Summary.TotalCalls)
}

func TestTeamSummary_FloorWideManagerSeesAllTeams(t *testing.T) {
	f := newFixture(t)
	identity := &models.CallerIdentity{ID: "u-mgr", Role: models.RoleManager, TeamID: "t1", Active: true}
	sc, err := f.resolver.Resolve(context.Background(), identity, f.resolver.FloorWideRequested("floor-wide team performance this month"))
	require.NoError(t, err)
	require.True(t, sc.IsFloorWide)

	p := &Params{Scope: sc, Identity: identity, DaysBack: 7}
	res := f.set.HandleTeamSummary(context.Background(), p, "floor-wide team performance this month")
	require.True(t, res.Success, res.Error)

	data := res.Data.(*TeamSummaryData)
	assert.Equal(t, 5, data.Summary.AgentCount)
	assert.Equal(t, 4, data.Summary.TotalCalls)
}

func TestGetTranscript_MissingCallID(t *testing.T) {
	f := newFixture(t)
	res := f.set.HandleGetTranscript(context.Background(), f.managerParams(t), "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryValidation, res.Category)
}

func TestGetTranscript_TurnRows(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.CallID = "c1"

	res := f.set.HandleGetTranscript(context.Background(), p, "")
	require.True(t, res.Success, res.Error)

	data := res.Data.(*TranscriptData)
	assert.False(t, data.FromBlob)
	require.Len(t, data.Turns, 2)
	assert.Equal(t, "agent", data.Turns[0].Speaker)
}

func TestGetTranscript_BlobFallbackRoundTrip(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.CallID = "c5" // raw blob, no turn rows

	res := f.set.HandleGetTranscript(context.Background(), p, "")
	require.True(t, res.Success, res.Error)

	data := res.Data.(*TranscriptData)
	assert.True(t, data.FromBlob)
	require.Len(t, data.Turns, 3)
	assert.Equal(t, "customer", data.Turns[1].Speaker)

	// concatenated speaker: text lines reconstruct the blob modulo case
	// and whitespace
	var lines []string
	for _, turn := range data.Turns {
		lines = append(lines, turn.Speaker+": "+turn.Text)
	}
	got := strings.ToLower(strings.Join(lines, "\n"))
	want := strings.ToLower("Agent: Good morning!\nCustomer: We think it's too expensive.\nAgent: Let's walk through the value.")
	assert.Equal(t, want, got)
}

func TestGetTranscript_OutOfScopeCall(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.CallID = "c4" // Dana's call, team t2

	res := f.set.HandleGetTranscript(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryPermission, res.Category)
}

func TestSearchCalls_WhitespaceQueryNeverReachesSearcher(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.SearchQuery = "   \t "

	res := f.set.HandleSearchCalls(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryValidation, res.Category)
	assert.Equal(t, 0, f.searcher.calls)
}

func TestSearchCalls_ScopedResults(t *testing.T) {
	f := newFixture(t)
	f.searcher.results = []models.CallSearchResult{{CallID: "c1", AgentID: "a1", Similarity: 0.9}}
	p := f.managerParams(t)
	p.SearchQuery = "pricing pushback"

	res := f.set.HandleSearchCalls(context.Background(), p, "")
	require.True(t, res.Success, res.Error)
	data := res.Data.(*SearchResultsData)
	assert.Equal(t, "pricing pushback", data.Query)
	require.Len(t, data.Results, 1)
	require.NotNil(t, f.searcher.lastOpt.Allowed)
	assert.True(t, f.searcher.lastOpt.Allowed("a1"))
	assert.False(t, f.searcher.lastOpt.Allowed("b1"))
}

func TestSearchCalls_ZeroResultsIsGuidanceNotError(t *testing.T) {
	f := newFixture(t)
	p := f.managerParams(t)
	p.SearchQuery = "quantum blockchain"

	res := f.set.HandleSearchCalls(context.Background(), p, "")
	require.True(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Contains(t, res.Message, "didn't find")
}

func TestSearchCalls_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = errors.New("weaviate down")
	p := f.managerParams(t)
	p.SearchQuery = "pricing"

	res := f.set.HandleSearchCalls(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryUpstream, res.Category)
	assert.NotContains(t, res.Error, "weaviate")
}

func TestCoaching_Succeeds(t *testing.T) {
	f := newFixture(t)
	f.analyzer.coaching = &models.CoachingAnalysis{
		CallID:       "c1",
		OverallScore: 3.4,
		RedFlags:     models.RedFlags{Critical: []string{}, High: []string{}, Medium: []string{}},
	}
	p := f.managerParams(t)
	p.CallID = "c1"

	res := f.set.HandleCoaching(context.Background(), p, "")
	require.True(t, res.Success, res.Error)
	data := res.Data.(*CoachingData)
	assert.InDelta(t, 3.4, data.Analysis.OverallScore, 0.001)
	assert.NotNil(t, data.Analysis.RedFlags.Critical)
}

func TestCoaching_MissingCallID(t *testing.T) {
	f := newFixture(t)
	res := f.set.HandleCoaching(context.Background(), f.managerParams(t), "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryValidation, res.Category)
}

func TestCoaching_AnalyzerFailureIsUserSafe(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = errors.New("openai 500: internal stack trace")
	p := f.managerParams(t)
	p.CallID = "c1"

	res := f.set.HandleCoaching(context.Background(), p, "")
	require.False(t, res.Success)
	assert.Equal(t, CategoryUpstream, res.Category)
	assert.NotContains(t, res.Error, "stack trace")
	assert.Contains(t, res.Error, "try again")
}

func TestObjectionAnalysis_RecordsTelemetry(t *testing.T) {
	f := newFixture(t)
	f.analyzer.objections = &models.ObjectionAnalysis{
		CallID:     "c1",
		Objections: []models.Objection{{Type: "price", Handled: false}},
	}
	p := f.managerParams(t)
	p.CallID = "c1"

	res := f.set.HandleObjectionAnalysis(context.Background(), p, "")
	require.True(t, res.Success, res.Error)
	require.Len(t, f.telemetry.recorded, 1)
	assert.Equal(t, "a1", f.telemetry.agentIDs[0])
}

func TestObjectionAnalysis_AnalyzesBlobOnlyCall(t *testing.T) {
	f := newFixture(t)
	f.analyzer.objections = &models.ObjectionAnalysis{CallID: "c5"}
	p := f.managerParams(t)
	p.CallID = "c5"

	res := f.set.HandleObjectionAnalysis(context.Background(), p, "")
	require.True(t, res.Success, res.Error)
}
