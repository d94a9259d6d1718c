package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/callcoach/callcoach-core/internal/chat/agents"
	"github.com/callcoach/callcoach-core/internal/chat/format"
	"github.com/callcoach/callcoach-core/internal/chat/handlers"
	"github.com/callcoach/callcoach-core/internal/chat/intent"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/internal/services"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

type noopSearcher struct{}

func (noopSearcher) Search(ctx context.Context, query string, opts services.SearchOptions) ([]models.CallSearchResult, error) {
	return nil, nil
}

type noopAnalyzer struct{}

func (noopAnalyzer) AnalyzeCoaching(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.CoachingAnalysis, error) {
	return &models.CoachingAnalysis{CallID: callID}, nil
}

func (noopAnalyzer) AnalyzeObjections(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.ObjectionAnalysis, error) {
	return &models.ObjectionAnalysis{CallID: callID}, nil
}

type noopTelemetry struct{}

func (noopTelemetry) Record(agentID string, analysis *models.ObjectionAnalysis) {}

type panickingClassifier struct{}

func (panickingClassifier) Classify(ctx context.Context, message string) (*intent.Classification, error) {
	panic("classifier bug")
}

func newOrchestrator(t *testing.T, cls intent.Classifier) (*Orchestrator, *repo.MemoryStore) {
	t.Helper()
	store := repo.NewMemoryStore()
	store.AddAgent(&models.Agent{ID: "a1", Name: "Sarah Chen", TeamID: "t1", Department: "sales", Active: true})
	store.AddAgent(&models.Agent{ID: "b1", Name: "Dana Hill", TeamID: "t2", Department: "sales", Active: true})
	store.AddCall(&models.Call{ID: "c1", AgentID: "a1", StartedAt: time.Now().UTC().Add(-24 * time.Hour), DurationSeconds: 300})

	set := handlers.NewSet(
		store, store, store,
		agents.NewResolver(store),
		noopAnalyzer{}, noopSearcher{}, noopTelemetry{},
		handlers.Defaults{Department: "sales", DaysBack: 30, Limit: 10},
		logger.NewNop(),
	)
	dispatch, err := handlers.NewDispatcher(set)
	require.NoError(t, err)

	if cls == nil {
		cls = intent.NewRuleClassifier(30)
	}
	resolver := scope.NewResolver(store, []string{"floor-wide", "all teams"})
	return New(cls, resolver, dispatch, format.New(nil, logger.NewNop()), logger.NewNop()), store
}

func manager() *models.CallerIdentity {
	return &models.CallerIdentity{ID: "u1", Role: models.RoleManager, TeamID: "t1", Active: true}
}

func TestHandleMessage_EndToEndListCalls(t *testing.T) {
	o, _ := newOrchestrator(t, nil)

	resp := o.HandleMessage(context.Background(), manager(), &models.ChatRequest{
		Message: "Show me Sarah's calls from the last 7 days",
	})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "LIST_CALLS", resp.Intent)
	assert.Contains(t, resp.Response, "Sarah Chen")
	assert.NotNil(t, resp.Data)

	// ISO-8601 timestamp
	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	assert.NoError(t, err)
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	o, _ := newOrchestrator(t, nil)
	resp := o.HandleMessage(context.Background(), manager(), &models.ChatRequest{Message: "   "})

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Response)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHandleMessage_PermissionDeniedIsWellFormed(t *testing.T) {
	o, _ := newOrchestrator(t, nil)
	agentCaller := &models.CallerIdentity{ID: "u2", Role: models.RoleAgent, LinkedAgentID: "a1", Active: true}

	resp := o.HandleMessage(context.Background(), agentCaller, &models.ChatRequest{
		Message: "Show me Dana's calls from the last 7 days",
	})

	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Response)
	assert.NotEmpty(t, resp.Error)
	// response text is the user-safe message, never empty
	assert.Equal(t, resp.Error, resp.Response)
}

func TestHandleMessage_PanicIsContained(t *testing.T) {
	o, _ := newOrchestrator(t, panickingClassifier{})

	resp := o.HandleMessage(context.Background(), manager(), &models.ChatRequest{Message: "hello"})

	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Response, "Sorry")
}

func TestHandleMessage_ContextCallIDCarryOver(t *testing.T) {
	o, store := newOrchestrator(t, nil)
	store.AddTurns("c1", []models.TranscriptTurn{{CallID: "c1", Seq: 1, Speaker: "agent", Text: "Hello there"}})

	resp := o.HandleMessage(context.Background(), manager(), &models.ChatRequest{
		Message: "show me the transcript",
		Context: &models.ChatContext{CallID: "c1"},
	})

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "GET_TRANSCRIPT", resp.Intent)
	assert.Contains(t, resp.Response, "Hello there")
}

func TestHandleMessage_EmitsPipelineSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	o, _ := newOrchestrator(t, nil)
	resp := o.HandleMessage(context.Background(), manager(), &models.ChatRequest{
		Message: "Show me Sarah's calls from the last 7 days",
	})
	require.True(t, resp.Success, resp.Error)

	names := map[string]bool{}
	for _, s := range recorder.Ended() {
		names[s.Name()] = true
	}
	assert.True(t, names["chat_message"], "root span missing, got %v", names)
	assert.True(t, names["classify_intent"])
	assert.True(t, names["handle_intent"])

	var root sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "chat_message" {
			root = s
		}
	}
	require.NotNil(t, root)
	attrs := map[string]interface{}{}
	for _, kv := range root.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "manager", attrs["caller.role"])
	assert.Equal(t, "LIST_CALLS", attrs["chat.intent"])
	assert.Equal(t, true, attrs["chat.success"])
}

func TestHandleMessage_GeneralFallback(t *testing.T) {
	o, _ := newOrchestrator(t, nil)

	resp := o.HandleMessage(context.Background(), manager(), &models.ChatRequest{Message: "what's the weather like"})

	require.True(t, resp.Success)
	assert.Equal(t, "GENERAL", resp.Intent)
	assert.NotEmpty(t, resp.Response)
}
