package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

type stubLLM struct {
	reply string
	err   error
}

func (s *stubLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	return s.reply, s.err
}
func (s *stubLLM) GetProviderName() string { return "stub" }
func (s *stubLLM) GetModelName() string    { return "stub-model" }

var sampleTurns = []models.TranscriptTurn{
	{CallID: "call-1", Seq: 1, Speaker: "agent", Text: "Thanks for taking my call."},
	{CallID: "call-1", Seq: 2, Speaker: "customer", Text: "It's too expensive for us."},
}

func TestAnalyzeCoaching_FullReply(t *testing.T) {
	llm := &stubLLM{reply: `{
		"scores":[
			{"category":"discovery","score":4,"comment":"good open questions"},
			{"category":"objection_handling","score":2,"comment":"price objection dropped"}
		],
		"overall_score":3.1,
		"strengths":["warm opening"],
		"improvements":["address price directly"],
		"action_items":["practice price reframes"],
		"red_flags":{"critical":[],"high":["no compliance disclosure"],"medium":[]}
	}`}
	svc := NewAnalysisService(llm, logger.NewNop())

	got, err := svc.AnalyzeCoaching(context.Background(), "call-1", sampleTurns)
	require.NoError(t, err)

	assert.Equal(t, "call-1", got.CallID)
	assert.InDelta(t, 3.1, got.OverallScore, 0.001)
	require.Len(t, got.Scores, 2)
	assert.Equal(t, "discovery", got.Scores[0].Category)
	assert.Equal(t, 4, got.Scores[0].Score)
	assert.Equal(t, []string{"warm opening"}, got.Strengths)
	assert.Equal(t, []string{"no compliance disclosure"}, got.RedFlags.High)
	assert.Empty(t, got.RedFlags.Critical)
}

func TestAnalyzeCoaching_MissingRedFlagsDefaultsEmpty(t *testing.T) {
	llm := &stubLLM{reply: `{"scores":[{"category":"closing","score":3}],"overall_score":3}`}
	svc := NewAnalysisService(llm, logger.NewNop())

	got, err := svc.AnalyzeCoaching(context.Background(), "call-1", sampleTurns)
	require.NoError(t, err)

	assert.NotNil(t, got.RedFlags.Critical)
	assert.NotNil(t, got.RedFlags.High)
	assert.NotNil(t, got.RedFlags.Medium)
	assert.Empty(t, got.RedFlags.Critical)
	assert.NotNil(t, got.Strengths)
	assert.NotNil(t, got.Improvements)
	assert.NotNil(t, got.ActionItems)
}

func TestAnalyzeCoaching_ScoresClampedAndOverallRecomputed(t *testing.T) {
	llm := &stubLLM{reply: `{"scores":[
		{"category":"discovery","score":9},
		{"category":"rapport","score":0}
	]}`}
	svc := NewAnalysisService(llm, logger.NewNop())

	got, err := svc.AnalyzeCoaching(context.Background(), "call-1", sampleTurns)
	require.NoError(t, err)

	assert.Equal(t, 5, got.Scores[0].Score)
	assert.Equal(t, 1, got.Scores[1].Score)
	// weighted mean of 5@0.20 and 1@0.15
	assert.InDelta(t, (5*0.20+1*0.15)/0.35, got.OverallScore, 0.001)
}

func TestAnalyzeCoaching_ProseAroundJSON(t *testing.T) {
	llm := &stubLLM{reply: "Here is my analysis:\n```json\n{\"scores\":[],\"overall_score\":2}\n```"}
	svc := NewAnalysisService(llm, logger.NewNop())

	got, err := svc.AnalyzeCoaching(context.Background(), "call-1", sampleTurns)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.OverallScore, 0.001)
}

func TestAnalyzeCoaching_ProviderFailure(t *testing.T) {
	llm := &stubLLM{err: errors.New("connection refused")}
	svc := NewAnalysisService(llm, logger.NewNop())

	_, err := svc.AnalyzeCoaching(context.Background(), "call-1", sampleTurns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysisUnavailable))
}

func TestAnalyzeCoaching_GarbageReply(t *testing.T) {
	llm := &stubLLM{reply: "sorry, I cannot analyze that"}
	svc := NewAnalysisService(llm, logger.NewNop())

	_, err := svc.AnalyzeCoaching(context.Background(), "call-1", sampleTurns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysisUnavailable))
}

func TestAnalyzeObjections(t *testing.T) {
	llm := &stubLLM{reply: `{
		"objections":[
			{"type":"Price","quote":"too expensive","agent_response":"offered discount","handled":true},
			{"type":"","quote":"ignored"}
		],
		"summary":"one price objection",
		"recommendations":["lead with value"]
	}`}
	svc := NewAnalysisService(llm, logger.NewNop())

	got, err := svc.AnalyzeObjections(context.Background(), "call-1", sampleTurns)
	require.NoError(t, err)

	require.Len(t, got.Objections, 1)
	assert.Equal(t, "price", got.Objections[0].Type)
	assert.True(t, got.Objections[0].Handled)
	assert.Equal(t, "one price objection", got.Summary)
	assert.Equal(t, []string{"lead with value"}, got.Recommendations)
}

func TestAnalyzeObjections_MissingArraysDefaultEmpty(t *testing.T) {
	llm := &stubLLM{reply: `{"summary":"clean call"}`}
	svc := NewAnalysisService(llm, logger.NewNop())

	got, err := svc.AnalyzeObjections(context.Background(), "call-1", sampleTurns)
	require.NoError(t, err)

	assert.NotNil(t, got.Objections)
	assert.Empty(t, got.Objections)
	assert.NotNil(t, got.Recommendations)
}
