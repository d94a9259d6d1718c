package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// ErrAnalysisUnavailable marks a retryable analysis-provider failure.
// The user-facing message for it is produced by the handler, never the raw
// provider output.
var ErrAnalysisUnavailable = errors.New("analysis service unavailable")

// rubricWeights fixes the coaching rubric and the weight each category
// contributes to the overall score.
var rubricWeights = map[string]float64{
	"discovery":          0.20,
	"objection_handling": 0.25,
	"rapport":            0.15,
	"closing":            0.25,
	"compliance":         0.15,
}

const coachingSystemPrompt = `You are a sales-call coaching analyst. Score the transcript on these
categories, each 1-5: discovery, objection_handling, rapport, closing, compliance.
Respond with ONLY a JSON object:
{"scores":[{"category":"discovery","score":3,"comment":""},...],
 "overall_score":3.2,
 "strengths":[], "improvements":[], "action_items":[],
 "red_flags":{"critical":[],"high":[],"medium":[]}}
red_flags lists compliance/quality issues by severity. Output no other text.`

const objectionSystemPrompt = `You are a sales-call objection analyst. Identify every customer
objection in the transcript and whether the agent handled it.
Respond with ONLY a JSON object:
{"objections":[{"type":"price","quote":"","agent_response":"","handled":true}],
 "summary":"", "recommendations":[]}
Output no other text.`

// AnalysisService produces coaching and objection analyses from call
// transcripts via the LLM provider. Provider output is treated as
// untrusted: every expected field is validated and defaulted on receipt.
type AnalysisService struct {
	llm    LLMService
	logger logger.Logger
}

func NewAnalysisService(llm LLMService, log logger.Logger) *AnalysisService {
	return &AnalysisService{llm: llm, logger: log}
}

// AnalyzeCoaching scores a transcript against the coaching rubric.
func (s *AnalysisService) AnalyzeCoaching(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.CoachingAnalysis, error) {
	raw, err := s.llm.GenerateText(ctx, coachingSystemPrompt, transcriptText(turns))
	if err != nil {
		s.logger.Error("coaching analysis provider failed", "call_id", callID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	analysis, err := parseCoachingReply(raw)
	if err != nil {
		s.logger.Error("coaching analysis reply malformed", "call_id", callID, "error", err)
		return nil, fmt.Errorf("%w: malformed analysis output", ErrAnalysisUnavailable)
	}
	analysis.CallID = callID
	return analysis, nil
}

// AnalyzeObjections extracts customer objections from a transcript.
func (s *AnalysisService) AnalyzeObjections(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.ObjectionAnalysis, error) {
	raw, err := s.llm.GenerateText(ctx, objectionSystemPrompt, transcriptText(turns))
	if err != nil {
		s.logger.Error("objection analysis provider failed", "call_id", callID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	analysis, err := parseObjectionReply(raw)
	if err != nil {
		s.logger.Error("objection analysis reply malformed", "call_id", callID, "error", err)
		return nil, fmt.Errorf("%w: malformed analysis output", ErrAnalysisUnavailable)
	}
	analysis.CallID = callID
	return analysis, nil
}

// parseCoachingReply validates the coaching JSON contract. Missing arrays
// become empty slices, never nil; scores are clamped to 1-5; a missing
// overall score is recomputed from the rubric weights.
func parseCoachingReply(raw string) (*models.CoachingAnalysis, error) {
	jsonText := firstJSONObject(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var parsed struct {
		Scores []struct {
			Category string  `json:"category"`
			Score    float64 `json:"score"`
			Comment  string  `json:"comment"`
		} `json:"scores"`
		OverallScore *float64 `json:"overall_score"`
		Strengths    []string `json:"strengths"`
		Improvements []string `json:"improvements"`
		ActionItems  []string `json:"action_items"`
		RedFlags     *struct {
			Critical []string `json:"critical"`
			High     []string `json:"high"`
			Medium   []string `json:"medium"`
		} `json:"red_flags"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	analysis := &models.CoachingAnalysis{
		Scores:       make([]models.CategoryScore, 0, len(parsed.Scores)),
		Strengths:    emptyIfNil(parsed.Strengths),
		Improvements: emptyIfNil(parsed.Improvements),
		ActionItems:  emptyIfNil(parsed.ActionItems),
		RedFlags: models.RedFlags{
			Critical: []string{},
			High:     []string{},
			Medium:   []string{},
		},
	}
	for _, s := range parsed.Scores {
		cat := strings.ToLower(strings.TrimSpace(s.Category))
		if cat == "" {
			continue
		}
		analysis.Scores = append(analysis.Scores, models.CategoryScore{
			Category: cat,
			Score:    clampScore(s.Score),
			Comment:  s.Comment,
		})
	}
	if parsed.RedFlags != nil {
		analysis.RedFlags.Critical = emptyIfNil(parsed.RedFlags.Critical)
		analysis.RedFlags.High = emptyIfNil(parsed.RedFlags.High)
		analysis.RedFlags.Medium = emptyIfNil(parsed.RedFlags.Medium)
	}

	if parsed.OverallScore != nil && *parsed.OverallScore >= 1 && *parsed.OverallScore <= 5 {
		analysis.OverallScore = *parsed.OverallScore
	} else {
		analysis.OverallScore = weightedOverall(analysis.Scores)
	}
	return analysis, nil
}

func parseObjectionReply(raw string) (*models.ObjectionAnalysis, error) {
	jsonText := firstJSONObject(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	var parsed struct {
		Objections []struct {
			Type          string `json:"type"`
			Quote         string `json:"quote"`
			AgentResponse string `json:"agent_response"`
			Handled       bool   `json:"handled"`
		} `json:"objections"`
		Summary         string   `json:"summary"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	analysis := &models.ObjectionAnalysis{
		Objections:      make([]models.Objection, 0, len(parsed.Objections)),
		Summary:         parsed.Summary,
		Recommendations: emptyIfNil(parsed.Recommendations),
	}
	for _, o := range parsed.Objections {
		if strings.TrimSpace(o.Type) == "" {
			continue
		}
		analysis.Objections = append(analysis.Objections, models.Objection{
			Type:          strings.ToLower(strings.TrimSpace(o.Type)),
			Quote:         o.Quote,
			AgentResponse: o.AgentResponse,
			Handled:       o.Handled,
		})
	}
	return analysis, nil
}

// weightedOverall computes the rubric-weighted mean of the category
// scores. Categories outside the rubric contribute with weight equal to
// the smallest rubric weight so unexpected output can't dominate.
func weightedOverall(scores []models.CategoryScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	minWeight := 1.0
	for _, w := range rubricWeights {
		if w < minWeight {
			minWeight = w
		}
	}
	var sum, total float64
	for _, s := range scores {
		w, ok := rubricWeights[s.Category]
		if !ok {
			w = minWeight
		}
		sum += float64(s.Score) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func clampScore(v float64) int {
	n := int(v + 0.5)
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// transcriptText renders turns as "speaker: text" lines for prompting.
func transcriptText(turns []models.TranscriptTurn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// firstJSONObject returns the first balanced {...} block in s, or "".
func firstJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
