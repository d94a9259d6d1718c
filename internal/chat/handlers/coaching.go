package handlers

import (
	"context"

	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
)

// HandleCoaching runs the coaching rubric analysis over one call's
// transcript.
func (s *Set) HandleCoaching(ctx context.Context, p *Params, message string) *Result {
	call, turns, errRes := s.loadAnalyzableCall(ctx, p)
	if errRes != nil {
		return errRes
	}

	analysis, err := s.analyzer.AnalyzeCoaching(ctx, call.ID, turns)
	if err != nil {
		s.logger.Error("coaching analysis failed", "call_id", call.ID, "error", err)
		return fail(CategoryUpstream, "The coaching analysis service is unavailable right now. Please try again in a moment.")
	}

	return ok(&CoachingData{Type: "coaching_analysis", Call: call, Analysis: analysis})
}

// HandleObjectionAnalysis extracts customer objections from one call's
// transcript and records them for trend telemetry. The telemetry write
// is fire-and-forget: it can never fail or delay this response.
func (s *Set) HandleObjectionAnalysis(ctx context.Context, p *Params, message string) *Result {
	call, turns, errRes := s.loadAnalyzableCall(ctx, p)
	if errRes != nil {
		return errRes
	}

	analysis, err := s.analyzer.AnalyzeObjections(ctx, call.ID, turns)
	if err != nil {
		s.logger.Error("objection analysis failed", "call_id", call.ID, "error", err)
		return fail(CategoryUpstream, "The objection analysis service is unavailable right now. Please try again in a moment.")
	}

	if s.telemetry != nil {
		s.telemetry.Record(call.AgentID, analysis)
	}

	return ok(&ObjectionData{Type: "objection_analysis", Call: call, Analysis: analysis})
}

// loadAnalyzableCall validates the call id slot, enforces scope, and
// loads a non-empty transcript for analysis.
func (s *Set) loadAnalyzableCall(ctx context.Context, p *Params) (*models.Call, []models.TranscriptTurn, *Result) {
	if p.CallID == "" {
		return nil, nil, fail(CategoryValidation, "Please include a call id so I know which call to analyze.")
	}

	call, err := s.calls.GetCall(ctx, p.CallID)
	if err != nil {
		return nil, nil, fail(CategoryNotFound, "I couldn't find a call with that id.")
	}
	if accessErr := scope.CheckAccess(p.Scope, p.Identity, call.AgentID); accessErr != nil {
		return nil, nil, fail(CategoryPermission, accessErr.Error())
	}

	turns, _, errRes := s.loadTurns(ctx, call)
	if errRes != nil {
		return nil, nil, errRes
	}
	if len(turns) == 0 {
		return nil, nil, fail(CategoryNotFound, "That call has no transcript, so there is nothing to analyze.")
	}
	return call, turns, nil
}
