package handlers

import (
	"context"

	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
)

// HandleGetTranscript fetches a call's transcript turns. When no
// turn-level rows exist but the call carries a raw transcript blob, the
// blob is parsed into turns best-effort instead of failing.
func (s *Set) HandleGetTranscript(ctx context.Context, p *Params, message string) *Result {
	if p.CallID == "" {
		return fail(CategoryValidation, "Please include a call id, for example \"show me the transcript for call abc123\".")
	}

	call, err := s.calls.GetCall(ctx, p.CallID)
	if err != nil {
		return fail(CategoryNotFound, "I couldn't find a call with that id.")
	}
	if accessErr := scope.CheckAccess(p.Scope, p.Identity, call.AgentID); accessErr != nil {
		return fail(CategoryPermission, accessErr.Error())
	}

	turns, fromBlob, errRes := s.loadTurns(ctx, call)
	if errRes != nil {
		return errRes
	}
	if len(turns) == 0 {
		return okMessage("That call has no transcript available.")
	}

	return ok(&TranscriptData{
		Type:     "transcript",
		Call:     call,
		Turns:    turns,
		FromBlob: fromBlob,
	})
}

// loadTurns reads turn rows for a call, falling back to parsing the raw
// blob when no rows exist. Shared with the analysis handlers.
func (s *Set) loadTurns(ctx context.Context, call *models.Call) ([]models.TranscriptTurn, bool, *Result) {
	turns, err := s.transcripts.Turns(ctx, call.ID)
	if err != nil {
		s.logger.Error("transcript fetch failed", "call_id", call.ID, "error", err)
		return nil, false, fail(CategoryUpstream, "I couldn't fetch that transcript right now. Please try again.")
	}
	if len(turns) > 0 {
		return turns, false, nil
	}
	if call.RawTranscript == "" {
		return nil, false, nil
	}
	return models.ParseRawTranscript(call.ID, call.RawTranscript), true, nil
}
