package services

import (
	"context"
	"fmt"
	"time"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// CallIndexer feeds the search indexes from the call store. The keyword
// index is process-local, so nothing outside this binary can populate
// it: the indexer replays stored calls at startup and on demand via the
// admin reindex endpoint.
type CallIndexer struct {
	search      *CallSearchService
	roster      repo.RosterStore
	calls       repo.CallStore
	transcripts repo.TranscriptStore
	logger      logger.Logger
}

func NewCallIndexer(search *CallSearchService, roster repo.RosterStore, calls repo.CallStore, transcripts repo.TranscriptStore, log logger.Logger) *CallIndexer {
	return &CallIndexer{
		search:      search,
		roster:      roster,
		calls:       calls,
		transcripts: transcripts,
		logger:      log,
	}
}

// ReindexAll walks every agent's calls started at or after `since` and
// indexes their transcripts. Calls without turn rows fall back to the
// raw transcript blob; calls with no transcript at all are skipped.
// Per-call failures are logged and skipped so one bad call cannot abort
// the whole replay. Returns the number of calls indexed.
func (ix *CallIndexer) ReindexAll(ctx context.Context, since time.Time) (int, error) {
	agents, err := ix.roster.AllAgents(ctx)
	if err != nil {
		return 0, fmt.Errorf("list agents for reindex: %w", err)
	}

	now := time.Now().UTC()
	indexed := 0
	for _, agent := range agents {
		calls, err := ix.calls.ListCalls(ctx, agent.ID, since, now, 0)
		if err != nil {
			ix.logger.Warn("skipping agent during reindex", "agent_id", agent.ID, "error", err)
			continue
		}
		for _, call := range calls {
			if err := ctx.Err(); err != nil {
				return indexed, err
			}
			turns, err := ix.transcripts.Turns(ctx, call.ID)
			if err != nil {
				ix.logger.Warn("skipping call during reindex", "call_id", call.ID, "error", err)
				continue
			}
			if len(turns) == 0 {
				turns = models.ParseRawTranscript(call.ID, call.RawTranscript)
			}
			if len(turns) == 0 {
				continue
			}
			if err := ix.search.IndexCall(ctx, call, agent.Name, turns); err != nil {
				ix.logger.Warn("failed to index call", "call_id", call.ID, "error", err)
				continue
			}
			indexed++
		}
	}

	ix.logger.Info("call reindex complete", "calls_indexed", indexed, "since", since.Format(time.RFC3339))
	return indexed, nil
}
