package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/monitoring"
	weavstore "github.com/callcoach/callcoach-core/internal/storage/weaviate"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// ErrSearchUnavailable marks a search-backend failure after all
// configured fallbacks were exhausted.
var ErrSearchUnavailable = errors.New("call search unavailable")

// SearchOptions narrows a semantic search to the caller's data scope.
type SearchOptions struct {
	// AgentID restricts results to one agent when non-empty.
	AgentID string
	// Allowed filters results to the caller's scope. Nil allows all.
	Allowed func(agentID string) bool
	// Limit caps returned results; 0 selects the configured default.
	Limit int
}

// CallSearchService runs semantic search over indexed call snippets:
// embed the query, nearVector against the snippet store, and fall back
// to keyword search when the vector path is unavailable.
type CallSearchService struct {
	embedder  Embedder
	snippets  weavstore.SnippetStore
	keyword   *KeywordIndex
	threshold float64
	limit     int
	logger    logger.Logger
}

func NewCallSearchService(embedder Embedder, snippets weavstore.SnippetStore, keyword *KeywordIndex, threshold float64, limit int, log logger.Logger) *CallSearchService {
	return &CallSearchService{
		embedder:  embedder,
		snippets:  snippets,
		keyword:   keyword,
		threshold: threshold,
		limit:     limit,
		logger:    log,
	}
}

// Search returns scope-filtered snippet matches for the query, best
// first. Scope filtering happens after retrieval, so the stores are
// over-fetched to keep post-filter result counts useful.
func (s *CallSearchService) Search(ctx context.Context, query string, opts SearchOptions) ([]models.CallSearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.limit
	}
	fetch := limit * 4

	start := time.Now()
	results, err := s.vectorSearch(ctx, query, fetch)
	if err != nil {
		monitoring.RecordSearch("vector", time.Since(start), false)
		if s.keyword == nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
		}
		s.logger.Warn("vector search unavailable, using keyword fallback", "error", err)
		start = time.Now()
		results, err = s.keyword.Search(ctx, query, fetch)
		monitoring.RecordSearch("keyword", time.Since(start), err == nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
		}
	} else {
		monitoring.RecordSearch("vector", time.Since(start), true)
	}

	filtered := make([]models.CallSearchResult, 0, limit)
	for _, r := range results {
		if opts.AgentID != "" && r.AgentID != opts.AgentID {
			continue
		}
		if opts.Allowed != nil && !opts.Allowed(r.AgentID) {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == limit {
			break
		}
	}
	return filtered, nil
}

// IndexCall embeds and indexes a call's transcript turns for both the
// vector store and the keyword fallback.
func (s *CallSearchService) IndexCall(ctx context.Context, call *models.Call, agentName string, turns []models.TranscriptTurn) error {
	date := call.StartedAt.Format("2006-01-02")
	for _, turn := range turns {
		snip := weavstore.CallSnippet{
			CallID:    call.ID,
			AgentID:   call.AgentID,
			AgentName: agentName,
			Date:      date,
			Seq:       turn.Seq,
			Text:      turn.Text,
		}

		if s.embedder != nil && s.snippets != nil {
			vec, err := s.embedder.EmbedText(ctx, turn.Text)
			if err != nil {
				return fmt.Errorf("embed snippet %s/%d: %w", call.ID, turn.Seq, err)
			}
			if err := s.snippets.IndexSnippet(ctx, snip, vec); err != nil {
				return fmt.Errorf("index snippet %s/%d: %w", call.ID, turn.Seq, err)
			}
		}

		if s.keyword != nil {
			docID := fmt.Sprintf("%s-%d", call.ID, turn.Seq)
			doc := SnippetDoc{
				CallID:    snip.CallID,
				AgentID:   snip.AgentID,
				AgentName: snip.AgentName,
				Date:      snip.Date,
				Text:      snip.Text,
			}
			if err := s.keyword.IndexSnippet(docID, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *CallSearchService) vectorSearch(ctx context.Context, query string, fetch int) ([]models.CallSearchResult, error) {
	if s.embedder == nil || s.snippets == nil {
		return nil, fmt.Errorf("vector search not configured")
	}
	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.snippets.SearchNearVector(ctx, vec, fetch, s.threshold)
}
