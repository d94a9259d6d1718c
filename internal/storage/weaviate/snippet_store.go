package weaviate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

const snippetClass = "CallSnippet"

// nsCallCoach seeds deterministic object ids so re-indexing a snippet
// replaces the existing object instead of duplicating it.
var nsCallCoach = func() uuid.UUID {
	u, _ := uuid.FromString("6ba7b811-9dad-11d1-80b4-00c04fd430c8")
	return u
}()

// CallSnippet is one indexed transcript excerpt with its agent context.
type CallSnippet struct {
	CallID    string
	AgentID   string
	AgentName string
	Date      string
	Seq       int
	Text      string
}

// SnippetStore is the vector-search surface the call search service
// depends on. Tests substitute a fake.
type SnippetStore interface {
	IndexSnippet(ctx context.Context, snip CallSnippet, vector []float32) error
	SearchNearVector(ctx context.Context, vector []float32, limit int, threshold float64) ([]models.CallSearchResult, error)
}

// CallSnippetStore stores transcript snippets with externally computed
// vectors and runs nearVector queries over them.
type CallSnippetStore struct {
	transport  Transport
	logger     logger.Logger
	schemaInit sync.Once
	schemaErr  error
}

func NewCallSnippetStore(t Transport, log logger.Logger) *CallSnippetStore {
	return &CallSnippetStore{transport: t, logger: log}
}

func snippetObjectID(callID string, seq int) string {
	return uuid.NewV5(nsCallCoach, fmt.Sprintf("%s|%s|%d", snippetClass, callID, seq)).String()
}

// ensureSchema creates the CallSnippet class once per process. Vectors
// come from the embedding provider, so the class carries no vectorizer.
func (s *CallSnippetStore) ensureSchema(ctx context.Context) error {
	s.schemaInit.Do(func() {
		s.schemaErr = s.transport.EnsureClasses(ctx, []map[string]any{{
			"class":      snippetClass,
			"vectorizer": "none",
			"properties": []map[string]any{
				{"name": "callId", "dataType": []string{"text"}},
				{"name": "agentId", "dataType": []string{"text"}},
				{"name": "agentName", "dataType": []string{"text"}},
				{"name": "date", "dataType": []string{"text"}},
				{"name": "text", "dataType": []string{"text"}},
			},
		}})
		if s.schemaErr != nil {
			s.logger.Warn("failed ensuring CallSnippet class", "error", s.schemaErr)
		}
	})
	return s.schemaErr
}

func (s *CallSnippetStore) IndexSnippet(ctx context.Context, snip CallSnippet, vector []float32) error {
	if snip.CallID == "" {
		return fmt.Errorf("snippet call id is empty")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	props := map[string]any{
		"callId":    snip.CallID,
		"agentId":   snip.AgentID,
		"agentName": snip.AgentName,
		"date":      snip.Date,
		"text":      snip.Text,
	}
	return s.transport.PutObject(ctx, snippetClass, snippetObjectID(snip.CallID, snip.Seq), props, vector)
}

// SearchNearVector returns snippets within the certainty threshold,
// ranked by similarity. Results below the threshold are filtered by
// Weaviate itself via the certainty argument.
func (s *CallSnippetStore) SearchNearVector(ctx context.Context, vector []float32, limit int, threshold float64) ([]models.CallSearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	query := fmt.Sprintf(`{
  Get {
    %s(nearVector: {vector: %s, certainty: %s}, limit: %d) {
      callId agentId agentName date text
      _additional { certainty }
    }
  }
}`, snippetClass, vectorLiteral(vector), strconv.FormatFloat(threshold, 'f', -1, 64), limit)

	var resp struct {
		Data struct {
			Get struct {
				CallSnippet []struct {
					CallID     string `json:"callId"`
					AgentID    string `json:"agentId"`
					AgentName  string `json:"agentName"`
					Date       string `json:"date"`
					Text       string `json:"text"`
					Additional struct {
						Certainty float64 `json:"certainty"`
					} `json:"_additional"`
				} `json:"CallSnippet"`
			} `json:"Get"`
		} `json:"data"`
	}
	if err := s.transport.GraphQL(ctx, query, &resp); err != nil {
		s.logger.Error("nearVector query failed", "error", err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]models.CallSearchResult, 0, len(resp.Data.Get.CallSnippet))
	for _, hit := range resp.Data.Get.CallSnippet {
		date, _ := time.Parse("2006-01-02", hit.Date)
		results = append(results, models.CallSearchResult{
			CallID:     hit.CallID,
			AgentID:    hit.AgentID,
			AgentName:  hit.AgentName,
			Date:       date,
			Snippet:    hit.Text,
			Similarity: hit.Additional.Certainty,
		})
	}
	return results, nil
}

func vectorLiteral(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
