package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// SnippetDoc is the unit indexed for keyword search: one searchable
// snippet of a call transcript.
type SnippetDoc struct {
	CallID    string `json:"call_id"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Date      string `json:"date"`
	Text      string `json:"text"`
}

// KeywordIndex is the full-text fallback used when the vector store or
// embedding provider is unavailable. It ranks by bleve's tf-idf score,
// normalised to [0,1] against the top hit.
type KeywordIndex struct {
	index  bleve.Index
	logger logger.Logger
}

// NewKeywordIndex opens (or creates) a bleve index at path. An empty
// path builds a memory-only index, which is what tests and single-node
// deployments without persistence use.
func NewKeywordIndex(path string, log logger.Logger) (*KeywordIndex, error) {
	mapping := bleve.NewIndexMapping()

	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else if _, statErr := os.Stat(path); statErr == nil {
		idx, err = bleve.Open(path)
	} else {
		idx, err = bleve.New(path, mapping)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}

	return &KeywordIndex{index: idx, logger: log}, nil
}

// IndexSnippet adds or replaces one snippet document. The document id is
// derived from call id and snippet text position by the caller.
func (k *KeywordIndex) IndexSnippet(docID string, doc SnippetDoc) error {
	if err := k.index.Index(docID, doc); err != nil {
		return fmt.Errorf("failed to index snippet %s: %w", docID, err)
	}
	return nil
}

// Search runs a keyword match over indexed snippets.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]models.CallSearchResult, error) {
	q := bleve.NewMatchQuery(query)
	q.SetField("text")

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"call_id", "agent_id", "agent_name", "date", "text"}

	res, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		k.logger.Error("keyword search failed", "query", query, "error", err)
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	results := make([]models.CallSearchResult, 0, len(res.Hits))
	var maxScore float64
	if len(res.Hits) > 0 {
		maxScore = res.Hits[0].Score
	}
	for _, hit := range res.Hits {
		score := 0.0
		if maxScore > 0 {
			score = hit.Score / maxScore
		}
		date, _ := time.Parse("2006-01-02", stringField(hit.Fields, "date"))
		results = append(results, models.CallSearchResult{
			CallID:     stringField(hit.Fields, "call_id"),
			AgentID:    stringField(hit.Fields, "agent_id"),
			AgentName:  stringField(hit.Fields, "agent_name"),
			Date:       date,
			Snippet:    stringField(hit.Fields, "text"),
			Similarity: score,
		})
	}
	return results, nil
}

func (k *KeywordIndex) Close() error { return k.index.Close() }

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
