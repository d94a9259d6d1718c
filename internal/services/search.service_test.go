package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcoach/callcoach-core/internal/models"
	weavstore "github.com/callcoach/callcoach-core/internal/storage/weaviate"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeSnippetStore struct {
	results []models.CallSearchResult
	err     error
	indexed []weavstore.CallSnippet
}

func (f *fakeSnippetStore) IndexSnippet(ctx context.Context, snip weavstore.CallSnippet, vector []float32) error {
	f.indexed = append(f.indexed, snip)
	return f.err
}

func (f *fakeSnippetStore) SearchNearVector(ctx context.Context, vector []float32, limit int, threshold float64) ([]models.CallSearchResult, error) {
	return f.results, f.err
}

func TestSearch_FiltersByScopeAndAgent(t *testing.T) {
	store := &fakeSnippetStore{results: []models.CallSearchResult{
		{CallID: "c1", AgentID: "a1", Similarity: 0.95},
		{CallID: "c2", AgentID: "a2", Similarity: 0.90},
		{CallID: "c3", AgentID: "a3", Similarity: 0.85},
	}}
	svc := NewCallSearchService(&fakeEmbedder{vec: []float32{0.1}}, store, nil, 0.72, 10, logger.NewNop())

	allowed := map[string]bool{"a1": true, "a2": true}
	got, err := svc.Search(context.Background(), "pricing", SearchOptions{
		Allowed: func(id string) bool { return allowed[id] },
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].CallID)
	assert.Equal(t, "c2", got[1].CallID)

	got, err = svc.Search(context.Background(), "pricing", SearchOptions{AgentID: "a2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].CallID)
}

func TestSearch_LimitApplied(t *testing.T) {
	results := make([]models.CallSearchResult, 8)
	for i := range results {
		results[i] = models.CallSearchResult{CallID: "c", AgentID: "a1"}
	}
	store := &fakeSnippetStore{results: results}
	svc := NewCallSearchService(&fakeEmbedder{vec: []float32{0.1}}, store, nil, 0.72, 10, logger.NewNop())

	got, err := svc.Search(context.Background(), "pricing", SearchOptions{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSearch_KeywordFallbackWhenEmbedderFails(t *testing.T) {
	kw, err := NewKeywordIndex("", logger.NewNop())
	require.NoError(t, err)
	defer kw.Close()
	require.NoError(t, kw.IndexSnippet("c1-1", SnippetDoc{
		CallID: "c1", AgentID: "a1", AgentName: "Sarah Chen",
		Date: "2026-08-01", Text: "the customer pushed back on pricing",
	}))

	svc := NewCallSearchService(&fakeEmbedder{err: errors.New("provider down")}, &fakeSnippetStore{}, kw, 0.72, 10, logger.NewNop())

	got, err := svc.Search(context.Background(), "pricing", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].CallID)
	assert.Equal(t, "Sarah Chen", got[0].AgentName)
	assert.Greater(t, got[0].Similarity, 0.0)
}

func TestSearch_UnavailableWithoutFallback(t *testing.T) {
	svc := NewCallSearchService(&fakeEmbedder{err: errors.New("provider down")}, &fakeSnippetStore{}, nil, 0.72, 10, logger.NewNop())

	_, err := svc.Search(context.Background(), "pricing", SearchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSearchUnavailable))
}

func TestIndexCall_FeedsBothIndexes(t *testing.T) {
	kw, err := NewKeywordIndex("", logger.NewNop())
	require.NoError(t, err)
	defer kw.Close()

	store := &fakeSnippetStore{}
	svc := NewCallSearchService(&fakeEmbedder{vec: []float32{0.2}}, store, kw, 0.72, 10, logger.NewNop())

	call := &models.Call{ID: "c7", AgentID: "a1", StartedAt: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)}
	turns := []models.TranscriptTurn{
		{CallID: "c7", Seq: 1, Speaker: "customer", Text: "we are worried about onboarding time"},
	}
	require.NoError(t, svc.IndexCall(context.Background(), call, "Sarah Chen", turns))

	require.Len(t, store.indexed, 1)
	assert.Equal(t, "2026-08-10", store.indexed[0].Date)

	got, err := kw.Search(context.Background(), "onboarding", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c7", got[0].CallID)
}
