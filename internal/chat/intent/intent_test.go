package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callcoach/callcoach-core/pkg/logger"
)

func TestRuleClassifier_ListCallsWithNameAndWindow(t *testing.T) {
	rc := NewRuleClassifier(7)
	c, err := rc.Classify(context.Background(), "Show me Sarah's calls from the last 7 days")
	require.NoError(t, err)
	assert.Equal(t, ListCalls, c.Intent)
	assert.Equal(t, "Sarah", c.AgentName)
	assert.Equal(t, 7, c.DaysBack)
}

func TestRuleClassifier_IntentKeywords(t *testing.T) {
	rc := NewRuleClassifier(7)
	cases := []struct {
		message string
		want    Intent
	}{
		{"How did the team do this week?", TeamSummary},
		{"floor-wide team performance this month", TeamSummary},
		{"Give me coaching feedback on call c-123", Coaching},
		{"What objections came up in call c-55?", ObjectionAnalysis},
		{"Show me the transcript for call abc-9", GetTranscript},
		{"Find calls about pricing concerns", SearchCalls},
		{"What are Maria's stats for the past 14 days?", AgentStats},
		{"hello there", General},
	}
	for _, tc := range cases {
		c, err := rc.Classify(context.Background(), tc.message)
		require.NoError(t, err)
		assert.Equal(t, tc.want, c.Intent, "message: %q", tc.message)
	}
}

func TestRuleClassifier_SlotExtraction(t *testing.T) {
	rc := NewRuleClassifier(7)

	c, _ := rc.Classify(context.Background(), "coaching feedback on call c-123 please")
	assert.Equal(t, "c-123", c.CallID)

	c, _ = rc.Classify(context.Background(), "find calls about discount requests")
	assert.Equal(t, "discount requests", c.SearchQuery)

	c, _ = rc.Classify(context.Background(), "stats for Maria over the past 14 days")
	assert.Equal(t, "Maria", c.AgentName)
	assert.Equal(t, 14, c.DaysBack)

	c, _ = rc.Classify(context.Background(), "team performance last month")
	assert.Equal(t, 30, c.DaysBack)
}

func TestRuleClassifier_LowercaseWordsAreNotAgentNames(t *testing.T) {
	rc := NewRuleClassifier(7)

	c, _ := rc.Classify(context.Background(), "show calls for the rep")
	assert.Equal(t, ListCalls, c.Intent)
	assert.Empty(t, c.AgentName)

	c, _ = rc.Classify(context.Background(), "show me the rep's calls")
	assert.Empty(t, c.AgentName)

	// capitalized names still extract, wherever the preposition sits
	c, _ = rc.Classify(context.Background(), "For Sarah, list recent calls")
	assert.Equal(t, "Sarah", c.AgentName)
}

func TestRuleClassifier_CallListIsNotACallID(t *testing.T) {
	rc := NewRuleClassifier(7)
	c, _ := rc.Classify(context.Background(), "show me the call list")
	assert.Empty(t, c.CallID)
}

func TestRuleClassifier_DefaultWindow(t *testing.T) {
	rc := NewRuleClassifier(10)
	c, _ := rc.Classify(context.Background(), "show me recent calls")
	assert.Equal(t, 10, c.DaysBack)
}

func TestRuleClassifier_BareCallIDBecomesTranscript(t *testing.T) {
	rc := NewRuleClassifier(7)
	c, _ := rc.Classify(context.Background(), "call c-99")
	assert.Equal(t, GetTranscript, c.Intent)
	assert.Equal(t, "c-99", c.CallID)
}

type fakeGenerator struct {
	reply string
	err   error
}

func (f *fakeGenerator) GenerateText(ctx context.Context, system, user string) (string, error) {
	return f.reply, f.err
}

func TestLLMClassifier_UsesProviderReply(t *testing.T) {
	gen := &fakeGenerator{reply: `{"intent":"AGENT_STATS","agent_name":"Sarah","days_back":14,"confidence":0.9}`}
	lc := NewLLMClassifier(gen, NewRuleClassifier(7), logger.NewNop())

	c, err := lc.Classify(context.Background(), "how is sarah trending?")
	require.NoError(t, err)
	assert.Equal(t, AgentStats, c.Intent)
	assert.Equal(t, "Sarah", c.AgentName)
	assert.Equal(t, 14, c.DaysBack)
}

func TestLLMClassifier_FencedAndProseWrappedJSON(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure! Here you go:\n```json\n{\"intent\":\"LIST_CALLS\",\"confidence\":0.8}\n```"}
	lc := NewLLMClassifier(gen, NewRuleClassifier(7), logger.NewNop())

	c, err := lc.Classify(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, ListCalls, c.Intent)
}

func TestLLMClassifier_ProviderErrorFallsBackToRules(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	lc := NewLLMClassifier(gen, NewRuleClassifier(7), logger.NewNop())

	c, err := lc.Classify(context.Background(), "show me Sarah's calls")
	require.NoError(t, err)
	assert.Equal(t, ListCalls, c.Intent)
	assert.Equal(t, "Sarah", c.AgentName)
}

func TestLLMClassifier_UnknownIntentBecomesGeneral(t *testing.T) {
	gen := &fakeGenerator{reply: `{"intent":"DELETE_EVERYTHING","confidence":0.99}`}
	lc := NewLLMClassifier(gen, NewRuleClassifier(7), logger.NewNop())

	c, err := lc.Classify(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, General, c.Intent)
}

func TestLLMClassifier_LowConfidenceFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: `{"intent":"COACHING","confidence":0.1}`}
	lc := NewLLMClassifier(gen, NewRuleClassifier(7), logger.NewNop())

	c, err := lc.Classify(context.Background(), "show me recent calls")
	require.NoError(t, err)
	assert.Equal(t, ListCalls, c.Intent)
}

func TestLLMClassifier_GarbageReplyFallsBack(t *testing.T) {
	gen := &fakeGenerator{reply: "I am not JSON at all"}
	lc := NewLLMClassifier(gen, NewRuleClassifier(7), logger.NewNop())

	c, err := lc.Classify(context.Background(), "show me recent calls")
	require.NoError(t, err)
	assert.Equal(t, ListCalls, c.Intent)
}

func TestLLMClassifier_NilGeneratorUsesRules(t *testing.T) {
	lc := NewLLMClassifier(nil, NewRuleClassifier(7), logger.NewNop())
	c, err := lc.Classify(context.Background(), "team summary please")
	require.NoError(t, err)
	assert.Equal(t, TeamSummary, c.Intent)
}

func TestParseClassifierReply_ClampsValues(t *testing.T) {
	c, ok := parseClassifierReply(`{"intent":"general","days_back":-5,"confidence":3.0}`)
	require.True(t, ok)
	assert.Equal(t, General, c.Intent)
	assert.Equal(t, 0, c.DaysBack)
	assert.Equal(t, 1.0, c.Confidence)
}

func TestAll_CoversEveryIntent(t *testing.T) {
	seen := map[Intent]bool{}
	for _, it := range All() {
		assert.False(t, seen[it], "duplicate intent %s", it)
		seen[it] = true
	}
	assert.Len(t, seen, 8)
	assert.True(t, Valid("GENERAL"))
	assert.False(t, Valid("NOT_AN_INTENT"))
}
