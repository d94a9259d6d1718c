package intent

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/callcoach/callcoach-core/pkg/logger"
)

// TextGenerator is the slice of the LLM provider this package needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

const classifierSystemPrompt = `You classify a sales manager's chat message into exactly one intent.
Intents: LIST_CALLS, AGENT_STATS, TEAM_SUMMARY, GET_TRANSCRIPT, SEARCH_CALLS, COACHING, OBJECTION_ANALYSIS, GENERAL.
Respond with ONLY a JSON object:
{"intent": "...", "agent_name": "", "days_back": 7, "call_id": "", "search_query": "", "confidence": 0.0}
agent_name is a person's name if one is mentioned, else empty. days_back is the
requested look-back window in days (default 7). confidence is 0..1.
If unsure, use GENERAL with the confidence you have. Output no other text.`

// minLLMConfidence is the floor below which the model's own pick is
// discarded in favor of the rule classifier.
const minLLMConfidence = 0.35

// LLMClassifier asks the configured LLM provider for a classification and
// validates the reply defensively; any failure falls back to the rule
// classifier so the pipeline always gets a usable result.
type LLMClassifier struct {
	gen      TextGenerator
	fallback *RuleClassifier
	log      logger.Logger
}

func NewLLMClassifier(gen TextGenerator, fallback *RuleClassifier, log logger.Logger) *LLMClassifier {
	return &LLMClassifier{gen: gen, fallback: fallback, log: log}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string) (*Classification, error) {
	if c.gen == nil {
		return c.fallback.Classify(ctx, message)
	}

	raw, err := c.gen.GenerateText(ctx, classifierSystemPrompt, message)
	if err != nil {
		c.log.Warn("intent classification provider failed; using rule classifier", "error", err)
		return c.fallback.Classify(ctx, message)
	}

	parsed, ok := parseClassifierReply(raw)
	if !ok || parsed.Confidence < minLLMConfidence {
		c.log.Debug("intent classification reply unusable; using rule classifier",
			"usable", ok, "confidence", parsed.Confidence)
		return c.fallback.Classify(ctx, message)
	}

	// The rule classifier's slot extraction is more reliable for
	// structured slots the model left empty.
	ruled, _ := c.fallback.Classify(ctx, message)
	if parsed.CallID == "" {
		parsed.CallID = ruled.CallID
	}
	if parsed.AgentName == "" {
		parsed.AgentName = ruled.AgentName
	}
	if parsed.DaysBack <= 0 {
		parsed.DaysBack = ruled.DaysBack
	}
	if parsed.Intent == SearchCalls && parsed.SearchQuery == "" {
		parsed.SearchQuery = ruled.SearchQuery
	}

	return parsed, nil
}

// parseClassifierReply extracts and validates the JSON object from an LLM
// reply. Model output is treated as untrusted wire input: fenced blocks,
// leading prose, unknown intents and out-of-range values are all handled.
func parseClassifierReply(raw string) (*Classification, bool) {
	jsonText := extractJSONObject(raw)
	if jsonText == "" {
		return &Classification{Intent: General}, false
	}

	var parsed struct {
		Intent      string  `json:"intent"`
		AgentName   string  `json:"agent_name"`
		DaysBack    int     `json:"days_back"`
		CallID      string  `json:"call_id"`
		SearchQuery string  `json:"search_query"`
		Confidence  float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return &Classification{Intent: General}, false
	}

	it := strings.ToUpper(strings.TrimSpace(parsed.Intent))
	if !Valid(it) {
		it = string(General)
	}
	if parsed.DaysBack < 0 {
		parsed.DaysBack = 0
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	return &Classification{
		Intent:      Intent(it),
		AgentName:   strings.TrimSpace(parsed.AgentName),
		DaysBack:    parsed.DaysBack,
		CallID:      strings.TrimSpace(parsed.CallID),
		SearchQuery: strings.TrimSpace(parsed.SearchQuery),
		Confidence:  parsed.Confidence,
	}, true
}

// extractJSONObject returns the first balanced {...} block in s, or "".
func extractJSONObject(s string) string {
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
