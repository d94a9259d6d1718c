package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// RuleClassifier is the deterministic fallback classifier. It favors
// precision on slot extraction and falls back to General rather than
// guessing between close intents.
type RuleClassifier struct {
	defaultDaysBack int
}

// NewRuleClassifier builds the fallback classifier. defaultDaysBack fills
// the date window when the message names none.
func NewRuleClassifier(defaultDaysBack int) *RuleClassifier {
	if defaultDaysBack <= 0 {
		defaultDaysBack = 7
	}
	return &RuleClassifier{defaultDaysBack: defaultDaysBack}
}

var (
	reDaysBack   = regexp.MustCompile(`(?i)\b(?:last|past|previous)\s+(\d{1,3})\s+days?\b`)
	reLastWeek   = regexp.MustCompile(`(?i)\b(?:last|past|this)\s+week\b`)
	reLastMonth  = regexp.MustCompile(`(?i)\b(?:last|past|this)\s+month\b`)
	reCallID     = regexp.MustCompile(`(?i)\bcall\s*(?:id\s*)?[#:]?\s*([A-Za-z0-9][A-Za-z0-9_-]{2,})\b`)
	// Name captures are deliberately case-sensitive: only capitalized
	// tokens read as proper names, so "calls for the rep" extracts nothing.
	rePossessive = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)'s\b`)
	reForAgent   = regexp.MustCompile(`\b(?i:for|of|by)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)\b`)
	reSearchText = regexp.MustCompile(`(?i)\b(?:about|mentioning|regarding|discussing|where .*? said)\s+(.+)$`)
)

func (r *RuleClassifier) Classify(ctx context.Context, message string) (*Classification, error) {
	m := strings.ToLower(strings.TrimSpace(message))

	c := &Classification{
		Intent:     General,
		DaysBack:   r.extractDaysBack(message),
		CallID:     extractCallID(message),
		AgentName:  extractAgentName(message),
		Confidence: 0.5,
	}

	switch {
	case containsAny(m, "objection", "objections", "pushback", "push back"):
		c.Intent = ObjectionAnalysis
	case containsAny(m, "coach", "coaching", "feedback on", "how did i do", "review this call", "score this call"):
		c.Intent = Coaching
	case containsAny(m, "transcript", "what was said", "full conversation"):
		c.Intent = GetTranscript
	case containsAny(m, "search", "find calls", "calls about", "calls mentioning", "calls where"):
		c.Intent = SearchCalls
		c.SearchQuery = extractSearchQuery(message)
	case containsAny(m, "team summary", "team performance", "the team", "team doing", "my team", "department"):
		c.Intent = TeamSummary
	case containsAny(m, "stats", "statistics", "performance", "metrics", "numbers", "how is", "how's"):
		// "how is <name>" reads as stats only when an agent name was found;
		// otherwise stay on General and let the user clarify.
		if c.AgentName != "" || containsAny(m, "stats", "statistics", "metrics", "performance", "numbers") {
			c.Intent = AgentStats
		}
	case containsAny(m, "calls", "call list", "show me calls", "list calls", "recent calls"):
		c.Intent = ListCalls
	}

	// A bare call id with no other signal most often means "show me it".
	if c.Intent == General && c.CallID != "" {
		c.Intent = GetTranscript
		c.Confidence = 0.4
	}

	return c, nil
}

func (r *RuleClassifier) extractDaysBack(message string) int {
	if m := reDaysBack.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 {
			return n
		}
	}
	if reLastWeek.MatchString(message) {
		return 7
	}
	if reLastMonth.MatchString(message) {
		return 30
	}
	return r.defaultDaysBack
}

func extractCallID(message string) string {
	m := reCallID.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	// "call list", "call ids" and similar are phrasing, not identifiers.
	switch strings.ToLower(m[1]) {
	case "list", "ids", "history", "record", "records", "about", "with", "from":
		return ""
	}
	return m[1]
}

func extractAgentName(message string) string {
	if m := rePossessive.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := reForAgent.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return ""
}

func extractSearchQuery(message string) string {
	if m := reSearchText.FindStringSubmatch(message); m != nil {
		q := strings.TrimSpace(m[1])
		q = strings.TrimRight(q, "?.!")
		return q
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
