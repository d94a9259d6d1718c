// Package intent maps a free-text chat message onto the closed set of
// intents the pipeline can dispatch. The primary classifier asks the LLM
// provider; any failure degrades to a deterministic rule classifier whose
// own fallback is GENERAL, so classification never dead-ends.
package intent

import "context"

// Intent identifies one dispatchable chat capability.
type Intent string

const (
	ListCalls         Intent = "LIST_CALLS"
	AgentStats        Intent = "AGENT_STATS"
	TeamSummary       Intent = "TEAM_SUMMARY"
	GetTranscript     Intent = "GET_TRANSCRIPT"
	SearchCalls       Intent = "SEARCH_CALLS"
	Coaching          Intent = "COACHING"
	ObjectionAnalysis Intent = "OBJECTION_ANALYSIS"
	General           Intent = "GENERAL"
)

// All returns every intent. The dispatch table constructor checks totality
// against this list; tests assert the two never drift apart.
func All() []Intent {
	return []Intent{
		ListCalls,
		AgentStats,
		TeamSummary,
		GetTranscript,
		SearchCalls,
		Coaching,
		ObjectionAnalysis,
		General,
	}
}

// Valid reports whether s names a known intent.
func Valid(s string) bool {
	for _, it := range All() {
		if string(it) == s {
			return true
		}
	}
	return false
}

// Classification is the normalized classifier output: an intent plus the
// slots extracted from the message. Ephemeral, produced once per message.
type Classification struct {
	Intent      Intent  `json:"intent"`
	AgentName   string  `json:"agent_name,omitempty"`
	DaysBack    int     `json:"days_back"`
	CallID      string  `json:"call_id,omitempty"`
	SearchQuery string  `json:"search_query,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Classifier turns a message into a Classification. Implementations must
// return a usable Classification (defaulting to General) rather than
// erroring on ambiguous input; an error means the classifier itself broke.
type Classifier interface {
	Classify(ctx context.Context, message string) (*Classification, error)
}
