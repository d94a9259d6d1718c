package models

import "time"

// CategoryScore is one rubric category scored 1-5 by the analysis service.
type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Comment  string `json:"comment,omitempty"`
}

// RedFlags is the severity breakdown of compliance/quality issues detected
// in a call. All slices are non-nil after validation; a clean call has
// three empty slices.
type RedFlags struct {
	Critical []string `json:"critical"`
	High     []string `json:"high"`
	Medium   []string `json:"medium"`
}

// CoachingAnalysis is the validated shape of the LLM coaching output.
type CoachingAnalysis struct {
	CallID       string          `json:"call_id"`
	Scores       []CategoryScore `json:"scores"`
	OverallScore float64         `json:"overall_score"`
	Strengths    []string        `json:"strengths"`
	Improvements []string        `json:"improvements"`
	ActionItems  []string        `json:"action_items"`
	RedFlags     RedFlags        `json:"red_flags"`
}

// Objection is one customer objection detected in a transcript.
type Objection struct {
	Type          string `json:"type"`
	Quote         string `json:"quote,omitempty"`
	AgentResponse string `json:"agent_response,omitempty"`
	Handled       bool   `json:"handled"`
}

// ObjectionAnalysis is the validated shape of the LLM objection output.
type ObjectionAnalysis struct {
	CallID          string      `json:"call_id"`
	Objections      []Objection `json:"objections"`
	Summary         string      `json:"summary,omitempty"`
	Recommendations []string    `json:"recommendations"`
}

// ObjectionRecord is the telemetry row written fire-and-forget after an
// objection analysis, for later trend reporting.
type ObjectionRecord struct {
	CallID     string    `json:"call_id"`
	AgentID    string    `json:"agent_id"`
	Type       string    `json:"type"`
	Handled    bool      `json:"handled"`
	RecordedAt time.Time `json:"recorded_at"`
}
