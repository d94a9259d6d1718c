package models

import "time"

// Agent is one coached sales agent.
type Agent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	TeamID     string `json:"team_id,omitempty"`
	Department string `json:"department,omitempty"`
	Active     bool   `json:"active"`
}

// Call is the metadata row for one recorded sales call. Optional fields
// (talk ratio, sentiment, outcome) are frequently missing upstream and
// every consumer must tolerate their zero values.
type Call struct {
	ID              string    `json:"id"`
	AgentID         string    `json:"agent_id"`
	AgentName       string    `json:"agent_name,omitempty"`
	CustomerName    string    `json:"customer_name,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	Outcome         string    `json:"outcome,omitempty"`
	TalkRatio       *float64  `json:"talk_ratio,omitempty"`
	Sentiment       string    `json:"sentiment,omitempty"`
	// RawTranscript is the unstructured transcript blob. Turn-level rows
	// may or may not exist for a call that carries a blob.
	RawTranscript string `json:"raw_transcript,omitempty"`
}

// TranscriptTurn is one utterance by one speaker within a call.
type TranscriptTurn struct {
	CallID  string `json:"call_id"`
	Seq     int    `json:"seq"`
	Speaker string `json:"speaker"` // "agent" | "customer"
	Text    string `json:"text"`
}

// CallStats aggregates one agent's performance over a date window.
type CallStats struct {
	AgentID            string         `json:"agent_id"`
	TotalCalls         int            `json:"total_calls"`
	TotalDurationSecs  int            `json:"total_duration_seconds"`
	AvgDurationSecs    float64        `json:"avg_duration_seconds"`
	AvgTalkRatio       *float64       `json:"avg_talk_ratio,omitempty"`
	OutcomeCounts      map[string]int `json:"outcome_counts,omitempty"`
	WindowDays         int            `json:"window_days"`
	FirstCallInWindow  *time.Time     `json:"first_call_in_window,omitempty"`
	LatestCallInWindow *time.Time     `json:"latest_call_in_window,omitempty"`
}

// TeamAggregate is one agent's line in a team summary.
type TeamAggregate struct {
	AgentID         string  `json:"agent_id"`
	AgentName       string  `json:"agent_name"`
	TotalCalls      int     `json:"total_calls"`
	AvgDurationSecs float64 `json:"avg_duration_seconds"`
}

// TeamSummary aggregates a department's activity over a date window.
type TeamSummary struct {
	Department      string          `json:"department"`
	AgentCount      int             `json:"agent_count"`
	TotalCalls      int             `json:"total_calls"`
	AvgDurationSecs float64         `json:"avg_duration_seconds"`
	PerAgent        []TeamAggregate `json:"per_agent,omitempty"`
	WindowDays      int             `json:"window_days"`
}

// CallSearchResult is one semantic-search hit, ordered by similarity.
type CallSearchResult struct {
	CallID     string    `json:"call_id"`
	AgentID    string    `json:"agent_id"`
	AgentName  string    `json:"agent_name,omitempty"`
	Date       time.Time `json:"date"`
	Snippet    string    `json:"snippet"`
	Similarity float64   `json:"similarity"`
}

// GoalProgress tracks one coaching goal for the dashboard overview.
type GoalProgress struct {
	AgentID     string  `json:"agent_id"`
	Goal        string  `json:"goal"`
	TargetValue float64 `json:"target_value"`
	Current     float64 `json:"current_value"`
}
