package handlers

import "github.com/callcoach/callcoach-core/internal/models"

// Payload types carried in Result.Data. Each has a "type" discriminator
// so transport clients can switch on the shape.

type CallListData struct {
	Type       string         `json:"type"` // "call_list"
	Agent      *models.Agent  `json:"agent"`
	Calls      []*models.Call `json:"calls"`
	WindowDays int            `json:"window_days"`
}

type AgentStatsData struct {
	Type  string            `json:"type"` // "agent_stats"
	Agent *models.Agent     `json:"agent"`
	Stats *models.CallStats `json:"stats"`
}

type TeamSummaryData struct {
	Type    string              `json:"type"` // "team_summary"
	Summary *models.TeamSummary `json:"summary"`
}

type TranscriptData struct {
	Type  string                  `json:"type"` // "transcript"
	Call  *models.Call            `json:"call"`
	Turns []models.TranscriptTurn `json:"turns"`
	// FromBlob marks turns recovered by parsing the raw transcript blob
	// because no turn-level rows existed.
	FromBlob bool `json:"from_blob,omitempty"`
}

type SearchResultsData struct {
	Type    string                    `json:"type"` // "search_results"
	Query   string                    `json:"query"`
	Results []models.CallSearchResult `json:"results"`
}

type CoachingData struct {
	Type     string                   `json:"type"` // "coaching_analysis"
	Call     *models.Call             `json:"call"`
	Analysis *models.CoachingAnalysis `json:"analysis"`
}

type ObjectionData struct {
	Type     string                    `json:"type"` // "objection_analysis"
	Call     *models.Call              `json:"call"`
	Analysis *models.ObjectionAnalysis `json:"analysis"`
}
