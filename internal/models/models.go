package models

import "time"

// Role is the closed set of caller roles known to the access layer.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

// CallerIdentity is the verified profile attached to every request by the
// auth middleware. Role and team are mutated only by admins upstream;
// deactivated users keep their row (Active=false) and are denied here.
type CallerIdentity struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	TeamID        string `json:"team_id,omitempty"`
	LinkedAgentID string `json:"linked_agent_id,omitempty"`
	Active        bool   `json:"active"`
}

// UserSession is the cached session record keyed by session token.
type UserSession struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	TeamID        string    `json:"team_id,omitempty"`
	LinkedAgentID string    `json:"linked_agent_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	IPAddress     string    `json:"ip_address,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
}

// Identity converts a session into the caller identity used by the
// scope resolver. Sessions only exist for active users.
func (s *UserSession) Identity() *CallerIdentity {
	return &CallerIdentity{
		ID:            s.UserID,
		Email:         s.Email,
		Role:          s.Role,
		TeamID:        s.TeamID,
		LinkedAgentID: s.LinkedAgentID,
		Active:        true,
	}
}

// ChatContext carries optional state from the prior conversation turn.
type ChatContext struct {
	AgentUserID string `json:"agent_user_id,omitempty"`
	CallID      string `json:"call_id,omitempty"`
	Department  string `json:"department,omitempty"`
}

// ChatRequest is the inbound chat message.
type ChatRequest struct {
	Message string       `json:"message" binding:"required"`
	Context *ChatContext `json:"context,omitempty"`
}

// ChatResponse is the orchestrator's output envelope. Response is always
// present and safe to render directly to the end user, including on failure.
type ChatResponse struct {
	Success   bool        `json:"success"`
	Response  string      `json:"response"`
	Data      interface{} `json:"data,omitempty"`
	Intent    string      `json:"intent"`
	Timestamp string      `json:"timestamp"`
	Error     string      `json:"error,omitempty"`
}
