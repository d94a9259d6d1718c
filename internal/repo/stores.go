// Package repo defines the read-side data stores the chat pipeline depends
// on. Persistence itself is owned by an external database layer; the
// pipeline only sees these interfaces, which keeps every handler unit
// testable with the in-memory implementation.
package repo

import (
	"context"
	"time"

	"github.com/callcoach/callcoach-core/internal/models"
)

// RosterStore looks up agents by team, department, or globally.
type RosterStore interface {
	AllAgents(ctx context.Context) ([]*models.Agent, error)
	TeamAgents(ctx context.Context, teamID string) ([]*models.Agent, error)
	DepartmentAgents(ctx context.Context, department string) ([]*models.Agent, error)
	GetAgent(ctx context.Context, agentID string) (*models.Agent, error)
}

// CallStore reads call metadata.
type CallStore interface {
	// ListCalls returns an agent's calls with StartedAt in [from, to),
	// newest first. limit <= 0 means no limit.
	ListCalls(ctx context.Context, agentID string, from, to time.Time, limit int) ([]*models.Call, error)
	GetCall(ctx context.Context, callID string) (*models.Call, error)
}

// TranscriptStore reads turn-level transcript rows. A call may have a raw
// transcript blob but no turn rows; callers fall back to parsing the blob.
type TranscriptStore interface {
	Turns(ctx context.Context, callID string) ([]models.TranscriptTurn, error)
}

// GoalStore reads coaching goal progress for the dashboard overview.
type GoalStore interface {
	GoalsForAgent(ctx context.Context, agentID string) ([]models.GoalProgress, error)
}

// TelemetryStore records detected objections for later trend analysis.
// Writes are best-effort: callers must never let a failure here reach the
// user-facing response path.
type TelemetryStore interface {
	RecordObjections(ctx context.Context, records []models.ObjectionRecord) error
}

// ObjectionReader serves the dashboard's recent-objections panel.
type ObjectionReader interface {
	RecentObjections(ctx context.Context, agentID string, since time.Time) ([]models.ObjectionRecord, error)
}
