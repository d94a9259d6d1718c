package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/callcoach/callcoach-core/internal/models"
)

// MemoryStore is an in-memory implementation of every store interface.
// It backs unit tests and local development seeding.
type MemoryStore struct {
	mu          sync.RWMutex
	agents      map[string]*models.Agent
	calls       map[string]*models.Call
	turns       map[string][]models.TranscriptTurn
	goals       map[string][]models.GoalProgress
	objections  []models.ObjectionRecord
	failWrites  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents: make(map[string]*models.Agent),
		calls:  make(map[string]*models.Call),
		turns:  make(map[string][]models.TranscriptTurn),
		goals:  make(map[string][]models.GoalProgress),
	}
}

// Seed helpers

func (m *MemoryStore) AddAgent(a *models.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents[a.ID] = a
}

func (m *MemoryStore) AddCall(c *models.Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[c.ID] = c
}

func (m *MemoryStore) AddTurns(callID string, turns []models.TranscriptTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[callID] = turns
}

func (m *MemoryStore) AddGoal(agentID string, g models.GoalProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals[agentID] = append(m.goals[agentID], g)
}

// FailWrites makes telemetry writes return an error. Test hook for the
// fire-and-forget error boundary.
func (m *MemoryStore) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = fail
}

// RecordedObjections returns a copy of the telemetry rows written so far.
func (m *MemoryStore) RecordedObjections() []models.ObjectionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ObjectionRecord, len(m.objections))
	copy(out, m.objections)
	return out
}

// RosterStore

func (m *MemoryStore) AllAgents(ctx context.Context) ([]*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	sortAgents(out)
	return out, nil
}

func (m *MemoryStore) TeamAgents(ctx context.Context, teamID string) ([]*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Agent
	for _, a := range m.agents {
		if a.TeamID == teamID {
			out = append(out, a)
		}
	}
	sortAgents(out)
	return out, nil
}

func (m *MemoryStore) DepartmentAgents(ctx context.Context, department string) ([]*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Agent
	for _, a := range m.agents {
		if a.Department == department {
			out = append(out, a)
		}
	}
	sortAgents(out)
	return out, nil
}

func (m *MemoryStore) GetAgent(ctx context.Context, agentID string) (*models.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", agentID)
	}
	return a, nil
}

// CallStore

func (m *MemoryStore) ListCalls(ctx context.Context, agentID string, from, to time.Time, limit int) ([]*models.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Call
	for _, c := range m.calls {
		if c.AgentID != agentID {
			continue
		}
		if c.StartedAt.Before(from) || !c.StartedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetCall(ctx context.Context, callID string) (*models.Call, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.calls[callID]
	if !ok {
		return nil, fmt.Errorf("call not found: %s", callID)
	}
	return c, nil
}

// TranscriptStore

func (m *MemoryStore) Turns(ctx context.Context, callID string) ([]models.TranscriptTurn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	turns := m.turns[callID]
	out := make([]models.TranscriptTurn, len(turns))
	copy(out, turns)
	return out, nil
}

// GoalStore

func (m *MemoryStore) GoalsForAgent(ctx context.Context, agentID string) ([]models.GoalProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	goals := m.goals[agentID]
	out := make([]models.GoalProgress, len(goals))
	copy(out, goals)
	return out, nil
}

// TelemetryStore

func (m *MemoryStore) RecordObjections(ctx context.Context, records []models.ObjectionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return fmt.Errorf("telemetry store unavailable")
	}
	m.objections = append(m.objections, records...)
	return nil
}

// ObjectionReader

func (m *MemoryStore) RecentObjections(ctx context.Context, agentID string, since time.Time) ([]models.ObjectionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ObjectionRecord
	for _, rec := range m.objections {
		if rec.AgentID != agentID || rec.RecordedAt.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

func sortAgents(agents []*models.Agent) {
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
}
