// Package handlers fulfils individual chat intents. Every handler takes
// the same normalized params and returns the same result envelope;
// collaborator failures are converted to category-tagged, user-safe
// errors and never escape as raw exceptions.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/callcoach/callcoach-core/internal/chat/agents"
	"github.com/callcoach/callcoach-core/internal/chat/intent"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/internal/services"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// Category classifies a handler failure for transport mapping and
// metrics. An empty result set is not a failure and has no category.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryNotFound   Category = "NOT_FOUND"
	CategoryPermission Category = "PERMISSION"
	CategoryUpstream   Category = "UPSTREAM_SERVICE"
)

// Params is the normalized input to every handler, built from the
// classification, the resolved scope, and the request context.
type Params struct {
	AgentID     string
	AgentName   string
	DaysBack    int
	CallID      string
	SearchQuery string
	Department  string
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int

	Scope    *scope.DataAccessScope
	Identity *models.CallerIdentity
}

// Result is the uniform handler envelope. Success=false implies Data is
// nil and Error carries a user-safe message. Message is optional
// explanatory text for success cases with no data (a valid, empty
// business outcome).
type Result struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
	Error    string      `json:"error,omitempty"`
	Category Category    `json:"category,omitempty"`
}

func ok(data interface{}) *Result { return &Result{Success: true, Data: data} }

func okMessage(msg string) *Result { return &Result{Success: true, Message: msg} }

func fail(cat Category, msg string) *Result {
	return &Result{Success: false, Error: msg, Category: cat}
}

// HandlerFunc fulfils one intent. Implementations never panic on bad
// input or collaborator failure; they return a failed Result instead.
type HandlerFunc func(ctx context.Context, p *Params, message string) *Result

// Analyzer is the LLM analysis collaborator the coaching and objection
// handlers depend on.
type Analyzer interface {
	AnalyzeCoaching(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.CoachingAnalysis, error)
	AnalyzeObjections(ctx context.Context, callID string, turns []models.TranscriptTurn) (*models.ObjectionAnalysis, error)
}

// Searcher is the semantic search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, opts services.SearchOptions) ([]models.CallSearchResult, error)
}

// Telemetry records detected objections without ever blocking or
// failing the response path.
type Telemetry interface {
	Record(agentID string, analysis *models.ObjectionAnalysis)
}

// Defaults are the product defaults applied when a slot is unspecified.
type Defaults struct {
	Department string
	DaysBack   int
	Limit      int
}

// Set bundles the collaborators shared by all handlers.
type Set struct {
	roster      repo.RosterStore
	calls       repo.CallStore
	transcripts repo.TranscriptStore
	names       *agents.Resolver
	analyzer    Analyzer
	searcher    Searcher
	telemetry   Telemetry
	defaults    Defaults
	logger      logger.Logger
}

func NewSet(
	roster repo.RosterStore,
	calls repo.CallStore,
	transcripts repo.TranscriptStore,
	names *agents.Resolver,
	analyzer Analyzer,
	searcher Searcher,
	telemetry Telemetry,
	defaults Defaults,
	log logger.Logger,
) *Set {
	if defaults.DaysBack <= 0 {
		defaults.DaysBack = 30
	}
	if defaults.Limit <= 0 {
		defaults.Limit = 10
	}
	return &Set{
		roster:      roster,
		calls:       calls,
		transcripts: transcripts,
		names:       names,
		analyzer:    analyzer,
		searcher:    searcher,
		telemetry:   telemetry,
		defaults:    defaults,
		logger:      log,
	}
}

// Dispatcher maps intents to handlers. The table is total over the
// intent enum: the constructor fails when an intent has no entry, so a
// new intent without a handler is caught at startup, not at runtime.
type Dispatcher struct {
	table   map[intent.Intent]HandlerFunc
	general HandlerFunc
}

func NewDispatcher(s *Set) (*Dispatcher, error) {
	table := map[intent.Intent]HandlerFunc{
		intent.ListCalls:         s.HandleListCalls,
		intent.AgentStats:        s.HandleAgentStats,
		intent.TeamSummary:       s.HandleTeamSummary,
		intent.GetTranscript:     s.HandleGetTranscript,
		intent.SearchCalls:       s.HandleSearchCalls,
		intent.Coaching:          s.HandleCoaching,
		intent.ObjectionAnalysis: s.HandleObjectionAnalysis,
		intent.General:           s.HandleGeneral,
	}
	for _, it := range intent.All() {
		if _, ok := table[it]; !ok {
			return nil, fmt.Errorf("no handler registered for intent %s", it)
		}
	}
	return &Dispatcher{table: table, general: s.HandleGeneral}, nil
}

// Handler returns the handler for it; unknown intents map to GENERAL.
func (d *Dispatcher) Handler(it intent.Intent) HandlerFunc {
	if h, ok := d.table[it]; ok {
		return h
	}
	return d.general
}

// Intents returns the registered intent keys, for startup logging.
func (d *Dispatcher) Intents() []intent.Intent {
	out := make([]intent.Intent, 0, len(d.table))
	for _, it := range intent.All() {
		if _, ok := d.table[it]; ok {
			out = append(out, it)
		}
	}
	return out
}

// window computes the [from, to) query window from params: an explicit
// range wins, otherwise days_back (defaulted) counted back from now.
func (s *Set) window(p *Params) (time.Time, time.Time, int) {
	if p.StartDate != nil && p.EndDate != nil {
		days := int(p.EndDate.Sub(*p.StartDate).Hours() / 24)
		return *p.StartDate, *p.EndDate, days
	}
	days := p.DaysBack
	if days <= 0 {
		days = s.defaults.DaysBack
	}
	to := time.Now().UTC()
	return to.AddDate(0, 0, -days), to, days
}

// resolveScopedAgent turns params into a concrete in-scope agent. The
// permission check runs before any roster fetch for an explicit id, and
// name resolution is restricted to the scope so a caller can never
// resolve their way to data they may not see.
func (s *Set) resolveScopedAgent(ctx context.Context, p *Params) (*models.Agent, *Result) {
	if p.Scope.Empty() && (p.Identity == nil || p.Identity.Role != models.RoleAdmin) {
		return nil, fail(CategoryPermission, "You don't currently have access to any agent data.")
	}

	if p.AgentID != "" {
		if err := scope.CheckAccess(p.Scope, p.Identity, p.AgentID); err != nil {
			return nil, fail(CategoryPermission, err.Error())
		}
		agent, err := s.roster.GetAgent(ctx, p.AgentID)
		if err != nil {
			return nil, fail(CategoryNotFound, fmt.Sprintf("I couldn't find an agent with id %q.", p.AgentID))
		}
		return agent, nil
	}

	if p.AgentName != "" {
		if p.Identity != nil && p.Identity.Role == models.RoleAdmin {
			agent, err := s.names.ResolveByName(ctx, p.AgentName)
			if err != nil {
				s.logger.Error("agent name resolution failed", "name", p.AgentName, "error", err)
				return nil, fail(CategoryUpstream, "I couldn't look up that agent right now. Please try again.")
			}
			if agent == nil {
				return nil, fail(CategoryNotFound, fmt.Sprintf("I couldn't find an agent named %q. Try the full name.", p.AgentName))
			}
			return agent, nil
		}

		agent, err := s.names.ResolveByNameScoped(ctx, p.AgentName, p.Scope.AllowedAgentIDs)
		if err != nil {
			s.logger.Error("agent name resolution failed", "name", p.AgentName, "error", err)
			return nil, fail(CategoryUpstream, "I couldn't look up that agent right now. Please try again.")
		}
		if agent != nil {
			return agent, nil
		}

		// Distinguish "no such agent" from "agent exists but is outside
		// your scope": the latter is a permission error, not a not-found.
		unscoped, err := s.names.ResolveByName(ctx, p.AgentName)
		if err == nil && unscoped != nil {
			if accessErr := scope.CheckAccess(p.Scope, p.Identity, unscoped.ID); accessErr != nil {
				return nil, fail(CategoryPermission, accessErr.Error())
			}
		}
		return nil, fail(CategoryNotFound, fmt.Sprintf("I couldn't find an agent named %q. Try the full name.", p.AgentName))
	}

	return nil, fail(CategoryValidation, "Please tell me which agent you mean, for example \"show Sarah's calls\".")
}
