package services

import (
	"context"
	"sync"
	"time"

	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/repo"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

// ObjectionTelemetry writes objection records asynchronously. Failures
// are logged and dropped: telemetry must never delay or fail the
// user-facing response.
type ObjectionTelemetry struct {
	store   repo.TelemetryStore
	logger  logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewObjectionTelemetry(store repo.TelemetryStore, log logger.Logger) *ObjectionTelemetry {
	return &ObjectionTelemetry{store: store, logger: log, timeout: 5 * time.Second}
}

// Record fires off a background write of the analysis's objections. The
// caller's context is not used: the response may already be sent when
// the write runs.
func (t *ObjectionTelemetry) Record(agentID string, analysis *models.ObjectionAnalysis) {
	if t.store == nil || analysis == nil || len(analysis.Objections) == 0 {
		return
	}

	now := time.Now().UTC()
	records := make([]models.ObjectionRecord, 0, len(analysis.Objections))
	for _, o := range analysis.Objections {
		records = append(records, models.ObjectionRecord{
			CallID:     analysis.CallID,
			AgentID:    agentID,
			Type:       o.Type,
			Handled:    o.Handled,
			RecordedAt: now,
		})
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("objection telemetry panicked", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.store.RecordObjections(ctx, records); err != nil {
			t.logger.Warn("objection telemetry write failed", "call_id", analysis.CallID, "count", len(records), "error", err)
		}
	}()
}

// Flush blocks until in-flight writes finish. Used by shutdown and tests.
func (t *ObjectionTelemetry) Flush() { t.wg.Wait() }
