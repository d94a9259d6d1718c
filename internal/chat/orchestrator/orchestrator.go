// Package orchestrator composes the chat pipeline: classify, scope,
// dispatch, format. It owns the top-level error envelope; no panic or
// collaborator failure ever escapes to the transport layer.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/callcoach/callcoach-core/internal/chat/format"
	"github.com/callcoach/callcoach-core/internal/chat/handlers"
	"github.com/callcoach/callcoach-core/internal/chat/intent"
	"github.com/callcoach/callcoach-core/internal/chat/scope"
	"github.com/callcoach/callcoach-core/internal/models"
	"github.com/callcoach/callcoach-core/internal/monitoring"
	"github.com/callcoach/callcoach-core/internal/tracing"
	"github.com/callcoach/callcoach-core/pkg/logger"
)

const errorResponse = "Sorry, something went wrong while processing your message. Please try again."

type Orchestrator struct {
	classifier intent.Classifier
	scopes     *scope.Resolver
	dispatch   *handlers.Dispatcher
	formatter  *format.Formatter
	tracer     *tracing.PipelineTracer
	logger     logger.Logger
}

func New(classifier intent.Classifier, scopes *scope.Resolver, dispatch *handlers.Dispatcher, formatter *format.Formatter, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		scopes:     scopes,
		dispatch:   dispatch,
		formatter:  formatter,
		tracer:     tracing.NewPipelineTracer("chat-pipeline"),
		logger:     log,
	}
}

// HandleMessage runs one message through the pipeline and always
// returns a well-formed response, success or not.
func (o *Orchestrator) HandleMessage(ctx context.Context, identity *models.CallerIdentity, req *models.ChatRequest) (resp *models.ChatResponse) {
	start := time.Now()
	ctx, span := o.tracer.StartMessageSpan(ctx, callerRole(identity))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("chat pipeline panicked", "panic", r)
			o.tracer.RecordError(span, fmt.Errorf("pipeline panic: %v", r))
			resp = o.errored(intent.General)
		}
	}()

	if req == nil || strings.TrimSpace(req.Message) == "" {
		return &models.ChatResponse{
			Success:   false,
			Response:  "Please type a message so I know what you're looking for.",
			Intent:    string(intent.General),
			Timestamp: now(),
			Error:     "empty message",
		}
	}

	clsCtx, clsSpan := o.tracer.StartClassifySpan(ctx)
	cls, err := o.classifier.Classify(clsCtx, req.Message)
	if err != nil || cls == nil {
		// The classifier degrades internally; an error here means it
		// broke outright. Fall back to GENERAL rather than dead-ending.
		o.logger.Error("intent classification failed", "error", err)
		if err != nil {
			o.tracer.RecordError(clsSpan, err)
		}
		cls = &intent.Classification{Intent: intent.General}
	}
	clsSpan.End()

	floorWide := o.scopes.FloorWideRequested(req.Message)
	dataScope, err := o.scopes.Resolve(ctx, identity, floorWide)
	if err != nil {
		o.logger.Error("scope resolution failed", "error", err)
		o.tracer.RecordError(span, err)
		return o.errored(cls.Intent)
	}

	params := o.buildParams(cls, req.Context, dataScope, identity)
	handlerCtx, handlerSpan := o.tracer.StartHandlerSpan(ctx, string(cls.Intent))
	result := o.dispatch.Handler(cls.Intent)(handlerCtx, params, req.Message)
	handlerSpan.End()
	text := o.formatter.Format(ctx, cls.Intent, result, req.Message)

	o.tracer.RecordResult(span, string(cls.Intent), time.Since(start), result.Success, string(result.Category))
	monitoring.RecordChatMessage(string(cls.Intent), result.Success, string(result.Category))
	if result.Category == handlers.CategoryPermission && identity != nil {
		monitoring.RecordScopeDenial(string(identity.Role))
	}

	resp = &models.ChatResponse{
		Success:   result.Success,
		Response:  text,
		Intent:    string(cls.Intent),
		Timestamp: now(),
	}
	if result.Success {
		resp.Data = result.Data
	} else {
		resp.Error = result.Error
	}

	o.logger.Info("chat message handled",
		"intent", cls.Intent,
		"success", result.Success,
		"category", result.Category,
		"floor_wide", floorWide,
	)
	return resp
}

// buildParams merges classifier slots with prior-turn context. Explicit
// slots from the current message win over carried-over context.
func (o *Orchestrator) buildParams(cls *intent.Classification, chatCtx *models.ChatContext, dataScope *scope.DataAccessScope, identity *models.CallerIdentity) *handlers.Params {
	p := &handlers.Params{
		AgentName:   cls.AgentName,
		DaysBack:    cls.DaysBack,
		CallID:      cls.CallID,
		SearchQuery: cls.SearchQuery,
		Scope:       dataScope,
		Identity:    identity,
	}
	if chatCtx != nil {
		if p.CallID == "" {
			p.CallID = chatCtx.CallID
		}
		if p.AgentName == "" && p.AgentID == "" {
			p.AgentID = chatCtx.AgentUserID
		}
		p.Department = chatCtx.Department
	}
	return p
}

func (o *Orchestrator) errored(it intent.Intent) *models.ChatResponse {
	return &models.ChatResponse{
		Success:   false,
		Response:  errorResponse,
		Intent:    string(it),
		Timestamp: now(),
		Error:     "internal error",
	}
}

func callerRole(identity *models.CallerIdentity) string {
	if identity == nil {
		return "anonymous"
	}
	return string(identity.Role)
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }
