// Package services – WebhookService
//
// This file implements WebhookService, the stateless dispatcher behind the
// per-tenant webhook endpoint. It routes inbound voice-platform messages by
// type, drives persistence side effects (call lifecycle, transcript turns,
// appointments), and produces the JSON the platform expects back: a plain
// status acknowledgement, a model configuration for the next turn, or a
// tool-output envelope.
//
// All cross-request state lives in the database; nothing is kept in memory
// between invocations, so instances can be scaled horizontally without
// session affinity. Persistence failures on the webhook path are logged and
// swallowed so a storage hiccup never stalls a live voice turn.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// tenant and message-type attributes.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/voiceline/voice-agent-backend/internal/agent"
	"github.com/voiceline/voice-agent-backend/internal/calendar"
	"github.com/voiceline/voice-agent-backend/internal/domain"
	"github.com/voiceline/voice-agent-backend/internal/repo"
	"github.com/voiceline/voice-agent-backend/internal/retriever"
)

// Message types dispatched by Handle.
const (
	eventStatusUpdate       = "status-update"
	eventEndOfCallReport    = "end-of-call-report"
	eventFunctionCall       = "function-call"
	eventConversationUpdate = "conversation-update"

	statusInProgress = "in-progress"

	roleUser      = "user"
	roleAssistant = "assistant"
)

// ----------------------------------------------------------------------------
// Wire types — inbound

// WebhookRequest is the platform's outer envelope.
type WebhookRequest struct {
	Message WebhookMessage `json:"message"`
}

// WebhookMessage is the tagged union of every event the platform sends.
// Fields irrelevant to a given Type are simply absent.
type WebhookMessage struct {
	Type            string              `json:"type"`
	Status          string              `json:"status,omitempty"`
	EndedReason     string              `json:"endedReason,omitempty"`
	DurationSeconds *float64            `json:"durationSeconds,omitempty"`
	Call            *CallInfo           `json:"call,omitempty"`
	Artifact        *Artifact           `json:"artifact,omitempty"`
	Conversation    []Turn              `json:"conversation,omitempty"`
	ToolCallList    []PlatformToolCall  `json:"toolCallList,omitempty"`
	FunctionCall    *LegacyFunctionCall `json:"functionCall,omitempty"`
}

// CallInfo identifies the live call an event belongs to.
type CallInfo struct {
	ID       string    `json:"id"`
	Type     string    `json:"type,omitempty"` // e.g. inboundPhoneCall
	Customer *Customer `json:"customer,omitempty"`
}

type Customer struct {
	Number string `json:"number,omitempty"`
}

// Artifact carries the final conversation attached to an end-of-call report.
type Artifact struct {
	Messages []Turn `json:"messages,omitempty"`
}

// Turn is one conversation message. Time, when present, is epoch millis.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Time    int64  `json:"time,omitempty"`
}

// PlatformToolCall is the platform's tool-invocation shape.
type PlatformToolCall struct {
	ID       string       `json:"id"`
	Function ToolCallBody `json:"function"`
}

type ToolCallBody struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// LegacyFunctionCall is the older single-function shape still sent by some
// platform versions; it carries no tool-call id, so the function name is
// echoed back as the id.
type LegacyFunctionCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// ----------------------------------------------------------------------------
// Wire types — outbound

// StatusResponse acknowledges events that need no model configuration.
type StatusResponse struct {
	Status string `json:"status"`
}

var (
	respSuccess   = StatusResponse{Status: "success"}
	respIgnored   = StatusResponse{Status: "ignored"}
	respUnhandled = StatusResponse{Status: "unhandled_event"}
)

// AssistantResponse configures the model for the next conversation turn.
type AssistantResponse struct {
	Assistant Assistant `json:"assistant"`
}

type Assistant struct {
	Model ModelSpec    `json:"model"`
	Tools []agent.Tool `json:"tools,omitempty"`
}

type ModelSpec struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"systemPrompt"`
	Temperature  float64 `json:"temperature"`
}

// ToolResultsResponse is the tool-output envelope, one entry per invocation.
type ToolResultsResponse struct {
	Results []ToolResult `json:"results"`
}

type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

// Tool result payloads.
type ScheduleResult struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type AvailabilityResult struct {
	BusyTimes []calendar.Interval `json:"busy_times"`
}

type ToolError struct {
	Error string `json:"error"`
}

// Stable tool error values relayed to the model.
const (
	toolErrInvalidArguments    = "invalid_arguments"
	toolErrUnknownTool         = "unknown_tool"
	toolErrCalendarDisabled    = "calendar_not_connected"
	toolErrCalendarUnavailable = "calendar_unavailable"
)

// ----------------------------------------------------------------------------
// Service

// ModelConfig is the fixed model identity advertised on conversation updates.
type ModelConfig struct {
	Provider    string
	Name        string
	Temperature float64
}

// WebhookService dispatches platform events for a resolved tenant namespace.
type WebhookService struct {
	DB         *gorm.DB
	Retrievers *retriever.Cache
	Calendar   calendar.Service
	TopK       int
	Model      ModelConfig

	// Now is a test seam; defaults to time.Now().UTC.
	Now func() time.Time
}

func (s *WebhookService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Handle routes one webhook message and returns the JSON-marshalable
// response body. Unknown message types are acknowledged, never rejected, so
// platform-side additions do not break live calls.
func (s *WebhookService) Handle(ctx context.Context, tenant string, msg *WebhookMessage) any {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(
			attribute.String("tenant", tenant),
			attribute.String("event.type", msg.Type),
		),
	)
	defer span.End()

	webhookEventsTotal.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case eventStatusUpdate:
		return s.handleStatusUpdate(ctx, tenant, msg)
	case eventEndOfCallReport:
		return s.handleEndOfCall(ctx, tenant, msg)
	case eventConversationUpdate:
		return s.handleConversationUpdate(ctx, tenant, msg)
	case eventFunctionCall:
		return s.handleFunctionCall(ctx, tenant, msg)
	default:
		log.Debug().Str("tenant", tenant).Str("type", msg.Type).Msg("unhandled webhook event type")
		return respUnhandled
	}
}

func (s *WebhookService) handleStatusUpdate(ctx context.Context, tenant string, msg *WebhookMessage) any {
	if msg.Status != statusInProgress {
		return respSuccess
	}
	callID := msg.callID()
	if callID == "" {
		log.Warn().Str("tenant", tenant).Msg("status-update without call id; nothing to persist")
		return respSuccess
	}

	phone := ""
	direction := "inbound"
	if msg.Call != nil {
		if msg.Call.Customer != nil {
			phone = msg.Call.Customer.Number
		}
		if msg.Call.Type != "" && !containsInbound(msg.Call.Type) {
			direction = "outbound"
		}
	}

	if _, err := repo.CreateCall(ctx, s.DB, tenant, callID, phone, direction, s.now()); err != nil {
		log.Error().Err(err).Str("tenant", tenant).Str("call_id", callID).
			Msg("failed to persist call record")
	}
	return respSuccess
}

func (s *WebhookService) handleEndOfCall(ctx context.Context, tenant string, msg *WebhookMessage) any {
	callID := msg.callID()
	if callID == "" {
		log.Warn().Str("tenant", tenant).Msg("end-of-call-report without call id; nothing to persist")
		return respSuccess
	}

	endTime := s.now()
	if err := repo.FinalizeCall(ctx, s.DB, callID, msg.EndedReason, endTime, msg.DurationSeconds); err != nil {
		log.Error().Err(err).Str("tenant", tenant).Str("call_id", callID).
			Msg("failed to finalize call record")
	}

	turns := msg.Conversation
	if msg.Artifact != nil && len(msg.Artifact.Messages) > 0 {
		turns = msg.Artifact.Messages
	}
	for i, t := range turns {
		if t.Role != roleAssistant {
			continue
		}
		ts := endTime
		if t.Time > 0 {
			ts = time.UnixMilli(t.Time).UTC()
		}
		if _, err := repo.SaveTranscriptTurn(ctx, s.DB, callID, i, roleAssistant, t.Content, ts); err != nil {
			log.Error().Err(err).Str("call_id", callID).Int("seq", i).
				Msg("failed to persist assistant transcript turn")
		}
	}
	return respSuccess
}

func (s *WebhookService) handleConversationUpdate(ctx context.Context, tenant string, msg *WebhookMessage) any {
	conv := msg.Conversation
	if len(conv) == 0 {
		return respIgnored
	}
	last := conv[len(conv)-1]
	if last.Role != roleUser {
		return respIgnored
	}

	if callID := msg.callID(); callID != "" {
		seq := len(conv) - 1
		if _, err := repo.SaveTranscriptTurn(ctx, s.DB, callID, seq, roleUser, last.Content, s.now()); err != nil {
			log.Error().Err(err).Str("call_id", callID).Int("seq", seq).
				Msg("failed to persist user transcript turn")
		}
	}

	passages := s.retrieve(ctx, tenant, last.Content)
	enabled := s.Calendar.Connected(ctx, tenant)

	prompt := agent.SystemPrompt(agent.PromptInput{
		BusinessName:    tenant,
		Passages:        passages,
		CalendarEnabled: enabled,
	})

	out := AssistantResponse{
		Assistant: Assistant{
			Model: ModelSpec{
				Provider:     s.Model.Provider,
				Model:        s.Model.Name,
				SystemPrompt: prompt,
				Temperature:  s.Model.Temperature,
			},
		},
	}
	if enabled {
		out.Assistant.Tools = agent.SchedulingTools()
	}
	return out
}

// retrieve fails open: any cache or retrieval error degrades to empty
// context so the voice turn is never blocked on the knowledge base.
func (s *WebhookService) retrieve(ctx context.Context, tenant, query string) []retriever.Passage {
	r, err := s.Retrievers.GetOrCreate(tenant)
	if err != nil {
		retrievalFailuresTotal.Inc()
		log.Error().Err(err).Str("tenant", tenant).Msg("retriever unavailable; serving empty context")
		return nil
	}
	passages, err := r.Retrieve(ctx, query, s.TopK)
	if err != nil {
		retrievalFailuresTotal.Inc()
		log.Error().Err(err).Str("tenant", tenant).Msg("retrieval failed; serving empty context")
		return nil
	}
	return passages
}

func (s *WebhookService) handleFunctionCall(ctx context.Context, tenant string, msg *WebhookMessage) any {
	calls := msg.ToolCallList
	if len(calls) == 0 && msg.FunctionCall != nil {
		calls = []PlatformToolCall{{
			ID: msg.FunctionCall.Name,
			Function: ToolCallBody{
				Name:      msg.FunctionCall.Name,
				Arguments: msg.FunctionCall.Parameters,
			},
		}}
	}

	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, ToolResult{
			ToolCallID: call.ID,
			Result:     s.invokeTool(ctx, tenant, msg, call),
		})
	}
	return ToolResultsResponse{Results: results}
}

func (s *WebhookService) invokeTool(ctx context.Context, tenant string, msg *WebhookMessage, call PlatformToolCall) any {
	name := call.Function.Name
	switch name {
	case agent.ToolCheckAvailability:
		return s.checkAvailability(ctx, tenant, call.Function.Arguments)
	case agent.ToolScheduleAppointment:
		return s.scheduleAppointment(ctx, tenant, msg, call.Function.Arguments)
	default:
		toolInvocationsTotal.WithLabelValues(name, "unknown").Inc()
		return ToolError{Error: toolErrUnknownTool}
	}
}

type availabilityArgs struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (s *WebhookService) checkAvailability(ctx context.Context, tenant string, raw json.RawMessage) any {
	var args availabilityArgs
	start, end, ok := parseWindow(raw, &args, func() (string, string) { return args.StartTime, args.EndTime })
	if !ok {
		toolInvocationsTotal.WithLabelValues(agent.ToolCheckAvailability, "invalid").Inc()
		return ToolError{Error: toolErrInvalidArguments}
	}

	busy, err := s.Calendar.FreeBusy(ctx, tenant, start, end)
	if err != nil {
		toolInvocationsTotal.WithLabelValues(agent.ToolCheckAvailability, "error").Inc()
		return ToolError{Error: calendarErrValue(err)}
	}
	if busy == nil {
		busy = []calendar.Interval{}
	}
	toolInvocationsTotal.WithLabelValues(agent.ToolCheckAvailability, "success").Inc()
	return AvailabilityResult{BusyTimes: busy}
}

type scheduleArgs struct {
	Summary     string `json:"summary"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`

	// Optional structured customer fields; also folded into Description by
	// the model per the tool schema.
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	IssueType     string `json:"issue_type,omitempty"`
}

func (s *WebhookService) scheduleAppointment(ctx context.Context, tenant string, msg *WebhookMessage, raw json.RawMessage) any {
	var args scheduleArgs
	start, end, ok := parseWindow(raw, &args, func() (string, string) { return args.StartTime, args.EndTime })
	if !ok || !start.Before(end) || args.Summary == "" {
		toolInvocationsTotal.WithLabelValues(agent.ToolScheduleAppointment, "invalid").Inc()
		return ToolError{Error: toolErrInvalidArguments}
	}

	eventID, err := s.Calendar.CreateEvent(ctx, tenant, args.Summary, start, end, args.Description)
	if err != nil {
		toolInvocationsTotal.WithLabelValues(agent.ToolScheduleAppointment, "error").Inc()
		return ToolError{Error: calendarErrValue(err)}
	}

	appt := &domain.Appointment{
		CallID:        msg.callID(),
		Tenant:        tenant,
		CustomerName:  args.CustomerName,
		CustomerPhone: args.CustomerPhone,
		IssueType:     args.IssueType,
		ScheduledFrom: start,
		ScheduledTo:   end,
		Description:   args.Description,
		EventID:       eventID,
	}
	if _, err := repo.CreateAppointment(ctx, s.DB, appt); err != nil {
		log.Error().Err(err).Str("tenant", tenant).Str("event_id", eventID).
			Msg("calendar event created but appointment row not persisted")
	}

	toolInvocationsTotal.WithLabelValues(agent.ToolScheduleAppointment, "success").Inc()
	return ScheduleResult{Status: "success", EventID: eventID}
}

// ----------------------------------------------------------------------------
// Helpers

func (m *WebhookMessage) callID() string {
	if m.Call == nil {
		return ""
	}
	return m.Call.ID
}

func containsInbound(callType string) bool {
	return strings.Contains(strings.ToLower(callType), "inbound")
}

// parseWindow decodes raw into args and validates the start/end pair: both
// present, RFC 3339, not inverted. A zero-width window (start == end) is
// accepted here; availability checks answer it with an empty busy list, and
// the scheduling tool applies its own strictly-before rule.
func parseWindow(raw json.RawMessage, args any, window func() (string, string)) (time.Time, time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, time.Time{}, false
	}
	if err := json.Unmarshal(raw, args); err != nil {
		return time.Time{}, time.Time{}, false
	}
	startStr, endStr := window()
	start, err1 := time.Parse(time.RFC3339, startStr)
	end, err2 := time.Parse(time.RFC3339, endStr)
	if err1 != nil || err2 != nil || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func calendarErrValue(err error) string {
	if errors.Is(err, calendar.ErrNotConnected) {
		return toolErrCalendarDisabled
	}
	return toolErrCalendarUnavailable
}
