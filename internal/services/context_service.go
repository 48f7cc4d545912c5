// Package services – ContextService
//
// ContextService backs the generic get-context tool endpoints exposed to
// voice platforms that run their own model and only call out for knowledge:
// it retrieves tenant passages for a query and reports whether calendar
// scheduling is available for the tenant.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/calendar"
	"github.com/voiceline/voice-agent-backend/internal/retriever"
)

// ContextService answers knowledge queries scoped to one tenant.
type ContextService struct {
	DB         *gorm.DB
	Retrievers *retriever.Cache
	Calendar   calendar.Service
	TopK       int
}

// ContextResult is the assembled knowledge block for one query.
type ContextResult struct {
	Passages        []retriever.Passage
	CalendarEnabled bool
}

// Lookup retrieves tenant passages for query and the tenant's calendar
// status. Retrieval fails open to an empty passage list; only an empty query
// is an error.
func (s *ContextService) Lookup(ctx context.Context, tenant, query string) (*ContextResult, error) {
	tr := otel.Tracer("services/ContextService")
	ctx, span := tr.Start(ctx, "Lookup",
		trace.WithAttributes(attribute.String("tenant", tenant)),
	)
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	var passages []retriever.Passage
	r, err := s.Retrievers.GetOrCreate(tenant)
	if err != nil {
		retrievalFailuresTotal.Inc()
		log.Error().Err(err).Str("tenant", tenant).Msg("retriever unavailable; serving empty context")
	} else if passages, err = r.Retrieve(ctx, query, s.TopK); err != nil {
		retrievalFailuresTotal.Inc()
		log.Error().Err(err).Str("tenant", tenant).Msg("retrieval failed; serving empty context")
		passages = nil
	}

	return &ContextResult{
		Passages:        passages,
		CalendarEnabled: s.Calendar.Connected(ctx, tenant),
	}, nil
}

// FormatContextBlock renders a ContextResult into the text block returned by
// the get-context endpoint: the passages under a CONTEXT header followed by
// the calendar status.
func FormatContextBlock(res *ContextResult) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	if len(res.Passages) == 0 {
		b.WriteString("(no relevant business information found)\n")
	} else {
		for _, p := range res.Passages {
			b.WriteString(strings.TrimSpace(p.Text))
			b.WriteByte('\n')
		}
	}
	b.WriteString("\nCALENDAR_STATUS:\n")
	if res.CalendarEnabled {
		b.WriteString("enabled")
	} else {
		b.WriteString("disabled")
	}
	return b.String()
}

// JoinPassages renders just the passage texts, newline-separated, for the
// retell-style endpoint that wants a bare context string.
func JoinPassages(res *ContextResult) string {
	parts := make([]string, 0, len(res.Passages))
	for _, p := range res.Passages {
		parts = append(parts, strings.TrimSpace(p.Text))
	}
	return strings.Join(parts, "\n")
}
