// Package services – AdminService
//
// AdminService backs the operator-facing endpoints: tenant corpus ingestion,
// retriever invalidation, and call/transcript inspection.
package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
	"github.com/voiceline/voice-agent-backend/internal/repo"
	"github.com/voiceline/voice-agent-backend/internal/retriever"
	"github.com/voiceline/voice-agent-backend/internal/tenant"
)

// AdminService implements operator workflows. IngestCorpus is the only
// write path for tenant knowledge; webhook traffic never mutates corpora.
type AdminService struct {
	DB         *gorm.DB
	Retrievers *retriever.Cache
}

// IngestCorpus validates the tenant name, writes the markdown corpus to the
// data directory, and drops any cached retriever so the next webhook builds
// against the fresh corpus. Returns the resolved namespace.
func (s *AdminService) IngestCorpus(ctx context.Context, businessName string, corpus []byte) (string, error) {
	tr := otel.Tracer("services/AdminService")
	_, span := tr.Start(ctx, "IngestCorpus",
		trace.WithAttributes(attribute.String("business", businessName)),
	)
	defer span.End()

	ns, err := tenant.ResolveStrict(businessName)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(corpus))) == 0 {
		return "", ErrEmptyCorpus
	}

	path := s.Retrievers.CorpusPath(ns)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, corpus, 0o644); err != nil {
		return "", err
	}

	s.Retrievers.Invalidate(ns)
	log.Info().Str("namespace", ns).Int("bytes", len(corpus)).Msg("tenant corpus ingested")
	return ns, nil
}

// InvalidateRetriever drops the cached retriever for a tenant. Reports
// whether an entry existed.
func (s *AdminService) InvalidateRetriever(ctx context.Context, businessName string) (string, bool, error) {
	ns, err := tenant.ResolveStrict(businessName)
	if err != nil {
		return "", false, err
	}
	return ns, s.Retrievers.Invalidate(ns), nil
}

// CallPage is one page of call records with pagination metadata.
type CallPage struct {
	Calls    []domain.Call
	Total    int64
	Page     int
	PageSize int
}

// ListCalls returns a page of call records, newest first, optionally
// filtered by tenant namespace. Page numbering is 1-based.
func (s *AdminService) ListCalls(ctx context.Context, tenantNS string, page, pageSize int) (*CallPage, error) {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "ListCalls",
		trace.WithAttributes(
			attribute.String("tenant", tenantNS),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	total, err := repo.CountCalls(ctx, s.DB, tenantNS)
	if err != nil {
		return nil, err
	}
	calls, err := repo.ListCallsPage(ctx, s.DB, tenantNS, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return &CallPage{Calls: calls, Total: total, Page: page, PageSize: pageSize}, nil
}

// TranscriptPage is one page of a call's transcript.
type TranscriptPage struct {
	Call     *domain.Call
	Turns    []domain.TranscriptTurn
	Total    int64
	Page     int
	PageSize int
}

// GetTranscript returns a page of transcript turns for a call identified by
// its platform call id, ordered by sequence number.
func (s *AdminService) GetTranscript(ctx context.Context, callID string, page, pageSize int) (*TranscriptPage, error) {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "GetTranscript",
		trace.WithAttributes(attribute.String("call_id", callID)),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	call, err := repo.GetCall(ctx, s.DB, callID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}

	total, err := repo.CountTranscriptTurns(ctx, s.DB, callID)
	if err != nil {
		return nil, err
	}
	turns, err := repo.ListTranscriptPage(ctx, s.DB, callID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return &TranscriptPage{Call: call, Turns: turns, Total: total, Page: page, PageSize: pageSize}, nil
}

// CallsVersion returns a weak version token for the calls table scoped to a
// tenant filter, suitable for ETag generation.
func (s *AdminService) CallsVersion(ctx context.Context, tenantNS string) (int64, string, error) {
	count, maxUpdated, err := repo.CallsStats(ctx, s.DB, tenantNS)
	if err != nil {
		return 0, "", err
	}
	tok := ""
	if maxUpdated != nil {
		tok = maxUpdated.UTC().Format("20060102T150405.000000000")
	}
	return count, tok, nil
}

// TranscriptVersion returns a weak version token for one call's transcript.
func (s *AdminService) TranscriptVersion(ctx context.Context, callID string) (int64, string, error) {
	count, maxTS, err := repo.TranscriptStats(ctx, s.DB, callID)
	if err != nil {
		return 0, "", err
	}
	tok := ""
	if maxTS != nil {
		tok = maxTS.UTC().Format("20060102T150405.000000000")
	}
	return count, tok, nil
}
