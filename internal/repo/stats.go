// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

// CallsStats returns aggregate metadata for the calls table, optionally
// scoped to a tenant: the total number of rows and the maximum UpdatedAt
// timestamp among them. When there are no calls, the returned count is 0 and
// maxUpdatedAt is nil.
func CallsStats(ctx context.Context, db *gorm.DB, tenant string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Call{})
	if tenant != "" {
		q = q.Where("tenant = ?", tenant)
	}

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// TranscriptStats returns aggregate metadata for the turns of one call: the
// total number of rows and the maximum CreatedAt timestamp among them. When
// the call has no turns, the returned count is 0 and maxCreatedAt is nil.
func TranscriptStats(ctx context.Context, db *gorm.DB, callID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.TranscriptTurn{}).Where("call_id = ?", callID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
