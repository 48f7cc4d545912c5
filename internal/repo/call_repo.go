// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Call model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a call is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Idempotency: the voice platform retries webhooks and may emit the same
// status-update twice. CreateCall therefore inserts with ON CONFLICT DO
// NOTHING on the platform call id, and FinalizeCall is an UPDATE keyed on the
// same id, so replays of either event are absorbed without duplicates.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCall inserts a new Call row for the platform call id. The insert is
// conflict-free on call_id: a duplicate status-update leaves the existing row
// untouched, and the row created by the first event is returned instead.
func CreateCall(ctx context.Context, db *gorm.DB, tenant, callID, phoneNumber, direction string, startTime time.Time) (*domain.Call, error) {
	c := &domain.Call{
		ID:          uuid.NewString(),
		CallID:      callID,
		Tenant:      tenant,
		PhoneNumber: phoneNumber,
		Direction:   direction,
		StartTime:   startTime.UTC(),
		Status:      "started",
		CreatedAt:   time.Now().UTC(),
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "call_id"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Duplicate event: hand back the row created by the first one.
		return GetCall(ctx, db, callID)
	}
	return c, nil
}

// GetCall fetches a call by its platform call id, or ErrNotFound.
func GetCall(ctx context.Context, db *gorm.DB, callID string) (*domain.Call, error) {
	var c domain.Call
	err := db.WithContext(ctx).
		Where("call_id = ?", callID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FinalizeCall sets the end time, ended-reason, and duration on the call
// identified by callID. If no rows are affected (the start event was never
// seen), it returns ErrNotFound. The update is naturally idempotent: a
// replayed end-of-call-report rewrites the same values.
func FinalizeCall(ctx context.Context, db *gorm.DB, callID, endedReason string, endTime time.Time, durationSeconds *float64) error {
	res := db.WithContext(ctx).
		Model(&domain.Call{}).
		Where("call_id = ?", callID).
		Updates(map[string]any{
			"end_time":         endTime.UTC(),
			"status":           endedReason,
			"duration_seconds": durationSeconds,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountCalls returns the total number of calls, optionally scoped to a tenant
// (empty tenant counts everything). Used for pagination metadata.
func CountCalls(ctx context.Context, db *gorm.DB, tenant string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.Call{})
	if tenant != "" {
		q = q.Where("tenant = ?", tenant)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListCallsPage returns a paginated slice of calls ordered by start time
// descending, optionally scoped to a tenant.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListCallsPage(ctx context.Context, db *gorm.DB, tenant string, offset, limit int) ([]domain.Call, error) {
	q := db.WithContext(ctx)
	if tenant != "" {
		q = q.Where("tenant = ?", tenant)
	}
	var out []domain.Call
	err := q.
		Order("start_time desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
