// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for transcript
// turns.
//
// Turns arrive on two independent paths (real-time conversation-update events
// and the bulk end-of-call report). Inserts are conflict-free on
// (call_id, seq) so the same logical turn persisted by both paths lands
// exactly once.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

// SaveTranscriptTurn inserts one turn at position seq within the call's
// conversation. A turn already recorded at that position is left untouched.
// A zero ts defaults to the current time. Returns true when a new row was
// written.
func SaveTranscriptTurn(ctx context.Context, db *gorm.DB, callID string, seq int, speaker, content string, ts time.Time) (bool, error) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	t := &domain.TranscriptTurn{
		ID:        uuid.NewString(),
		CallID:    callID,
		Seq:       seq,
		Speaker:   speaker,
		Content:   content,
		Timestamp: ts,
		CreatedAt: time.Now().UTC(),
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "call_id"}, {Name: "seq"}},
			DoNothing: true,
		}).
		Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListTranscript returns all turns for a call ordered by sequence number.
// It returns an empty slice when the call has no recorded turns.
func ListTranscript(ctx context.Context, db *gorm.DB, callID string) ([]domain.TranscriptTurn, error) {
	var out []domain.TranscriptTurn
	err := db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("seq asc").
		Find(&out).Error
	return out, err
}

// CountTranscriptTurns returns the number of recorded turns for a call.
func CountTranscriptTurns(ctx context.Context, db *gorm.DB, callID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.TranscriptTurn{}).
		Where("call_id = ?", callID).
		Count(&total).Error
	return total, err
}

// ListTranscriptPage returns a page of turns for a call ordered by sequence
// number. Use CountTranscriptTurns for pagination metadata.
func ListTranscriptPage(ctx context.Context, db *gorm.DB, callID string, offset, limit int) ([]domain.TranscriptTurn, error) {
	var out []domain.TranscriptTurn
	err := db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("seq asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
