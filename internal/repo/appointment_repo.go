// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for appointments.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

// CreateAppointment inserts an appointment row for a successfully booked
// calendar event. Called only after the calendar insert succeeded, so the row
// always carries a non-empty event id.
func CreateAppointment(ctx context.Context, db *gorm.DB, a *domain.Appointment) (*domain.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// ListAppointments returns all appointments for a call, newest first.
func ListAppointments(ctx context.Context, db *gorm.DB, callID string) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
