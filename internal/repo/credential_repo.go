// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for per-tenant
// Google Calendar credentials.
//
// At most one credential row exists per business name. UpsertCredential is
// used both by the OAuth callback (initial grant and re-authorization) and by
// the calendar service when a refreshed access token must be persisted.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

// UpsertCredential writes the credential for businessName, replacing any
// existing row's token fields in place. The row id and created_at of an
// existing row are preserved.
func UpsertCredential(ctx context.Context, db *gorm.DB, cred *domain.CalendarCredential) error {
	now := time.Now().UTC()
	var existing domain.CalendarCredential
	err := db.WithContext(ctx).
		Where("business_name = ?", cred.BusinessName).
		First(&existing).Error
	switch {
	case err == nil:
		return db.WithContext(ctx).
			Model(&domain.CalendarCredential{}).
			Where("business_name = ?", cred.BusinessName).
			Updates(map[string]any{
				"token":         cred.Token,
				"refresh_token": cred.RefreshToken,
				"token_uri":     cred.TokenURI,
				"client_id":     cred.ClientID,
				"client_secret": cred.ClientSecret,
				"scopes":        cred.Scopes,
				"expiry":        cred.Expiry,
				"updated_at":    now,
			}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		if cred.ID == "" {
			cred.ID = uuid.NewString()
		}
		cred.CreatedAt = now
		cred.UpdatedAt = now
		return db.WithContext(ctx).Create(cred).Error
	default:
		return err
	}
}

// GetCredential fetches the credential for businessName, or ErrNotFound when
// the tenant never connected a calendar.
func GetCredential(ctx context.Context, db *gorm.DB, businessName string) (*domain.CalendarCredential, error) {
	var cred domain.CalendarCredential
	err := db.WithContext(ctx).
		Where("business_name = ?", businessName).
		First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// HasCredential reports whether a credential row exists for businessName.
// Used by the webhook router to decide whether scheduling tools are
// advertised; it never propagates a lookup failure as an error so a flaky
// persistence layer degrades to "calendar disabled" rather than failing the
// turn.
func HasCredential(ctx context.Context, db *gorm.DB, businessName string) bool {
	var n int64
	if err := db.WithContext(ctx).
		Model(&domain.CalendarCredential{}).
		Where("business_name = ?", businessName).
		Count(&n).Error; err != nil {
		return false
	}
	return n > 0
}
