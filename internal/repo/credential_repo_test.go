package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

func TestCredentialRoundTrip(t *testing.T) {
	db := newTestDB(t, "repo_creds")
	ctx := context.Background()

	in := &domain.CalendarCredential{
		BusinessName: "examplehvac",
		Token:        "access-token",
		RefreshToken: "refresh-token",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       "https://www.googleapis.com/auth/calendar",
		Expiry:       time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	if err := UpsertCredential(ctx, db, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	out, err := GetCredential(ctx, db, "examplehvac")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Token != in.Token || out.RefreshToken != in.RefreshToken ||
		out.TokenURI != in.TokenURI || out.ClientID != in.ClientID ||
		out.ClientSecret != in.ClientSecret || out.Scopes != in.Scopes {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestUpsertCredential_SingleRowPerTenant(t *testing.T) {
	db := newTestDB(t, "repo_creds_upsert")
	ctx := context.Background()

	first := &domain.CalendarCredential{BusinessName: "acme", Token: "t1", RefreshToken: "r1"}
	if err := UpsertCredential(ctx, db, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Refresh rewrites the token in place.
	second := &domain.CalendarCredential{BusinessName: "acme", Token: "t2", RefreshToken: "r1"}
	if err := UpsertCredential(ctx, db, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var n int64
	if err := db.Model(&domain.CalendarCredential{}).Where("business_name = ?", "acme").Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("expected one row, got %d err=%v", n, err)
	}
	out, err := GetCredential(ctx, db, "acme")
	if err != nil || out.Token != "t2" {
		t.Fatalf("refresh did not stick: %+v err=%v", out, err)
	}
}

func TestGetCredential_Missing(t *testing.T) {
	db := newTestDB(t, "repo_creds_missing")
	if _, err := GetCredential(context.Background(), db, "nobody"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if HasCredential(context.Background(), db, "nobody") {
		t.Fatalf("HasCredential must be false for unknown tenant")
	}
}
