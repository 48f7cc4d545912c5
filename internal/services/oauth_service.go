// Package services – OAuthService
//
// OAuthService drives the per-tenant Google Calendar connection flow: it
// issues the authorization URL for a tenant and completes the code exchange
// on callback, persisting the granted credential. The tenant namespace rides
// in the OAuth state parameter so the callback knows which tenant connected.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
	"github.com/voiceline/voice-agent-backend/internal/repo"
	"github.com/voiceline/voice-agent-backend/internal/tenant"
)

// ErrOAuthExchange is returned when the authorization code could not be
// exchanged for a token.
var ErrOAuthExchange = errors.New("oauth code exchange failed")

// OAuthService connects tenants to Google Calendar.
type OAuthService struct {
	DB    *gorm.DB
	OAuth *oauth2.Config
}

// AuthURL validates the tenant name and returns the Google consent URL.
// Offline access with forced consent guarantees a refresh token even when
// the tenant re-authorizes.
func (s *OAuthService) AuthURL(ctx context.Context, businessName string) (string, error) {
	ns, err := tenant.ResolveStrict(businessName)
	if err != nil {
		return "", err
	}
	url := s.OAuth.AuthCodeURL(ns,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	return url, nil
}

// Exchange completes the OAuth flow: it trades the authorization code for a
// token and upserts the tenant's credential row. The state parameter carries
// the tenant namespace issued by AuthURL. Returns the namespace.
func (s *OAuthService) Exchange(ctx context.Context, state, code string) (string, error) {
	tr := otel.Tracer("services/OAuthService")
	ctx, span := tr.Start(ctx, "Exchange",
		trace.WithAttributes(attribute.String("tenant", state)),
	)
	defer span.End()

	ns, err := tenant.ResolveStrict(state)
	if err != nil {
		return "", err
	}

	tok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("tenant", ns).Msg("oauth code exchange failed")
		return "", ErrOAuthExchange
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		// Re-authorization without a new refresh token: keep the stored one.
		if existing, err := repo.GetCredential(ctx, s.DB, ns); err == nil {
			refresh = existing.RefreshToken
		}
	}

	cred := &domain.CalendarCredential{
		BusinessName: ns,
		Token:        tok.AccessToken,
		RefreshToken: refresh,
		TokenURI:     s.OAuth.Endpoint.TokenURL,
		ClientID:     s.OAuth.ClientID,
		ClientSecret: s.OAuth.ClientSecret,
		Scopes:       strings.Join(s.OAuth.Scopes, " "),
		Expiry:       tok.Expiry.UTC(),
	}
	if cred.Expiry.IsZero() {
		cred.Expiry = time.Now().UTC().Add(time.Hour)
	}
	if err := repo.UpsertCredential(ctx, s.DB, cred); err != nil {
		return "", err
	}

	log.Info().Str("tenant", ns).Time("expiry", cred.Expiry).Msg("calendar credential stored")
	return ns, nil
}
