// Package calendar integrates with Google Calendar on behalf of tenants.
// Each tenant connects its own Google account via OAuth; tokens live in the
// database and are refreshed transparently, with refreshed tokens written
// back so the stored credential stays usable across restarts.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/voiceline/voice-agent-backend/internal/domain"
	"github.com/voiceline/voice-agent-backend/internal/repo"
)

// primaryCalendarID targets the connected account's default calendar.
const primaryCalendarID = "primary"

var (
	// ErrNotConnected means the tenant has never completed the OAuth flow.
	ErrNotConnected = errors.New("calendar: tenant has no stored credential")
	// ErrUnavailable means the stored credential could not be used (expired
	// refresh token, revoked access, upstream outage).
	ErrUnavailable = errors.New("calendar: calendar unavailable")
)

// Interval is a half-open busy window [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Service is the calendar collaborator consumed by the webhook service.
type Service interface {
	// Connected reports whether the tenant has a usable stored credential.
	Connected(ctx context.Context, businessName string) bool
	// FreeBusy returns the busy intervals on the tenant's primary calendar
	// within [start, end). A zero-width or inverted window yields an empty
	// list without calling Google.
	FreeBusy(ctx context.Context, businessName string, start, end time.Time) ([]Interval, error)
	// CreateEvent books an event on the tenant's primary calendar and
	// returns the created event's ID.
	CreateEvent(ctx context.Context, businessName, summary string, start, end time.Time, description string) (string, error)
}

// GoogleService implements Service against the Google Calendar API using
// per-tenant OAuth credentials stored via the repo package.
type GoogleService struct {
	DB    *gorm.DB
	OAuth *oauth2.Config
}

func NewGoogleService(db *gorm.DB, oauth *oauth2.Config) *GoogleService {
	return &GoogleService{DB: db, OAuth: oauth}
}

func (s *GoogleService) Connected(ctx context.Context, businessName string) bool {
	return repo.HasCredential(ctx, s.DB, businessName)
}

func (s *GoogleService) FreeBusy(ctx context.Context, businessName string, start, end time.Time) ([]Interval, error) {
	if !start.Before(end) {
		return []Interval{}, nil
	}
	svc, err := s.client(ctx, businessName)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: primaryCalendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query: %v", ErrUnavailable, err)
	}

	cal, ok := resp.Calendars[primaryCalendarID]
	if !ok {
		return []Interval{}, nil
	}
	out := make([]Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		from, err1 := time.Parse(time.RFC3339, b.Start)
		to, err2 := time.Parse(time.RFC3339, b.End)
		if err1 != nil || err2 != nil {
			log.Warn().Str("business", businessName).Str("start", b.Start).Str("end", b.End).
				Msg("skipping unparseable busy interval")
			continue
		}
		out = append(out, Interval{Start: from, End: to})
	}
	return out, nil
}

func (s *GoogleService) CreateEvent(ctx context.Context, businessName, summary string, start, end time.Time, description string) (string, error) {
	svc, err := s.client(ctx, businessName)
	if err != nil {
		return "", err
	}

	ev, err := svc.Events.Insert(primaryCalendarID, &gcal.Event{
		Summary:     summary,
		Description: description,
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: event insert: %v", ErrUnavailable, err)
	}
	return ev.Id, nil
}

// client builds a Calendar API client backed by the tenant's stored token.
// Refreshes performed by the underlying token source are persisted.
func (s *GoogleService) client(ctx context.Context, businessName string) (*gcal.Service, error) {
	cred, err := repo.GetCredential(ctx, s.DB, businessName)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load credential: %v", ErrUnavailable, err)
	}

	tok := &oauth2.Token{
		AccessToken:  cred.Token,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
		TokenType:    "Bearer",
	}
	base := s.OAuth.TokenSource(ctx, tok)
	ts := oauth2.ReuseTokenSource(tok, &persistingSource{
		ctx:      ctx,
		db:       s.DB,
		business: businessName,
		cred:     cred,
		base:     base,
	})

	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("%w: build client: %v", ErrUnavailable, err)
	}
	return svc, nil
}

// persistingSource wraps an oauth2.TokenSource and writes refreshed tokens
// back to the database. Persistence failures are logged, not fatal: the
// in-memory token still serves the current request.
type persistingSource struct {
	ctx      context.Context
	db       *gorm.DB
	business string
	cred     *domain.CalendarCredential
	base     oauth2.TokenSource
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh: %v", ErrUnavailable, err)
	}
	if tok.AccessToken != p.cred.Token {
		refresh := tok.RefreshToken
		if refresh == "" {
			refresh = p.cred.RefreshToken
		}
		upd := *p.cred
		upd.Token = tok.AccessToken
		upd.RefreshToken = refresh
		upd.Expiry = tok.Expiry
		if err := repo.UpsertCredential(p.ctx, p.db, &upd); err != nil {
			log.Error().Err(err).Str("business", p.business).
				Msg("failed to persist refreshed calendar token")
		} else {
			p.cred.Token = tok.AccessToken
			p.cred.RefreshToken = refresh
			p.cred.Expiry = tok.Expiry
		}
	}
	return tok, nil
}

// ScopesFromString splits a space-separated scope list as stored on the
// credential row.
func ScopesFromString(s string) []string {
	return strings.Fields(s)
}
