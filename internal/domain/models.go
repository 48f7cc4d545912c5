// Package domain defines the persistence models for calls, transcript turns,
// appointments, and calendar credentials. These types are mapped with GORM and
// form the core data layer of the voice-agent backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Call represents one phone call mediated by the voice platform. A row is
// created when the platform reports the call as in-progress and finalized
// exactly once when the end-of-call report arrives; it is never updated
// afterward.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CallID: opaque call identifier assigned by the voice platform; unique,
//     used as the idempotency key for both creation and finalization.
//   - Tenant: sanitized namespace of the business the call belongs to.
//   - PhoneNumber: caller/callee number as reported by the platform.
//   - Direction: "inbound" or "outbound".
//   - StartTime / EndTime: call boundaries (EndTime nil while live).
//   - Status: "started" while live, then the platform's ended-reason.
//   - DurationSeconds: total duration from the final report.
type Call struct {
	ID              string     `json:"id"           gorm:"type:char(36);primaryKey"`
	CallID          string     `json:"call_id"      gorm:"type:varchar(64);not null;uniqueIndex:ux_calls_call_id"`
	Tenant          string     `json:"tenant"       gorm:"type:varchar(64);not null;index:idx_calls_tenant"`
	PhoneNumber     string     `json:"phone_number" gorm:"type:varchar(32)"`
	Direction       string     `json:"direction"    gorm:"type:varchar(16)"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Status          string     `json:"status"       gorm:"type:varchar(64);not null;default:'started'"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Call.
func (Call) TableName() string { return "calls" }

// TranscriptTurn is a single utterance within a call, authored either by the
// "user" (caller) or the "assistant". Turns arrive on two paths: incrementally
// from conversation-update events, and in bulk from the end-of-call report.
// The (call_id, seq) unique index makes each logical turn insert-once, so the
// two paths cannot duplicate a record.
type TranscriptTurn struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	CallID    string    `json:"call_id"  gorm:"type:varchar(64);not null;uniqueIndex:ux_transcripts_call_seq,priority:1"`
	Seq       int       `json:"seq"      gorm:"not null;uniqueIndex:ux_transcripts_call_seq,priority:2"`
	Speaker   string    `json:"speaker"  gorm:"type:varchar(16);not null;check:speaker IN ('user','assistant')"`
	Content   string    `json:"content"  gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for TranscriptTurn.
func (TranscriptTurn) TableName() string { return "transcripts" }

// Appointment is a booking created by a successful schedule_appointment tool
// invocation. It belongs to exactly one call and mirrors the calendar event
// created for it.
type Appointment struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	CallID        string         `json:"call_id"        gorm:"type:varchar(64);not null;index:idx_appointments_call"`
	Tenant        string         `json:"tenant"         gorm:"type:varchar(64);not null;index:idx_appointments_tenant"`
	CustomerName  string         `json:"customer_name"  gorm:"type:varchar(255)"`
	CustomerPhone string         `json:"customer_phone" gorm:"type:varchar(32)"`
	IssueType     string         `json:"issue_type"     gorm:"type:varchar(255)"`
	ScheduledFrom time.Time      `json:"scheduled_from"`
	ScheduledTo   time.Time      `json:"scheduled_to"`
	Description   string         `json:"description"    gorm:"type:text"`
	EventID       string         `json:"event_id"       gorm:"type:varchar(255)"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "appointments" }

// CalendarCredential holds the Google OAuth 2.0 grant for one tenant. At most
// one live row exists per tenant (unique index on business name); it is
// upserted on (re-)authorization and rewritten whenever the access token is
// refreshed.
type CalendarCredential struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	BusinessName string    `json:"business_name" gorm:"type:varchar(64);not null;uniqueIndex:ux_google_auth_business"`
	Token        string    `json:"-"             gorm:"type:text;not null"`
	RefreshToken string    `json:"-"             gorm:"type:text"`
	TokenURI     string    `json:"token_uri"     gorm:"type:varchar(255)"`
	ClientID     string    `json:"-"             gorm:"type:varchar(255)"`
	ClientSecret string    `json:"-"             gorm:"type:varchar(255)"`
	Scopes       string    `json:"scopes"        gorm:"type:text"` // space-separated
	Expiry       time.Time `json:"expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for CalendarCredential.
func (CalendarCredential) TableName() string { return "google_auth" }
