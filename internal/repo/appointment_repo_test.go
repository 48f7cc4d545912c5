package repo

import (
	"context"
	"testing"
	"time"

	"github.com/voiceline/voice-agent-backend/internal/domain"
)

func TestCreateAppointmentAssignsID(t *testing.T) {
	db := newTestDB(t, "repo_appt_create")
	ctx := context.Background()

	from := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	a, err := CreateAppointment(ctx, db, &domain.Appointment{
		CallID:        "call-1",
		Tenant:        "examplehvac",
		CustomerName:  "Pat",
		IssueType:     "no heat",
		ScheduledFrom: from,
		ScheduledTo:   from.Add(time.Hour),
		EventID:       "evt-1",
	})
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	if a.ID == "" {
		t.Error("expected generated id")
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestListAppointmentsNewestFirst(t *testing.T) {
	db := newTestDB(t, "repo_appt_list")
	ctx := context.Background()

	base := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	for i, evt := range []string{"evt-old", "evt-new"} {
		a := &domain.Appointment{
			CallID:        "call-1",
			Tenant:        "examplehvac",
			ScheduledFrom: base,
			ScheduledTo:   base.Add(time.Hour),
			EventID:       evt,
		}
		if _, err := CreateAppointment(ctx, db, a); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		// Distinct created_at so ordering is deterministic.
		db.Model(a).Update("created_at", base.Add(time.Duration(i)*time.Minute))
	}
	if _, err := CreateAppointment(ctx, db, &domain.Appointment{
		CallID: "call-other", Tenant: "examplehvac",
		ScheduledFrom: base, ScheduledTo: base.Add(time.Hour), EventID: "evt-x",
	}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	got, err := ListAppointments(ctx, db, "call-1")
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].EventID != "evt-new" || got[1].EventID != "evt-old" {
		t.Errorf("order = [%s, %s]", got[0].EventID, got[1].EventID)
	}
}
