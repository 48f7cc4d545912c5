// Package agent assembles the model configuration returned to the voice
// platform on each conversation turn: the system instructions (persona,
// scheduling workflow, retrieved tenant knowledge) and the tool schemas the
// remote model may invoke.
package agent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/voiceline/voice-agent-backend/internal/retriever"
)

// PromptInput carries everything the system prompt depends on for one turn.
type PromptInput struct {
	BusinessName    string
	Passages        []retriever.Passage
	CalendarEnabled bool
}

var titleCaser = cases.Title(language.English)

// DisplayName renders a tenant identifier as a human-readable business name
// for use inside the prompt ("examplehvac" stays as-is; "acme plumbing"
// becomes "Acme Plumbing").
func DisplayName(businessName string) string {
	name := strings.TrimSpace(businessName)
	if name == "" {
		return "the business"
	}
	if strings.ContainsAny(name, " ") {
		return titleCaser.String(name)
	}
	return name
}

// SystemPrompt builds the full system instruction string for one turn.
//
// The scheduling workflow is written as numbered natural-language steps; the
// remote model is expected to follow them, and the backend only validates
// tool invocations by shape, not by step order.
func SystemPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("You are a friendly and professional AI phone receptionist for ")
	b.WriteString(DisplayName(in.BusinessName))
	b.WriteString(". You are speaking with a customer on a live voice call. ")
	b.WriteString("Keep answers short and conversational. Answer questions by prioritizing ")
	b.WriteString("the information in the business knowledge below; if it does not contain ")
	b.WriteString("the answer, say so rather than guessing.\n\n")

	if len(in.Passages) > 0 {
		b.WriteString("BUSINESS KNOWLEDGE:\n")
		for _, p := range in.Passages {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(p.Text))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	} else {
		b.WriteString("BUSINESS KNOWLEDGE:\n(no additional business information is available for this question)\n\n")
	}

	if in.CalendarEnabled {
		b.WriteString(schedulingWorkflow)
	} else {
		b.WriteString(schedulingDisabled)
	}

	return b.String()
}

const schedulingWorkflow = `APPOINTMENT SCHEDULING WORKFLOW — follow these steps in order, never skipping ahead:
1. Ask for the complete service address first. Check it against the service area described in the business knowledge before continuing. If the address is outside the service area, politely explain that and end the scheduling conversation without booking anything.
2. Collect the customer's full name, phone number, the service they need, and their email address.
3. Use the check_calendar_availability tool for the customer's desired time window.
4. Tell the customer whether the window is free or busy. If it is free, you must ask for and receive an explicit confirmation before booking.
5. Only after the customer confirms, use the schedule_appointment tool. Fold every detail you collected (name, phone, service, email, address) into the event description.
6. Report success or failure based only on the tool's result. Never tell the customer an appointment is booked unless the tool returned success.
`

const schedulingDisabled = `SCHEDULING: Online scheduling is not available right now. If the customer asks to book an appointment, apologize and let them know scheduling is currently unavailable; offer to answer any other questions instead. Do not attempt to collect booking details.
`
