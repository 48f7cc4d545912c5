package agent

// Tool is a function tool definition in the shape the voice platform expects.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ToolParams `json:"parameters"`
}

type ToolParams struct {
	Type       string              `json:"type"`
	Properties map[string]ToolProp `json:"properties"`
	Required   []string            `json:"required"`
}

type ToolProp struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Format      string `json:"format,omitempty"`
}

// Tool names accepted by the function-call handler.
const (
	ToolCheckAvailability   = "check_calendar_availability"
	ToolScheduleAppointment = "schedule_appointment"
)

// SchedulingTools returns the tool schemas advertised to the model when the
// tenant has a connected calendar. Returned fresh on every call so callers
// may not mutate shared state.
func SchedulingTools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: ToolFunction{
				Name:        ToolCheckAvailability,
				Description: "Check the business calendar for busy intervals inside a time window. Use this before offering an appointment slot to the customer.",
				Parameters: ToolParams{
					Type: "object",
					Properties: map[string]ToolProp{
						"start_time": {
							Type:        "string",
							Format:      "date-time",
							Description: "Window start in RFC 3339 format, for example 2026-09-01T09:00:00-05:00.",
						},
						"end_time": {
							Type:        "string",
							Format:      "date-time",
							Description: "Window end in RFC 3339 format. Must be after start_time.",
						},
					},
					Required: []string{"start_time", "end_time"},
				},
			},
		},
		{
			Type: "function",
			Function: ToolFunction{
				Name:        ToolScheduleAppointment,
				Description: "Book an appointment on the business calendar. Only call this after the customer has explicitly confirmed the time slot.",
				Parameters: ToolParams{
					Type: "object",
					Properties: map[string]ToolProp{
						"summary": {
							Type:        "string",
							Description: "Short event title, for example 'AC repair - Jane Smith'.",
						},
						"start_time": {
							Type:        "string",
							Format:      "date-time",
							Description: "Appointment start in RFC 3339 format.",
						},
						"end_time": {
							Type:        "string",
							Format:      "date-time",
							Description: "Appointment end in RFC 3339 format.",
						},
						"description": {
							Type:        "string",
							Description: "All collected customer details: full name, phone number, email, service address, and requested service.",
						},
					},
					Required: []string{"summary", "start_time", "end_time", "description"},
				},
			},
		},
	}
}
