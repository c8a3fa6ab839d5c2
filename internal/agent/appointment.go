package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// defaultAppointmentTime is used when the email names a day but no time.
const defaultAppointmentTime = "09:00"

type appointmentOutput struct {
	Date string  `json:"appointment_date"`
	Time *string `json:"appointment_time"`
}

// AppointmentExtractor finds the signing appointment named in an email.
type AppointmentExtractor struct {
	run *jsonRunner
}

// NewAppointmentExtractor creates the appointment agent.
func NewAppointmentExtractor(llm model.LLM) (*AppointmentExtractor, error) {
	r, err := newRunner(runnerConfig{
		name:        "AppointmentExtractor",
		description: "Resolves the signing appointment date and time named in a solicitor email.",
		instruction: appointmentInstruction,
		llm:         llm,
		jsonOutput:  true,
		schema:      "appointment.json",
	})
	if err != nil {
		return nil, err
	}
	return &AppointmentExtractor{run: r}, nil
}

// Extract resolves the appointment relative to now. The result is in now's
// location; a missing time defaults to 09:00.
func (a *AppointmentExtractor) Extract(ctx context.Context, body string, now time.Time) (time.Time, error) {
	prompt := fmt.Sprintf("Current local date: %s (%s)\nTimezone: %s\n\nEmail:\n%s",
		now.Format("02-01-2006"), now.Weekday(), now.Location(), body)
	var out appointmentOutput
	if err := a.run.runJSON(ctx, &out, &genai.Part{Text: prompt}); err != nil {
		return time.Time{}, err
	}
	return resolveAppointment(out, now.Location())
}

func resolveAppointment(out appointmentOutput, loc *time.Location) (time.Time, error) {
	clock := defaultAppointmentTime
	if out.Time != nil && strings.TrimSpace(*out.Time) != "" {
		clock = strings.TrimSpace(*out.Time)
	}
	t, err := time.ParseInLocation("02-01-2006 15:04", strings.TrimSpace(out.Date)+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: appointment %q %q: %v", ErrInvalidOutput, out.Date, clock, err)
	}
	return t, nil
}

const appointmentInstruction = `You read a solicitor's email about a contract signing appointment.
Resolve the appointment to a calendar date using the current local date given,
e.g. "Thursday at 11:30am" means the next Thursday on or after today.
Return JSON {"appointment_date": "dd-mm-yyyy", "appointment_time": "HH:MM" or null}.
Use 24-hour time in the given timezone. Use null when no time is stated.`
