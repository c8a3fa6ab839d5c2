// Package deadlines tracks one pending signing deadline per property and
// sweeps the ones whose follow-up date has arrived.
package deadlines

import (
	"fmt"
	"strings"
	"time"

	"contract_workflow_backend/internal/inquiry"
)

// Layout is the civil datetime format used by deadline records.
const Layout = "02-01-2006 15:04"

// DateLayout is the date half of Layout.
const DateLayout = "02-01-2006"

// reminderHour is the local hour follow-ups are due.
const reminderHour = 9

// Record is the persisted deadline. Datetimes are civil strings in the
// target timezone.
type Record struct {
	AppointmentDatetime string              `json:"appointment_datetime"`
	ReminderDatetime    string              `json:"reminder_datetime"`
	PropertyAddress     string              `json:"Property_Address"`
	Purchasers          []inquiry.Purchaser `json:"Purchaser"`
}

// NewRecord builds the deadline for an appointment. The reminder is two
// calendar days later at 09:00 in the appointment's location.
func NewRecord(address string, purchasers []inquiry.Purchaser, appointment time.Time) Record {
	return Record{
		AppointmentDatetime: appointment.Format(Layout),
		ReminderDatetime:    ReminderFor(appointment).Format(Layout),
		PropertyAddress:     strings.TrimSpace(address),
		Purchasers:          purchasers,
	}
}

// ReminderFor returns appointment date + 2 days at 09:00. Calendar
// arithmetic goes through time.Date so month ends and DST shifts are handled.
func ReminderFor(appointment time.Time) time.Time {
	y, m, d := appointment.Date()
	return time.Date(y, m, d+2, reminderHour, 0, 0, 0, appointment.Location())
}

// ParseCivil parses a Layout string in loc.
func ParseCivil(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse civil datetime %q: %w", s, err)
	}
	return t, nil
}

// ReminderDate is the dd-mm-yyyy part of the reminder.
func (r Record) ReminderDate() string {
	date, _, _ := strings.Cut(strings.TrimSpace(r.ReminderDatetime), " ")
	return date
}

// PurchaserNames joins the purchasers' full names with sep.
func (r Record) PurchaserNames(sep string) string {
	return inquiry.PropertyInquiry{Purchasers: r.Purchasers}.PurchaserNames(sep)
}

// Validate checks the address is present and both datetimes parse.
func (r Record) Validate() error {
	if strings.TrimSpace(r.PropertyAddress) == "" {
		return fmt.Errorf("deadline has no property address")
	}
	if _, err := time.Parse(Layout, r.AppointmentDatetime); err != nil {
		return fmt.Errorf("appointment_datetime: %w", err)
	}
	if _, err := time.Parse(Layout, r.ReminderDatetime); err != nil {
		return fmt.Errorf("reminder_datetime: %w", err)
	}
	return nil
}
