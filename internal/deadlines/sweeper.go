package deadlines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/platform/logger"
)

// ErrSweepInProgress is returned when a sweep is already running in this process.
var ErrSweepInProgress = errors.New("sla sweep already in progress")

// SweepResult summarizes one sweep.
type SweepResult struct {
	Date    string
	Checked int
	Alerted int
	Deleted int
}

// Sweeper alerts on deadlines whose reminder date is today and then stops
// tracking them.
type Sweeper struct {
	store     *Store
	notifier  notify.Notifier
	templates *notify.Templates
	recipient string
	loc       *time.Location
	log       *logger.Logger
	running   sync.Mutex
}

// NewSweeper creates a sweeper sending alerts to recipient. Dates are
// compared in loc.
func NewSweeper(store *Store, notifier notify.Notifier, templates *notify.Templates, recipient string, loc *time.Location, log *logger.Logger) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		store:     store,
		notifier:  notifier,
		templates: templates,
		recipient: recipient,
		loc:       loc,
		log:       log,
	}
}

// Location returns the timezone reminder dates are compared in.
func (s *Sweeper) Location() *time.Location { return s.loc }

// Sweep processes every record whose reminder date equals today's civil date.
// Each alert is sent before its record is deleted; a failed send keeps the
// record and is reported in the joined error. Other records are untouched.
func (s *Sweeper) Sweep(ctx context.Context, today time.Time) (SweepResult, error) {
	if !s.running.TryLock() {
		return SweepResult{}, ErrSweepInProgress
	}
	defer s.running.Unlock()

	log := s.log.WithContext(ctx)
	result := SweepResult{Date: today.In(s.loc).Format(DateLayout)}

	records, listErr := s.store.List(ctx)
	if listErr != nil && len(records) == 0 {
		return result, listErr
	}
	errs := []error{listErr}

	for _, rec := range records {
		result.Checked++
		if rec.ReminderDate() != result.Date {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		msg, err := s.templates.Render(notify.TemplateSLAAlert, s.recipient, notify.SLAAlertData{
			Purchasers:   rec.PurchaserNames(", "),
			Address:      rec.PropertyAddress,
			Appointment:  rec.AppointmentDatetime,
			Reminder:     rec.ReminderDatetime,
			ReminderDate: result.Date,
		})
		if err == nil {
			err = s.notifier.Send(ctx, msg)
		}
		if err != nil {
			log.WorkflowEvent("sla_sweep", "alert_failed", slog.String("property", rec.PropertyAddress), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("alert for %s: %w", rec.PropertyAddress, err))
			continue
		}
		result.Alerted++

		deleted, err := s.store.deleteIfReminder(ctx, rec.PropertyAddress, rec.ReminderDatetime)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", rec.PropertyAddress, err))
			continue
		}
		if deleted {
			result.Deleted++
		}
		log.WorkflowEvent("sla_sweep", "alerted", slog.String("property", rec.PropertyAddress), slog.Bool("deleted", deleted))
	}

	log.Info("sla sweep finished", "date", result.Date, "checked", result.Checked, "alerted", result.Alerted, "deleted", result.Deleted)
	return result, errors.Join(errs...)
}
