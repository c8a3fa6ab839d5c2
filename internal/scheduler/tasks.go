package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskSLASweep = "deadlines.sla_sweep"

// DateLayout is the layout of an explicit sweep date.
const DateLayout = "02-01-2006"

// SLASweepPayload optionally pins the sweep to a civil date. Empty means
// "today" in the target timezone when the task runs.
type SLASweepPayload struct {
	Date string `json:"date,omitempty"`
}

func NewSLASweepTask(payload SLASweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSLASweep, data), nil
}

func ParseSLASweepPayload(task *asynq.Task) (SLASweepPayload, error) {
	var payload SLASweepPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SLASweepPayload{}, err
	}
	return payload, nil
}

// sweepDate resolves the day a payload refers to.
func (p SLASweepPayload) sweepDate(now time.Time, loc *time.Location) (time.Time, error) {
	if p.Date == "" {
		return now.In(loc), nil
	}
	return time.ParseInLocation(DateLayout, p.Date, loc)
}

// sweepOptions keep one sweep per day: no retries, and a uniqueness lock
// that outlives a run but expires before the next one.
func sweepOptions(queue string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Unique(23 * time.Hour),
	}
}
