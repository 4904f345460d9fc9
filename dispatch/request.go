package dispatch

import "time"

// Mode selects how Plan resolves target accounts (spec.md §4.E).
type Mode string

const (
	ModeManual Mode = "manual"
	ModeRule   Mode = "rule"
)

// Request is the validated shape of one dispatch invocation.
type Request struct {
	ContentId       uint     `validate:"required"`
	Mode            Mode     `validate:"omitempty,oneof=manual rule"`
	AccountIds      []uint   `validate:"omitempty,dive,required"`
	ScheduleAt      *time.Time
	StaggerMinutes  int `validate:"gte=0,lte=120"`
	Priority        int `validate:"gte=1,lte=1000"`
}

// normalized returns a copy with defaults applied, matching spec.md §4.E:
// mode defaults to "rule", scheduleAt defaults to now, priority has no
// spec-mandated default but 500 matches the Schedule column default.
func (r Request) normalized(now time.Time) Request {
	out := r
	if out.Mode == "" {
		out.Mode = ModeRule
	}
	if out.ScheduleAt == nil {
		t := now
		out.ScheduleAt = &t
	}
	if out.Priority == 0 {
		out.Priority = 500
	}
	return out
}
