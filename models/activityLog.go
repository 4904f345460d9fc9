package models

import "time"

// ActivityLog is the durable, queryable audit trail (spec.md §3) — distinct
// from the process-level logrus stream (SPEC_FULL.md §3): this is a row an
// operator or the out-of-scope analytics read model can query, logrus is a
// stderr/stdout stream for the process's own operators.
type ActivityLog struct {
	ID      uint   `gorm:"primary_key" json:"id"`
	Level   string `gorm:"size:10;not null" json:"level"`
	Event   string `gorm:"size:100;not null;index" json:"event"`
	Message string `gorm:"type:text;not null" json:"message"`
	Meta    *string `gorm:"type:text" json:"meta"`

	AccountId  *uint `gorm:"index" json:"account_id"`
	ScheduleId *uint `gorm:"index" json:"schedule_id"`

	// CorrelationId groups every log line from one RunCycle invocation
	// (SPEC_FULL.md §5 expansion).
	CorrelationId *string `gorm:"size:64;index" json:"correlation_id"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
