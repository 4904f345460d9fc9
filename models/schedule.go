package models

import "time"

// Schedule is the unit of work drained by the Publisher Cycle (spec.md §3,
// §4.F). Invariants enforced by the code that mutates a Schedule, not by
// the schema: AttemptCount <= MaxAttempts; POSTED implies PostedAt set and
// NextAttemptAt nil; FAILED implies NextAttemptAt set and
// AttemptCount < MaxAttempts; BLOCKED implies NextAttemptAt nil.
type Schedule struct {
	ID uint `gorm:"primary_key" json:"id"`

	AccountId        uint `gorm:"not null;index:idx_account_status_planned,priority:1" json:"account_id"`
	ContentId        uint `gorm:"not null;index" json:"content_id"`
	ContentVariantId uint `gorm:"not null" json:"content_variant_id"`

	PlannedAt time.Time `gorm:"not null;index:idx_planned_status,priority:1" json:"planned_at"`
	Status    string    `gorm:"size:20;not null;default:'PENDING';index:idx_planned_status,priority:2;index:idx_account_status_planned,priority:2" json:"status"`

	IdempotencyKey string `gorm:"uniqueIndex;size:255;not null" json:"idempotency_key"`
	Priority       int    `gorm:"not null;default:500" json:"priority"`

	AttemptCount  int        `gorm:"not null;default:0" json:"attempt_count"`
	MaxAttempts   int        `gorm:"not null;default:3" json:"max_attempts"`
	NextAttemptAt *time.Time `gorm:"index:idx_next_attempt_status,priority:1" json:"next_attempt_at"`

	PostedAt       *time.Time `json:"posted_at"`
	ExternalPostId *string    `gorm:"size:64" json:"external_post_id"`
	LastError      *string    `gorm:"type:text" json:"last_error"`

	PostMetrics []PostMetric `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Schedule) TableName() string { return "schedules" }
