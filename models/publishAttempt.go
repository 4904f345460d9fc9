package models

import "time"

// PublishAttempt is an append-only audit row: one per terminal or
// non-terminal outcome a Schedule passes through (spec.md §3).
type PublishAttempt struct {
	ID         uint `gorm:"primary_key" json:"id"`
	ScheduleId uint `gorm:"not null;index" json:"schedule_id"`
	AccountId  uint `gorm:"not null;index" json:"account_id"`
	AttemptNo  int  `gorm:"not null" json:"attempt_no"`

	Status string `gorm:"size:20;not null" json:"status"`

	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	FinishedAt  *time.Time `json:"finished_at"`

	HTTPStatus   *int    `json:"http_status"`
	ErrorCode    *string `gorm:"size:100" json:"error_code"`
	ErrorMessage *string `gorm:"type:text" json:"error_message"`

	RateLimitLimit     *int       `json:"rate_limit_limit"`
	RateLimitRemaining *int       `json:"rate_limit_remaining"`
	RateLimitResetAt   *time.Time `json:"rate_limit_reset_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// RateLimitSnapshot is an append-only record of what the Platform told us
// about our remaining quota on a given endpoint (spec.md §3).
type RateLimitSnapshot struct {
	ID        uint   `gorm:"primary_key" json:"id"`
	AccountId uint   `gorm:"not null;index" json:"account_id"`
	Endpoint  string `gorm:"size:100;not null" json:"endpoint"`

	Limit     *int       `json:"limit"`
	Remaining *int       `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at"`

	ObservedAt time.Time `gorm:"not null;index" json:"observed_at"`
}

// PostMetric is initialized to zero counters on a successful publish; an
// out-of-scope collector populates it later from the Platform's analytics
// endpoints.
type PostMetric struct {
	ID         uint `gorm:"primary_key" json:"id"`
	ScheduleId uint `gorm:"uniqueIndex;not null" json:"schedule_id"`

	Likes       int `gorm:"not null;default:0" json:"likes"`
	Reposts     int `gorm:"not null;default:0" json:"reposts"`
	Replies     int `gorm:"not null;default:0" json:"replies"`
	Impressions int `gorm:"not null;default:0" json:"impressions"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
