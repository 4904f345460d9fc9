package models

// Account.Status values (spec.md §3).
const (
	AccountStatusActive       = "ACTIVE"
	AccountStatusTokenExpired = "TOKEN_EXPIRED"
	AccountStatusRateLimited  = "RATE_LIMITED"
	AccountStatusSuspended    = "SUSPENDED"
	AccountStatusDisconnected = "DISCONNECTED"
)

// Content.Status values.
const (
	ContentStatusDraft    = "DRAFT"
	ContentStatusApproved = "APPROVED"
	ContentStatusArchived = "ARCHIVED"
)

// Schedule.Status values.
const (
	ScheduleStatusPending    = "PENDING"
	ScheduleStatusProcessing = "PROCESSING"
	ScheduleStatusPosted     = "POSTED"
	ScheduleStatusFailed     = "FAILED"
	ScheduleStatusBlocked    = "BLOCKED"
	ScheduleStatusCanceled   = "CANCELED"
)

// PublishAttempt.Status values.
const (
	AttemptStatusSuccess        = "SUCCESS"
	AttemptStatusFail           = "FAIL"
	AttemptStatusBlocked        = "BLOCKED"
	AttemptStatusRetryScheduled = "RETRY_SCHEDULED"
)

// ActivityLog.Level values.
const (
	LogLevelInfo  = "INFO"
	LogLevelWarn  = "WARN"
	LogLevelError = "ERROR"
)

// Proxy protocols.
const (
	ProxyProtocolHTTP  = "HTTP"
	ProxyProtocolHTTPS = "HTTPS"
)
