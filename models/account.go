package models

import "time"

// Account is a single Platform identity the publisher drives on behalf of
// its owner. Schedules, PublishAttempts, RateLimitSnapshots, and
// PostMetrics all cascade-delete with their Account (spec.md §3 Lifecycle).
type Account struct {
	ID     uint   `gorm:"primary_key" json:"id"`
	XUserId string `gorm:"uniqueIndex;size:64;not null" json:"x_user_id"`

	Username    string  `gorm:"size:100;not null" json:"username"`
	DisplayName string  `gorm:"size:200;not null" json:"display_name"`
	Language    *string `gorm:"size:16" json:"language"`
	Purpose     *string `gorm:"size:200" json:"purpose"`

	// Secrets are AEAD-sealed (crypto.Seal) before they ever reach a row.
	AccessTokenEnc  string     `gorm:"type:text;not null" json:"-"`
	RefreshTokenEnc *string    `gorm:"type:text" json:"-"`
	TokenExpiresAt  *time.Time `json:"token_expires_at"`

	Status        string  `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	HealthMessage *string `gorm:"type:text" json:"health_message"`

	MinIntervalMinutes int        `gorm:"not null;default:20" json:"min_interval_minutes"`
	DailyPostLimit     int        `gorm:"not null;default:10" json:"daily_post_limit"`
	MonthlyPostLimit   int        `gorm:"not null;default:200" json:"monthly_post_limit"`
	LastPostedAt       *time.Time `json:"last_posted_at"`

	ProxyEnabled     bool    `gorm:"not null;default:false" json:"proxy_enabled"`
	ProxyProtocol    *string `gorm:"size:8" json:"proxy_protocol"`
	ProxyHost        *string `gorm:"size:255" json:"proxy_host"`
	ProxyPort        *int    `json:"proxy_port"`
	ProxyUsername    *string `gorm:"size:255" json:"proxy_username"`
	ProxyPasswordEnc *string `gorm:"type:text" json:"-"`

	Tags []Tag `gorm:"many2many:account_tags;" json:"tags,omitempty"`

	Schedules          []Schedule          `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	PublishAttempts    []PublishAttempt    `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	RateLimitSnapshots []RateLimitSnapshot `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasProxy reports whether requests for this account must be dispatched
// through a per-account HTTP proxy (spec.md §3 invariant: proxyEnabled
// implies protocol/host/port are all present).
func (a *Account) HasProxy() bool {
	return a.ProxyEnabled
}

// Tag is a label accounts can carry for the Dispatch Planner's rule-based
// account selection (spec.md §4.E) — matched case-insensitively against
// Content.Topic.
type Tag struct {
	ID   uint   `gorm:"primary_key" json:"id"`
	Name string `gorm:"uniqueIndex;size:100;not null" json:"name"`
}
