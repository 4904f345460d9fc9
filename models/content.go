package models

import "time"

// Content is source material a human (or the out-of-scope admin surface)
// authored; the Dispatch Planner turns it into one ContentVariant per
// targeted Account.
type Content struct {
	ID       uint    `gorm:"primary_key" json:"id"`
	Title    string  `gorm:"size:255;not null" json:"title"`
	Body     string  `gorm:"type:text;not null" json:"body"`
	Topic    *string `gorm:"size:100;index" json:"topic"`
	Language *string `gorm:"size:16" json:"language"`
	Status   string  `gorm:"size:20;not null;default:'DRAFT'" json:"status"`

	Variants []ContentVariant `gorm:"constraint:OnDelete:CASCADE;" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ContentVariant is the exact text published for one (Content, Account)
// pair. SimilarityKey is a coarse lookup hint only (spec.md §4.B) — never
// used as the sole arbiter of similarity, the Risk Engine always recomputes
// Jaccard similarity against the live corpus.
type ContentVariant struct {
	ID        uint  `gorm:"primary_key" json:"id"`
	ContentId uint  `gorm:"not null;uniqueIndex:idx_content_account" json:"content_id"`
	AccountId *uint `gorm:"uniqueIndex:idx_content_account" json:"account_id"`

	Body          string `gorm:"type:text;not null" json:"body"`
	SimilarityKey string `gorm:"size:24;index" json:"similarity_key"`

	// Schedule references a variant with restrict-on-delete (spec.md §3
	// Lifecycle) — a variant in use by a schedule cannot be removed.
	Schedules []Schedule `gorm:"constraint:OnDelete:RESTRICT;" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
