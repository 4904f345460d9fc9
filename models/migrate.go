package models

import "gorm.io/gorm"

// AutoMigrate creates/updates every table this service owns. Order matters
// for foreign-key creation on engines that enforce them eagerly.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tag{},
		&Account{},
		&Content{},
		&ContentVariant{},
		&Schedule{},
		&PublishAttempt{},
		&RateLimitSnapshot{},
		&PostMetric{},
		&ActivityLog{},
	)
}
