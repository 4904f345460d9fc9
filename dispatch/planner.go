// Package dispatch is the Dispatch Planner (spec.md §4.E): turns one
// Content item and a target-account selection into Schedule rows.
package dispatch

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Summary reports how many schedules a Plan call produced.
type Summary struct {
	TargetAccounts int
	Inserted       int
	Skipped        int // already existed under the same idempotency key
}

// Planner is the Dispatch Planner.
type Planner struct {
	db       *gorm.DB
	logger   *logrus.Logger
	validate *validator.Validate
}

// NewPlanner constructs a Planner (SPEC_FULL.md §11 dependency-injection
// shape).
func NewPlanner(db *gorm.DB, logger *logrus.Logger) *Planner {
	return &Planner{db: db, logger: logger, validate: validator.New()}
}

// Plan validates req, resolves target accounts, assures a ContentVariant
// per account, computes each schedule's plannedAt, and inserts the
// schedules idempotently — all in one transaction with a single activity
// log entry (spec.md §4.E).
func (p *Planner) Plan(contentId uint, req Request, now time.Time) (Summary, error) {
	req.ContentId = contentId
	req = req.normalized(now)
	if err := p.validate.Struct(req); err != nil {
		return Summary{}, fmt.Errorf("dispatch: invalid request: %w", err)
	}

	var summary Summary
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var content models.Content
		if err := tx.First(&content, req.ContentId).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("dispatch: content %d: %w", req.ContentId, utils.ErrorRecordNotFound)
			}
			return fmt.Errorf("dispatch: load content %d: %w", req.ContentId, err)
		}

		accounts, err := selectAccounts(tx, &content, req)
		if err != nil {
			return err
		}
		summary.TargetAccounts = len(accounts)

		for i, account := range accounts {
			variant, err := p.assureVariant(tx, &content, &account, i)
			if err != nil {
				return fmt.Errorf("dispatch: assure variant for account %d: %w", account.ID, err)
			}

			plannedAt := req.ScheduleAt.Add(time.Duration(i*req.StaggerMinutes) * time.Minute)
			schedule := &models.Schedule{
				AccountId:        account.ID,
				ContentId:        content.ID,
				ContentVariantId: variant.ID,
				PlannedAt:        plannedAt,
				Status:           models.ScheduleStatusPending,
				IdempotencyKey:   idempotencyKey(content.ID, account.ID, plannedAt),
				Priority:         req.Priority,
				MaxAttempts:      3,
			}

			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(schedule)
			if result.Error != nil {
				return fmt.Errorf("dispatch: insert schedule for account %d: %w", account.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				summary.Skipped++
				continue
			}
			summary.Inserted++
		}

		return p.logDispatch(tx, &content, req, summary)
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// assureVariant looks up an existing (content, account) variant or
// generates and persists a new one (spec.md §4.E "Variant assurance").
func (p *Planner) assureVariant(tx *gorm.DB, content *models.Content, account *models.Account, index int) (*models.ContentVariant, error) {
	var existing models.ContentVariant
	err := tx.Where("content_id = ? AND account_id = ?", content.ID, account.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	variant := buildVariant(content, account, index)
	if err := tx.Create(variant).Error; err != nil {
		return nil, err
	}
	return variant, nil
}

func idempotencyKey(contentId, accountId uint, plannedAt time.Time) string {
	return fmt.Sprintf("%d:%d:%s", contentId, accountId, plannedAt.UTC().Format(time.RFC3339))
}

func (p *Planner) logDispatch(tx *gorm.DB, content *models.Content, req Request, summary Summary) error {
	metaStr, err := utils.MarshalToJSON(map[string]any{
		"mode":           req.Mode,
		"staggerMinutes": req.StaggerMinutes,
		"priority":       req.Priority,
		"inserted":       summary.Inserted,
		"skipped":        summary.Skipped,
	})
	if err != nil {
		return fmt.Errorf("dispatch: marshal activity log meta: %w", err)
	}

	entry := &models.ActivityLog{
		Level:   models.LogLevelInfo,
		Event:   "content_dispatched",
		Message: fmt.Sprintf("dispatched content %d to %d account(s)", content.ID, summary.TargetAccounts),
		Meta:    &metaStr,
	}
	return tx.Create(entry).Error
}
