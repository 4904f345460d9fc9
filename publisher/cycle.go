// Package publisher is the Publisher Cycle (spec.md §4.F): the heart of
// the system. RunCycle drains due schedules sequentially, resolving
// credentials, gating on risk, publishing, and settling each one in turn.
package publisher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xfleet/publisher/config"
	"github.com/xfleet/publisher/crypto"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/platform"
	"github.com/xfleet/publisher/risk"
	"gorm.io/gorm"
)

const (
	// recentCorpusLimit and recentCorpusWindow bound the sliding window
	// of recently-published bodies the Risk Engine checks for similarity
	// (spec.md §4.F "Recent-corpus preload").
	recentCorpusLimit  = 250
	recentCorpusWindow = 72 * time.Hour
)

// PlatformClient is the subset of *platform.Client the Cycle needs. Tests
// substitute a fake to exercise specific Platform responses without a
// live HTTP server; production wiring passes a real *platform.Client.
type PlatformClient interface {
	Publish(ctx context.Context, accessToken string, text string, proxy *platform.ProxyConfig) (platform.PublishResult, error)
	RefreshToken(ctx context.Context, refreshToken string, proxy *platform.ProxyConfig) (platform.RefreshResult, error)
}

// Cycle is the Publisher Cycle. One Cycle is constructed at process start
// and reused by every RunCycle invocation (SPEC_FULL.md §11
// dependency-injection shape).
type Cycle struct {
	db       *gorm.DB
	logger   *logrus.Logger
	sealer   *crypto.Sealer
	platform PlatformClient
	risk     *risk.Engine
	location *time.Location
}

// NewCycle wires a Cycle from its collaborators.
func NewCycle(db *gorm.DB, logger *logrus.Logger, sealer *crypto.Sealer, platformClient PlatformClient, location *time.Location) *Cycle {
	riskStore := &scheduleCountStore{db: db}
	return &Cycle{
		db:       db,
		logger:   logger,
		sealer:   sealer,
		platform: platformClient,
		risk:     risk.NewEngine(riskStore, location),
		location: location,
	}
}

// scheduleCountStore adapts *gorm.DB to risk.Store.
type scheduleCountStore struct {
	db *gorm.DB
}

func (s *scheduleCountStore) CountPostedSince(accountId uint, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.Schedule{}).
		Where("account_id = ? AND status = ? AND posted_at >= ?", accountId, models.ScheduleStatusPosted, since).
		Count(&count).Error
	return count, err
}

// dueSchedule is one row of the selection query, joined with its
// account and variant (spec.md §4.F "Selection").
type dueSchedule struct {
	models.Schedule
	Account models.Account        `gorm:"-"`
	Variant models.ContentVariant `gorm:"-"`
}

// RunCycle drains at most limit due schedules (spec.md §4.F entry point).
func (c *Cycle) RunCycle(ctx context.Context, limit int) (Summary, error) {
	ctx, span := config.Tracer.Start(ctx, "publisher.RunCycle")
	defer span.End()

	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}
	now := time.Now()

	schedules, err := c.loadDueSchedules(limit, now)
	if err != nil {
		return Summary{}, err
	}

	corpus, err := c.loadRecentCorpus(now)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Scanned: len(schedules)}
	seenAccounts := make(map[uint]struct{}, len(schedules))

	for i := range schedules {
		sched := &schedules[i]
		if _, seen := seenAccounts[sched.AccountId]; seen {
			continue
		}
		seenAccounts[sched.AccountId] = struct{}{}
		summary.Attempted++

		outcome, publishedBody := c.processSchedule(ctx, sched, &corpus, now)
		switch outcome {
		case outcomePosted:
			summary.Posted++
			if publishedBody != "" {
				corpus = prependCorpus(corpus, publishedBody)
			}
		case outcomeFailed:
			summary.Failed++
		case outcomeBlocked:
			summary.Blocked++
		case outcomeRescheduled:
			summary.Rescheduled++
		}
	}

	return summary, nil
}

func (c *Cycle) loadDueSchedules(limit int, now time.Time) ([]dueSchedule, error) {
	var rows []models.Schedule
	err := c.db.
		Where("(status = ? AND planned_at <= ?) OR (status = ? AND next_attempt_at <= ?)",
			models.ScheduleStatusPending, now, models.ScheduleStatusFailed, now).
		Order("priority ASC, planned_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]dueSchedule, 0, len(rows))
	for _, row := range rows {
		var account models.Account
		if err := c.db.First(&account, row.AccountId).Error; err != nil {
			continue
		}
		var variant models.ContentVariant
		if err := c.db.First(&variant, row.ContentVariantId).Error; err != nil {
			continue
		}
		out = append(out, dueSchedule{Schedule: row, Account: account, Variant: variant})
	}
	return out, nil
}

func (c *Cycle) loadRecentCorpus(now time.Time) ([]string, error) {
	type row struct {
		Body string
	}
	var rows []row
	err := c.db.Table("schedules").
		Select("content_variants.body AS body").
		Joins("JOIN content_variants ON content_variants.id = schedules.content_variant_id").
		Where("schedules.status = ? AND schedules.posted_at >= ?", models.ScheduleStatusPosted, now.Add(-recentCorpusWindow)).
		Order("schedules.posted_at DESC").
		Limit(recentCorpusLimit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	corpus := make([]string, 0, len(rows))
	for _, r := range rows {
		corpus = append(corpus, r.Body)
	}
	return corpus, nil
}

// prependCorpus adds body to the front of corpus so later schedules in the
// same cycle see it immediately (spec.md §4.F), capping at
// recentCorpusLimit by dropping the oldest entry.
func prependCorpus(corpus []string, body string) []string {
	out := make([]string, 0, len(corpus)+1)
	out = append(out, body)
	out = append(out, corpus...)
	if len(out) > recentCorpusLimit {
		out = out[:recentCorpusLimit]
	}
	return out
}

type outcome int

const (
	outcomePosted outcome = iota
	outcomeFailed
	outcomeBlocked
	outcomeRescheduled
)
