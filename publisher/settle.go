package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/xfleet/publisher/config"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/platform"
	"github.com/xfleet/publisher/risk"
	"github.com/xfleet/publisher/utils"
	"gorm.io/gorm"
)

const (
	publishEndpoint = "POST /2/tweets"

	// rateLimitCacheTTL bounds how long a cached snapshot is trusted as a
	// fast-path substitute for a live Platform call (spec.md §3
	// RateLimitSnapshot; SPEC_FULL.md's Redis-backed fast-path cache).
	rateLimitCacheTTL = 15 * time.Minute
)

// rateLimitCacheKey is the Redis key holding the latest observed
// RateLimit for an account, read by rateLimitedByCache, the fast-path
// check processSchedule runs before a schedule is allowed to reach the
// Platform.
func rateLimitCacheKey(accountId uint) string {
	return fmt.Sprintf("ratelimit:%d", accountId)
}

// cacheRateLimit persists the latest RateLimit snapshot to Redis
// (config.SetRedisObject is a no-op when Redis isn't configured, so this
// degrades to nothing rather than failing the settle path).
func cacheRateLimit(accountId uint, rl platform.RateLimit) {
	_ = config.SetRedisObject(rateLimitCacheKey(accountId), rl, rateLimitCacheTTL)
}

// rateLimitedByCache is the fast-path check against the previous observed
// RateLimit before spending a Platform call on an account we already know
// is exhausted. A cache miss (Redis unconfigured, key absent, or error)
// always lets the schedule proceed — the cache is an optimization, never
// a source of truth.
func rateLimitedByCache(accountId uint, now time.Time) string {
	var rl platform.RateLimit
	hit, err := config.GetRedisObject(rateLimitCacheKey(accountId), &rl)
	if err != nil || !hit {
		return ""
	}
	if rl.Remaining == nil || *rl.Remaining > 0 {
		return ""
	}
	if rl.ResetAt == nil || !rl.ResetAt.After(now) {
		return ""
	}
	return "Rate limit exhausted as of last known response; waiting for reset."
}

// settlePosted records a successful publish (spec.md §4.F step 4): one
// transaction updates the schedule, the account, appends a SUCCESS
// attempt row, a rate-limit snapshot, a zero-initialized PostMetric, and
// the durable ActivityLog row (spec.md §2's fifth atomically-settled
// artifact, distinct from the process-level logrus line below).
func (c *Cycle) settlePosted(ctx context.Context, sched *dueSchedule, result platform.PublishResult, now time.Time) {
	attemptNo := sched.AttemptCount + 1

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Schedule{}).Where("id = ?", sched.ID).Updates(map[string]any{
			"status":           models.ScheduleStatusPosted,
			"posted_at":        now,
			"external_post_id": result.PostId,
			"attempt_count":    attemptNo,
			"last_error":       nil,
			"next_attempt_at":  nil,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Account{}).Where("id = ?", sched.AccountId).Updates(map[string]any{
			"status":          models.AccountStatusActive,
			"health_message":  nil,
			"last_posted_at":  now,
		}).Error; err != nil {
			return err
		}

		attempt := buildAttemptRow(sched, attemptNo, models.AttemptStatusSuccess, result.HTTPStatus, nil, nil, result.RateLimit, now, now)
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		if err := tx.Create(rateLimitSnapshot(sched.AccountId, result.RateLimit, now)).Error; err != nil {
			return err
		}

		if err := tx.Create(&models.PostMetric{ScheduleId: sched.ID}).Error; err != nil {
			return err
		}

		entry := activityLogEntry(ctx, sched, models.LogLevelInfo, "schedule_posted",
			"published schedule to external post "+stringOrEmpty(result.PostId))
		return tx.Create(entry).Error
	})
	if err != nil {
		config.LogError(c.logger, "publisher", "settle_posted_failed", map[string]any{"scheduleId": sched.ID}, err)
		return
	}

	cacheRateLimit(sched.AccountId, result.RateLimit)
	sched.Status = models.ScheduleStatusPosted
	sched.AttemptCount = attemptNo
	c.logger.WithFields(map[string]any{"scheduleId": sched.ID, "accountId": sched.AccountId}).Info("schedule_posted")
}

// settleFailed records a failed publish (spec.md §4.F step 5): terminal
// vs retryable status classification, account demotion, and one attempt
// row keyed by whether the caller will retry.
func (c *Cycle) settleFailed(ctx context.Context, sched *dueSchedule, result platform.PublishResult, now time.Time) {
	n := sched.AttemptCount + 1
	forceBlock := result.HTTPStatus == 401 || result.HTTPStatus == 403
	canRetry := !forceBlock && n < sched.MaxAttempts

	scheduleStatus := models.ScheduleStatusFailed
	attemptStatus := models.AttemptStatusRetryScheduled
	if !canRetry {
		scheduleStatus = models.ScheduleStatusBlocked
		attemptStatus = models.AttemptStatusFail
	}

	accountStatus := ""
	switch result.HTTPStatus {
	case 429:
		accountStatus = models.AccountStatusRateLimited
	case 401:
		accountStatus = models.AccountStatusTokenExpired
	case 403:
		accountStatus = models.AccountStatusSuspended
	}

	var nextAttemptAt *time.Time
	if canRetry {
		at := RetryAt(now, n, result.RateLimit.ResetAt)
		nextAttemptAt = &at
	}

	errMsg := ""
	if result.ErrorMessage != nil {
		errMsg = *result.ErrorMessage
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		scheduleUpdates := map[string]any{
			"status":          scheduleStatus,
			"attempt_count":   n,
			"next_attempt_at": nextAttemptAt,
			"last_error":      errMsg,
		}
		if err := tx.Model(&models.Schedule{}).Where("id = ?", sched.ID).Updates(scheduleUpdates).Error; err != nil {
			return err
		}

		if accountStatus != "" {
			if err := tx.Model(&models.Account{}).Where("id = ?", sched.AccountId).Updates(map[string]any{
				"status":         accountStatus,
				"health_message": errMsg,
			}).Error; err != nil {
				return err
			}
		}

		attempt := buildAttemptRow(sched, n, attemptStatus, result.HTTPStatus, result.ErrorCode, result.ErrorMessage, result.RateLimit, now, now)
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		if err := tx.Create(rateLimitSnapshot(sched.AccountId, result.RateLimit, now)).Error; err != nil {
			return err
		}

		event := "schedule_retry_scheduled"
		level := models.LogLevelWarn
		if !canRetry {
			event = "schedule_blocked"
			level = models.LogLevelError
		}
		entry := activityLogEntry(ctx, sched, level, event, "publish failed: "+errMsg)
		return tx.Create(entry).Error
	})
	if err != nil {
		config.LogError(c.logger, "publisher", "settle_failed_failed", map[string]any{"scheduleId": sched.ID}, err)
		return
	}

	cacheRateLimit(sched.AccountId, result.RateLimit)
	sched.Status = scheduleStatus
	sched.AttemptCount = n

	logger := c.logger.WithFields(map[string]any{"scheduleId": sched.ID, "accountId": sched.AccountId, "httpStatus": result.HTTPStatus})
	if canRetry {
		logger.Warn("schedule_retry_scheduled")
	} else {
		logger.Error("schedule_blocked")
	}
}

// settleBlocked records a BLOCKED outcome that never reached the Platform
// (proxy/token resolve failures, risk-gate quota/similarity hits).
func (c *Cycle) settleBlocked(ctx context.Context, sched *dueSchedule, message string) {
	n := sched.AttemptCount + 1
	now := time.Now()

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Schedule{}).Where("id = ?", sched.ID).Updates(map[string]any{
			"status":          models.ScheduleStatusBlocked,
			"attempt_count":   n,
			"next_attempt_at": nil,
			"last_error":      message,
		}).Error; err != nil {
			return err
		}

		attempt := buildAttemptRow(sched, n, models.AttemptStatusBlocked, 0, nil, &message, platform.RateLimit{}, now, now)
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}

		entry := activityLogEntry(ctx, sched, models.LogLevelError, "schedule_blocked", message)
		return tx.Create(entry).Error
	})
	if err != nil {
		config.LogError(c.logger, "publisher", "settle_blocked_failed", map[string]any{"scheduleId": sched.ID}, err)
		return
	}

	sched.Status = models.ScheduleStatusBlocked
	sched.AttemptCount = n
	c.logger.WithFields(map[string]any{"scheduleId": sched.ID, "accountId": sched.AccountId}).Error(message)
}

// settleRescheduled returns the schedule to PENDING to honor the
// account's min-interval pacing (spec.md §4.D step 1): no attempt row, no
// attempt-counter increment, but the ActivityLog still gets an entry so
// the pacing decision is auditable.
func (c *Cycle) settleRescheduled(ctx context.Context, sched *dueSchedule, decision risk.Decision) {
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Schedule{}).Where("id = ?", sched.ID).Updates(map[string]any{
			"status":          models.ScheduleStatusPending,
			"planned_at":      decision.RescheduledPlannedAt,
			"next_attempt_at": nil,
			"last_error":      decision.Message,
		}).Error; err != nil {
			return err
		}

		entry := activityLogEntry(ctx, sched, models.LogLevelInfo, "schedule_rescheduled", decision.Message)
		return tx.Create(entry).Error
	})
	if err != nil {
		config.LogError(c.logger, "publisher", "settle_rescheduled_failed", map[string]any{"scheduleId": sched.ID}, err)
		return
	}

	sched.Status = models.ScheduleStatusPending
	sched.PlannedAt = decision.RescheduledPlannedAt
	c.logger.WithFields(map[string]any{"scheduleId": sched.ID, "accountId": sched.AccountId}).Info(decision.Message)
}

// activityLogEntry builds the durable audit row every settle* path writes
// in the same transaction as its schedule/account mutation, tagging it
// with the invoking cron/HTTP request's correlation ID when present.
func activityLogEntry(ctx context.Context, sched *dueSchedule, level, event, message string) *models.ActivityLog {
	accountId := sched.AccountId
	scheduleId := sched.ID
	entry := &models.ActivityLog{
		Level:      level,
		Event:      event,
		Message:    message,
		AccountId:  &accountId,
		ScheduleId: &scheduleId,
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
		entry.CorrelationId = &cid
	}
	return entry
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func buildAttemptRow(sched *dueSchedule, attemptNo int, status string, httpStatus int, errorCode, errorMessage *string, rl platform.RateLimit, requestedAt, finishedAt time.Time) *models.PublishAttempt {
	var httpStatusPtr *int
	if httpStatus != 0 {
		httpStatusPtr = &httpStatus
	}
	return &models.PublishAttempt{
		ScheduleId:         sched.ID,
		AccountId:          sched.AccountId,
		AttemptNo:          attemptNo,
		Status:             status,
		RequestedAt:        requestedAt,
		FinishedAt:         &finishedAt,
		HTTPStatus:         httpStatusPtr,
		ErrorCode:          errorCode,
		ErrorMessage:       errorMessage,
		RateLimitLimit:     rl.Limit,
		RateLimitRemaining: rl.Remaining,
		RateLimitResetAt:   rl.ResetAt,
	}
}

func rateLimitSnapshot(accountId uint, rl platform.RateLimit, observedAt time.Time) *models.RateLimitSnapshot {
	return &models.RateLimitSnapshot{
		AccountId:  accountId,
		Endpoint:   publishEndpoint,
		Limit:      rl.Limit,
		Remaining:  rl.Remaining,
		ResetAt:    rl.ResetAt,
		ObservedAt: observedAt,
	}
}
