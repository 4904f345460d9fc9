package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xfleet/publisher/crypto"
	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/platform"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakePlatform lets each test script an exact Publish/RefreshToken
// response sequence without a live HTTP server.
type fakePlatform struct {
	publishResults []platform.PublishResult
	publishErr     error
	refreshResult  platform.RefreshResult
	refreshErr     error
}

func (f *fakePlatform) Publish(ctx context.Context, accessToken string, text string, proxy *platform.ProxyConfig) (platform.PublishResult, error) {
	if f.publishErr != nil {
		return platform.PublishResult{}, f.publishErr
	}
	if len(f.publishResults) == 0 {
		return platform.PublishResult{}, nil
	}
	r := f.publishResults[0]
	f.publishResults = f.publishResults[1:]
	return r, nil
}

func (f *fakePlatform) RefreshToken(ctx context.Context, refreshToken string, proxy *platform.ProxyConfig) (platform.RefreshResult, error) {
	return f.refreshResult, f.refreshErr
}

func newCycleTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testSealerForCycle(t *testing.T) *crypto.Sealer {
	t.Helper()
	s, err := crypto.NewSealer("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd", logrus.New())
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func seedDueSchedule(t *testing.T, db *gorm.DB, sealer *crypto.Sealer, configureAccount func(*models.Account), configureSchedule func(*models.Schedule)) (models.Account, models.Content, models.ContentVariant, models.Schedule) {
	t.Helper()

	account := models.Account{
		XUserId: "x-1", Username: "alice", DisplayName: "Alice",
		AccessTokenEnc:     sealer.Seal("valid-access-token"),
		Status:             models.AccountStatusActive,
		MinIntervalMinutes: 20, DailyPostLimit: 10, MonthlyPostLimit: 200,
	}
	if configureAccount != nil {
		configureAccount(&account)
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}

	content := models.Content{Title: "t", Body: "hello from the test suite", Status: models.ContentStatusDraft}
	if err := db.Create(&content).Error; err != nil {
		t.Fatalf("create content: %v", err)
	}

	accountId := account.ID
	variant := models.ContentVariant{ContentId: content.ID, AccountId: &accountId, Body: content.Body, SimilarityKey: "x"}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}

	schedule := models.Schedule{
		AccountId: account.ID, ContentId: content.ID, ContentVariantId: variant.ID,
		PlannedAt: time.Now().Add(-time.Minute), Status: models.ScheduleStatusPending,
		IdempotencyKey: "k-" + t.Name(), Priority: 500, MaxAttempts: 3,
	}
	if configureSchedule != nil {
		configureSchedule(&schedule)
	}
	if err := db.Create(&schedule).Error; err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	return account, content, variant, schedule
}

func TestRunCycleHappyPath(t *testing.T) {
	db := newCycleTestDB(t)
	sealer := testSealerForCycle(t)
	_, _, _, schedule := seedDueSchedule(t, db, sealer, nil, nil)

	postId := "p1"
	limit := 300
	remaining := 298
	resetAt := time.Now().Add(15 * time.Minute)
	fake := &fakePlatform{publishResults: []platform.PublishResult{{
		HTTPStatus: 200, PostId: &postId,
		RateLimit: platform.RateLimit{Limit: &limit, Remaining: &remaining, ResetAt: &resetAt},
	}}}

	cycle := NewCycle(db, logrus.New(), sealer, fake, time.UTC)
	summary, err := cycle.RunCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary != (Summary{Scanned: 1, Attempted: 1, Posted: 1}) {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	var got models.Schedule
	db.First(&got, schedule.ID)
	if got.Status != models.ScheduleStatusPosted || got.ExternalPostId == nil || *got.ExternalPostId != "p1" {
		t.Fatalf("unexpected schedule state: %+v", got)
	}
	if got.PostedAt == nil {
		t.Fatalf("expected PostedAt to be set")
	}

	var account models.Account
	db.First(&account, schedule.AccountId)
	if account.LastPostedAt == nil {
		t.Fatalf("expected account.LastPostedAt to be set")
	}

	var attempts []models.PublishAttempt
	db.Where("schedule_id = ?", schedule.ID).Find(&attempts)
	if len(attempts) != 1 || attempts[0].Status != models.AttemptStatusSuccess {
		t.Fatalf("expected exactly one SUCCESS attempt row, got %+v", attempts)
	}

	var metric models.PostMetric
	if err := db.Where("schedule_id = ?", schedule.ID).First(&metric).Error; err != nil {
		t.Fatalf("expected a PostMetric row: %v", err)
	}
}

func TestRunCycleRateLimited(t *testing.T) {
	db := newCycleTestDB(t)
	sealer := testSealerForCycle(t)
	_, _, _, schedule := seedDueSchedule(t, db, sealer, nil, nil)

	resetAt := time.Now().Add(300 * time.Second)
	fake := &fakePlatform{publishResults: []platform.PublishResult{{HTTPStatus: 429, RateLimit: platform.RateLimit{ResetAt: &resetAt}}}}

	cycle := NewCycle(db, logrus.New(), sealer, fake, time.UTC)
	summary, err := cycle.RunCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected 1 failed, got %+v", summary)
	}

	var got models.Schedule
	db.First(&got, schedule.ID)
	if got.Status != models.ScheduleStatusFailed || got.AttemptCount != 1 {
		t.Fatalf("unexpected schedule state: %+v", got)
	}
	if got.NextAttemptAt == nil || got.NextAttemptAt.Before(resetAt) {
		t.Fatalf("expected nextAttemptAt to honor the platform reset, got %v vs reset %v", got.NextAttemptAt, resetAt)
	}

	var account models.Account
	db.First(&account, schedule.AccountId)
	if account.Status != models.AccountStatusRateLimited {
		t.Fatalf("expected account RATE_LIMITED, got %q", account.Status)
	}
}

func TestRunCycleSuspension(t *testing.T) {
	db := newCycleTestDB(t)
	sealer := testSealerForCycle(t)
	_, _, _, schedule := seedDueSchedule(t, db, sealer, nil, nil)

	msg := "account suspended"
	fake := &fakePlatform{publishResults: []platform.PublishResult{{HTTPStatus: 403, ErrorMessage: &msg}}}

	cycle := NewCycle(db, logrus.New(), sealer, fake, time.UTC)
	summary, err := cycle.RunCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Blocked != 1 {
		t.Fatalf("expected 1 blocked, got %+v", summary)
	}

	var got models.Schedule
	db.First(&got, schedule.ID)
	if got.Status != models.ScheduleStatusBlocked || got.NextAttemptAt != nil {
		t.Fatalf("unexpected schedule state: %+v", got)
	}

	var account models.Account
	db.First(&account, schedule.AccountId)
	if account.Status != models.AccountStatusSuspended || account.HealthMessage == nil || *account.HealthMessage != msg {
		t.Fatalf("unexpected account state: %+v", account)
	}
}

func TestRunCycleDailyQuotaBlock(t *testing.T) {
	db := newCycleTestDB(t)
	sealer := testSealerForCycle(t)
	_, _, _, schedule := seedDueSchedule(t, db, sealer, func(a *models.Account) {
		a.DailyPostLimit = 1
	}, nil)

	// Seed one already-POSTED schedule today for the same account so the
	// daily quota is already at its limit.
	accountId := schedule.AccountId
	variant2 := models.ContentVariant{ContentId: schedule.ContentId, AccountId: &accountId, Body: "already posted today", SimilarityKey: "y"}
	db.Create(&variant2)
	postedAt := time.Now().Add(-time.Hour)
	posted := models.Schedule{
		AccountId: accountId, ContentId: schedule.ContentId, ContentVariantId: variant2.ID,
		PlannedAt: postedAt, Status: models.ScheduleStatusPosted, PostedAt: &postedAt,
		IdempotencyKey: "posted-" + t.Name(), Priority: 500, MaxAttempts: 3, AttemptCount: 1,
	}
	if err := db.Create(&posted).Error; err != nil {
		t.Fatalf("seed posted schedule: %v", err)
	}

	unusedPostId := "should-not-be-published"
	fake := &fakePlatform{publishResults: []platform.PublishResult{{HTTPStatus: 200, PostId: &unusedPostId}}}
	cycle := NewCycle(db, logrus.New(), sealer, fake, time.UTC)
	summary, err := cycle.RunCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Blocked != 1 {
		t.Fatalf("expected 1 blocked for quota, got %+v", summary)
	}
	if len(fake.publishResults) != 1 {
		t.Fatalf("expected no network call")
	}

	var got models.Schedule
	db.First(&got, schedule.ID)
	if got.LastError == nil || *got.LastError != "Daily quota reached (1)." {
		t.Fatalf("unexpected message: %+v", got.LastError)
	}
}

func TestRunCyclePacingReschedule(t *testing.T) {
	db := newCycleTestDB(t)
	sealer := testSealerForCycle(t)
	lastPosted := time.Now().Add(-5 * time.Minute)
	_, _, _, schedule := seedDueSchedule(t, db, sealer, func(a *models.Account) {
		a.MinIntervalMinutes = 20
		a.LastPostedAt = &lastPosted
	}, nil)

	fake := &fakePlatform{}
	cycle := NewCycle(db, logrus.New(), sealer, fake, time.UTC)
	summary, err := cycle.RunCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Rescheduled != 1 {
		t.Fatalf("expected 1 rescheduled, got %+v", summary)
	}

	var got models.Schedule
	db.First(&got, schedule.ID)
	if got.Status != models.ScheduleStatusPending {
		t.Fatalf("expected PENDING, got %q", got.Status)
	}
	want := lastPosted.Add(20 * time.Minute)
	if got.PlannedAt.Sub(want).Abs() > time.Second {
		t.Fatalf("expected plannedAt ~= %v, got %v", want, got.PlannedAt)
	}

	var attempts []models.PublishAttempt
	db.Where("schedule_id = ?", schedule.ID).Find(&attempts)
	if len(attempts) != 0 {
		t.Fatalf("expected no attempt row for a pacing reschedule, got %d", len(attempts))
	}
}

func TestRunCycleFairnessOnePerAccount(t *testing.T) {
	db := newCycleTestDB(t)
	sealer := testSealerForCycle(t)

	account := models.Account{
		XUserId: "x-fair", Username: "a", DisplayName: "A",
		AccessTokenEnc: sealer.Seal("token"), Status: models.AccountStatusActive,
		MinIntervalMinutes: 1, DailyPostLimit: 10, MonthlyPostLimit: 200,
	}
	db.Create(&account)
	content := models.Content{Title: "t", Body: "body", Status: models.ContentStatusDraft}
	db.Create(&content)
	accountId := account.ID
	variant := models.ContentVariant{ContentId: content.ID, AccountId: &accountId, Body: "body", SimilarityKey: "z"}
	db.Create(&variant)

	for i := 0; i < 2; i++ {
		s := models.Schedule{
			AccountId: account.ID, ContentId: content.ID, ContentVariantId: variant.ID,
			PlannedAt: time.Now().Add(-time.Minute), Status: models.ScheduleStatusPending,
			IdempotencyKey: "fair-a-" + t.Name() + string(rune('0'+i)), Priority: 500, MaxAttempts: 3,
		}
		db.Create(&s)
	}

	postId := "pB"
	fake := &fakePlatform{publishResults: []platform.PublishResult{{HTTPStatus: 200, PostId: &postId}}}
	cycle := NewCycle(db, logrus.New(), sealer, fake, time.UTC)
	summary, err := cycle.RunCycle(context.Background(), 10)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Scanned != 2 || summary.Attempted != 1 {
		t.Fatalf("expected scanned=2 attempted=1, got %+v", summary)
	}
}
