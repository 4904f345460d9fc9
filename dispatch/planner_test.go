package dispatch

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xfleet/publisher/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
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

func seedContentAndAccounts(t *testing.T, db *gorm.DB) (*models.Content, []models.Account) {
	t.Helper()
	content := &models.Content{Title: "t", Body: "hello world", Status: models.ContentStatusDraft}
	if err := db.Create(content).Error; err != nil {
		t.Fatalf("create content: %v", err)
	}

	accounts := []models.Account{
		{XUserId: "u1", Username: "alice", DisplayName: "Alice", DailyPostLimit: 10, MonthlyPostLimit: 200, MinIntervalMinutes: 20},
		{XUserId: "u2", Username: "bob", DisplayName: "Bob", DailyPostLimit: 10, MonthlyPostLimit: 200, MinIntervalMinutes: 20},
	}
	for i := range accounts {
		if err := db.Create(&accounts[i]).Error; err != nil {
			t.Fatalf("create account: %v", err)
		}
	}
	return content, accounts
}

func TestPlanManualInsertsOneSchedulePerAccount(t *testing.T) {
	db := newTestDB(t)
	content, accounts := seedContentAndAccounts(t, db)
	p := NewPlanner(db, logrus.New())

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	req := Request{Mode: ModeManual, AccountIds: []uint{accounts[0].ID, accounts[1].ID}, StaggerMinutes: 10, Priority: 500}

	summary, err := p.Plan(content.ID, req, now)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if summary.Inserted != 2 || summary.Skipped != 0 {
		t.Fatalf("expected 2 inserted 0 skipped, got %+v", summary)
	}

	var schedules []models.Schedule
	db.Find(&schedules)
	if len(schedules) != 2 {
		t.Fatalf("expected 2 schedule rows, got %d", len(schedules))
	}

	var logs []models.ActivityLog
	db.Find(&logs)
	if len(logs) != 1 {
		t.Fatalf("expected exactly one activity log entry, got %d", len(logs))
	}
}

func TestPlanIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	content, accounts := seedContentAndAccounts(t, db)
	p := NewPlanner(db, logrus.New())

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	req := Request{Mode: ModeManual, AccountIds: []uint{accounts[0].ID, accounts[1].ID}, StaggerMinutes: 10, Priority: 500}

	first, err := p.Plan(content.ID, req, now)
	if err != nil {
		t.Fatalf("first Plan: %v", err)
	}
	second, err := p.Plan(content.ID, req, now)
	if err != nil {
		t.Fatalf("second Plan: %v", err)
	}

	if first.Inserted != 2 {
		t.Fatalf("expected first call to insert 2, got %d", first.Inserted)
	}
	if second.Inserted != 0 || second.Skipped != 2 {
		t.Fatalf("expected second call to insert 0 and skip 2, got %+v", second)
	}

	var count int64
	db.Model(&models.Schedule{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected still only 2 schedule rows total, got %d", count)
	}
}

func TestPlanRuleModeMatchesTagOrLanguage(t *testing.T) {
	db := newTestDB(t)
	topicTag := &models.Tag{Name: "finance"}
	if err := db.Create(topicTag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}

	topic := "Finance"
	lang := "fr"
	content := &models.Content{Title: "t", Body: "money news", Topic: &topic, Language: &lang, Status: models.ContentStatusDraft}
	if err := db.Create(content).Error; err != nil {
		t.Fatalf("create content: %v", err)
	}

	matchByTag := models.Account{XUserId: "u1", Username: "a", DisplayName: "A", DailyPostLimit: 10, MonthlyPostLimit: 200, MinIntervalMinutes: 20, Tags: []models.Tag{*topicTag}}
	frenchLang := "fr"
	matchByLang := models.Account{XUserId: "u2", Username: "b", DisplayName: "B", DailyPostLimit: 10, MonthlyPostLimit: 200, MinIntervalMinutes: 20, Language: &frenchLang}
	noMatch := models.Account{XUserId: "u3", Username: "c", DisplayName: "C", DailyPostLimit: 10, MonthlyPostLimit: 200, MinIntervalMinutes: 20}

	for _, a := range []*models.Account{&matchByTag, &matchByLang, &noMatch} {
		if err := db.Create(a).Error; err != nil {
			t.Fatalf("create account: %v", err)
		}
	}

	p := NewPlanner(db, logrus.New())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	summary, err := p.Plan(content.ID, Request{Mode: ModeRule, StaggerMinutes: 0, Priority: 500}, now)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if summary.TargetAccounts != 2 {
		t.Fatalf("expected 2 matched accounts (tag + language), got %d", summary.TargetAccounts)
	}
}

func TestPlanDefaultsOmittedPriorityBeforeValidating(t *testing.T) {
	db := newTestDB(t)
	content, accounts := seedContentAndAccounts(t, db)
	p := NewPlanner(db, logrus.New())

	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	req := Request{Mode: ModeManual, AccountIds: []uint{accounts[0].ID}}

	summary, err := p.Plan(content.ID, req, now)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if summary.Inserted != 1 {
		t.Fatalf("expected 1 inserted, got %+v", summary)
	}

	var schedule models.Schedule
	if err := db.First(&schedule).Error; err != nil {
		t.Fatalf("load schedule: %v", err)
	}
	if schedule.Priority != 500 {
		t.Fatalf("expected default priority 500, got %d", schedule.Priority)
	}
}

func TestPlanRuleModeEmptyMatchErrors(t *testing.T) {
	db := newTestDB(t)
	content := &models.Content{Title: "t", Body: "body", Status: models.ContentStatusDraft}
	if err := db.Create(content).Error; err != nil {
		t.Fatalf("create content: %v", err)
	}
	db.Create(&models.Account{XUserId: "u1", Username: "a", DisplayName: "A", DailyPostLimit: 10, MonthlyPostLimit: 200, MinIntervalMinutes: 20})

	p := NewPlanner(db, logrus.New())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	if _, err := p.Plan(content.ID, Request{Mode: ModeRule, Priority: 500}, now); err == nil {
		t.Fatalf("expected error when rule selection matches nothing")
	}
}
