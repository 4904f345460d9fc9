// Package risk is the Risk Engine (spec.md §4.D): the gate every schedule
// passes through after credentials are resolved and before the network
// call is made.
package risk

import (
	"fmt"
	"time"

	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/similarity"
	"github.com/xfleet/publisher/utils"
)

// Outcome is the tagged result of Evaluate.
type Outcome int

const (
	// Proceed means no risk check fired; the caller may publish.
	Proceed Outcome = iota
	// Rescheduled means the request was returned to PENDING to honor
	// the account's min-interval pacing.
	Rescheduled
	// Blocked means a quota or similarity check fired; never retried
	// automatically.
	Blocked
)

// Decision carries the Outcome plus whatever the caller needs to apply it.
type Decision struct {
	Outcome Outcome

	// RescheduledPlannedAt is set when Outcome == Rescheduled.
	RescheduledPlannedAt time.Time

	// Message explains the outcome; always set when Outcome != Proceed.
	Message string
}

// Engine evaluates the risk envelope against a store and a shared,
// per-cycle recent-corpus slice (spec.md §4.D, §5 "Resource sharing").
type Engine struct {
	db       Store
	location *time.Location
}

// Store is the subset of persistence Evaluate needs; the Publisher Cycle
// supplies a *gorm.DB-backed implementation, tests supply a fake.
type Store interface {
	CountPostedSince(accountId uint, since time.Time) (int64, error)
}

// NewEngine constructs a risk Engine. location governs the day/month
// boundary used by quota checks (spec.md §4.D "Day/month boundaries use
// the server's local timezone").
func NewEngine(db Store, location *time.Location) *Engine {
	return &Engine{db: db, location: location}
}

const SimilarityThreshold = similarity.DefaultThreshold

// Evaluate runs the four checks in spec order: min interval, daily quota,
// monthly quota, similarity. corpus is the cycle's sliding window of
// recently-posted bodies; candidateBody is the text about to be published.
func (e *Engine) Evaluate(account *models.Account, candidateBody string, corpus []string, now time.Time) (Decision, error) {
	if d, fired := e.checkMinInterval(account, now); fired {
		return d, nil
	}

	dailyStart := utils.StartOfLocalDay(now, e.location)
	dailyCount, err := e.db.CountPostedSince(account.ID, dailyStart)
	if err != nil {
		return Decision{}, fmt.Errorf("risk: count daily posted: %w", err)
	}
	if dailyCount >= int64(account.DailyPostLimit) {
		return Decision{
			Outcome: Blocked,
			Message: fmt.Sprintf("Daily quota reached (%d).", account.DailyPostLimit),
		}, nil
	}

	monthlyStart := utils.StartOfLocalMonth(now, e.location)
	monthlyCount, err := e.db.CountPostedSince(account.ID, monthlyStart)
	if err != nil {
		return Decision{}, fmt.Errorf("risk: count monthly posted: %w", err)
	}
	if monthlyCount >= int64(account.MonthlyPostLimit) {
		return Decision{
			Outcome: Blocked,
			Message: fmt.Sprintf("Monthly quota reached (%d).", account.MonthlyPostLimit),
		}, nil
	}

	if similarity.TooSimilar(candidateBody, corpus, SimilarityThreshold) {
		return Decision{
			Outcome: Blocked,
			Message: "Content too similar to recent published posts.",
		}, nil
	}

	return Decision{Outcome: Proceed}, nil
}

func (e *Engine) checkMinInterval(account *models.Account, now time.Time) (Decision, bool) {
	if account.LastPostedAt == nil {
		return Decision{}, false
	}
	earliest := account.LastPostedAt.Add(time.Duration(account.MinIntervalMinutes) * time.Minute)
	if !earliest.After(now) {
		return Decision{}, false
	}
	return Decision{
		Outcome:              Rescheduled,
		RescheduledPlannedAt: earliest,
		Message:              fmt.Sprintf("Paced: next slot available at %s.", earliest.Format(time.RFC3339)),
	}, true
}
