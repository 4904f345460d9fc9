package dispatch

import (
	"fmt"
	"strings"

	"github.com/xfleet/publisher/models"
	"gorm.io/gorm"
)

// selectAccounts resolves the target accounts for req (spec.md §4.E
// "Account selection").
func selectAccounts(db *gorm.DB, content *models.Content, req Request) ([]models.Account, error) {
	if req.Mode == ModeManual {
		return selectManual(db, req.AccountIds)
	}
	return selectByRule(db, content)
}

func selectManual(db *gorm.DB, ids []uint) ([]models.Account, error) {
	deduped := dedupeUints(ids)
	if len(deduped) == 0 {
		return nil, fmt.Errorf("dispatch: manual mode requires at least one accountId")
	}

	var accounts []models.Account
	if err := db.Where("id IN ?", deduped).Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("dispatch: load manual accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("dispatch: no matching accounts for supplied accountIds")
	}
	return accounts, nil
}

func selectByRule(db *gorm.DB, content *models.Content) ([]models.Account, error) {
	var all []models.Account
	if err := db.Preload("Tags").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("dispatch: load accounts for rule selection: %w", err)
	}

	topic := normalizeMatch(content.Topic)
	language := normalizeMatch(content.Language)

	var matched []models.Account
	for _, account := range all {
		if topic != "" && hasMatchingTag(account.Tags, topic) {
			matched = append(matched, account)
			continue
		}
		if language != "" && normalizeMatch(account.Language) == language {
			matched = append(matched, account)
		}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("dispatch: rule selection matched zero accounts for content %d", content.ID)
	}
	return matched, nil
}

func hasMatchingTag(tags []models.Tag, topic string) bool {
	for _, tag := range tags {
		if strings.ToLower(strings.TrimSpace(tag.Name)) == topic {
			return true
		}
	}
	return false
}

func normalizeMatch(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

func dedupeUints(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
