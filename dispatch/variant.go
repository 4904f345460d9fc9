package dispatch

import (
	"fmt"
	"strings"

	"github.com/xfleet/publisher/models"
	"github.com/xfleet/publisher/similarity"
)

// templateBank rotates a small set of suffixes across target accounts so
// identical content doesn't produce byte-identical variant bodies
// (spec.md §4.E "Variant assurance").
var templateBank = []string{
	"",
	" — thoughts?",
	" (thread)",
	" 🔁",
}

// generateVariantBody produces deterministic per-account text for content,
// where index is the account's position among the dispatch's targets
// (spec.md §4.E): a rotating template-bank suffix, an "(@username edition)"
// tag on odd indices, and a Chinese call-to-action line when the account's
// language starts with "zh".
func generateVariantBody(content *models.Content, account *models.Account, index int) string {
	var b strings.Builder
	b.WriteString(content.Body)
	b.WriteString(templateBank[index%len(templateBank)])

	if index%2 == 1 {
		fmt.Fprintf(&b, " (@%s edition)", account.Username)
	}

	if account.Language != nil && strings.HasPrefix(strings.ToLower(*account.Language), "zh") {
		b.WriteString("\n欢迎转发和评论。")
	}

	return b.String()
}

// buildVariant returns a new, unsaved ContentVariant for (content, account).
func buildVariant(content *models.Content, account *models.Account, index int) *models.ContentVariant {
	body := generateVariantBody(content, account, index)
	accountId := account.ID
	return &models.ContentVariant{
		ContentId:     content.ID,
		AccountId:     &accountId,
		Body:          body,
		SimilarityKey: similarity.Fingerprint(body),
	}
}
