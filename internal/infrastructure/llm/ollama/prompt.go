package ollama

import (
	"fmt"
	"strings"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

func buildClassificationPrompt(items []domain.LineItem) string {
	var itemList strings.Builder
	for idx, item := range items {
		itemList.WriteString(fmt.Sprintf(
			"[%d] name=%q price=%s quantity=%g\n",
			idx+1, item.Name, item.Price, item.Quantity,
		))
	}

	return fmt.Sprintf(`You are a receipt line-item categorizer.
For every input item return one object with keys:
clean_name (string, a short human-readable product name) and
category (string, one of: Groceries, Dining, Household, Personal Care, Electronics, Clothing, Transport, Fees, %s).
Return a strict JSON array with exactly %d objects, same order as the input.
No markdown, no extra keys.

Items:
%s`, domain.CategoryOther, len(items), itemList.String())
}
