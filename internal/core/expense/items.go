package expense

import (
	"strings"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

// Descriptive names for items synthesized from scalar summary fields.
const (
	syntheticTaxName      = "Tax"
	syntheticFeeName      = "Service/Delivery Fee"
	syntheticTipName      = "Tip"
	syntheticDiscountName = "Discount"
)

// BuildLineItems extracts itemized purchase lines from every group on every
// page, then appends synthetic items for tax, fees, tip and discount so they
// participate in reconciliation and splitting like any other line.
func BuildLineItems(doc Document, fields domain.ExtractedFields) []domain.LineItem {
	var items []domain.LineItem
	for _, page := range doc.ExpenseDocuments {
		for _, group := range page.LineItemGroups {
			for _, row := range group.LineItems {
				if item, ok := buildRow(row); ok {
					items = append(items, item)
				}
			}
		}
	}
	return append(items, syntheticItems(fields)...)
}

// buildRow accepts a row only when it has both an item name and a parseable
// price; anything else is OCR noise and dropped silently.
func buildRow(row LineItemRow) (domain.LineItem, bool) {
	nameField, ok := findField(row.Fields, itemFieldName)
	if !ok {
		return domain.LineItem{}, false
	}
	priceField, ok := findField(row.Fields, itemFieldPrice)
	if !ok {
		return domain.LineItem{}, false
	}
	price, ok := domain.ParseCurrency(priceField.Value)
	if !ok {
		return domain.LineItem{}, false
	}

	item := domain.LineItem{
		Name:     truncateAtNewline(nameField.Value),
		Price:    price,
		Quantity: 1,
		Category: domain.CategoryOther,
	}
	if f, ok := findField(row.Fields, itemFieldQuantity); ok {
		if qty, parsed := domain.ParseQuantity(f.Value); parsed {
			item.Quantity = qty
		}
	}
	if f, ok := findField(row.Fields, itemFieldUnitPrice); ok {
		if unit, parsed := domain.ParseCurrency(f.Value); parsed {
			item.UnitPrice = &unit
		}
	}
	// An absent unit price stays absent; it is never back-computed from
	// price/quantity.
	return item, true
}

// truncateAtNewline keeps only the text before the first embedded newline, a
// common OCR artifact merging the item name with a second descriptive line.
func truncateAtNewline(name string) string {
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

func syntheticItems(fields domain.ExtractedFields) []domain.LineItem {
	var items []domain.LineItem
	appendPositive := func(name string, amount *domain.Money, negate bool) {
		if amount == nil || *amount <= 0 {
			return
		}
		price := *amount
		if negate {
			price = -price
		}
		items = append(items, domain.LineItem{
			Name:     name,
			Price:    price,
			Quantity: 1,
			Category: domain.CategoryOther,
		})
	}
	appendPositive(syntheticTaxName, fields.Tax, false)
	appendPositive(syntheticFeeName, fields.Fees, false)
	appendPositive(syntheticTipName, fields.Tip, false)
	// The discount is stored negated so it subtracts from any naive sum.
	appendPositive(syntheticDiscountName, fields.Discount, true)
	return items
}

// RawText concatenates all raw OCR lines into a search-friendly fallback
// stored alongside the structured extraction.
func RawText(doc Document) string {
	return strings.Join(doc.RawLines, "\n")
}
