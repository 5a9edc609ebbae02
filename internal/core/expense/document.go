// Package expense turns the OCR provider's expense-analysis payload into
// normalized, validated monetary line items and scalar receipt fields.
package expense

import "strings"

// Document is the raw expense-analysis response: one ExpenseDocument per
// physical page plus an optional flat list of raw text lines. The shape is
// the provider's contract; every field is optional and every list may be
// empty, so all access here is defensive.
type Document struct {
	ExpenseDocuments []ExpenseDocument `json:"expense_documents"`
	RawLines         []string          `json:"raw_lines,omitempty"`
}

type ExpenseDocument struct {
	SummaryFields  []Field         `json:"summary_fields"`
	LineItemGroups []LineItemGroup `json:"line_item_groups"`
}

// Field is one tagged key/value/confidence triple. Type carries the
// provider's semantic tag (VENDOR_NAME, TOTAL, ...), Label the printed label
// text next to the value on the receipt.
type Field struct {
	Type       string  `json:"type"`
	Label      string  `json:"label,omitempty"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

type LineItemGroup struct {
	LineItems []LineItemRow `json:"line_items"`
}

type LineItemRow struct {
	Fields []Field `json:"fields"`
}

// Provider field type tags.
const (
	fieldVendorName  = "VENDOR_NAME"
	fieldTotal       = "TOTAL"
	fieldSubtotal    = "SUBTOTAL"
	fieldTax         = "TAX"
	fieldDiscount    = "DISCOUNT"
	fieldGratuity    = "GRATUITY"
	fieldTip         = "TIP"
	fieldServiceFee  = "SERVICE_CHARGE"
	fieldDeliveryFee = "DELIVERY_FEE"
	fieldPayMethod   = "PAYMENT_METHOD"
	fieldPayTerms    = "PAYMENT_TERMS"
	fieldReceiptDate = "INVOICE_RECEIPT_DATE"

	itemFieldName      = "ITEM"
	itemFieldPrice     = "PRICE"
	itemFieldQuantity  = "QUANTITY"
	itemFieldUnitPrice = "UNIT_PRICE"
)

// findField returns the first field whose type matches any of the given
// tags, in field order.
func findField(fields []Field, types ...string) (Field, bool) {
	for _, f := range fields {
		tag := strings.ToUpper(strings.TrimSpace(f.Type))
		for _, want := range types {
			if tag == want {
				return f, true
			}
		}
	}
	return Field{}, false
}

// findFieldWhere is findField restricted by an extra predicate on the field.
func findFieldWhere(fields []Field, match func(Field) bool, types ...string) (Field, bool) {
	for _, f := range fields {
		tag := strings.ToUpper(strings.TrimSpace(f.Type))
		for _, want := range types {
			if tag == want && match(f) {
				return f, true
			}
		}
	}
	return Field{}, false
}
