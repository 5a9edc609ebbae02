package expense

import (
	"regexp"
	"strings"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

// Rules holds the vendor-tuned extraction heuristics that are configurable
// rather than hard-coded.
type Rules struct {
	// DiscountLabels are case-insensitive substrings a discount field's label
	// must contain to be accepted. Generic/loyalty discounts are assumed
	// already folded into item prices and are ignored.
	DiscountLabels []string `yaml:"discount_labels"`
}

func DefaultRules() Rules {
	return Rules{DiscountLabels: []string{"delivery", "scheduled"}}
}

// cardPattern matches a card brand followed by the printed last four digits,
// e.g. "VISA ENDING IN 4242".
var cardPattern = regexp.MustCompile(`(?i)\b(mastercard|visa|discover|amex)\b[^0-9]*(\d{4})\b`)

// ExtractFields resolves one value per semantic slot across all pages.
// Resolution is first-match-wins in page order: page 1's value for a slot,
// if present, always beats later pages.
func ExtractFields(doc Document, rules Rules) domain.ExtractedFields {
	pages := make([]domain.ExtractedFields, 0, len(doc.ExpenseDocuments))
	for _, page := range doc.ExpenseDocuments {
		pages = append(pages, extractPageFields(page, rules))
	}
	fields := MergeFields(pages)

	// Vendor receipts frequently omit a structured payment field but print
	// the card brand and last four in free text.
	if fields.PaymentMethod == "" {
		fields.PaymentMethod = scanPaymentMethod(doc.RawLines)
	}
	return fields
}

func extractPageFields(page ExpenseDocument, rules Rules) domain.ExtractedFields {
	var out domain.ExtractedFields

	if f, ok := findField(page.SummaryFields, fieldVendorName); ok {
		out.MerchantName = f.Value
		out.Confidence = f.Confidence
	}
	out.Total = moneyField(page.SummaryFields, fieldTotal)
	out.Subtotal = moneyField(page.SummaryFields, fieldSubtotal)
	out.Tax = moneyField(page.SummaryFields, fieldTax)
	out.Tip = moneyField(page.SummaryFields, fieldGratuity, fieldTip)
	// A generic OTHER tag is never treated as a fee; only the specific
	// service-charge and delivery-fee tags qualify.
	out.Fees = moneyField(page.SummaryFields, fieldServiceFee, fieldDeliveryFee)

	if f, ok := findFieldWhere(page.SummaryFields, rules.discountLabelAllowed, fieldDiscount); ok {
		if amount, parsed := domain.ParseCurrency(f.Value); parsed {
			out.Discount = &amount
		}
	}

	if f, ok := findField(page.SummaryFields, fieldPayMethod, fieldPayTerms); ok {
		out.PaymentMethod = f.Value
	}
	if f, ok := findField(page.SummaryFields, fieldReceiptDate); ok {
		// Raw text, no date normalization at this layer.
		out.ReceiptDate = f.Value
	}
	return out
}

func (r Rules) discountLabelAllowed(f Field) bool {
	label := strings.ToLower(f.Label)
	for _, want := range r.DiscountLabels {
		if want != "" && strings.Contains(label, strings.ToLower(want)) {
			return true
		}
	}
	return false
}

// MergeFields folds per-page extractions into one record, first non-absent
// value per slot winning. The confidence score travels with the merchant
// name: whichever page supplies the name also supplies the score.
func MergeFields(pages []domain.ExtractedFields) domain.ExtractedFields {
	var out domain.ExtractedFields
	for _, page := range pages {
		if out.MerchantName == "" && page.MerchantName != "" {
			out.MerchantName = page.MerchantName
			out.Confidence = page.Confidence
		}
		if out.Total == nil {
			out.Total = page.Total
		}
		if out.Subtotal == nil {
			out.Subtotal = page.Subtotal
		}
		if out.Tax == nil {
			out.Tax = page.Tax
		}
		if out.Discount == nil {
			out.Discount = page.Discount
		}
		if out.Tip == nil {
			out.Tip = page.Tip
		}
		if out.Fees == nil {
			out.Fees = page.Fees
		}
		if out.PaymentMethod == "" {
			out.PaymentMethod = page.PaymentMethod
		}
		if out.ReceiptDate == "" {
			out.ReceiptDate = page.ReceiptDate
		}
	}
	return out
}

func moneyField(fields []Field, types ...string) *domain.Money {
	f, ok := findField(fields, types...)
	if !ok {
		return nil
	}
	amount, parsed := domain.ParseCurrency(f.Value)
	if !parsed {
		return nil
	}
	return &amount
}

// scanPaymentMethod scans raw OCR lines for a card brand plus last-4 pattern
// and formats the match as "Brand 1234".
func scanPaymentMethod(lines []string) string {
	for _, line := range lines {
		m := cardPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return titleBrand(m[1]) + " " + m[2]
	}
	return ""
}

func titleBrand(brand string) string {
	brand = strings.ToLower(brand)
	if brand == "" {
		return ""
	}
	return strings.ToUpper(brand[:1]) + brand[1:]
}
