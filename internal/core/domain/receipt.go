package domain

import "time"

type ReceiptStatus string

const (
	StatusUploaded   ReceiptStatus = "uploaded"
	StatusProcessing ReceiptStatus = "processing"
	StatusProcessed  ReceiptStatus = "processed"
	StatusFailed     ReceiptStatus = "failed"
)

// CategoryOther is the single fallback category shared by the line-item
// builder and the classifier fallback path.
const CategoryOther = "Other"

type Receipt struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	MimeType    string          `json:"mime_type"`
	StoragePath string          `json:"storage_path"`
	Status      ReceiptStatus   `json:"status"`
	Error       string          `json:"error,omitempty"`
	Fields      ExtractedFields `json:"fields"`
	Items       []LineItem      `json:"items,omitempty"`
	RawText     string          `json:"raw_text,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExtractedFields is the scalar summary of a receipt. Absent money fields
// stay nil; absence is meaningful and never an error.
type ExtractedFields struct {
	MerchantName  string  `json:"merchant_name,omitempty"`
	Total         *Money  `json:"total,omitempty"`
	Subtotal      *Money  `json:"subtotal,omitempty"`
	Tax           *Money  `json:"tax,omitempty"`
	Discount      *Money  `json:"discount,omitempty"`
	Tip           *Money  `json:"tip,omitempty"`
	Fees          *Money  `json:"fees,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	ReceiptDate   string  `json:"receipt_date,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// LineItem is one monetary line of a receipt. Price is the already-multiplied
// line total, not the unit price. Tax, fees, tip and discount are folded in
// as synthetic items so downstream consumers treat all monetary lines
// uniformly; a discount item carries a negative price.
type LineItem struct {
	Name      string  `json:"name"`
	CleanName string  `json:"clean_name,omitempty"`
	Price     Money   `json:"price"`
	Quantity  float64 `json:"quantity"`
	UnitPrice *Money  `json:"unit_price,omitempty"`
	Category  string  `json:"category"`
}

// ItemAnnotation is what the external classifier returns per line item.
type ItemAnnotation struct {
	CleanName string `json:"clean_name"`
	Category  string `json:"category"`
}

// ReconciliationResult compares the summed line items against the extracted
// total. It is advisory only and never blocks persistence.
type ReconciliationResult struct {
	CalculatedTotal Money  `json:"calculated_total"`
	ExtractedTotal  *Money `json:"extracted_total,omitempty"`
	DifferenceCents int64  `json:"difference_cents"`
	WithinTolerance bool   `json:"within_tolerance"`
	// Applicable is false when no total was extracted; the tolerance check
	// is then neither a match nor a mismatch.
	Applicable bool `json:"applicable"`
}
