package expense

import "github.com/dkoval/receiptwise/internal/core/domain"

// toleranceCents is the fixed reconciliation tolerance.
const toleranceCents = 5

// Reconcile sums all line items (price times quantity, rounded per item to
// the nearest cent) and compares the sum against the extracted total. The
// result is a user-facing confidence signal; it never blocks persistence.
func Reconcile(items []domain.LineItem, extractedTotal *domain.Money) domain.ReconciliationResult {
	var calculated domain.Money
	for _, item := range items {
		calculated += item.Price.MulQuantity(item.Quantity)
	}

	result := domain.ReconciliationResult{
		CalculatedTotal: calculated,
		ExtractedTotal:  extractedTotal,
	}
	if extractedTotal == nil {
		// No extracted total: neither a match nor a mismatch.
		return result
	}

	result.Applicable = true
	result.DifferenceCents = (calculated - *extractedTotal).Abs().Cents()
	result.WithinTolerance = result.DifferenceCents <= toleranceCents
	return result
}
