// Package xlsx renders a processed receipt as a spreadsheet for download.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

const (
	summarySheet = "Receipt"
	itemsSheet   = "Line Items"
)

// BuildWorkbook writes the extracted fields, the line items and the
// reconciliation outcome into a two-sheet workbook.
func BuildWorkbook(receipt *domain.Receipt, recon domain.ReconciliationResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, fmt.Errorf("create items sheet: %w", err)
	}

	if err := writeSummary(f, receipt, recon); err != nil {
		return nil, err
	}
	if err := writeItems(f, receipt.Items); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSummary(f *excelize.File, receipt *domain.Receipt, recon domain.ReconciliationResult) error {
	rows := [][]any{
		{"Merchant", receipt.Fields.MerchantName},
		{"Date", receipt.Fields.ReceiptDate},
		{"Payment method", receipt.Fields.PaymentMethod},
		{"Total", moneyCell(receipt.Fields.Total)},
		{"Subtotal", moneyCell(receipt.Fields.Subtotal)},
		{"Tax", moneyCell(receipt.Fields.Tax)},
		{"Discount", moneyCell(receipt.Fields.Discount)},
		{"Tip", moneyCell(receipt.Fields.Tip)},
		{"Fees", moneyCell(receipt.Fields.Fees)},
		{"OCR confidence", receipt.Fields.Confidence},
		{},
		{"Calculated total", recon.CalculatedTotal.String()},
		{"Extracted total", moneyCell(recon.ExtractedTotal)},
		{"Difference (cents)", reconDifference(recon)},
		{"Within tolerance", reconVerdict(recon)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell name: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func writeItems(f *excelize.File, items []domain.LineItem) error {
	header := []any{"Name", "Clean name", "Category", "Quantity", "Unit price", "Line total"}
	if err := f.SetSheetRow(itemsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write items header: %w", err)
	}
	for i, item := range items {
		row := []any{
			item.Name,
			item.CleanName,
			item.Category,
			item.Quantity,
			moneyCell(item.UnitPrice),
			item.Price.String(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("items cell name: %w", err)
		}
		if err := f.SetSheetRow(itemsSheet, cell, &row); err != nil {
			return fmt.Errorf("write items row: %w", err)
		}
	}
	return nil
}

func moneyCell(m *domain.Money) string {
	if m == nil {
		return ""
	}
	return m.String()
}

func reconDifference(recon domain.ReconciliationResult) any {
	if !recon.Applicable {
		return "n/a"
	}
	return recon.DifferenceCents
}

func reconVerdict(recon domain.ReconciliationResult) string {
	switch {
	case !recon.Applicable:
		return "n/a"
	case recon.WithinTolerance:
		return "yes"
	default:
		return "no"
	}
}
