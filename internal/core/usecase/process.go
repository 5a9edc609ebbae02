package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkoval/receiptwise/internal/core/domain"
	"github.com/dkoval/receiptwise/internal/core/expense"
	"github.com/dkoval/receiptwise/internal/core/ports"
)

type ProcessReceiptUseCase struct {
	repo       ports.ReceiptRepository
	analyzer   ports.ExpenseAnalyzer
	classifier ports.ItemClassifier
	rules      expense.Rules

	// OnMismatch, when set, is invoked once per processed receipt whose
	// line-item sum falls outside the total tolerance.
	OnMismatch func()
}

func NewProcessReceiptUseCase(
	repo ports.ReceiptRepository,
	analyzer ports.ExpenseAnalyzer,
	classifier ports.ItemClassifier,
	rules expense.Rules,
) *ProcessReceiptUseCase {
	return &ProcessReceiptUseCase{
		repo:       repo,
		analyzer:   analyzer,
		classifier: classifier,
		rules:      rules,
	}
}

func (uc *ProcessReceiptUseCase) ProcessByID(ctx context.Context, receiptID string) error {
	if err := uc.repo.ClaimForProcessing(ctx, receiptID); err != nil {
		return fmt.Errorf("claim receipt for processing: %w", err)
	}

	if err := uc.processPipeline(ctx, receiptID); err != nil {
		if failErr := uc.repo.MarkFailed(ctx, receiptID, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkProcessed(ctx, receiptID); err != nil {
		return fmt.Errorf("set status=processed: %w", err)
	}
	return nil
}

func (uc *ProcessReceiptUseCase) processPipeline(ctx context.Context, receiptID string) error {
	receipt, err := uc.repo.GetByID(ctx, receiptID)
	if err != nil {
		return fmt.Errorf("fetch receipt by id: %w", err)
	}

	doc, err := uc.analyzer.Analyze(ctx, receipt)
	if err != nil {
		return fmt.Errorf("analyze expense: %w", err)
	}

	// Extraction itself never fails on data quality: partial, missing and
	// malformed fields all resolve to absence or defaults.
	fields := expense.ExtractFields(doc, uc.rules)
	items := expense.BuildLineItems(doc, fields)
	items = uc.annotateItems(ctx, items)

	// The mismatch is advisory: it is surfaced, never a processing failure.
	if recon := expense.Reconcile(items, fields.Total); recon.Applicable && !recon.WithinTolerance {
		slog.Warn("receipt total mismatch",
			"receipt_id", receiptID,
			"calculated_total", recon.CalculatedTotal,
			"extracted_total", *fields.Total,
			"difference_cents", recon.DifferenceCents,
		)
		if uc.OnMismatch != nil {
			uc.OnMismatch()
		}
	}

	if err := uc.repo.SaveExtraction(ctx, receiptID, fields, items, expense.RawText(doc)); err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return nil
}

// annotateItems enriches items through the external classifier. Any failure
// degrades to the uniform fallback: raw name kept, shared fallback category.
func (uc *ProcessReceiptUseCase) annotateItems(ctx context.Context, items []domain.LineItem) []domain.LineItem {
	if len(items) == 0 {
		return items
	}

	annotations := uc.classifyWithFallback(ctx, items)
	for i := range items {
		items[i].CleanName = annotations[i].CleanName
		if annotations[i].Category != "" {
			items[i].Category = annotations[i].Category
		}
	}
	return items
}

func (uc *ProcessReceiptUseCase) classifyWithFallback(ctx context.Context, items []domain.LineItem) []domain.ItemAnnotation {
	if uc.classifier != nil {
		annotations, err := uc.classifier.ClassifyItems(ctx, items)
		if err == nil && len(annotations) == len(items) {
			return annotations
		}
		if err != nil {
			slog.Warn("item classification failed, using fallback", "error", err)
		} else {
			slog.Warn("item classification size mismatch, using fallback",
				"items", len(items), "annotations", len(annotations))
		}
	}

	fallback := make([]domain.ItemAnnotation, len(items))
	for i, item := range items {
		fallback[i] = domain.ItemAnnotation{
			CleanName: item.Name,
			Category:  domain.CategoryOther,
		}
	}
	return fallback
}
