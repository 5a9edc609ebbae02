package ports

import (
	"context"
	"io"

	"github.com/dkoval/receiptwise/internal/core/domain"
	"github.com/dkoval/receiptwise/internal/core/expense"
)

// ReceiptRepository persists and reads receipt state.
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *domain.Receipt) error
	GetByID(ctx context.Context, id string) (*domain.Receipt, error)
	// ClaimForProcessing atomically moves an uploaded or failed receipt to
	// processing. It reports ErrAlreadyProcessing / ErrAlreadyProcessed when
	// the receipt is not claimable, closing the race between a status check
	// and a separate status write.
	ClaimForProcessing(ctx context.Context, id string) error
	SaveExtraction(ctx context.Context, id string, fields domain.ExtractedFields, items []domain.LineItem, rawText string) error
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, message string) error
}

// ObjectStorage stores the original uploaded receipt files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes receipt processing events.
type MessageQueue interface {
	PublishReceiptUploaded(ctx context.Context, receiptID string) error
	SubscribeReceiptUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// ExpenseAnalyzer runs OCR expense analysis on a stored receipt.
type ExpenseAnalyzer interface {
	Analyze(ctx context.Context, receipt *domain.Receipt) (expense.Document, error)
}

// ItemClassifier returns a cleaned display name and category per line item.
// Callers fall back to the raw name and the shared fallback category when the
// classifier is unavailable or errors.
type ItemClassifier interface {
	ClassifyItems(ctx context.Context, items []domain.LineItem) ([]domain.ItemAnnotation, error)
}
