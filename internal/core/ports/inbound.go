package ports

import (
	"context"
	"io"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

// ReceiptIngestor is the inbound contract for receipt upload orchestration.
type ReceiptIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Receipt, error)
}

// ReceiptReader is the inbound read model for receipt state.
type ReceiptReader interface {
	GetByID(ctx context.Context, id string) (*domain.Receipt, error)
}

// ReceiptProcessor is the inbound contract for asynchronous receipt
// processing.
type ReceiptProcessor interface {
	ProcessByID(ctx context.Context, receiptID string) error
}
