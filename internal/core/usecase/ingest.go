package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"github.com/dkoval/receiptwise/internal/core/domain"
	"github.com/dkoval/receiptwise/internal/core/ports"
)

type IngestReceiptUseCase struct {
	repo    ports.ReceiptRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestReceiptUseCase(
	repo ports.ReceiptRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestReceiptUseCase {
	return &IngestReceiptUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestReceiptUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Receipt, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	// Formats the OCR provider would reject are refused here, before any
	// storage or network work, as a user-facing validation error.
	if err := validateFormat(data); err != nil {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "validate upload", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	receipt := &domain.Receipt{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, receipt); err != nil {
		return nil, fmt.Errorf("create receipt metadata: %w", err)
	}

	if err := uc.queue.PublishReceiptUploaded(ctx, receipt.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return receipt, nil
}

var (
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPNG  = []byte{0x89, 'P', 'N', 'G'}
	magicPDF  = []byte("%PDF-")
)

func validateFormat(data []byte) error {
	switch {
	case bytes.HasPrefix(data, magicJPEG), bytes.HasPrefix(data, magicPNG):
		return nil
	case bytes.HasPrefix(data, magicPDF):
		return validatePDF(data)
	default:
		return errors.New("only JPEG, PNG and PDF receipts are accepted")
	}
}

// validatePDF rejects PDFs the analyzer could not read rather than paying
// for a doomed OCR call.
func validatePDF(data []byte) error {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("unreadable pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "receipt.bin"
	}
	return base
}
