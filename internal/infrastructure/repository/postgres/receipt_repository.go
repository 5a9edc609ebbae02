package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

type ReceiptRepository struct {
	db *sql.DB
}

func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ReceiptRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS receipts (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	merchant_name TEXT NOT NULL DEFAULT '',
	total_cents BIGINT,
	subtotal_cents BIGINT,
	tax_cents BIGINT,
	discount_cents BIGINT,
	tip_cents BIGINT,
	fees_cents BIGINT,
	payment_method TEXT NOT NULL DEFAULT '',
	receipt_date TEXT NOT NULL DEFAULT '',
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	line_items JSONB NOT NULL DEFAULT '[]'::jsonb,
	raw_text TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_receipts_status ON receipts(status);
CREATE INDEX IF NOT EXISTS idx_receipts_created_at ON receipts(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ReceiptRepository) Create(ctx context.Context, receipt *domain.Receipt) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO receipts (
	id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		receipt.ID, receipt.Filename, receipt.MimeType, receipt.StoragePath,
		string(receipt.Status), receipt.Error, receipt.CreatedAt, receipt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (r *ReceiptRepository) GetByID(ctx context.Context, id string) (*domain.Receipt, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, status, error_message,
	merchant_name, total_cents, subtotal_cents, tax_cents, discount_cents, tip_cents, fees_cents,
	payment_method, receipt_date, confidence, line_items, raw_text, created_at, updated_at
FROM receipts
WHERE id = $1
`, id)

	var receipt domain.Receipt
	var status string
	var itemsRaw []byte
	var total, subtotal, tax, discount, tip, fees sql.NullInt64

	err := row.Scan(
		&receipt.ID, &receipt.Filename, &receipt.MimeType, &receipt.StoragePath, &status, &receipt.Error,
		&receipt.Fields.MerchantName, &total, &subtotal, &tax, &discount, &tip, &fees,
		&receipt.Fields.PaymentMethod, &receipt.Fields.ReceiptDate, &receipt.Fields.Confidence,
		&itemsRaw, &receipt.RawText, &receipt.CreatedAt, &receipt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReceiptNotFound, "get receipt", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan receipt: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &receipt.Items); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	receipt.Status = domain.ReceiptStatus(status)
	receipt.Fields.Total = nullableMoney(total)
	receipt.Fields.Subtotal = nullableMoney(subtotal)
	receipt.Fields.Tax = nullableMoney(tax)
	receipt.Fields.Discount = nullableMoney(discount)
	receipt.Fields.Tip = nullableMoney(tip)
	receipt.Fields.Fees = nullableMoney(fees)
	return &receipt, nil
}

// ClaimForProcessing is a single conditional UPDATE so two workers racing on
// the same receipt cannot both start work.
func (r *ReceiptRepository) ClaimForProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE receipts
SET status = $2, error_message = '', updated_at = $3
WHERE id = $1 AND status IN ($4, $5)
`, id, string(domain.StatusProcessing), time.Now().UTC(),
		string(domain.StatusUploaded), string(domain.StatusFailed))
	if err != nil {
		return fmt.Errorf("claim receipt: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim receipt rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM receipts WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrReceiptNotFound, "claim receipt", fmt.Errorf("id=%s", id))
		}
		return fmt.Errorf("inspect unclaimable receipt: %w", err)
	}
	switch domain.ReceiptStatus(status) {
	case domain.StatusProcessing:
		return domain.WrapError(domain.ErrAlreadyProcessing, "claim receipt", fmt.Errorf("id=%s", id))
	case domain.StatusProcessed:
		return domain.WrapError(domain.ErrAlreadyProcessed, "claim receipt", fmt.Errorf("id=%s", id))
	default:
		return fmt.Errorf("receipt %s not claimable from status %q", id, status)
	}
}

func (r *ReceiptRepository) SaveExtraction(
	ctx context.Context,
	id string,
	fields domain.ExtractedFields,
	items []domain.LineItem,
	rawText string,
) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal line items: %w", err)
	}
	if items == nil {
		itemsJSON = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
UPDATE receipts
SET merchant_name = $2, total_cents = $3, subtotal_cents = $4, tax_cents = $5,
	discount_cents = $6, tip_cents = $7, fees_cents = $8,
	payment_method = $9, receipt_date = $10, confidence = $11,
	line_items = $12, raw_text = $13, updated_at = $14
WHERE id = $1
`, id, fields.MerchantName,
		moneyValue(fields.Total), moneyValue(fields.Subtotal), moneyValue(fields.Tax),
		moneyValue(fields.Discount), moneyValue(fields.Tip), moneyValue(fields.Fees),
		fields.PaymentMethod, fields.ReceiptDate, fields.Confidence,
		itemsJSON, rawText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return nil
}

func (r *ReceiptRepository) MarkProcessed(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, domain.StatusProcessed, "")
}

func (r *ReceiptRepository) MarkFailed(ctx context.Context, id string, message string) error {
	return r.updateStatus(ctx, id, domain.StatusFailed, message)
}

func (r *ReceiptRepository) updateStatus(ctx context.Context, id string, status domain.ReceiptStatus, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE receipts
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update receipt status: %w", err)
	}
	return nil
}

func nullableMoney(v sql.NullInt64) *domain.Money {
	if !v.Valid {
		return nil
	}
	m := domain.Money(v.Int64)
	return &m
}

func moneyValue(m *domain.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents()
}
