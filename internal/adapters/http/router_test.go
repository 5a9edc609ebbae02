package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkoval/receiptwise/internal/config"
	"github.com/dkoval/receiptwise/internal/core/domain"
)

type stubIngestor struct {
	receipt *domain.Receipt
	err     error

	gotFilename string
	gotMimeType string
	gotBody     []byte
}

func (s *stubIngestor) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Receipt, error) {
	s.gotFilename = filename
	s.gotMimeType = mimeType
	s.gotBody, _ = io.ReadAll(body)
	return s.receipt, s.err
}

type stubReader struct {
	receipt *domain.Receipt
	err     error
}

func (s *stubReader) GetByID(context.Context, string) (*domain.Receipt, error) {
	return s.receipt, s.err
}

func newTestRouter(ingestor *stubIngestor, reader *stubReader) http.Handler {
	if ingestor == nil {
		ingestor = &stubIngestor{}
	}
	if reader == nil {
		reader = &stubReader{err: domain.ErrReceiptNotFound}
	}
	// Rate limiting off unless the test opts in.
	return NewRouter(config.Config{}, nil, ingestor, reader).Handler()
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestUploadReceiptAccepted(t *testing.T) {
	ingestor := &stubIngestor{
		receipt: &domain.Receipt{ID: "r1", Status: domain.StatusUploaded},
	}
	handler := newTestRouter(ingestor, nil)

	body, contentType := multipartUpload(t, "dinner.png", []byte{0x89, 'P', 'N', 'G'})
	req := httptest.NewRequest(http.MethodPost, "/v1/receipts", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ingestor.gotFilename != "dinner.png" {
		t.Fatalf("filename = %q", ingestor.gotFilename)
	}

	var got domain.Receipt
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "r1" || got.Status != domain.StatusUploaded {
		t.Fatalf("response = %+v", got)
	}
}

func TestUploadReceiptMissingFile(t *testing.T) {
	handler := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/receipts", strings.NewReader("not multipart"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUploadReceiptUnsupportedFormat(t *testing.T) {
	ingestor := &stubIngestor{
		err: domain.WrapError(domain.ErrUnsupportedFormat, "validate upload", errors.New("only JPEG, PNG and PDF receipts are accepted")),
	}
	handler := newTestRouter(ingestor, nil)

	body, contentType := multipartUpload(t, "notes.txt", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/v1/receipts", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestGetReceiptNotFound(t *testing.T) {
	handler := newTestRouter(nil, &stubReader{err: domain.ErrReceiptNotFound})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/receipts/ghost", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetReceiptIncludesReconciliation(t *testing.T) {
	total := domain.Money(660)
	reader := &stubReader{
		receipt: &domain.Receipt{
			ID:     "r1",
			Status: domain.StatusProcessed,
			Fields: domain.ExtractedFields{Total: &total},
			Items: []domain.LineItem{
				{Name: "Milk", Price: 450, Quantity: 1},
				{Name: "Tax", Price: 210, Quantity: 1},
			},
		},
	}
	handler := newTestRouter(nil, reader)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/receipts/r1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got receiptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Reconciliation.Applicable || !got.Reconciliation.WithinTolerance {
		t.Fatalf("reconciliation = %+v, want applicable match", got.Reconciliation)
	}
	if got.Receipt == nil || got.Receipt.ID != "r1" {
		t.Fatalf("receipt = %+v", got.Receipt)
	}
}

func TestUnknownSubresource(t *testing.T) {
	handler := newTestRouter(nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/receipts/r1/frobnicate", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestEvaluateSplit(t *testing.T) {
	reader := &stubReader{
		receipt: &domain.Receipt{
			ID:     "r1",
			Status: domain.StatusProcessed,
			Items:  []domain.LineItem{{Name: "Pizza", Price: 1000, Quantity: 1}},
		},
	}
	handler := newTestRouter(nil, reader)

	payload := `{"actions":[{"type":"add_participant"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/receipts/r1/split", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got splitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Participants != 2 {
		t.Fatalf("participants = %d, want 2", got.Participants)
	}
	if len(got.Allocations) != 1 || len(got.Allocations[0]) != 2 {
		t.Fatalf("allocations = %+v", got.Allocations)
	}
	if got.Allocations[0][0].Amount != 500 || got.Allocations[0][1].Amount != 500 {
		t.Fatalf("allocations = %+v, want even 500/500", got.Allocations[0])
	}
	if got.GrandTotal != 1000 {
		t.Fatalf("grand total = %v", got.GrandTotal)
	}
}

func TestEvaluateSplitUnknownAction(t *testing.T) {
	handler := newTestRouter(nil, &stubReader{receipt: &domain.Receipt{ID: "r1"}})

	payload := `{"actions":[{"type":"shuffle"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/receipts/r1/split", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEvaluateSplitInvalidJSON(t *testing.T) {
	handler := newTestRouter(nil, &stubReader{receipt: &domain.Receipt{ID: "r1"}})

	req := httptest.NewRequest(http.MethodPost, "/v1/receipts/r1/split", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExportReceiptWorkbook(t *testing.T) {
	reader := &stubReader{
		receipt: &domain.Receipt{
			ID:     "r1",
			Status: domain.StatusProcessed,
			Items:  []domain.LineItem{{Name: "Milk", Price: 450, Quantity: 1}},
		},
	}
	handler := newTestRouter(nil, reader)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/receipts/r1/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheet") {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Fatalf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("empty workbook body")
	}
}

func TestRateLimitOnAPIRoutes(t *testing.T) {
	cfg := config.Config{APIRateLimitRPS: 0.001, APIRateLimitBurst: 1}
	handler := NewRouter(cfg, nil, &stubIngestor{}, &stubReader{err: domain.ErrReceiptNotFound}).Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/receipts/r1", nil))
	if first.Code != http.StatusNotFound {
		t.Fatalf("first request status = %d, want handler reached", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/receipts/r1", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After header")
	}

	// Probes stay exempt from the limiter.
	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", health.Code)
	}
}
