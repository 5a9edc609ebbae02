// Package textract calls a Textract-compatible expense-analysis endpoint.
// The response shape is the provider's contract; this adapter only moves
// bytes and decodes JSON, all interpretation lives in core/expense.
package textract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkoval/receiptwise/internal/core/domain"
	"github.com/dkoval/receiptwise/internal/core/expense"
	"github.com/dkoval/receiptwise/internal/core/ports"
	"github.com/dkoval/receiptwise/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	storage    ports.ObjectStorage
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, storage ports.ObjectStorage, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		storage:    storage,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Analyze uploads the stored receipt bytes to the analysis endpoint and
// decodes the expense document. An analysis failure is fatal for the current
// processing attempt; the job layer records it and the user may retry.
func (c *Client) Analyze(ctx context.Context, receipt *domain.Receipt) (expense.Document, error) {
	blob, err := c.storage.Open(ctx, receipt.StoragePath)
	if err != nil {
		return expense.Document{}, fmt.Errorf("open stored receipt: %w", err)
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return expense.Document{}, fmt.Errorf("read stored receipt: %w", err)
	}

	var doc expense.Document
	call := func(callCtx context.Context) error {
		var callErr error
		doc, callErr = c.analyzeOnce(callCtx, receipt.MimeType, data)
		return callErr
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "textract.analyze_expense", call, classifyHTTPError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return expense.Document{}, wrapTemporaryIfNeeded("analyze expense", err)
	}
	return doc, nil
}

func (c *Client) analyzeOnce(ctx context.Context, mimeType string, data []byte) (expense.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze-expense", strings.NewReader(string(data)))
	if err != nil {
		return expense.Document{}, fmt.Errorf("create analyze request: %w", err)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return expense.Document{}, fmt.Errorf("textract analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return expense.Document{}, &HTTPStatusError{
			Operation:  "analyze_expense",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var doc expense.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return expense.Document{}, fmt.Errorf("decode analyze response: %w", err)
	}
	return doc, nil
}
