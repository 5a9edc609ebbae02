// Package ollama implements the line-item categorizer against a local LLM.
// The intelligence is external; callers treat any failure as a signal to use
// the uniform fallback category.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// ClassifyItems sends {name, price, quantity} per item and expects back one
// {clean_name, category} per item, same order and length.
func (c *Client) ClassifyItems(ctx context.Context, items []domain.LineItem) ([]domain.ItemAnnotation, error) {
	respText, err := c.generateJSON(ctx, buildClassificationPrompt(items))
	if err != nil {
		return nil, err
	}

	var annotations []domain.ItemAnnotation
	if err := json.Unmarshal([]byte(extractJSONArray(respText)), &annotations); err != nil {
		return nil, fmt.Errorf("parse classification json: %w", err)
	}
	if len(annotations) != len(items) {
		return nil, fmt.Errorf("classification length mismatch: got %d annotations for %d items", len(annotations), len(items))
	}
	return annotations, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("ollama generate status: %s", resp.Status)
		}
		return fmt.Errorf("ollama generate status: %s: %s", resp.Status, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode generate response: %w", err)
	}
	return nil
}

func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
