package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{name: "nil", err: nil},
		{name: "context canceled", err: context.Canceled},
		{name: "wrapped deadline", err: fmt.Errorf("publish: %w", context.DeadlineExceeded)},
		{name: "connection closed", err: nats.ErrConnectionClosed, retryable: true, recordFailure: true},
		{name: "draining", err: nats.ErrConnectionDraining, retryable: true, recordFailure: true},
		{name: "timeout", err: nats.ErrTimeout, retryable: true, recordFailure: true},
		{name: "bad subject", err: nats.ErrBadSubject, recordFailure: true},
		{name: "unknown", err: errors.New("boom"), recordFailure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifyNATSError(tt.err)
			if class.Retryable != tt.retryable {
				t.Fatalf("retryable = %v, want %v", class.Retryable, tt.retryable)
			}
			if class.RecordFailure != tt.recordFailure {
				t.Fatalf("record failure = %v, want %v", class.RecordFailure, tt.recordFailure)
			}
		})
	}
}
