package metrics

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/healthz", want: "/healthz"},
		{path: "/v1/receipts", want: "/v1/receipts"},
		{path: "/v1/receipts/5f4c", want: "/v1/receipts/{receipt_id}"},
		{path: "/v1/receipts/5f4c/items", want: "/v1/receipts/{receipt_id}/items"},
		{path: "/v1/receipts/5f4c/split", want: "/v1/receipts/{receipt_id}/split"},
		{path: "/v1/receipts/5f4c/export", want: "/v1/receipts/{receipt_id}/export"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Fatalf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
