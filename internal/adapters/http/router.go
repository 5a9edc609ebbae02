package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/dkoval/receiptwise/internal/config"
	"github.com/dkoval/receiptwise/internal/core/domain"
	"github.com/dkoval/receiptwise/internal/core/expense"
	"github.com/dkoval/receiptwise/internal/core/ports"
	"github.com/dkoval/receiptwise/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	ingestor ports.ReceiptIngestor
	reader   ports.ReceiptReader
	metrics  *metrics.HTTPServerMetrics
	limiter  *rate.Limiter
}

func NewRouter(
	cfg config.Config,
	httpMetrics *metrics.HTTPServerMetrics,
	ingestor ports.ReceiptIngestor,
	reader ports.ReceiptReader,
) *Router {
	return &Router{
		ingestor: ingestor,
		reader:   reader,
		metrics:  httpMetrics,
		limiter:  newLimiter(cfg.APIRateLimitRPS, cfg.APIRateLimitBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/receipts", rt.uploadReceipt)
	mux.HandleFunc("/v1/receipts/", rt.receiptSubresource)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rt.rateLimitMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	receipt, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status == http.StatusUnprocessableEntity && rt.metrics != nil {
			rt.metrics.RecordUploadReject(serviceName)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(serviceName)
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// receiptSubresource dispatches /v1/receipts/{id}[/items|/split|/export].
func (rt *Router) receiptSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/receipts/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "receipt id is required"})
		return
	}

	switch sub {
	case "":
		rt.getReceipt(w, r, id)
	case "items":
		rt.getItems(w, r, id)
	case "split":
		rt.evaluateSplit(w, r, id)
	case "export":
		rt.exportReceipt(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

type receiptResponse struct {
	Receipt        *domain.Receipt             `json:"receipt"`
	Reconciliation domain.ReconciliationResult `json:"reconciliation"`
}

func (rt *Router) getReceipt(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	receipt, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, receiptResponse{
		Receipt:        receipt,
		Reconciliation: expense.Reconcile(receipt.Items, receipt.Fields.Total),
	})
}

func (rt *Router) getItems(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	receipt, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":          receipt.Items,
		"reconciliation": expense.Reconcile(receipt.Items, receipt.Fields.Total),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
