package httpadapter

import (
	"net/http"

	"github.com/dkoval/receiptwise/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrReceiptNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAlreadyProcessing), domain.IsKind(err, domain.ErrAlreadyProcessed):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
