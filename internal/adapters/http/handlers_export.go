package httpadapter

import (
	"fmt"
	"net/http"

	"github.com/dkoval/receiptwise/internal/core/expense"
	"github.com/dkoval/receiptwise/internal/infrastructure/export/xlsx"
)

func (rt *Router) exportReceipt(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	receipt, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	workbook, err := xlsx.BuildWorkbook(receipt, expense.Reconcile(receipt.Items, receipt.Fields.Total))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "receipt_"+id+".xlsx"))
	if err := workbook.Write(w); err != nil {
		// Headers are already out; nothing left to do but log upstream.
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName)
	}
}
