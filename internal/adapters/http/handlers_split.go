package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dkoval/receiptwise/internal/core/split"
)

// splitActionRequest is the wire form of one splitter action.
type splitActionRequest struct {
	Type        string `json:"type"`
	Index       int    `json:"index"`
	Item        int    `json:"item"`
	Participant int    `json:"participant"`
	Text        string `json:"text"`
}

type splitResponse struct {
	Participants int            `json:"participants"`
	Allocations  [][]split.Cell `json:"allocations"`
	ItemTotals   []float64      `json:"item_totals"`
	GrandTotal   float64        `json:"grand_total"`
}

// evaluateSplit loads the receipt's finalized line items and folds the
// requested action sequence over a fresh split session. Nothing is
// persisted; the caller owns the resulting allocation.
func (rt *Router) evaluateSplit(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Actions []splitActionRequest `json:"actions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	actions := make([]split.Action, 0, len(req.Actions))
	for _, a := range req.Actions {
		action, err := decodeSplitAction(a)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		actions = append(actions, action)
	}

	receipt, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	state := split.New(receipt.Items)
	for i, action := range actions {
		state = split.Apply(state, action)
		if rt.metrics != nil {
			rt.metrics.RecordSplitAction(serviceName, req.Actions[i].Type)
		}
	}

	itemTotals := make([]float64, len(state.Allocations))
	for i := range state.Allocations {
		itemTotals[i] = state.ItemTotal(i)
	}
	writeJSON(w, http.StatusOK, splitResponse{
		Participants: state.Participants,
		Allocations:  state.Allocations,
		ItemTotals:   itemTotals,
		GrandTotal:   state.GrandTotal(),
	})
}

func decodeSplitAction(a splitActionRequest) (split.Action, error) {
	switch a.Type {
	case "recalculate":
		return split.Recalculate{}, nil
	case "add_participant":
		return split.AddParticipant{}, nil
	case "remove_participant":
		return split.RemoveParticipant{Index: a.Index}, nil
	case "edit_cell":
		return split.EditCell{Item: a.Item, Participant: a.Participant, Text: a.Text}, nil
	case "commit_cell":
		return split.CommitCell{Item: a.Item, Participant: a.Participant}, nil
	default:
		return nil, fmt.Errorf("unknown split action %q", a.Type)
	}
}
