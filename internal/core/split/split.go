// Package split divides each line item's cost across N participants with
// support for manual per-person overrides. The whole package is a pure state
// machine: the hosting surface folds actions over a state and renders the
// result, nothing here is persisted.
package split

import "github.com/dkoval/receiptwise/internal/core/domain"

// Cell is one participant's share of one line item, in fractional cents.
// Draft holds uncommitted free-text input verbatim, including transient
// states like a lone "-" while typing.
type Cell struct {
	Amount float64 `json:"amount"`
	Draft  string  `json:"draft,omitempty"`
}

// State holds the allocation matrix for a receipt-review session. After any
// Recalculate or CommitCell the per-item invariant holds: the cells of item i
// sum to Items[i].Price, within one cent of rounding per slot.
type State struct {
	Items        []domain.LineItem `json:"items"`
	Participants int               `json:"participants"`
	// Allocations[i][p] is participant p's share of item i.
	Allocations [][]Cell `json:"allocations"`
}

type Action interface{ isAction() }

// Recalculate resets every item to an even split across the current
// participant count. This is the canonical "reset to fair split".
type Recalculate struct{}

// AddParticipant grows the table by one participant and re-splits evenly;
// prior absolute amounts are not kept when someone joins.
type AddParticipant struct{}

// RemoveParticipant redistributes the removed participant's share of every
// item evenly across the remaining participants, preserving item totals.
// A no-op when only one participant remains.
type RemoveParticipant struct{ Index int }

// EditCell stores in-progress input verbatim without redistribution.
type EditCell struct {
	Item        int
	Participant int
	Text        string
}

// CommitCell finalizes an edited cell: if the draft parses, the remainder of
// the item's price is divided evenly across the other participants so the
// per-item invariant is restored while the edited share stays pinned.
type CommitCell struct {
	Item        int
	Participant int
}

func (Recalculate) isAction()       {}
func (AddParticipant) isAction()    {}
func (RemoveParticipant) isAction() {}
func (EditCell) isAction()          {}
func (CommitCell) isAction()        {}

// New builds the initial state for a finalized line-item list: a single
// participant owning every item in full.
func New(items []domain.LineItem) State {
	s := State{Items: items, Participants: 1}
	return recalculate(s)
}

// Apply is the pure state transition. Unknown or out-of-range actions leave
// the state unchanged.
func Apply(s State, action Action) State {
	switch a := action.(type) {
	case Recalculate:
		return recalculate(s)
	case AddParticipant:
		s.Participants++
		return recalculate(s)
	case RemoveParticipant:
		return removeParticipant(s, a.Index)
	case EditCell:
		return editCell(s, a)
	case CommitCell:
		return commitCell(s, a)
	default:
		return s
	}
}

func recalculate(s State) State {
	if s.Participants < 1 {
		s.Participants = 1
	}
	alloc := make([][]Cell, len(s.Items))
	for i, item := range s.Items {
		share := float64(item.Price.Cents()) / float64(s.Participants)
		row := make([]Cell, s.Participants)
		for p := range row {
			row[p] = Cell{Amount: share}
		}
		alloc[i] = row
	}
	s.Allocations = alloc
	return s
}

func removeParticipant(s State, index int) State {
	if s.Participants <= 1 || index < 0 || index >= s.Participants {
		return s
	}
	remaining := s.Participants - 1
	alloc := make([][]Cell, len(s.Allocations))
	for i, row := range s.Allocations {
		removedShare := row[index].Amount / float64(remaining)
		next := make([]Cell, 0, remaining)
		for p, cell := range row {
			if p == index {
				continue
			}
			next = append(next, Cell{Amount: cell.Amount + removedShare})
		}
		alloc[i] = next
	}
	s.Participants = remaining
	s.Allocations = alloc
	return s
}

func editCell(s State, a EditCell) State {
	if !s.inRange(a.Item, a.Participant) {
		return s
	}
	s.Allocations = cloneAllocations(s.Allocations)
	s.Allocations[a.Item][a.Participant].Draft = a.Text
	return s
}

func commitCell(s State, a CommitCell) State {
	if !s.inRange(a.Item, a.Participant) {
		return s
	}
	s.Allocations = cloneAllocations(s.Allocations)
	row := s.Allocations[a.Item]
	draft := row[a.Participant].Draft
	row[a.Participant].Draft = ""

	edited, ok := domain.ParseCurrency(draft)
	if !ok {
		// Invalid commits discard the draft and change nothing.
		return s
	}
	price := float64(s.Items[a.Item].Price.Cents())
	if s.Participants == 1 {
		// Nobody to absorb a remainder; the sole participant owns the item.
		row[0] = Cell{Amount: price}
		return s
	}

	row[a.Participant].Amount = float64(edited.Cents())
	rest := (price - float64(edited.Cents())) / float64(s.Participants-1)
	for p := range row {
		if p != a.Participant {
			row[p] = Cell{Amount: rest}
		}
	}
	return s
}

// ItemTotal is the sum of all participant shares for one item.
func (s State) ItemTotal(item int) float64 {
	if item < 0 || item >= len(s.Allocations) {
		return 0
	}
	var total float64
	for _, cell := range s.Allocations[item] {
		total += cell.Amount
	}
	return total
}

// GrandTotal sums every participant share of every item. Outside of an
// uncommitted edit it matches the sum of the item prices, up to per-slot
// rounding.
func (s State) GrandTotal() float64 {
	var total float64
	for i := range s.Allocations {
		total += s.ItemTotal(i)
	}
	return total
}

func (s State) inRange(item, participant int) bool {
	return item >= 0 && item < len(s.Allocations) &&
		participant >= 0 && participant < s.Participants
}

func cloneAllocations(alloc [][]Cell) [][]Cell {
	out := make([][]Cell, len(alloc))
	for i, row := range alloc {
		next := make([]Cell, len(row))
		copy(next, row)
		out[i] = next
	}
	return out
}
