package services

import (
	"encoding/json"
	"fmt"

	"github.com/Dosada05/bracket-sync/models"
)

const DefaultHistoryDepth = 50

// History keeps bounded undo and redo stacks of full-document snapshots.
// Snapshots are stored encoded so a restored document is byte-identical
// to the one that was captured.
type History struct {
	undo      [][]byte
	redo      [][]byte
	depth     int
	replaying bool
}

func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &History{depth: depth}
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Reset drops both stacks.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

// Snapshot records doc before a mutation and invalidates forward history.
// It is a no-op while an undo or redo is being applied.
func (h *History) Snapshot(doc *models.Competition) error {
	if doc == nil || h.replaying {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("history snapshot: %w", err)
	}
	h.undo = pushBounded(h.undo, data, h.depth)
	h.redo = nil
	return nil
}

// Undo returns the previous document, or ok=false when there is nothing to undo.
// When the restored document has fewer rounds than current and its last round
// is open, best-loser matches on that round are dropped: they were computed for
// a qualification state that no longer exists.
func (h *History) Undo(current *models.Competition) (*models.Competition, bool, error) {
	if current == nil || len(h.undo) == 0 {
		return nil, false, nil
	}
	h.replaying = true
	defer func() { h.replaying = false }()

	cur, err := json.Marshal(current)
	if err != nil {
		return nil, false, fmt.Errorf("history undo: %w", err)
	}
	prev := h.undo[len(h.undo)-1]
	restored, err := models.DecodeCompetition(prev)
	if err != nil {
		return nil, false, fmt.Errorf("history undo: %w", err)
	}

	h.undo = h.undo[:len(h.undo)-1]
	h.redo = pushBounded(h.redo, cur, h.depth)

	if n := len(restored.Rounds); n > 0 && n < len(current.Rounds) {
		if last := restored.LastRound(); !last.IsLocked() {
			last.StripBestLoser()
		}
	}
	return restored, true, nil
}

// Redo mirrors Undo without stripping anything.
func (h *History) Redo(current *models.Competition) (*models.Competition, bool, error) {
	if current == nil || len(h.redo) == 0 {
		return nil, false, nil
	}
	h.replaying = true
	defer func() { h.replaying = false }()

	cur, err := json.Marshal(current)
	if err != nil {
		return nil, false, fmt.Errorf("history redo: %w", err)
	}
	next := h.redo[len(h.redo)-1]
	restored, err := models.DecodeCompetition(next)
	if err != nil {
		return nil, false, fmt.Errorf("history redo: %w", err)
	}

	h.redo = h.redo[:len(h.redo)-1]
	h.undo = pushBounded(h.undo, cur, h.depth)
	return restored, true, nil
}

func pushBounded(stack [][]byte, item []byte, depth int) [][]byte {
	stack = append(stack, item)
	if len(stack) > depth {
		stack = append([][]byte(nil), stack[len(stack)-depth:]...)
	}
	return stack
}
