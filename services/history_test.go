package services

import (
	"testing"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryIsBounded(t *testing.T) {
	h := NewHistory(3)
	doc := competition("10", pendingRound(1, 1))
	for i := 0; i < 5; i++ {
		doc.Rounds[0].Matches[0].Schedule.Time = string(rune('a' + i))
		require.NoError(t, h.Snapshot(doc))
	}

	undone := 0
	cur := doc
	for h.CanUndo() {
		prev, ok, err := h.Undo(cur)
		require.NoError(t, err)
		require.True(t, ok)
		cur = prev
		undone++
	}
	assert.Equal(t, 3, undone)
	assert.Equal(t, "c", cur.Rounds[0].Matches[0].Schedule.Time)
}

func TestSnapshotClearsRedo(t *testing.T) {
	h := NewHistory(0)
	doc := competition("10", pendingRound(1, 1))
	require.NoError(t, h.Snapshot(doc))

	_, ok, err := h.Undo(doc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, h.CanRedo())

	require.NoError(t, h.Snapshot(doc))
	assert.False(t, h.CanRedo())

	_, ok, err = h.Redo(doc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUndoStripsBestLoserFromReopenedRound(t *testing.T) {
	h := NewHistory(10)

	r1 := decidedRound(1, 3)
	r1.Matches = append(r1.Matches, models.NewMatch(4, models.MatchBestLoser, "L3", "L2", models.PlaceholderSchedule("Hall")))
	before := competition("10", r1)
	require.NoError(t, h.Snapshot(before))

	after, err := before.Clone()
	require.NoError(t, err)
	after.Rounds[0].Status = models.RoundLocked
	after.Rounds = append(after.Rounds, pendingRound(2, 2))

	restored, ok, err := h.Undo(after)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, restored.Rounds, 1)
	assert.Len(t, restored.Rounds[0].Matches, 3)

	redone, ok, err := h.Redo(restored)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, redone.Rounds, 2)
	assert.Len(t, redone.Rounds[0].Matches, 4)
}

func TestUndoKeepsBestLoserWhenRoundCountUnchanged(t *testing.T) {
	h := NewHistory(10)
	r1 := decidedRound(1, 3)
	r1.Matches = append(r1.Matches, models.NewMatch(4, models.MatchBestLoser, "L3", "L2", models.PlaceholderSchedule("Hall")))
	doc := competition("10", r1)
	require.NoError(t, h.Snapshot(doc))

	restored, ok, err := h.Undo(doc)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, restored.Rounds[0].Matches, 4)
}
