package brackets

import (
	"fmt"
	"testing"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// competitionWithWinners returns a one-round competition whose n matches are
// all won by side A, so the qualified teams are W1..Wn.
func competitionWithWinners(n int) *models.Competition {
	doc := models.NewCompetition("10")
	r := models.NewEmptyRound(1)
	r.Name = "Round 1"
	for i := 1; i <= n; i++ {
		r.Matches = append(r.Matches, scored(i, fmt.Sprintf("W%d", i), 10, fmt.Sprintf("L%d", i), i))
	}
	doc.Rounds = []models.Round{r}
	return doc
}

func pairAll(t *testing.T, p *Pairing, teams []string) {
	t.Helper()
	for i := 0; i < len(teams)/2; i++ {
		require.NoError(t, p.Assign(i, models.SideA, teams[2*i]))
		require.NoError(t, p.Assign(i, models.SideB, teams[2*i+1]))
	}
}

func TestPairingMatchCountMustCoverEveryTeam(t *testing.T) {
	doc := competitionWithWinners(8)
	var p Pairing
	require.NoError(t, p.Begin(doc, 0))
	assert.Equal(t, PairingCollectingCount, p.State())

	err := p.SetMatchCount(3)
	assert.ErrorIs(t, err, ErrInvalidMatchCount)
	assert.Equal(t, PairingCollectingCount, p.State())

	require.NoError(t, p.SetMatchCount(4))
	assert.Equal(t, PairingManual, p.State())
	assert.Len(t, p.View().Slots, 4)
}

func TestPairingBeginRejectsRoundsThatCannotAdvance(t *testing.T) {
	t.Run("incomplete", func(t *testing.T) {
		doc := competitionWithWinners(2)
		doc.Rounds[0].Matches = append(doc.Rounds[0].Matches, pending(3, "X", "Y"))
		var p Pairing
		assert.ErrorIs(t, p.Begin(doc, 0), ErrRoundNotReady)
	})
	t.Run("odd qualified count", func(t *testing.T) {
		var p Pairing
		assert.ErrorIs(t, p.Begin(competitionWithWinners(3), 0), ErrRoundNotReady)
	})
	t.Run("locked", func(t *testing.T) {
		doc := competitionWithWinners(2)
		doc.Rounds[0].Status = models.RoundLocked
		var p Pairing
		assert.ErrorIs(t, p.Begin(doc, 0), ErrRoundNotReady)
	})
	t.Run("out of range", func(t *testing.T) {
		var p Pairing
		assert.ErrorIs(t, p.Begin(competitionWithWinners(2), 4), models.ErrIndexOutOfRange)
	})
}

func TestPairingAssignRejectsDuplicatesAndStrangers(t *testing.T) {
	var p Pairing
	require.NoError(t, p.Begin(competitionWithWinners(4), 0))
	require.NoError(t, p.SetMatchCount(2))

	require.NoError(t, p.Assign(0, models.SideA, "W1"))
	assert.ErrorIs(t, p.Assign(0, models.SideB, "W1"), ErrTeamAlreadyUsed)
	assert.ErrorIs(t, p.Assign(1, models.SideA, "W1"), ErrTeamAlreadyUsed)
	assert.ErrorIs(t, p.Assign(1, models.SideA, "L1"), ErrUnknownTeam)
	assert.ErrorIs(t, p.Assign(2, models.SideA, "W2"), ErrInvalidSlot)
	assert.ErrorIs(t, p.Assign(0, models.Side("C"), "W2"), ErrInvalidSlot)

	// Re-assigning the same slot to the same team is not a duplicate.
	require.NoError(t, p.Assign(0, models.SideA, "W1"))
	require.NoError(t, p.Assign(0, models.SideA, ""))
	require.NoError(t, p.Assign(1, models.SideB, "W1"))
}

func TestPairingOptionsDisableTakenTeams(t *testing.T) {
	var p Pairing
	require.NoError(t, p.Begin(competitionWithWinners(4), 0))
	require.NoError(t, p.SetMatchCount(2))
	require.NoError(t, p.Assign(0, models.SideA, "W1"))
	require.NoError(t, p.Assign(1, models.SideB, "W3"))

	opts, err := p.Options(0, models.SideB)
	require.NoError(t, err)
	assert.Equal(t, []TeamOption{
		{Name: "W1", Disabled: true},
		{Name: "W2", Disabled: false},
		{Name: "W3", Disabled: true},
		{Name: "W4", Disabled: false},
	}, opts)

	// A slot's own team stays selectable.
	opts, err = p.Options(0, models.SideA)
	require.NoError(t, err)
	assert.False(t, opts[0].Disabled)
}

func TestPairingSubmitRequiresEverySlot(t *testing.T) {
	var p Pairing
	require.NoError(t, p.Begin(competitionWithWinners(4), 0))
	require.NoError(t, p.SetMatchCount(2))
	require.NoError(t, p.Assign(0, models.SideA, "W1"))
	require.NoError(t, p.Assign(0, models.SideB, "W2"))
	require.NoError(t, p.Assign(1, models.SideA, "W3"))

	assert.ErrorIs(t, p.Submit(), ErrIncompletePairing)
	assert.Equal(t, PairingManual, p.State())
}

func TestPairingFullWorkflow(t *testing.T) {
	doc := competitionWithWinners(4)
	var p Pairing
	require.NoError(t, p.Begin(doc, 0))
	require.NoError(t, p.SetMatchCount(2))
	pairAll(t, &p, []string{"W1", "W4", "W2", "W3"})

	assert.ErrorIs(t, p.Confirm(), ErrWrongPairingState)
	require.NoError(t, p.Submit())
	require.NoError(t, p.Back())
	assert.Equal(t, PairingManual, p.State())
	require.NoError(t, p.Submit())
	require.NoError(t, p.Confirm())

	_, err := p.Commit(doc, "confirm", "Hall")
	assert.ErrorIs(t, err, ErrPhraseMismatch)
	assert.Len(t, doc.Rounds, 1)
	assert.False(t, doc.Rounds[0].IsLocked())

	round, err := p.Commit(doc, PairingPhrase, "Hall")
	require.NoError(t, err)
	assert.Equal(t, PairingCommitted, p.State())

	require.Len(t, doc.Rounds, 2)
	assert.True(t, doc.Rounds[0].IsLocked())
	assert.Equal(t, round, doc.Rounds[1])
	assert.Equal(t, 2, round.ID)
	assert.Equal(t, "Round 2", round.Name)
	assert.Equal(t, models.RoundActive, round.Status)
	require.Len(t, round.Matches, 2)
	assert.Equal(t, 1, round.Matches[0].ID)
	assert.Equal(t, "W1", round.Matches[0].TeamA.Name)
	assert.Equal(t, "W4", round.Matches[0].TeamB.Name)
	assert.Equal(t, 2, round.Matches[1].ID)
	assert.Equal(t, models.PlaceholderSchedule("Hall"), round.Matches[1].Schedule)
	assert.Nil(t, round.Matches[1].TeamA.Points)
	assert.Nil(t, round.Matches[1].Winner)
}

func TestPairingVerifyDetectsChangedSourceRound(t *testing.T) {
	doc := competitionWithWinners(2)
	var p Pairing
	require.NoError(t, p.Begin(doc, 0))
	require.NoError(t, p.SetMatchCount(1))
	pairAll(t, &p, []string{"W1", "W2"})
	require.NoError(t, p.Submit())
	require.NoError(t, p.Confirm())

	// Another edit flips match 2 to the other team before the phrase is typed.
	hi := 20
	doc.Rounds[0].Matches[1].SetPoints(models.SideB, &hi)

	err := p.Verify(doc, PairingPhrase)
	assert.ErrorIs(t, err, ErrRoundNotReady)
	_, err = p.Commit(doc, PairingPhrase, "Hall")
	assert.ErrorIs(t, err, ErrRoundNotReady)
	assert.Len(t, doc.Rounds, 1)
}

func TestPairingCancelResets(t *testing.T) {
	var p Pairing
	require.NoError(t, p.Begin(competitionWithWinners(2), 0))
	require.NoError(t, p.SetMatchCount(1))
	p.Cancel()
	assert.Equal(t, PairingIdle, p.State())
	assert.Empty(t, p.View().Teams)
}

func TestPairingBeginWhileInProgress(t *testing.T) {
	doc := competitionWithWinners(2)
	var p Pairing
	require.NoError(t, p.Begin(doc, 0))
	assert.ErrorIs(t, p.Begin(doc, 0), ErrWrongPairingState)
}
