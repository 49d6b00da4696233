package brackets

import (
	"testing"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oddRound() *models.Round {
	r := roundOf(
		scored(1, "A", 10, "B", 7),
		scored(2, "C", 9, "D", 3),
		scored(3, "E", 8, "F", 7),
	)
	r.Matches[0].Schedule.Location = "Gym"
	return r
}

func TestBuildRound(t *testing.T) {
	r := BuildRound(3, []Pair{{TeamA: "A", TeamB: "B"}, {TeamA: "C", TeamB: "D"}}, "Maths Lab")

	assert.Equal(t, 3, r.ID)
	assert.Equal(t, "Round 3", r.Name)
	assert.Equal(t, models.RoundActive, r.Status)
	require.Len(t, r.Matches, 2)
	for i, m := range r.Matches {
		assert.Equal(t, i+1, m.ID)
		assert.Equal(t, models.MatchNormal, m.Type)
		assert.Equal(t, "Pending", m.Schedule.Date)
		assert.Equal(t, "TBD", m.Schedule.Time)
		assert.Equal(t, "Maths Lab", m.Schedule.Location)
	}
}

func TestBuildBestLoserMatch(t *testing.T) {
	r := oddRound()

	m, err := BuildBestLoserMatch(r, "B", "F", "Maths Lab")
	require.NoError(t, err)
	assert.Equal(t, 4, m.ID)
	assert.Equal(t, models.MatchBestLoser, m.Type)
	assert.Equal(t, "B", m.TeamA.Name)
	assert.Equal(t, "F", m.TeamB.Name)
	assert.Equal(t, "Gym", m.Schedule.Location, "location follows the first match")
	assert.Len(t, r.Matches, 3, "round is not modified")
}

func TestBuildBestLoserMatchValidation(t *testing.T) {
	tests := []struct {
		name    string
		round   func() *models.Round
		a, b    string
		wantErr error
	}{
		{name: "missing team", round: oddRound, a: "B", b: "", wantErr: ErrInvalidLoser},
		{name: "same team", round: oddRound, a: "B", b: "B", wantErr: ErrSelfPairing},
		{name: "winner is not a loser", round: oddRound, a: "A", b: "B", wantErr: ErrInvalidLoser},
		{
			name: "even round",
			round: func() *models.Round {
				return roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1))
			},
			a: "B", b: "D", wantErr: ErrBestLoserNotAllowed,
		},
		{
			name: "already has one",
			round: func() *models.Round {
				r := oddRound()
				bl := pending(4, "B", "F")
				bl.Type = models.MatchBestLoser
				r.Matches = append(r.Matches, bl)
				return r
			},
			a: "B", b: "D", wantErr: ErrBestLoserExists,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBestLoserMatch(tt.round(), tt.a, tt.b, "Maths Lab")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBestLoserMatchEnablesGeneration(t *testing.T) {
	r := oddRound()
	assert.Equal(t, StepBestLoser, NextStep(r))

	m, err := BuildBestLoserMatch(r, "B", "F", "Maths Lab")
	require.NoError(t, err)
	r.Matches = append(r.Matches, m)
	assert.Equal(t, StepIncomplete, NextStep(r))

	seven, five := 7, 5
	r.Matches[3].SetPoints(models.SideA, &seven)
	r.Matches[3].SetPoints(models.SideB, &five)
	assert.Equal(t, StepGenerate, NextStep(r))
	assert.Equal(t, []string{"A", "C", "E", "B"}, QualifiedTeams(r))
}
