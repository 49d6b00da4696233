package brackets

import (
	"testing"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/stretchr/testify/assert"
)

// scored builds a normal match with both scores recorded.
func scored(id int, a string, pa int, b string, pb int) models.Match {
	m := models.NewMatch(id, models.MatchNormal, a, b, models.PlaceholderSchedule("Lab"))
	m.SetPoints(models.SideA, &pa)
	m.SetPoints(models.SideB, &pb)
	return m
}

func pending(id int, a, b string) models.Match {
	return models.NewMatch(id, models.MatchNormal, a, b, models.PlaceholderSchedule("Lab"))
}

func roundOf(matches ...models.Match) *models.Round {
	r := models.NewEmptyRound(1)
	r.Matches = matches
	return &r
}

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name  string
		round *models.Round
		want  bool
	}{
		{name: "nil round", round: nil, want: false},
		{name: "empty round is never complete", round: roundOf(), want: false},
		{name: "one pending", round: roundOf(scored(1, "A", 3, "B", 1), pending(2, "C", "D")), want: false},
		{name: "tie is undecided", round: roundOf(scored(1, "A", 3, "B", 3)), want: false},
		{name: "all decided", round: roundOf(scored(1, "A", 3, "B", 1), scored(2, "C", 0, "D", 4)), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsComplete(tt.round))
		})
	}
}

func TestQualifiedTeamsKeepsMatchOrder(t *testing.T) {
	r := roundOf(scored(1, "A", 1, "B", 5), pending(2, "C", "D"), scored(3, "E", 9, "F", 2))
	assert.Equal(t, []string{"B", "E"}, QualifiedTeams(r))
}

func TestLosersSorted(t *testing.T) {
	bl := scored(4, "B", 10, "D", 2)
	bl.Type = models.MatchBestLoser
	r := roundOf(
		scored(1, "A", 10, "B", 5),
		scored(2, "C", 1, "D", 7),
		scored(3, "E", 9, "F", 5),
		bl,
	)

	got := LosersSorted(r)
	assert.Equal(t, []Loser{
		{Name: "B", Points: 5},
		{Name: "F", Points: 5},
		{Name: "C", Points: 1},
	}, got)
}

func TestCanAdvance(t *testing.T) {
	even := roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1))
	odd := roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1), scored(3, "E", 2, "F", 1))

	assert.True(t, CanAdvance(even))
	assert.False(t, CanAdvance(odd), "odd qualified count must wait for a best loser match")
	assert.True(t, CanOfferBestLoser(odd))

	bl := scored(4, "B", 3, "D", 1)
	bl.Type = models.MatchBestLoser
	odd.Matches = append(odd.Matches, bl)
	assert.True(t, HasBestLoserMatch(odd))
	assert.True(t, CanAdvance(odd))
	assert.False(t, CanOfferBestLoser(odd))
}

func TestCanAdvanceRequiresDecidedBestLoser(t *testing.T) {
	r := roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1), scored(3, "E", 2, "F", 1))
	bl := pending(4, "B", "D")
	bl.Type = models.MatchBestLoser
	r.Matches = append(r.Matches, bl)
	assert.False(t, CanAdvance(r))
	assert.Equal(t, StepIncomplete, NextStep(r))
}

func TestNextStep(t *testing.T) {
	locked := roundOf(scored(1, "A", 2, "B", 1))
	locked.Status = models.RoundLocked

	tests := []struct {
		name  string
		round *models.Round
		want  Step
	}{
		{name: "locked", round: locked, want: StepLocked},
		{name: "incomplete", round: roundOf(pending(1, "A", "B")), want: StepIncomplete},
		{name: "single winner ends the tournament", round: roundOf(scored(1, "A", 2, "B", 1)), want: StepEndTournament},
		{name: "even winners generate", round: roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1)), want: StepGenerate},
		{name: "odd winners need a best loser", round: roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1), scored(3, "E", 2, "F", 1)), want: StepBestLoser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStep(tt.round))
		})
	}
}

func TestSingleQualifiedTeamOffersEndNotBestLoser(t *testing.T) {
	// A beats B, C had no opponent and did not qualify.
	r := roundOf(scored(1, "A", 2, "B", 1))
	assert.Equal(t, []string{"A"}, QualifiedTeams(r))
	assert.False(t, CanOfferBestLoser(r))
	assert.Equal(t, StepEndTournament, NextStep(r))
}

func TestSummarize(t *testing.T) {
	r1 := roundOf(scored(1, "A", 2, "B", 1), scored(2, "C", 2, "D", 1))
	r1.Name = "Round 1"
	r2 := roundOf(pending(1, "A", "C"))
	r2.Name = "Round 2"
	r2.Matches = append(r2.Matches, models.NewMatch(2, models.MatchBestLoser, "B", "D", models.Schedule{}))

	s := Summarize([]models.Round{*r1, *r2})
	assert.Equal(t, []string{"Round 1", "Round 2"}, s.Rounds)
	assert.Equal(t, 4, s.Matches)
	assert.Equal(t, 1, s.BestLoserMatches)
}
