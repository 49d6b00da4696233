package brackets

import (
	"fmt"

	"github.com/Dosada05/bracket-sync/models"
)

// Pair is one operator-chosen match of the next round.
type Pair struct {
	TeamA string `json:"teamA"`
	TeamB string `json:"teamB"`
}

// BuildRound creates the next active round from validated pairs.
// Matches are numbered from 1 and start with a placeholder schedule.
func BuildRound(id int, pairs []Pair, location string) models.Round {
	round := models.Round{
		ID:      id,
		Name:    fmt.Sprintf("Round %d", id),
		Status:  models.RoundActive,
		Matches: make([]models.Match, 0, len(pairs)),
	}
	for i, p := range pairs {
		round.Matches = append(round.Matches,
			models.NewMatch(i+1, models.MatchNormal, p.TeamA, p.TeamB, models.PlaceholderSchedule(location)))
	}
	return round
}

// BuildBestLoserMatch validates the two chosen losers and returns the tie-break match
// to append to round. The round itself is not modified.
func BuildBestLoserMatch(round *models.Round, teamA, teamB, defaultLocation string) (models.Match, error) {
	if teamA == "" || teamB == "" {
		return models.Match{}, fmt.Errorf("%w: both teams must be selected", ErrInvalidLoser)
	}
	if teamA == teamB {
		return models.Match{}, ErrSelfPairing
	}
	if HasBestLoserMatch(round) {
		return models.Match{}, ErrBestLoserExists
	}
	if !CanOfferBestLoser(round) {
		return models.Match{}, ErrBestLoserNotAllowed
	}

	eligible := make(map[string]bool)
	for _, l := range LosersSorted(round) {
		eligible[l.Name] = true
	}
	for _, name := range []string{teamA, teamB} {
		if !eligible[name] {
			return models.Match{}, fmt.Errorf("%w: %q", ErrInvalidLoser, name)
		}
	}

	location := defaultLocation
	if len(round.Matches) > 0 && round.Matches[0].Schedule.Location != "" {
		location = round.Matches[0].Schedule.Location
	}

	return models.NewMatch(round.MaxMatchID()+1, models.MatchBestLoser, teamA, teamB, models.PlaceholderSchedule(location)), nil
}
