package brackets

import (
	"sort"

	"github.com/Dosada05/bracket-sync/models"
)

// Loser is a defeated team together with the points it scored.
type Loser struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// IsComplete reports whether every match has a winner. An empty round is never complete.
func IsComplete(round *models.Round) bool {
	if round == nil || len(round.Matches) == 0 {
		return false
	}
	for i := range round.Matches {
		if !round.Matches[i].HasWinner() {
			return false
		}
	}
	return true
}

// QualifiedTeams returns the winners in match order.
func QualifiedTeams(round *models.Round) []string {
	if round == nil {
		return nil
	}
	winners := make([]string, 0, len(round.Matches))
	for i := range round.Matches {
		if round.Matches[i].HasWinner() {
			winners = append(winners, round.Matches[i].WinnerName())
		}
	}
	return winners
}

// LosersSorted collects the losers of decided normal matches, best first.
// Equal points keep match order.
func LosersSorted(round *models.Round) []Loser {
	if round == nil {
		return nil
	}
	losers := make([]Loser, 0, len(round.Matches))
	for i := range round.Matches {
		m := &round.Matches[i]
		if m.Type == models.MatchBestLoser {
			continue
		}
		slot, ok := m.Loser()
		if !ok || slot.Points == nil {
			continue
		}
		losers = append(losers, Loser{Name: slot.Name, Points: *slot.Points})
	}
	sort.SliceStable(losers, func(i, j int) bool {
		return losers[i].Points > losers[j].Points
	})
	return losers
}

func HasBestLoserMatch(round *models.Round) bool {
	if round == nil {
		return false
	}
	for i := range round.Matches {
		if round.Matches[i].Type == models.MatchBestLoser {
			return true
		}
	}
	return false
}

// CanAdvance gates next-round generation: the round is complete and the
// qualified count is even, or a best-loser match already evened it out.
func CanAdvance(round *models.Round) bool {
	if !IsComplete(round) {
		return false
	}
	return len(QualifiedTeams(round))%2 == 0 || HasBestLoserMatch(round)
}

// CanOfferBestLoser: complete round, odd qualified count of at least three, no best-loser match yet.
func CanOfferBestLoser(round *models.Round) bool {
	if !IsComplete(round) || HasBestLoserMatch(round) {
		return false
	}
	n := len(QualifiedTeams(round))
	return n%2 == 1 && n >= 3
}

// Step is the next action an operator can take on a round.
type Step string

const (
	StepLocked        Step = "locked"
	StepIncomplete    Step = "incomplete"
	StepEndTournament Step = "end_tournament"
	StepBestLoser     Step = "best_loser"
	StepGenerate      Step = "generate"
)

// NextStep maps the round predicates onto the single action the UI should offer.
// A single qualified team means the tournament is decided rather than paired.
func NextStep(round *models.Round) Step {
	switch {
	case round == nil:
		return StepIncomplete
	case round.IsLocked():
		return StepLocked
	case !IsComplete(round):
		return StepIncomplete
	}
	qualified := len(QualifiedTeams(round))
	switch {
	case qualified == 1 && !HasBestLoserMatch(round):
		return StepEndTournament
	case CanAdvance(round):
		return StepGenerate
	case CanOfferBestLoser(round):
		return StepBestLoser
	default:
		return StepIncomplete
	}
}

// RoundSummary is what a destructive confirmation shows the operator.
type RoundSummary struct {
	Rounds           []string `json:"rounds"`
	Matches          int      `json:"matches"`
	BestLoserMatches int      `json:"bestLoserMatches"`
}

func Summarize(rounds []models.Round) RoundSummary {
	s := RoundSummary{Rounds: make([]string, 0, len(rounds))}
	for i := range rounds {
		s.Rounds = append(s.Rounds, rounds[i].Name)
		s.Matches += len(rounds[i].Matches)
		for j := range rounds[i].Matches {
			if rounds[i].Matches[j].Type == models.MatchBestLoser {
				s.BestLoserMatches++
			}
		}
	}
	return s
}
