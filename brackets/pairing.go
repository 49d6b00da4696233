package brackets

import (
	"fmt"
	"slices"

	"github.com/Dosada05/bracket-sync/models"
)

// PairingPhrase must be typed verbatim before a generated round is committed.
const PairingPhrase = "CONFIRM"

type PairingState string

const (
	PairingIdle            PairingState = "IDLE"
	PairingCollectingCount PairingState = "COLLECTING_COUNT"
	PairingManual          PairingState = "MANUAL_PAIRING"
	PairingAwaitingConfirm PairingState = "AWAITING_CONFIRMATION"
	PairingAwaitingPhrase  PairingState = "AWAITING_PHRASE"
	PairingCommitted       PairingState = "COMMITTED"
)

// Pairing drives manual construction of the next round from the qualified
// teams of a completed round. The zero value is an idle workflow.
type Pairing struct {
	state      PairingState
	sourceIdx  int
	sourceName string
	teams      []string
	slots      []Pair
}

// TeamOption is one selectable entry of a pairing slot.
type TeamOption struct {
	Name     string `json:"name"`
	Disabled bool   `json:"disabled"`
}

// PairingView is the externally visible state of the workflow.
type PairingView struct {
	State       PairingState `json:"state"`
	SourceRound int          `json:"sourceRound"`
	SourceName  string       `json:"sourceName,omitempty"`
	Teams       []string     `json:"teams,omitempty"`
	Slots       []Pair       `json:"slots,omitempty"`
}

func (p *Pairing) State() PairingState {
	if p.state == "" {
		return PairingIdle
	}
	return p.state
}

func (p *Pairing) View() PairingView {
	return PairingView{
		State:       p.State(),
		SourceRound: p.sourceIdx,
		SourceName:  p.sourceName,
		Teams:       slices.Clone(p.teams),
		Slots:       slices.Clone(p.slots),
	}
}

// Cancel abandons the workflow from any state.
func (p *Pairing) Cancel() {
	*p = Pairing{}
}

// Begin selects the source round. Only the last, unlocked round that can advance qualifies.
func (p *Pairing) Begin(doc *models.Competition, roundIdx int) error {
	if s := p.State(); s != PairingIdle && s != PairingCommitted {
		return fmt.Errorf("%w: pairing already in progress (%s)", ErrWrongPairingState, s)
	}
	round, err := doc.RoundAt(roundIdx)
	if err != nil {
		return err
	}
	if roundIdx != len(doc.Rounds)-1 || round.IsLocked() {
		return fmt.Errorf("%w: only the current round can be advanced", ErrRoundNotReady)
	}
	if !CanAdvance(round) {
		return fmt.Errorf("%w: %s", ErrRoundNotReady, round.Name)
	}
	teams := QualifiedTeams(round)
	if len(teams) < 2 {
		return fmt.Errorf("%w: %d qualified team(s)", ErrRoundNotReady, len(teams))
	}

	*p = Pairing{
		state:      PairingCollectingCount,
		sourceIdx:  roundIdx,
		sourceName: round.Name,
		teams:      teams,
	}
	return nil
}

// SetMatchCount accepts n only when n matches pair every qualified team.
func (p *Pairing) SetMatchCount(n int) error {
	if p.State() != PairingCollectingCount && p.State() != PairingManual {
		return fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
	if n <= 0 || n*2 != len(p.teams) {
		return fmt.Errorf("%w: %d teams require exactly %d matches, got %d",
			ErrInvalidMatchCount, len(p.teams), len(p.teams)/2, n)
	}
	p.slots = make([]Pair, n)
	p.state = PairingManual
	return nil
}

func (p *Pairing) slot(matchIdx int, side models.Side) (*string, error) {
	if matchIdx < 0 || matchIdx >= len(p.slots) || !side.Valid() {
		return nil, fmt.Errorf("%w: match %d side %q", ErrInvalidSlot, matchIdx, side)
	}
	if side == models.SideA {
		return &p.slots[matchIdx].TeamA, nil
	}
	return &p.slots[matchIdx].TeamB, nil
}

// usedElsewhere reports whether team occupies any slot other than (matchIdx, side).
func (p *Pairing) usedElsewhere(team string, matchIdx int, side models.Side) bool {
	for i, s := range p.slots {
		if s.TeamA == team && !(i == matchIdx && side == models.SideA) {
			return true
		}
		if s.TeamB == team && !(i == matchIdx && side == models.SideB) {
			return true
		}
	}
	return false
}

// Assign puts team into a slot. An empty team clears the slot.
func (p *Pairing) Assign(matchIdx int, side models.Side, team string) error {
	if p.State() != PairingManual {
		return fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
	target, err := p.slot(matchIdx, side)
	if err != nil {
		return err
	}
	if team == "" {
		*target = ""
		return nil
	}
	if !slices.Contains(p.teams, team) {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, team)
	}
	if p.usedElsewhere(team, matchIdx, side) {
		return fmt.Errorf("%w: %q", ErrTeamAlreadyUsed, team)
	}
	*target = team
	return nil
}

// Options lists every qualified team for a slot, disabling the ones taken by
// any other slot, including the opposing slot of the same match.
func (p *Pairing) Options(matchIdx int, side models.Side) ([]TeamOption, error) {
	if p.State() != PairingManual {
		return nil, fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
	if _, err := p.slot(matchIdx, side); err != nil {
		return nil, err
	}
	opts := make([]TeamOption, 0, len(p.teams))
	for _, t := range p.teams {
		opts = append(opts, TeamOption{Name: t, Disabled: p.usedElsewhere(t, matchIdx, side)})
	}
	return opts, nil
}

// Submit re-validates the whole assignment and moves to the first confirmation.
func (p *Pairing) Submit() error {
	if p.State() != PairingManual {
		return fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
	if err := p.validate(); err != nil {
		return err
	}
	p.state = PairingAwaitingConfirm
	return nil
}

func (p *Pairing) validate() error {
	used := make(map[string]struct{}, len(p.teams))
	for i, s := range p.slots {
		if s.TeamA == "" || s.TeamB == "" {
			return fmt.Errorf("%w: match %d is incomplete", ErrIncompletePairing, i+1)
		}
		if s.TeamA == s.TeamB {
			return fmt.Errorf("%w: match %d", ErrSelfPairing, i+1)
		}
		used[s.TeamA] = struct{}{}
		used[s.TeamB] = struct{}{}
	}
	if len(used) != len(p.teams) {
		return ErrDuplicateTeam
	}
	for name := range used {
		if !slices.Contains(p.teams, name) {
			return fmt.Errorf("%w: %q", ErrUnknownTeam, name)
		}
	}
	return nil
}

// Confirm records the descriptive confirmation and asks for the typed phrase.
func (p *Pairing) Confirm() error {
	if p.State() != PairingAwaitingConfirm {
		return fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
	p.state = PairingAwaitingPhrase
	return nil
}

// Back returns from a confirmation step to manual pairing.
func (p *Pairing) Back() error {
	switch p.State() {
	case PairingAwaitingConfirm, PairingAwaitingPhrase:
		p.state = PairingManual
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
}

// NextRoundID is the id the committed round will receive.
func NextRoundID(doc *models.Competition) int {
	return len(doc.Rounds) + 1
}

// Verify checks everything Commit needs without mutating doc, including that
// the source round has not changed since the workflow began.
func (p *Pairing) Verify(doc *models.Competition, phrase string) error {
	if p.State() != PairingAwaitingPhrase {
		return fmt.Errorf("%w: %s", ErrWrongPairingState, p.State())
	}
	if phrase != PairingPhrase {
		return ErrPhraseMismatch
	}
	round, err := doc.RoundAt(p.sourceIdx)
	if err != nil {
		return err
	}
	if p.sourceIdx != len(doc.Rounds)-1 || round.IsLocked() || !CanAdvance(round) ||
		!slices.Equal(QualifiedTeams(round), p.teams) {
		return fmt.Errorf("%w: %s changed since pairing started", ErrRoundNotReady, p.sourceName)
	}
	return p.validate()
}

// Commit locks the source round and appends the new one. The caller records
// history before calling it.
func (p *Pairing) Commit(doc *models.Competition, phrase, location string) (models.Round, error) {
	if err := p.Verify(doc, phrase); err != nil {
		return models.Round{}, err
	}
	newRound := BuildRound(NextRoundID(doc), p.slots, location)
	doc.Rounds[p.sourceIdx].Status = models.RoundLocked
	doc.Rounds = append(doc.Rounds, newRound)
	p.state = PairingCommitted
	return newRound, nil
}
