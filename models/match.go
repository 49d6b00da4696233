package models

import (
	"fmt"
	"strconv"
	"strings"
)

type MatchType string

const (
	MatchNormal    MatchType = "normal"
	MatchBestLoser MatchType = "best_loser"
)

// Side selects teamA or teamB of a match.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

func (s Side) Opposite() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

type Schedule struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// PlaceholderSchedule is what freshly generated matches carry until an admin edits them.
func PlaceholderSchedule(location string) Schedule {
	return Schedule{Date: "Pending", Time: "TBD", Location: location}
}

type TeamSlot struct {
	Name   string `json:"name"`
	Points *int   `json:"points"`
}

func (t TeamSlot) HasPoints() bool {
	return t.Points != nil
}

type Match struct {
	ID       int       `json:"id"`
	Type     MatchType `json:"type"`
	Schedule Schedule  `json:"schedule"`
	TeamA    TeamSlot  `json:"teamA"`
	TeamB    TeamSlot  `json:"teamB"`
	Winner   *string   `json:"winner"`
}

func NewMatch(id int, typ MatchType, teamA, teamB string, schedule Schedule) Match {
	return Match{
		ID:       id,
		Type:     typ,
		Schedule: schedule,
		TeamA:    TeamSlot{Name: teamA},
		TeamB:    TeamSlot{Name: teamB},
	}
}

func (m *Match) HasWinner() bool {
	return m.Winner != nil && *m.Winner != ""
}

func (m *Match) WinnerName() string {
	if m.Winner == nil {
		return ""
	}
	return *m.Winner
}

func (m *Match) Slot(side Side) *TeamSlot {
	if side == SideA {
		return &m.TeamA
	}
	return &m.TeamB
}

// Loser returns the losing slot of a decided match.
func (m *Match) Loser() (TeamSlot, bool) {
	if !m.HasWinner() {
		return TeamSlot{}, false
	}
	switch *m.Winner {
	case m.TeamA.Name:
		return m.TeamB, true
	case m.TeamB.Name:
		return m.TeamA, true
	}
	return TeamSlot{}, false
}

// SetPoints stores a score and re-derives the winner; the winner is never set directly.
func (m *Match) SetPoints(side Side, points *int) {
	if points != nil {
		p := *points
		points = &p
	}
	m.Slot(side).Points = points
	m.RecomputeWinner()
}

// RecomputeWinner: the higher score wins, ties and missing scores leave no winner.
func (m *Match) RecomputeWinner() {
	a, b := m.TeamA.Points, m.TeamB.Points
	if a == nil || b == nil || *a == *b {
		m.Winner = nil
		return
	}
	name := m.TeamB.Name
	if *a > *b {
		name = m.TeamA.Name
	}
	m.Winner = &name
}

type ScoreRange struct {
	Min int
	Max int
}

var DefaultScoreRange = ScoreRange{Min: 0, Max: 100}

func (r ScoreRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// ParseScore converts operator input into points. Empty input clears the score.
func ParseScore(raw string, rng ScoreRange) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidScore, raw)
	}
	if !rng.Contains(v) {
		return nil, fmt.Errorf("%w: score must be between %d and %d, got %d", ErrScoreOutOfRange, rng.Min, rng.Max, v)
	}
	return &v, nil
}

// MatchState is the display status of a match card.
type MatchState string

const (
	MatchStateLocked     MatchState = "locked"
	MatchStateCompleted  MatchState = "completed"
	MatchStateInProgress MatchState = "in-progress"
	MatchStatePending    MatchState = "pending"
)

func StateOf(m *Match, roundLocked bool) MatchState {
	switch {
	case roundLocked:
		return MatchStateLocked
	case m.HasWinner():
		return MatchStateCompleted
	case m.TeamA.HasPoints() || m.TeamB.HasPoints():
		return MatchStateInProgress
	default:
		return MatchStatePending
	}
}
