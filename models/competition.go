package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// TournamentStatus хранится в документе только после завершения турнира.
type TournamentStatus string

const (
	TournamentInProgress TournamentStatus = ""
	TournamentCompleted  TournamentStatus = "completed"
)

type RoundStatus string

const (
	RoundActive RoundStatus = "active"
	RoundLocked RoundStatus = "locked"
)

// VersionToken is the opaque blob revision returned by the remote store.
type VersionToken string

// Grade identifies one competition document. The reference documents store it
// as a JSON number, so digit-only grades are written back as numbers.
type Grade string

func (g Grade) MarshalJSON() ([]byte, error) {
	if g != "" {
		if _, err := strconv.ParseUint(string(g), 10, 64); err == nil {
			return []byte(g), nil
		}
	}
	return json.Marshal(string(g))
}

func (g *Grade) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*g = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*g = Grade(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("grade must be a string or number: %w", err)
	}
	*g = Grade(n.String())
	return nil
}

// Competition is the whole synchronized document for one grade.
type Competition struct {
	Grade            Grade            `json:"grade"`
	Rounds           []Round          `json:"rounds"`
	TournamentStatus TournamentStatus `json:"tournamentStatus,omitempty"`
	StructuralLog    []AuditEntry     `json:"structuralLog,omitempty"`
	AuditLog         []AuditEntry     `json:"auditLog,omitempty"`
}

type Round struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Status  RoundStatus `json:"status"`
	Matches []Match     `json:"matches"`
}

// NewCompetition returns the minimal document: a single empty active Round 1.
func NewCompetition(grade Grade) *Competition {
	return &Competition{
		Grade:  grade,
		Rounds: []Round{NewEmptyRound(1)},
	}
}

func NewEmptyRound(id int) Round {
	return Round{
		ID:      id,
		Name:    fmt.Sprintf("Round %d", id),
		Status:  RoundActive,
		Matches: []Match{},
	}
}

func (r *Round) IsLocked() bool {
	return r.Status == RoundLocked
}

// MaxMatchID returns the largest match id in the round, or 0 for an empty round.
func (r *Round) MaxMatchID() int {
	maxID := 0
	for _, m := range r.Matches {
		if m.ID > maxID {
			maxID = m.ID
		}
	}
	return maxID
}

// StripBestLoser removes best-loser matches and reports whether any were removed.
func (r *Round) StripBestLoser() bool {
	kept := r.Matches[:0]
	removed := false
	for _, m := range r.Matches {
		if m.Type == MatchBestLoser {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	r.Matches = kept
	return removed
}

func (c *Competition) LastRound() *Round {
	if c == nil || len(c.Rounds) == 0 {
		return nil
	}
	return &c.Rounds[len(c.Rounds)-1]
}

// RoundAt returns a pointer into Rounds so callers can mutate in place.
func (c *Competition) RoundAt(idx int) (*Round, error) {
	if c == nil || idx < 0 || idx >= len(c.Rounds) {
		return nil, fmt.Errorf("%w: round index %d", ErrIndexOutOfRange, idx)
	}
	return &c.Rounds[idx], nil
}

func (c *Competition) MatchAt(roundIdx, matchIdx int) (*Round, *Match, error) {
	round, err := c.RoundAt(roundIdx)
	if err != nil {
		return nil, nil, err
	}
	if matchIdx < 0 || matchIdx >= len(round.Matches) {
		return nil, nil, fmt.Errorf("%w: match index %d in round %d", ErrIndexOutOfRange, matchIdx, roundIdx)
	}
	return round, &round.Matches[matchIdx], nil
}

func (c *Competition) IsCompleted() bool {
	return c.TournamentStatus == TournamentCompleted
}

// Clone returns an independent deep copy of the document.
func (c *Competition) Clone() (*Competition, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("clone competition: %w", err)
	}
	var out Competition
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("clone competition: %w", err)
	}
	return &out, nil
}

// Encode renders the document the way it is committed to the remote store.
func (c *Competition) Encode() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// DecodeCompetition parses a document and rejects payloads that are not a competition.
func DecodeCompetition(data []byte) (*Competition, error) {
	var c Competition
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if c.Rounds == nil {
		return nil, fmt.Errorf("%w: missing rounds", ErrMalformedDocument)
	}
	for i := range c.Rounds {
		if c.Rounds[i].Matches == nil {
			c.Rounds[i].Matches = []Match{}
		}
	}
	return &c, nil
}
