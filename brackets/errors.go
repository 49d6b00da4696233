package brackets

import "errors"

var (
	ErrRoundNotReady       = errors.New("round is not ready to advance")
	ErrInvalidMatchCount   = errors.New("match count does not pair every qualified team")
	ErrInvalidSlot         = errors.New("invalid pairing slot")
	ErrUnknownTeam         = errors.New("team is not qualified for this pairing")
	ErrTeamAlreadyUsed     = errors.New("team is already assigned to another slot")
	ErrIncompletePairing   = errors.New("pairing is incomplete")
	ErrSelfPairing         = errors.New("a team cannot be paired with itself")
	ErrDuplicateTeam       = errors.New("all qualified teams must be paired exactly once")
	ErrWrongPairingState   = errors.New("operation not allowed in the current pairing state")
	ErrPhraseMismatch      = errors.New("confirmation phrase does not match")
	ErrBestLoserExists     = errors.New("round already has a best loser match")
	ErrBestLoserNotAllowed = errors.New("best loser match is not available for this round")
	ErrInvalidLoser        = errors.New("team is not an eligible loser of this round")
)
