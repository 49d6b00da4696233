package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
)

func (w *Workspace) BeginPairing(roundIdx int) (brackets.PairingView, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return brackets.PairingView{}, err
	}
	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return brackets.PairingView{}, err
	}
	if err := w.pairing.Begin(w.doc, roundIdx); err != nil {
		return brackets.PairingView{}, err
	}
	return w.pairing.View(), nil
}

func (w *Workspace) SetMatchCount(n int) (brackets.PairingView, error) {
	return w.stepPairing(func(p *brackets.Pairing) error { return p.SetMatchCount(n) })
}

func (w *Workspace) AssignTeam(matchIdx int, side models.Side, team string) (brackets.PairingView, error) {
	return w.stepPairing(func(p *brackets.Pairing) error { return p.Assign(matchIdx, side, team) })
}

func (w *Workspace) SubmitPairing() (brackets.PairingView, error) {
	return w.stepPairing((*brackets.Pairing).Submit)
}

func (w *Workspace) ConfirmPairing() (brackets.PairingView, error) {
	return w.stepPairing((*brackets.Pairing).Confirm)
}

func (w *Workspace) PairingBack() (brackets.PairingView, error) {
	return w.stepPairing((*brackets.Pairing).Back)
}

func (w *Workspace) CancelPairing() {
	defer w.lock()()
	w.pairing.Cancel()
}

func (w *Workspace) PairingState() brackets.PairingView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pairing.View()
}

func (w *Workspace) PairingOptions(matchIdx int, side models.Side) ([]brackets.TeamOption, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pairing.Options(matchIdx, side)
}

func (w *Workspace) stepPairing(step func(*brackets.Pairing) error) (brackets.PairingView, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return brackets.PairingView{}, err
	}
	defer w.lock()()
	if err := step(&w.pairing); err != nil {
		return w.pairing.View(), err
	}
	return w.pairing.View(), nil
}

// CommitPairing checks the typed phrase, locks the source round, appends the
// generated round and saves. A failed save keeps the new round locally.
func (w *Workspace) CommitPairing(ctx context.Context, phrase string) (*models.Round, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return nil, err
	}
	defer w.lock()()
	defer guard(w.logger, "commit_pairing", w.restorePoint())

	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	if err := w.pairing.Verify(w.doc, phrase); err != nil {
		return nil, err
	}
	if err := w.history.Snapshot(w.doc); err != nil {
		return nil, err
	}
	round, err := w.pairing.Commit(w.doc, phrase, w.engine.cfg.DefaultLocation)
	if err != nil {
		return nil, err
	}

	entry := w.engine.audit.Entry(w.session.Admin, ActionGenerateRound, map[string]any{
		"roundName": round.Name,
		"matches":   len(round.Matches),
	})
	w.engine.audit.LogStructural(ctx, w.doc, entry)
	w.engine.events.Publish(string(w.doc.Grade), brackets.EventRoundGenerated, map[string]any{
		"round": round.Name,
		"admin": w.session.Admin,
	})

	if err := w.persist(ctx); err != nil {
		w.logger.Warn("generated round not saved", slog.String("round", round.Name), slog.Any("error", err))
		return &round, unsynced(err)
	}
	return &round, nil
}

// CreateBestLoserMatch appends the tie-break match between two losers of an
// odd-qualified round and saves.
func (w *Workspace) CreateBestLoserMatch(ctx context.Context, roundIdx int, teamA, teamB string) (*models.Match, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return nil, err
	}
	defer w.lock()()
	defer guard(w.logger, "best_loser", w.restorePoint())

	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	round, err := w.doc.RoundAt(roundIdx)
	if err != nil {
		return nil, err
	}
	if round.IsLocked() {
		return nil, fmt.Errorf("%w: %s", ErrRoundLocked, round.Name)
	}
	match, err := brackets.BuildBestLoserMatch(round, teamA, teamB, w.engine.cfg.DefaultLocation)
	if err != nil {
		return nil, err
	}

	if err := w.history.Snapshot(w.doc); err != nil {
		return nil, err
	}
	round.Matches = append(round.Matches, match)

	entry := w.engine.audit.Entry(w.session.Admin, ActionBestLoserMatch, map[string]any{
		"roundName": round.Name,
		"teamA":     teamA,
		"teamB":     teamB,
	})
	w.engine.audit.LogStructural(ctx, w.doc, entry)

	if err := w.persist(ctx); err != nil {
		w.logger.Warn("best loser match not saved", slog.Any("error", err))
		return &match, unsynced(err)
	}
	return &match, nil
}

func requireAcknowledged(c Confirmation) error {
	if !c.Acknowledged {
		return ErrConfirmationRequired
	}
	return nil
}

// EndTournament locks the last round and marks the competition completed.
// The change is local until the next save.
func (w *Workspace) EndTournament(ctx context.Context, confirm Confirmation) error {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return err
	}
	if err := requireAcknowledged(confirm); err != nil {
		return err
	}
	defer w.lock()()
	defer guard(w.logger, "end_tournament", w.restorePoint())

	if err := w.requireDoc(); err != nil {
		return err
	}
	last := w.doc.LastRound()
	if last == nil {
		return ErrNoDocument
	}
	if err := w.history.Snapshot(w.doc); err != nil {
		return err
	}
	last.Status = models.RoundLocked
	if w.doc.TournamentStatus != models.TournamentCompleted {
		w.doc.TournamentStatus = models.TournamentCompleted
	}
	w.pairing.Cancel()

	entry := w.engine.audit.Entry(w.session.Admin, ActionEndTournament, map[string]any{
		"roundIndex": len(w.doc.Rounds) - 1,
		"roundName":  last.Name,
	})
	w.engine.audit.LogStructural(ctx, w.doc, entry)
	return nil
}

// UnlockFinalRound reopens the locked last round and clears the completed status.
func (w *Workspace) UnlockFinalRound(ctx context.Context, roundIdx int, confirm Confirmation) error {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return err
	}
	defer w.lock()()
	defer guard(w.logger, "unlock_final_round", w.restorePoint())

	if err := w.requireDoc(); err != nil {
		return err
	}
	round, err := w.doc.RoundAt(roundIdx)
	if err != nil {
		return err
	}
	if roundIdx != len(w.doc.Rounds)-1 {
		return fmt.Errorf("%w: %s", ErrNotFinalRound, round.Name)
	}
	if !round.IsLocked() {
		return fmt.Errorf("%w: %s", ErrRoundNotLocked, round.Name)
	}
	if err := requireAcknowledged(confirm); err != nil {
		return err
	}

	round.Status = models.RoundActive
	w.doc.TournamentStatus = models.TournamentInProgress

	entry := w.engine.audit.Entry(w.session.Admin, ActionUnlockFinalRound, map[string]any{
		"roundIndex": roundIdx,
		"roundName":  round.Name,
	})
	w.engine.audit.LogStructural(ctx, w.doc, entry)
	return nil
}

// DeletePreview describes what cascading from roundIdx would delete.
func (w *Workspace) DeletePreview(roundIdx int) (brackets.RoundSummary, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return brackets.RoundSummary{}, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.requireDoc(); err != nil {
		return brackets.RoundSummary{}, err
	}
	if _, err := w.doc.RoundAt(roundIdx); err != nil {
		return brackets.RoundSummary{}, err
	}
	return brackets.Summarize(w.doc.Rounds[roundIdx:]), nil
}

// CascadeResult reports what a cascade delete removed.
type CascadeResult struct {
	Deleted                      brackets.RoundSummary `json:"deleted"`
	UnlockedRound                string                `json:"unlockedRound,omitempty"`
	RemovedBestLoserFromUnlocked bool                  `json:"removedBestLoserFromUnlocked"`
}

// CascadeDeleteRound deletes roundIdx and every later round, reopens the
// round before it and clears undo history. The result is saved; a failed
// save keeps the deletion locally.
func (w *Workspace) CascadeDeleteRound(ctx context.Context, roundIdx int, confirm Confirmation) (*CascadeResult, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return nil, err
	}
	defer w.lock()()
	defer guard(w.logger, "cascade_delete", w.restorePoint())

	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	round, err := w.doc.RoundAt(roundIdx)
	if err != nil {
		return nil, err
	}
	if round.IsLocked() {
		return nil, fmt.Errorf("%w: %s", ErrRoundLocked, round.Name)
	}
	if err := requireAcknowledged(confirm); err != nil {
		return nil, err
	}
	if confirm.Phrase != CascadePhrase {
		return nil, ErrConfirmationMismatch
	}

	res := &CascadeResult{Deleted: brackets.Summarize(w.doc.Rounds[roundIdx:])}

	w.history.Reset()
	w.pairing.Cancel()
	w.swap = switchMode{}
	w.doc.Rounds = w.doc.Rounds[:roundIdx]

	if roundIdx > 0 {
		prev := &w.doc.Rounds[roundIdx-1]
		if prev.IsLocked() {
			prev.Status = models.RoundActive
			res.UnlockedRound = prev.Name
			res.RemovedBestLoserFromUnlocked = prev.StripBestLoser()
		}
	}
	if len(w.doc.Rounds) == 0 {
		w.doc.Rounds = []models.Round{models.NewEmptyRound(1)}
	}

	var unlocked any
	if res.UnlockedRound != "" {
		unlocked = res.UnlockedRound
	}
	AppendAudit(w.doc, w.engine.audit.Entry(w.session.Admin, AuditCascadeDeleteRounds, map[string]any{
		"deletedRounds":                res.Deleted.Rounds,
		"matchesDeleted":               res.Deleted.Matches,
		"bestLoserMatchesDeleted":      res.Deleted.BestLoserMatches,
		"unlockedRound":                unlocked,
		"removedBestLoserFromUnlocked": res.RemovedBestLoserFromUnlocked,
	}))
	entry := w.engine.audit.Entry(w.session.Admin, ActionCascadeDelete, map[string]any{
		"roundIndex": roundIdx,
	})
	w.engine.audit.LogStructural(ctx, w.doc, entry)

	if err := w.persist(ctx); err != nil {
		w.logger.Warn("cascade delete not saved", slog.Int("round_index", roundIdx), slog.Any("error", err))
		return res, unsynced(err)
	}
	return res, nil
}
