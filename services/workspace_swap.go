package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Dosada05/bracket-sync/models"
)

// SwitchModeView is the team switch state shown to the operator.
type SwitchModeView struct {
	Active   bool          `json:"active"`
	Round    int           `json:"round"`
	Selected []TeamLocator `json:"selected"`
}

// SwapResult names the two teams that traded places.
type SwapResult struct {
	Round string         `json:"round"`
	TeamA map[string]any `json:"teamA"`
	TeamB map[string]any `json:"teamB"`
}

// ActivateSwitchMode re-verifies the structural challenge and opens team
// selection on one unlocked round.
func (w *Workspace) ActivateSwitchMode(roundIdx int, code string) (SwitchModeView, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return SwitchModeView{}, err
	}
	if err := w.engine.auth.VerifyChallenge(code); err != nil {
		return SwitchModeView{}, err
	}
	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return SwitchModeView{}, err
	}
	round, err := w.doc.RoundAt(roundIdx)
	if err != nil {
		return SwitchModeView{}, err
	}
	if round.IsLocked() {
		return SwitchModeView{}, fmt.Errorf("%w: %s", ErrRoundLocked, round.Name)
	}
	w.swap = switchMode{active: true, round: roundIdx}
	w.logger.Info("team switch mode activated", slog.Int("round_index", roundIdx))
	return w.switchView(), nil
}

func (w *Workspace) ExitSwitchMode() {
	defer w.lock()()
	w.swap = switchMode{}
}

func (w *Workspace) SwitchMode() SwitchModeView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.switchView()
}

func (w *Workspace) switchView() SwitchModeView {
	return SwitchModeView{
		Active:   w.swap.active,
		Round:    w.swap.round,
		Selected: slices.Clone(w.swap.selected),
	}
}

func (w *Workspace) checkLocator(loc TeamLocator) error {
	if !w.swap.active || loc.Round != w.swap.round {
		return ErrSwitchModeInactive
	}
	if !loc.Side.Valid() {
		return fmt.Errorf("%w: side must be A or B", ErrInvalidLocator)
	}
	if _, _, err := w.doc.MatchAt(loc.Round, loc.Match); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidLocator, err)
	}
	return nil
}

// UnlockTeam selects a team slot for swapping. Selecting an already selected
// slot is a no-op.
func (w *Workspace) UnlockTeam(loc TeamLocator) (SwitchModeView, error) {
	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return SwitchModeView{}, err
	}
	if err := w.checkLocator(loc); err != nil {
		return w.switchView(), err
	}
	if slices.Contains(w.swap.selected, loc) {
		return w.switchView(), nil
	}
	if len(w.swap.selected) == 2 {
		return w.switchView(), ErrSwapSelectionFull
	}
	w.swap.selected = append(w.swap.selected, loc)
	return w.switchView(), nil
}

func (w *Workspace) RelockTeam(loc TeamLocator) SwitchModeView {
	defer w.lock()()
	w.swap.selected = slices.DeleteFunc(w.swap.selected, func(l TeamLocator) bool { return l == loc })
	return w.switchView()
}

// ConfirmSwap exchanges the two selected teams and saves immediately. If the
// save fails both slots and the log entry are restored.
func (w *Workspace) ConfirmSwap(ctx context.Context) (*SwapResult, error) {
	if err := w.authorize(models.RoleAbsolute); err != nil {
		return nil, err
	}
	defer w.lock()()

	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	if !w.swap.active {
		return nil, ErrSwitchModeInactive
	}
	if len(w.swap.selected) != 2 {
		return nil, ErrSwapSelectionNotReady
	}
	t1, t2 := w.swap.selected[0], w.swap.selected[1]
	round, m1, err := w.doc.MatchAt(t1.Round, t1.Match)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLocator, err)
	}
	_, m2, err := w.doc.MatchAt(t2.Round, t2.Match)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLocator, err)
	}
	if round.IsLocked() {
		return nil, fmt.Errorf("%w: %s", ErrRoundLocked, round.Name)
	}

	slot1, slot2 := m1.Slot(t1.Side), m2.Slot(t2.Side)
	if slot1.HasPoints() || slot2.HasPoints() || m1.HasWinner() || m2.HasWinner() {
		return nil, ErrSwapNotAllowed
	}

	orig1, orig2 := *slot1, *slot2
	entry := w.engine.audit.Entry(w.session.Admin, ActionTeamSwap, map[string]any{
		"round": round.Name,
		"teamA": map[string]any{"name": orig1.Name, "match": m1.ID, "side": t1.Side},
		"teamB": map[string]any{"name": orig2.Name, "match": m2.ID, "side": t2.Side},
	})
	origLog := slices.Clone(w.doc.StructuralLog)
	rollback := func() {
		*slot1, *slot2 = orig1, orig2
		w.doc.StructuralLog = origLog
	}
	defer guard(w.logger, "team_swap", rollback)

	*slot1, *slot2 = orig2, orig1
	AppendStructural(w.doc, entry)

	if err := w.persist(ctx); err != nil {
		rollback()
		w.logger.Warn("team swap rolled back", slog.Any("error", err))
		return nil, err
	}

	w.engine.audit.Record(ctx, w.doc.Grade, entry)
	w.swap = switchMode{}
	return &SwapResult{
		Round: round.Name,
		TeamA: entry.Details["teamA"].(map[string]any),
		TeamB: entry.Details["teamB"].(map[string]any),
	}, nil
}
