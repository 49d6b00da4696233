package services

import (
	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
)

type MatchView struct {
	models.Match
	State models.MatchState `json:"state"`
}

type RoundView struct {
	Index    int                `json:"index"`
	ID       int                `json:"id"`
	Name     string             `json:"name"`
	Status   models.RoundStatus `json:"status"`
	NextStep brackets.Step      `json:"nextStep"`
	Matches  []MatchView        `json:"matches"`
}

// WorkspaceView is a read-only copy of the workspace for rendering.
type WorkspaceView struct {
	Grade            models.Grade            `json:"grade"`
	Version          models.VersionToken     `json:"version"`
	TournamentStatus models.TournamentStatus `json:"tournamentStatus,omitempty"`
	Rounds           []RoundView             `json:"rounds"`
	StructuralLog    []models.AuditEntry     `json:"structuralLog,omitempty"`
	AuditLog         []models.AuditEntry     `json:"auditLog,omitempty"`
	CanUndo          bool                    `json:"canUndo"`
	CanRedo          bool                    `json:"canRedo"`
	Saving           bool                    `json:"saving"`
	Pairing          brackets.PairingView    `json:"pairing"`
	SwitchMode       SwitchModeView          `json:"switchMode"`
}

// Current renders the loaded document with per-round advice.
func (w *Workspace) Current() (*WorkspaceView, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	doc, err := w.doc.Clone()
	if err != nil {
		return nil, err
	}

	view := &WorkspaceView{
		Grade:            doc.Grade,
		Version:          w.token,
		TournamentStatus: doc.TournamentStatus,
		Rounds:           make([]RoundView, 0, len(doc.Rounds)),
		StructuralLog:    doc.StructuralLog,
		AuditLog:         doc.AuditLog,
		CanUndo:          w.history.CanUndo(),
		CanRedo:          w.history.CanRedo(),
		Saving:           w.saving,
		Pairing:          w.pairing.View(),
		SwitchMode:       w.switchView(),
	}
	for i := range doc.Rounds {
		r := &doc.Rounds[i]
		rv := RoundView{
			Index:    i,
			ID:       r.ID,
			Name:     r.Name,
			Status:   r.Status,
			NextStep: brackets.NextStep(r),
			Matches:  make([]MatchView, 0, len(r.Matches)),
		}
		for j := range r.Matches {
			rv.Matches = append(rv.Matches, MatchView{
				Match: r.Matches[j],
				State: models.StateOf(&r.Matches[j], r.IsLocked()),
			})
		}
		view.Rounds = append(view.Rounds, rv)
	}
	return view, nil
}

// Document returns a copy of the loaded document.
func (w *Workspace) Document() (*models.Competition, models.VersionToken, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if err := w.requireDoc(); err != nil {
		return nil, "", err
	}
	doc, err := w.doc.Clone()
	return doc, w.token, err
}
