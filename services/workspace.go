package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
)

// CascadePhrase must be typed verbatim before rounds are deleted.
const CascadePhrase = "CONFIRM REVERT"

// Confirmation carries the descriptive acknowledgement and, where required,
// the typed phrase of a structural action.
type Confirmation struct {
	Acknowledged bool   `json:"acknowledged"`
	Phrase       string `json:"phrase,omitempty"`
}

// TeamLocator addresses one team slot of the loaded document.
type TeamLocator struct {
	Round int         `json:"round"`
	Match int         `json:"match"`
	Side  models.Side `json:"side"`
}

type switchMode struct {
	active   bool
	round    int
	selected []TeamLocator
}

// Workspace is one administrator's editing state: the loaded document, the
// version it was read at, undo history, pairing and team switch selections.
// All methods are safe for concurrent use.
//
// writeMu serialises changes for their whole duration, network step included.
// mu guards the fields; a structural save releases it while the request is in
// flight so that reads keep answering.
type Workspace struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	engine  *Engine
	session *Session
	logger  *slog.Logger

	doc     *models.Competition
	token   models.VersionToken
	loadGen uint64
	saving  bool
	history *History
	pairing brackets.Pairing
	swap    switchMode
}

func newWorkspace(e *Engine, session *Session) *Workspace {
	return &Workspace{
		engine:  e,
		session: session,
		history: NewHistory(e.cfg.HistoryDepth),
		logger: e.logger.With(
			slog.String("admin", session.Admin),
			slog.String("session", session.ID),
		),
	}
}

func (w *Workspace) lock() (unlock func()) {
	w.writeMu.Lock()
	w.mu.Lock()
	return func() {
		w.mu.Unlock()
		w.writeMu.Unlock()
	}
}

func (w *Workspace) authorize(required models.SessionRole) error {
	return w.engine.auth.Authorize(w.session, required)
}

func (w *Workspace) requireDoc() error {
	if w.doc == nil {
		return ErrNoDocument
	}
	return nil
}

// restorePoint captures the document so a panicking structural action can be undone.
func (w *Workspace) restorePoint() func() {
	if w.doc == nil {
		return nil
	}
	before, err := w.doc.Clone()
	if err != nil {
		return nil
	}
	return func() { w.doc = before }
}

func (w *Workspace) resetEditingState() {
	w.history.Reset()
	w.pairing.Cancel()
	w.swap = switchMode{}
}

// Load replaces the workspace document with the grade's document.
func (w *Workspace) Load(ctx context.Context, grade models.Grade, force bool) (*LoadResult, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return nil, err
	}
	res, err := w.engine.sync.Load(ctx, w.session, grade, force)
	if err != nil {
		return nil, err
	}

	defer w.lock()()
	w.doc = res.Document
	w.token = res.Token
	w.loadGen++
	w.resetEditingState()
	return res, nil
}

// Reload forces a remote read of the current grade, discarding local edits.
func (w *Workspace) Reload(ctx context.Context) (*LoadResult, error) {
	w.mu.RLock()
	if w.doc == nil {
		w.mu.RUnlock()
		return nil, ErrNoDocument
	}
	grade := w.doc.Grade
	w.mu.RUnlock()
	return w.Load(ctx, grade, true)
}

// Save publishes the document. The network step runs without holding the
// workspace lock; a second save while one is in flight is rejected.
func (w *Workspace) Save(ctx context.Context) (models.VersionToken, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return "", err
	}

	w.mu.Lock()
	if err := w.requireDoc(); err != nil {
		w.mu.Unlock()
		return "", err
	}
	if w.saving {
		w.mu.Unlock()
		return "", ErrSaveInProgress
	}
	snapshot, err := w.doc.Clone()
	if err != nil {
		w.mu.Unlock()
		return "", err
	}
	base, gen := w.token, w.loadGen
	w.saving = true
	w.mu.Unlock()

	token, err := w.engine.sync.Save(ctx, w.session, snapshot, base)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.saving = false
	if err != nil {
		return "", err
	}
	if gen == w.loadGen {
		w.token = token
	}
	return token, nil
}

// persist saves while the caller holds lock(). Structural actions use it so
// that no other change can interleave between the change and its publication.
// Reads are let through during the network step.
func (w *Workspace) persist(ctx context.Context) error {
	if w.saving {
		return ErrSaveInProgress
	}
	snapshot, err := w.doc.Clone()
	if err != nil {
		return err
	}
	base := w.token
	w.saving = true
	defer func() { w.saving = false }()

	token, err := func() (models.VersionToken, error) {
		w.mu.Unlock()
		defer w.mu.Lock()
		return w.engine.sync.Save(ctx, w.session, snapshot, base)
	}()
	if err != nil {
		return err
	}
	w.token = token
	return nil
}

// unsynced marks a save failure after a change that stays applied locally.
func unsynced(err error) error {
	if errors.Is(err, ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrChangesNotSaved, err)
}

// UpdateScore validates raw and stores it on one side of a match.
func (w *Workspace) UpdateScore(roundIdx, matchIdx int, side models.Side, raw string) (*models.Match, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return nil, err
	}
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side must be A or B", ErrValidationFailed)
	}

	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	round, match, err := w.doc.MatchAt(roundIdx, matchIdx)
	if err != nil {
		return nil, err
	}
	if round.IsLocked() {
		return nil, fmt.Errorf("%w: %s", ErrRoundLocked, round.Name)
	}
	points, err := models.ParseScore(raw, w.engine.cfg.ScoreRange)
	if err != nil {
		return nil, err
	}
	if samePoints(match.Slot(side).Points, points) {
		out := *match
		return &out, nil
	}

	if err := w.history.Snapshot(w.doc); err != nil {
		return nil, err
	}
	match.SetPoints(side, points)
	out := *match
	return &out, nil
}

func samePoints(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// UpdateSchedule sets the date, time or location of a match.
func (w *Workspace) UpdateSchedule(roundIdx, matchIdx int, field, value string) (*models.Match, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return nil, err
	}

	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return nil, err
	}
	round, match, err := w.doc.MatchAt(roundIdx, matchIdx)
	if err != nil {
		return nil, err
	}
	if round.IsLocked() {
		return nil, fmt.Errorf("%w: %s", ErrRoundLocked, round.Name)
	}

	var target *string
	switch strings.ToLower(field) {
	case "date":
		target = &match.Schedule.Date
	case "time":
		target = &match.Schedule.Time
	case "location":
		target = &match.Schedule.Location
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidScheduleField, field)
	}
	if *target == value {
		out := *match
		return &out, nil
	}

	if err := w.history.Snapshot(w.doc); err != nil {
		return nil, err
	}
	*target = value
	out := *match
	return &out, nil
}

func (w *Workspace) Undo() (bool, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return false, err
	}
	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return false, err
	}
	restored, ok, err := w.history.Undo(w.doc)
	if err != nil || !ok {
		return false, err
	}
	w.doc = restored
	return true, nil
}

func (w *Workspace) Redo() (bool, error) {
	if err := w.authorize(models.RoleLimited); err != nil {
		return false, err
	}
	defer w.lock()()
	if err := w.requireDoc(); err != nil {
		return false, err
	}
	restored, ok, err := w.history.Redo(w.doc)
	if err != nil || !ok {
		return false, err
	}
	w.doc = restored
	return true, nil
}
