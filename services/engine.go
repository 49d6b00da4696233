package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
	"golang.org/x/sync/errgroup"
)

const DefaultLocation = "Maths Lab"

type EngineConfig struct {
	ScoreRange      models.ScoreRange
	DefaultLocation string
	HistoryDepth    int
	// OverviewConcurrency bounds parallel document reads in Overview.
	OverviewConcurrency int
}

// Engine owns one Workspace per session and the shared services behind them.
// It is built once at startup and exposes no way to replace its collaborators.
type Engine struct {
	sync   *SyncService
	auth   AuthService
	audit  *AuditLogger
	events EventPublisher
	cfg    EngineConfig
	logger *slog.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewEngine(syncSvc *SyncService, auth AuthService, audit *AuditLogger, events EventPublisher, cfg EngineConfig, logger *slog.Logger) *Engine {
	if cfg.ScoreRange == (models.ScoreRange{}) {
		cfg.ScoreRange = models.DefaultScoreRange
	}
	if cfg.DefaultLocation == "" {
		cfg.DefaultLocation = DefaultLocation
	}
	if cfg.HistoryDepth <= 0 {
		cfg.HistoryDepth = DefaultHistoryDepth
	}
	if cfg.OverviewConcurrency <= 0 {
		cfg.OverviewConcurrency = 4
	}
	if events == nil {
		events = noopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		sync:       syncSvc,
		auth:       auth,
		audit:      audit,
		events:     events,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "engine")),
		workspaces: make(map[string]*Workspace),
	}
	// Принудительный выход тоже освобождает рабочее пространство
	auth.OnSessionEnded(e.Drop)
	return e
}

// Workspace returns the session's workspace, creating it on first use.
func (e *Engine) Workspace(session *Session) *Workspace {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ws, ok := e.workspaces[session.ID]; ok {
		return ws
	}
	ws := newWorkspace(e, session)
	e.workspaces[session.ID] = ws
	return ws
}

// Drop forgets a session's workspace, e.g. on logout.
func (e *Engine) Drop(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.workspaces, sessionID)
}

func (e *Engine) ScoreRange() models.ScoreRange {
	return e.cfg.ScoreRange
}

// GradeOverview summarises one grade for the dashboard.
type GradeOverview struct {
	Grade        models.Grade        `json:"grade"`
	Version      models.VersionToken `json:"version,omitempty"`
	Rounds       int                 `json:"rounds"`
	CurrentRound string              `json:"currentRound,omitempty"`
	NextStep     brackets.Step       `json:"nextStep,omitempty"`
	Completed    bool                `json:"completed"`
	Error        string              `json:"error,omitempty"`
}

// Overview reads every configured grade in parallel. A grade that cannot be
// read is reported in its entry; rejected credentials fail the whole call.
func (e *Engine) Overview(ctx context.Context, session *Session) ([]GradeOverview, error) {
	if err := e.auth.Authorize(session, models.RoleLimited); err != nil {
		return nil, err
	}
	grades := e.sync.Grades()
	out := make([]GradeOverview, len(grades))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.OverviewConcurrency)
	for i, grade := range grades {
		i, grade := i, grade
		g.Go(func() error {
			out[i] = GradeOverview{Grade: grade}
			res, err := e.sync.Load(gCtx, session, grade, false)
			if err != nil {
				if errors.Is(err, ErrInvalidCredential) {
					return err
				}
				e.logger.Warn("grade overview failed", slog.String("grade", string(grade)), slog.Any("error", err))
				out[i].Error = err.Error()
				return nil
			}
			out[i] = summarizeGrade(grade, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func summarizeGrade(grade models.Grade, res *LoadResult) GradeOverview {
	doc := res.Document
	ov := GradeOverview{
		Grade:     grade,
		Version:   res.Token,
		Rounds:    len(doc.Rounds),
		Completed: doc.IsCompleted(),
	}
	if last := doc.LastRound(); last != nil {
		ov.CurrentRound = last.Name
		ov.NextStep = brackets.NextStep(last)
	}
	return ov
}

// StructuralLog returns the locally kept structural action log, newest last.
func (e *Engine) StructuralLog(ctx context.Context, session *Session) ([]models.AuditEntry, error) {
	if err := e.auth.Authorize(session, models.RoleLimited); err != nil {
		return nil, err
	}
	return e.audit.List(ctx)
}

// Logout ends the session; its workspace goes with it.
func (e *Engine) Logout(session *Session) {
	e.auth.Logout(session.ID)
}

func (e *Engine) KnownGrade(grade models.Grade) bool {
	return e.sync.KnownGrade(grade)
}
