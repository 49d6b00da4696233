package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	"github.com/Dosada05/bracket-sync/storage"
)

const DefaultPathTemplate = "data/competition-grade%s.json"

// EventPublisher fans events out to everyone watching a grade.
type EventPublisher interface {
	Publish(grade, eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, string, interface{}) {}

// Archiver keeps a copy of every saved document version.
type Archiver interface {
	Archive(ctx context.Context, grade models.Grade, token models.VersionToken, content []byte, at time.Time) (*storage.UploadResult, error)
}

type SyncConfig struct {
	PathTemplate string
	Grades       []models.Grade
}

type LoadResult struct {
	Document  *models.Competition
	Token     models.VersionToken
	FromCache bool
}

type SyncService struct {
	repo         repositories.DocumentRepository
	cache        *repositories.DocumentCache
	archiver     Archiver
	events       EventPublisher
	pathTemplate string
	grades       []models.Grade
	clock        repositories.Clock
	logger       *slog.Logger
}

func NewSyncService(repo repositories.DocumentRepository, cache *repositories.DocumentCache, archiver Archiver, events EventPublisher, cfg SyncConfig, clock repositories.Clock, logger *slog.Logger) *SyncService {
	if cfg.PathTemplate == "" {
		cfg.PathTemplate = DefaultPathTemplate
	}
	if events == nil {
		events = noopPublisher{}
	}
	if clock == nil {
		clock = repositories.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		repo:         repo,
		cache:        cache,
		archiver:     archiver,
		events:       events,
		pathTemplate: cfg.PathTemplate,
		grades:       slices.Clone(cfg.Grades),
		clock:        clock,
		logger:       logger.With(slog.String("component", "sync")),
	}
}

func (s *SyncService) DocumentPath(grade models.Grade) string {
	return fmt.Sprintf(s.pathTemplate, grade)
}

// Grades lists the configured grades.
func (s *SyncService) Grades() []models.Grade {
	return slices.Clone(s.grades)
}

// KnownGrade accepts any non-empty grade when no grade list is configured.
func (s *SyncService) KnownGrade(grade models.Grade) bool {
	if grade == "" {
		return false
	}
	return len(s.grades) == 0 || slices.Contains(s.grades, grade)
}

// Load returns the grade's document, from the local cache unless force is set.
func (s *SyncService) Load(ctx context.Context, session *Session, grade models.Grade, force bool) (*LoadResult, error) {
	if session == nil {
		return nil, ErrNotAuthenticated
	}
	if !s.KnownGrade(grade) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGrade, grade)
	}

	if !force && s.cache != nil {
		if doc, token, ok := s.cache.Get(ctx, grade); ok {
			s.logger.Debug("document served from cache", slog.String("grade", string(grade)))
			return &LoadResult{Document: doc, Token: token, FromCache: true}, nil
		}
	}

	remote, err := s.repo.Fetch(ctx, session.Credential, s.DocumentPath(grade), force)
	if err != nil {
		return nil, s.mapError(err, grade)
	}
	if s.cache != nil {
		if err := s.cache.Put(ctx, grade, remote.Competition, remote.Token); err != nil {
			s.logger.Warn("failed to cache document", slog.String("grade", string(grade)), slog.Any("error", err))
		}
	}
	s.logger.Info("document loaded",
		slog.String("grade", string(grade)),
		slog.String("version", string(remote.Token)),
		slog.Bool("fresh", force),
	)
	return &LoadResult{Document: remote.Competition, Token: remote.Token}, nil
}

// Save writes doc guarded by the version it was loaded at and returns the new version.
func (s *SyncService) Save(ctx context.Context, session *Session, doc *models.Competition, token models.VersionToken) (models.VersionToken, error) {
	if session == nil {
		return "", ErrNotAuthenticated
	}
	if doc == nil {
		return "", ErrNoDocument
	}
	content, err := doc.Encode()
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	grade := doc.Grade
	message := "Update by President " + session.Admin

	newToken, err := s.repo.Store(ctx, session.Credential, s.DocumentPath(grade), content, message, token)
	if err != nil {
		if errors.Is(err, repositories.ErrVersionConflict) {
			s.logger.Warn("version conflict on save",
				slog.String("grade", string(grade)),
				slog.String("admin", session.Admin),
				slog.String("version", string(token)),
			)
			s.events.Publish(string(grade), brackets.EventConflictDetected, map[string]any{
				"grade": grade,
				"admin": session.Admin,
			})
			return "", fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return "", s.mapError(err, grade)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, grade); err != nil {
			s.logger.Warn("failed to invalidate cache", slog.String("grade", string(grade)), slog.Any("error", err))
		}
	}
	if s.archiver != nil {
		if _, err := s.archiver.Archive(ctx, grade, newToken, content, s.clock.Now()); err != nil {
			s.logger.Warn("failed to archive saved document", slog.String("grade", string(grade)), slog.Any("error", err))
		}
	}
	s.events.Publish(string(grade), brackets.EventDocumentSaved, map[string]any{
		"grade":   grade,
		"admin":   session.Admin,
		"version": newToken,
	})
	s.logger.Info("document saved",
		slog.String("grade", string(grade)),
		slog.String("admin", session.Admin),
		slog.String("version", string(newToken)),
	)
	return newToken, nil
}

func (s *SyncService) mapError(err error, grade models.Grade) error {
	switch repositories.StatusOf(err) {
	case http.StatusNotFound:
		return fmt.Errorf("%w: document for grade %s: %w", ErrNotFound, grade, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	return err
}
