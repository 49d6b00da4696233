package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	"github.com/Dosada05/bracket-sync/utils"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*Session, string, error)
	Logout(sessionID string)
	Resume(token string) (*Session, error)
	Authorize(session *Session, required models.SessionRole) error
	VerifyChallenge(code string) error
	// OnSessionEnded runs fn for every session that ends, by logout or forced.
	OnSessionEnded(fn func(sessionID string))
}

type LoginInput struct {
	Admin      string `json:"admin"`
	Credential string `json:"credential"`
	Code       string `json:"code,omitempty"`
}

// IdentityVerifier resolves an operator credential to the store account it belongs to.
type IdentityVerifier interface {
	Identity(ctx context.Context, credential string) (string, error)
}

type AuthConfig struct {
	AbsoluteAdmin string
	ChallengeHash string
}

type authService struct {
	identity      IdentityVerifier
	signer        *RoleTokenSigner
	sessions      *SessionStore
	absoluteAdmin string
	challengeHash string
	clock         repositories.Clock
	logger        *slog.Logger
}

func NewAuthService(identity IdentityVerifier, signer *RoleTokenSigner, sessions *SessionStore, cfg AuthConfig, clock repositories.Clock, logger *slog.Logger) AuthService {
	if clock == nil {
		clock = repositories.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		identity:      identity,
		signer:        signer,
		sessions:      sessions,
		absoluteAdmin: cfg.AbsoluteAdmin,
		challengeHash: cfg.ChallengeHash,
		clock:         clock,
		logger:        logger.With(slog.String("component", "auth")),
	}
}

// Login validates the credential against the store, maps the identity to a
// role and issues the signed role token used as the bearer token.
func (s *authService) Login(ctx context.Context, input LoginInput) (*Session, string, error) {
	admin := strings.TrimSpace(input.Admin)
	credential := strings.TrimSpace(input.Credential)
	if admin == "" || credential == "" {
		return nil, "", fmt.Errorf("%w: admin name and access token are required", ErrValidationFailed)
	}

	login, err := s.identity.Identity(ctx, credential)
	if err != nil {
		switch repositories.StatusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			s.logger.Warn("credential rejected by document store", slog.String("admin", admin))
			return nil, "", ErrInvalidCredential
		}
		return nil, "", fmt.Errorf("failed to validate credential: %w", err)
	}

	role := models.RoleLimited
	if admin == s.absoluteAdmin {
		if err := s.VerifyChallenge(input.Code); err != nil {
			return nil, "", err
		}
		role = models.RoleAbsolute
	}

	session := &Session{
		ID:         uuid.NewString(),
		Admin:      admin,
		Login:      login,
		Role:       role,
		Credential: credential,
		CreatedAt:  s.clock.Now(),
	}
	token, err := s.signer.Sign(session.ID, admin, role, session.CreatedAt)
	if err != nil {
		return nil, "", err
	}
	session.RoleToken = token
	s.sessions.Put(session)

	s.logger.Info("admin logged in",
		slog.String("admin", admin),
		slog.String("login", login),
		slog.String("role", string(role)),
	)
	return session, token, nil
}

func (s *authService) Logout(sessionID string) {
	s.sessions.Delete(sessionID)
}

func (s *authService) OnSessionEnded(fn func(sessionID string)) {
	s.sessions.OnDelete(fn)
}

// Resume maps a bearer token back to its live session. A token that fails
// verification ends the session it names.
func (s *authService) Resume(token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrNotAuthenticated
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		if sid := unverifiedSessionID(token); sid != "" {
			s.sessions.Delete(sid)
		}
		s.logger.Warn("role token verification failed", slog.Any("error", err))
		return nil, err
	}
	session, ok := s.sessions.Get(claims.SessionID)
	if !ok {
		return nil, ErrNotAuthenticated
	}
	if session.RoleToken != token || session.Role != claims.Role {
		s.sessions.Delete(session.ID)
		s.logger.Warn("role token does not match session", slog.String("admin", session.Admin))
		return nil, ErrSessionTampered
	}
	return session, nil
}

// Authorize re-verifies the stored role token before a privileged action.
func (s *authService) Authorize(session *Session, required models.SessionRole) error {
	if session == nil {
		return ErrNotAuthenticated
	}
	stored, ok := s.sessions.Get(session.ID)
	if !ok {
		return ErrNotAuthenticated
	}
	claims, err := s.signer.Verify(stored.RoleToken)
	if err != nil || claims.SessionID != stored.ID || claims.Role != stored.Role || stored.Role != session.Role {
		s.sessions.Delete(stored.ID)
		s.logger.Warn("session integrity check failed, forcing logout", slog.String("admin", stored.Admin))
		return ErrSessionTampered
	}
	if !claims.Role.Allows(required) {
		return fmt.Errorf("%w: %s required", ErrForbiddenOperation, required)
	}
	return nil
}

// VerifyChallenge compares the structural secret with its salted digest.
func (s *authService) VerifyChallenge(code string) error {
	if code == "" {
		return fmt.Errorf("%w: code is required", ErrChallengeFailed)
	}
	if err := utils.CompareSecret(s.challengeHash, code); err != nil {
		s.logger.Warn("structural challenge failed")
		if errors.Is(err, utils.ErrSecretMismatch) {
			return ErrChallengeFailed
		}
		return fmt.Errorf("%w: %v", ErrChallengeFailed, err)
	}
	return nil
}

func unverifiedSessionID(token string) string {
	claims := &RoleClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	return claims.SessionID
}
