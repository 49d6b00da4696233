package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bracket-sync/brackets"
	"github.com/Dosada05/bracket-sync/handlers"
	"github.com/Dosada05/bracket-sync/middleware"
	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	"github.com/Dosada05/bracket-sync/services"
	"github.com/Dosada05/bracket-sync/utils"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	challenge = "open-sesame"
	president = "President"
)

// memoryDocs stands in for the GitHub contents API.
type memoryDocs struct {
	mu       sync.Mutex
	content  map[string][]byte
	versions map[string]int
}

func (m *memoryDocs) token(path string) models.VersionToken {
	return models.VersionToken(fmt.Sprintf("v%d", m.versions[path]))
}

func (m *memoryDocs) Fetch(_ context.Context, _, path string, _ bool) (*repositories.RemoteDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.content[path]
	if !ok {
		return nil, &repositories.StatusError{Status: http.StatusNotFound, Message: "not found"}
	}
	doc, err := models.DecodeCompetition(data)
	if err != nil {
		return nil, err
	}
	return &repositories.RemoteDocument{Competition: doc, Token: m.token(path), Raw: data}, nil
}

func (m *memoryDocs) Store(_ context.Context, _, path string, content []byte, _ string, token models.VersionToken) (models.VersionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.token(path) {
		return "", fmt.Errorf("%w: %w", repositories.ErrVersionConflict, &repositories.StatusError{Status: http.StatusConflict, Message: "conflict"})
	}
	m.content[path] = append([]byte(nil), content...)
	m.versions[path]++
	return m.token(path), nil
}

func (m *memoryDocs) Identity(_ context.Context, credential string) (string, error) {
	if credential == "revoked" {
		return "", &repositories.StatusError{Status: http.StatusUnauthorized, Message: "bad credentials"}
	}
	return "login-" + credential, nil
}

type server struct {
	router http.Handler
	docs   *memoryDocs
}

func newServer(t *testing.T, loginBurst int) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hash, err := utils.HashSecret(challenge, bcrypt.MinCost)
	require.NoError(t, err)
	signer, err := services.NewRoleTokenSigner("0123456789abcdef-role-secret")
	require.NoError(t, err)

	docs := &memoryDocs{content: map[string][]byte{}, versions: map[string]int{}}
	store := repositories.NewMemoryStore()
	hub := brackets.NewHub(logger)
	authService := services.NewAuthService(docs, signer, services.NewSessionStore(),
		services.AuthConfig{AbsoluteAdmin: president, ChallengeHash: hash}, nil, logger)
	cache := repositories.NewDocumentCache(store, 15*time.Minute, nil, logger)
	syncService := services.NewSyncService(docs, cache, nil, hub,
		services.SyncConfig{Grades: []models.Grade{"10"}}, nil, logger)
	audit := services.NewAuditLogger(repositories.NewStructuralLogRepository(store), nil, hub, nil, logger)
	engine := services.NewEngine(syncService, authService, audit, hub, services.EngineConfig{}, logger)

	router := chi.NewRouter()
	SetupRoutes(router,
		Options{
			Auth:           authService,
			LoginLimiter:   middleware.NewIPRateLimiter(rate.Every(time.Hour), loginBurst),
			AllowedOrigins: []string{"*"},
			Logger:         logger,
		},
		handlers.NewAuthHandler(authService, engine, logger),
		handlers.NewCompetitionHandler(engine, logger),
		handlers.NewRoundHandler(engine, logger),
		handlers.NewPairingHandler(engine, logger),
		handlers.NewSwapHandler(engine, logger),
		handlers.NewWebSocketHandler(hub, engine, []string{"*"}, logger),
	)
	return &server{router: router, docs: docs}
}

func (s *server) seed(t *testing.T, doc *models.Competition) {
	t.Helper()
	data, err := doc.Encode()
	require.NoError(t, err)
	path := fmt.Sprintf(services.DefaultPathTemplate, doc.Grade)
	s.docs.mu.Lock()
	defer s.docs.mu.Unlock()
	s.docs.content[path] = data
	s.docs.versions[path] = 1
}

func (s *server) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *server) login(t *testing.T, admin string) string {
	t.Helper()
	body := map[string]string{"admin": admin, "credential": "ghp_" + admin}
	if admin == president {
		body["code"] = challenge
	}
	rec, out := s.do(t, http.MethodPost, "/auth/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return out["token"].(string)
}

func pendingCompetition() *models.Competition {
	r := models.NewEmptyRound(1)
	r.Matches = append(r.Matches,
		models.NewMatch(1, models.MatchNormal, "Alpha", "Beta", models.PlaceholderSchedule("Hall")),
		models.NewMatch(2, models.MatchNormal, "Gamma", "Delta", models.PlaceholderSchedule("Hall")),
	)
	return &models.Competition{Grade: "10", Rounds: []models.Round{r}}
}

func TestLoadEditSaveFlow(t *testing.T) {
	s := newServer(t, 10)
	s.seed(t, pendingCompetition())
	token := s.login(t, president)

	rec, _ := s.do(t, http.MethodGet, "/competitions/current", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := s.do(t, http.MethodPost, "/competitions/10/load", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	competition := out["competition"].(map[string]any)
	assert.Equal(t, "v1", competition["version"])

	rec, _ = s.do(t, http.MethodPatch, "/rounds/0/matches/0/score", token, map[string]string{"side": "A", "value": "7"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(t, http.MethodPatch, "/rounds/0/matches/0/score", token, map[string]string{"side": "B", "value": "abc"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, out = s.do(t, http.MethodPost, "/competitions/save", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "v2", out["version"])

	saved, err := s.docs.Fetch(context.Background(), "", fmt.Sprintf(services.DefaultPathTemplate, "10"), true)
	require.NoError(t, err)
	require.NotNil(t, saved.Competition.Rounds[0].Matches[0].TeamA.Points)
	assert.Equal(t, 7, *saved.Competition.Rounds[0].Matches[0].TeamA.Points)
}

func TestStaleSaveIsRejectedWithReloadHint(t *testing.T) {
	s := newServer(t, 10)
	s.seed(t, pendingCompetition())
	first := s.login(t, president)
	second := s.login(t, "Deputy")

	for _, token := range []string{first, second} {
		rec, _ := s.do(t, http.MethodPost, "/competitions/10/load?force=true", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	s.do(t, http.MethodPatch, "/rounds/0/matches/0/score", first, map[string]string{"side": "A", "value": "3"})
	rec, _ := s.do(t, http.MethodPost, "/competitions/save", first, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s.do(t, http.MethodPatch, "/rounds/0/matches/1/score", second, map[string]string{"side": "A", "value": "5"})
	rec, out := s.do(t, http.MethodPost, "/competitions/save", second, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, true, out["reload"])
}

func TestStructuralRoutesRequireAbsoluteRole(t *testing.T) {
	s := newServer(t, 10)
	s.seed(t, pendingCompetition())
	token := s.login(t, "Deputy")
	s.do(t, http.MethodPost, "/competitions/10/load", token, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/tournament/end"},
		{http.MethodGet, "/pairing"},
		{http.MethodPost, "/rounds/0/pairing"},
		{http.MethodDelete, "/rounds/0"},
		{http.MethodPost, "/switch-mode/swap"},
	} {
		rec, _ := s.do(t, tc.method, tc.path, token, map[string]bool{"acknowledged": true})
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}

	rec, _ := s.do(t, http.MethodGet, "/rounds/0/delete-preview", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCascadeDeleteOverHTTP(t *testing.T) {
	s := newServer(t, 10)
	doc := pendingCompetition()
	doc.Rounds[0].Status = models.RoundLocked
	next := models.NewEmptyRound(2)
	next.Matches = append(next.Matches, models.NewMatch(1, models.MatchNormal, "Alpha", "Gamma", models.PlaceholderSchedule("Hall")))
	doc.Rounds = append(doc.Rounds, next)
	s.seed(t, doc)

	token := s.login(t, president)
	s.do(t, http.MethodPost, "/competitions/10/load", token, nil)

	rec, _ := s.do(t, http.MethodDelete, "/rounds/1", token, map[string]any{"acknowledged": true, "phrase": "confirm revert"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, out := s.do(t, http.MethodDelete, "/rounds/1", token, map[string]any{"acknowledged": true, "phrase": "CONFIRM REVERT"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := out["result"].(map[string]any)
	assert.Equal(t, "Round 1", result["unlockedRound"])

	rec, out = s.do(t, http.MethodGet, "/audit/structural", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := out["entries"].([]any)
	require.NotEmpty(t, entries)
	assert.Equal(t, services.ActionCascadeDelete, entries[len(entries)-1].(map[string]any)["action"])
}

func TestAuthenticationAndRateLimit(t *testing.T) {
	s := newServer(t, 2)

	rec, _ := s.do(t, http.MethodGet, "/competitions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"admin": "Deputy", "credential": "revoked"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"admin": president, "credential": "ghp", "code": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"admin": "Deputy", "credential": "ghp"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestSessionAndLogout(t *testing.T) {
	s := newServer(t, 10)
	token := s.login(t, "Deputy")

	rec, out := s.do(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.RoleLimited), out["role"])

	rec, _ = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSwaggerSpecIsServed(t *testing.T) {
	s := newServer(t, 1)
	rec, _ := s.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/competitions/{grade}/load")
}
