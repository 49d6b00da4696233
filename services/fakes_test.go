package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	"github.com/Dosada05/bracket-sync/storage"
	"github.com/Dosada05/bracket-sync/utils"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret    = "0123456789abcdef-role-secret"
	testChallenge = "open-sesame"
	absoluteAdmin = "President"
	limitedAdmin  = "Deputy"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// fakeDocs is an in-memory document store with GitHub-like version tokens.
type fakeDocs struct {
	mu       sync.Mutex
	content  map[string][]byte
	versions map[string]int
	messages []string
	fetches  int
	stores   int

	// StoreErr, when set, fails the next store and is cleared.
	StoreErr error
	// StoreGate, when set, blocks Store until it is closed.
	StoreGate    chan struct{}
	storeEntered chan struct{}

	IdentityErr error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		content:      make(map[string][]byte),
		versions:     make(map[string]int),
		storeEntered: make(chan struct{}, 1),
	}
}

func (f *fakeDocs) put(t *testing.T, path string, doc *models.Competition) {
	t.Helper()
	data, err := doc.Encode()
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[path] = data
	f.versions[path]++
}

func (f *fakeDocs) get(t *testing.T, path string) *models.Competition {
	t.Helper()
	f.mu.Lock()
	data := f.content[path]
	f.mu.Unlock()
	doc, err := models.DecodeCompetition(data)
	require.NoError(t, err)
	return doc
}

func (f *fakeDocs) token(path string) models.VersionToken {
	return models.VersionToken(fmt.Sprintf("v%d", f.versions[path]))
}

func (f *fakeDocs) counts() (fetches, stores int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches, f.stores
}

func (f *fakeDocs) Fetch(_ context.Context, _, path string, _ bool) (*repositories.RemoteDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	data, ok := f.content[path]
	if !ok {
		return nil, &repositories.StatusError{Status: 404, Message: "not found"}
	}
	doc, err := models.DecodeCompetition(data)
	if err != nil {
		return nil, err
	}
	return &repositories.RemoteDocument{Competition: doc, Token: f.token(path), Raw: data}, nil
}

func (f *fakeDocs) Store(_ context.Context, _, path string, content []byte, message string, token models.VersionToken) (models.VersionToken, error) {
	f.mu.Lock()
	gate := f.StoreGate
	f.mu.Unlock()
	if gate != nil {
		f.storeEntered <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if err := f.StoreErr; err != nil {
		f.StoreErr = nil
		return "", err
	}
	if _, ok := f.content[path]; ok && token != f.token(path) {
		return "", fmt.Errorf("%w: %w", repositories.ErrVersionConflict, &repositories.StatusError{Status: 409, Message: "conflict"})
	}
	f.content[path] = append([]byte(nil), content...)
	f.versions[path]++
	f.messages = append(f.messages, message)
	return f.token(path), nil
}

func (f *fakeDocs) Identity(_ context.Context, credential string) (string, error) {
	if f.IdentityErr != nil {
		return "", f.IdentityErr
	}
	return "login-" + credential, nil
}

type publishedEvent struct {
	Grade string
	Type  string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(grade, eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Grade: grade, Type: eventType})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingArchiver struct {
	mu     sync.Mutex
	tokens []models.VersionToken
}

func (a *recordingArchiver) Archive(_ context.Context, grade models.Grade, token models.VersionToken, _ []byte, at time.Time) (*storage.UploadResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = append(a.tokens, token)
	return &storage.UploadResult{Key: storage.ArchiveKey(grade, token, at)}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (n *recordingNotifier) NotifyStructural(_ context.Context, _ models.Grade, entry models.AuditEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, entry.Action)
}

type harness struct {
	docs     *fakeDocs
	store    repositories.KeyValueStore
	durable  repositories.StructuralLogRepository
	sessions *SessionStore
	auth     AuthService
	sync     *SyncService
	engine   *Engine
	events   *recordingPublisher
	archive  *recordingArchiver
	notifier *recordingNotifier
}

func newHarness(t *testing.T, grades ...models.Grade) *harness {
	t.Helper()
	hash, err := utils.HashSecret(testChallenge, bcrypt.MinCost)
	require.NoError(t, err)
	signer, err := NewRoleTokenSigner(testSecret)
	require.NoError(t, err)

	clock := &fixedClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	logger := discardLogger()
	h := &harness{
		docs:     newFakeDocs(),
		store:    repositories.NewMemoryStore(),
		sessions: NewSessionStore(),
		events:   &recordingPublisher{},
		archive:  &recordingArchiver{},
		notifier: &recordingNotifier{},
	}
	h.durable = repositories.NewStructuralLogRepository(h.store)
	h.auth = NewAuthService(h.docs, signer, h.sessions, AuthConfig{AbsoluteAdmin: absoluteAdmin, ChallengeHash: hash}, clock, logger)
	cache := repositories.NewDocumentCache(h.store, 15*time.Minute, clock, logger)
	h.sync = NewSyncService(h.docs, cache, h.archive, h.events, SyncConfig{Grades: grades}, clock, logger)
	audit := NewAuditLogger(h.durable, h.notifier, h.events, clock, logger)
	h.engine = NewEngine(h.sync, h.auth, audit, h.events, EngineConfig{}, logger)
	return h
}

func (h *harness) login(t *testing.T, admin string) *Session {
	t.Helper()
	in := LoginInput{Admin: admin, Credential: "ghp_" + admin}
	if admin == absoluteAdmin {
		in.Code = testChallenge
	}
	session, _, err := h.auth.Login(context.Background(), in)
	require.NoError(t, err)
	return session
}

func (h *harness) hasWorkspace(sessionID string) bool {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	_, ok := h.engine.workspaces[sessionID]
	return ok
}

func (h *harness) path(grade models.Grade) string {
	return h.sync.DocumentPath(grade)
}

// loaded seeds doc for its grade and returns a workspace of admin with it loaded.
func (h *harness) loaded(t *testing.T, admin string, doc *models.Competition) *Workspace {
	t.Helper()
	h.docs.put(t, h.path(doc.Grade), doc)
	ws := h.engine.Workspace(h.login(t, admin))
	_, err := ws.Load(context.Background(), doc.Grade, true)
	require.NoError(t, err)
	return ws
}

func pts(v int) *int { return &v }

// decidedRound returns a round of n matches where team A of every match won.
func decidedRound(id, n int) models.Round {
	r := models.NewEmptyRound(id)
	for i := 0; i < n; i++ {
		m := models.NewMatch(i+1, models.MatchNormal,
			fmt.Sprintf("W%d", i+1), fmt.Sprintf("L%d", i+1), models.Schedule{Date: "Mon", Time: "10:00", Location: "Hall"})
		m.SetPoints(models.SideA, pts(10+i))
		m.SetPoints(models.SideB, pts(i))
		r.Matches = append(r.Matches, m)
	}
	return r
}

// pendingRound returns a round of n unscored matches.
func pendingRound(id, n int) models.Round {
	r := models.NewEmptyRound(id)
	for i := 0; i < n; i++ {
		r.Matches = append(r.Matches, models.NewMatch(i+1, models.MatchNormal,
			fmt.Sprintf("T%d", 2*i+1), fmt.Sprintf("T%d", 2*i+2), models.PlaceholderSchedule("Hall")))
	}
	return r
}

func competition(grade models.Grade, rounds ...models.Round) *models.Competition {
	return &models.Competition{Grade: grade, Rounds: rounds}
}
