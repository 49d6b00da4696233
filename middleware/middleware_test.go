package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeResolver struct {
	ResumeFunc    func(token string) (*services.Session, error)
	AuthorizeFunc func(session *services.Session, required models.SessionRole) error
}

func (f *fakeResolver) Resume(token string) (*services.Session, error) {
	return f.ResumeFunc(token)
}

func (f *fakeResolver) Authorize(session *services.Session, required models.SessionRole) error {
	return f.AuthorizeFunc(session, required)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func echoSession(w http.ResponseWriter, r *http.Request) {
	session, err := SessionFromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = io.WriteString(w, session.Admin)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthenticate(t *testing.T) {
	resolver := &fakeResolver{ResumeFunc: func(token string) (*services.Session, error) {
		switch token {
		case "good":
			return &services.Session{ID: "s1", Admin: "Deputy", Role: models.RoleLimited}, nil
		case "forged":
			return nil, fmt.Errorf("%w: bad signature", services.ErrSessionTampered)
		default:
			return nil, services.ErrNotAuthenticated
		}
	}}
	h := Authenticate(resolver, discard())(http.HandlerFunc(echoSession))

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/competitions/current", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Deputy", rec.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/competitions/10?token=good", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/competitions/current", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, decodeError(t, rec).Logout)
	})

	t.Run("tampered token forces logout", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/competitions/current", nil)
		req.Header.Set("Authorization", "bearer forged")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.True(t, decodeError(t, rec).Logout)
	})
}

func TestRequireRole(t *testing.T) {
	limited := &services.Session{ID: "s2", Admin: "Deputy", Role: models.RoleLimited}
	resolver := &fakeResolver{AuthorizeFunc: func(session *services.Session, required models.SessionRole) error {
		if !session.Role.Allows(required) {
			return fmt.Errorf("%w: %s required", services.ErrForbiddenOperation, required)
		}
		return nil
	}}
	h := RequireRole(resolver, models.RoleAbsolute)(http.HandlerFunc(echoSession))

	req := httptest.NewRequest(http.MethodPost, "/tournament/end", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithSession(req.Context(), limited)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	absolute := &services.Session{ID: "s3", Admin: "President", Role: models.RoleAbsolute}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithSession(req.Context(), absolute)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tournament/end", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPerAddress(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2)
	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5002"))
	assert.Equal(t, http.StatusNoContent, call("10.0.0.2"))
}

func TestIPRateLimiterPrunesIdleEntries(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 1)
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return start }
	for i := 0; i <= cleanupThreshold; i++ {
		limiter.Limiter(fmt.Sprintf("10.1.%d.%d", i/256, i%256))
	}
	require.Equal(t, cleanupThreshold+1, limiter.size())

	limiter.now = func() time.Time { return start.Add(maxIdleAge + time.Minute) }
	limiter.Limiter("192.168.0.1")
	assert.Equal(t, 1, limiter.size())
}
