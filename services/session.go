package services

import (
	"sync"
	"time"

	"github.com/Dosada05/bracket-sync/models"
)

// Session is the per-login state: the operator credential, display identity
// and the signed role token. It lives for the process lifetime or until logout.
type Session struct {
	ID         string             `json:"id"`
	Admin      string             `json:"admin"`
	Login      string             `json:"login"`
	Role       models.SessionRole `json:"role"`
	Credential string             `json:"-"`
	RoleToken  string             `json:"-"`
	CreatedAt  time.Time          `json:"createdAt"`
}

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	onDelete []func(id string)
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

func (s *SessionStore) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// OnDelete registers fn to run after a session is removed, whatever the reason.
func (s *SessionStore) OnDelete(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	listeners := s.onDelete
	s.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range listeners {
		fn(id)
	}
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
