package services

import (
	"context"
	"testing"

	"github.com/Dosada05/bracket-sync/models"
	"github.com/Dosada05/bracket-sync/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentPath(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, "data/competition-grade10.json", h.sync.DocumentPath("10"))

	custom := NewSyncService(h.docs, nil, nil, nil, SyncConfig{PathTemplate: "brackets/%s.json"}, nil, discardLogger())
	assert.Equal(t, "brackets/7.json", custom.DocumentPath("7"))
}

func TestKnownGrade(t *testing.T) {
	open := NewSyncService(nil, nil, nil, nil, SyncConfig{}, nil, nil)
	assert.True(t, open.KnownGrade("11"))
	assert.False(t, open.KnownGrade(""))

	fixed := NewSyncService(nil, nil, nil, nil, SyncConfig{Grades: []models.Grade{"9", "10"}}, nil, nil)
	assert.True(t, fixed.KnownGrade("10"))
	assert.False(t, fixed.KnownGrade("11"))
}

func TestSyncRequiresSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.sync.Load(context.Background(), nil, "10", false)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	_, err = h.sync.Save(context.Background(), nil, competition("10"), "v1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSyncSaveWithoutCacheOrArchive(t *testing.T) {
	docs := newFakeDocs()
	svc := NewSyncService(docs, nil, nil, nil, SyncConfig{}, nil, discardLogger())
	session := &Session{ID: "s", Admin: "Ana", Credential: "ghp_x"}

	token, err := svc.Save(context.Background(), session, models.NewCompetition("8"), "")
	require.NoError(t, err)
	assert.Equal(t, models.VersionToken("v1"), token)
	assert.Equal(t, []string{"Update by President Ana"}, docs.messages)

	res, err := svc.Load(context.Background(), session, "8", false)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Len(t, res.Document.Rounds, 1)
}

func TestSyncMapsRejectedCredential(t *testing.T) {
	svc := NewSyncService(&failingDocs{err: &repositories.StatusError{Status: 403}}, nil, nil, nil, SyncConfig{}, nil, discardLogger())
	_, err := svc.Load(context.Background(), &Session{ID: "s"}, "8", true)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

type failingDocs struct {
	repositories.DocumentRepository
	err error
}

func (f *failingDocs) Fetch(context.Context, string, string, bool) (*repositories.RemoteDocument, error) {
	return nil, f.err
}
