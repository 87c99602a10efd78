package client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tracker/models"
)

type memStorage struct {
	values map[string]string
}

func (m *memStorage) Get(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStorage) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memStorage) Delete(key string) error {
	delete(m.values, key)
	return nil
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskctl", "session.json")
	fs := NewFileStorage(path)

	_, ok, err := fs.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Set(TokenKey, "abc"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	v, ok, err := NewFileStorage(path).Get(TokenKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	require.NoError(t, fs.Delete(TokenKey))
	require.NoError(t, fs.Delete(TokenKey))
	_, ok, err = fs.Get(TokenKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorage_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStorage(path).Get(TokenKey)
	assert.Error(t, err)
}

func TestSessionState_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()
	user := models.UserInfo{ID: uuid.New(), Email: "alice@example.com"}

	first := NewSessionState(NewFileStorage(path))
	require.NoError(t, first.Establish(ctx, Session{Token: "tok-1", User: user}))
	assert.Equal(t, "tok-1", first.Token())

	var notified []Session
	second := NewSessionState(NewFileStorage(path))
	second.Subscribe(func(_ context.Context, s Session, active bool) error {
		require.True(t, active)
		notified = append(notified, s)
		return nil
	})
	require.NoError(t, second.Init(ctx))

	current, ok := second.Current()
	require.True(t, ok)
	assert.Equal(t, Session{Token: "tok-1", User: user}, current)
	assert.Equal(t, []Session{current}, notified)

	require.NoError(t, second.Teardown(ctx))
	assert.Empty(t, second.Token())

	third := NewSessionState(NewFileStorage(path))
	require.NoError(t, third.Init(ctx))
	_, ok = third.Current()
	assert.False(t, ok)
}

func TestSessionState_InitWithoutToken(t *testing.T) {
	s := NewSessionState(&memStorage{values: map[string]string{UserKey: `{"id":"x"}`}})
	called := false
	s.Subscribe(func(context.Context, Session, bool) error {
		called = true
		return nil
	})
	require.NoError(t, s.Init(context.Background()))
	assert.False(t, called)
}

func TestSessionState_ListenerErrors(t *testing.T) {
	s := NewSessionState(&memStorage{values: map[string]string{}})
	boom := errors.New("boom")
	s.Subscribe(func(context.Context, Session, bool) error { return boom })

	err := s.Establish(context.Background(), Session{Token: "tok"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "tok", s.Token(), "session is established even when a listener fails")
}

// failingStorage refuses to write one key.
type failingStorage struct {
	memStorage
	failKey string
}

func (f *failingStorage) Set(key, value string) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.memStorage.Set(key, value)
}

func TestSessionState_EstablishLeavesNoPartialSession(t *testing.T) {
	store := &failingStorage{memStorage: memStorage{values: map[string]string{}}, failKey: TokenKey}
	s := NewSessionState(store)
	ctx := context.Background()

	err := s.Establish(ctx, Session{Token: "tok", User: models.UserInfo{ID: uuid.New(), Email: "a@example.com"}})
	require.Error(t, err)
	assert.Empty(t, store.values, "neither key is left behind")
	_, active := s.Current()
	assert.False(t, active)

	restored := NewSessionState(store)
	require.NoError(t, restored.Init(ctx))
	_, active = restored.Current()
	assert.False(t, active)
}
