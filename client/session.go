package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"task-tracker/models"
)

// Keys under which the session is persisted.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Storage is client-local key/value persistence that survives restarts.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStorage keeps the keys in a single JSON file readable only by the
// current user.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileStorage) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

type Session struct {
	Token string          `json:"token"`
	User  models.UserInfo `json:"user"`
}

// Listener is told about every session transition. active is false after
// Teardown.
type Listener func(ctx context.Context, s Session, active bool) error

// SessionState is the process-wide login state. It is the only thing that
// reads or writes the persisted token.
type SessionState struct {
	store Storage

	mu        sync.RWMutex
	current   Session
	active    bool
	listeners []Listener
}

func NewSessionState(store Storage) *SessionState {
	return &SessionState{store: store}
}

// Subscribe registers fn for future transitions.
func (s *SessionState) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Init restores a persisted session, if any, and notifies listeners when one
// was found.
func (s *SessionState) Init(ctx context.Context) error {
	token, ok, err := s.store.Get(TokenKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	var user models.UserInfo
	raw, ok, err := s.store.Get(UserKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return fmt.Errorf("read session user: %w", err)
		}
	}

	return s.set(ctx, Session{Token: token, User: user}, true)
}

// Establish persists sess and makes it current. When saving fails the stored
// session is cleared rather than left half written, and the in-memory
// session is unchanged.
func (s *SessionState) Establish(ctx context.Context, sess Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := s.store.Set(UserKey, string(user)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.store.Set(TokenKey, sess.Token); err != nil {
		return errors.Join(fmt.Errorf("save session: %w", err), s.store.Delete(UserKey), s.store.Delete(TokenKey))
	}
	return s.set(ctx, sess, true)
}

// Teardown forgets the session both in memory and on disk.
func (s *SessionState) Teardown(ctx context.Context) error {
	err := errors.Join(s.store.Delete(TokenKey), s.store.Delete(UserKey))
	return errors.Join(err, s.set(ctx, Session{}, false))
}

func (s *SessionState) set(ctx context.Context, sess Session, active bool) error {
	s.mu.Lock()
	s.current = sess
	s.active = active
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	var errs []error
	for _, fn := range listeners {
		if err := fn(ctx, sess, active); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Token returns the bearer token, or "" when logged out.
func (s *SessionState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

func (s *SessionState) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.active
}
