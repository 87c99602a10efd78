package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"task-tracker/auth"
	"task-tracker/client"
	"task-tracker/db"
	"task-tracker/models"
	"task-tracker/server"
)

type app struct {
	session *client.SessionState
	api     *client.APIClient
	auth    *client.Authenticator
	tasks   *client.Manager
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewTokenManager(auth.TokenConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "test"})
	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Tasks:  store,
		Health: store,
		Auth:   auth.NewService(store, auth.NewPasswordHasher(bcrypt.MinCost), tokens),
		Log:    zap.NewNop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newApp(t *testing.T, baseURL, sessionPath string) *app {
	t.Helper()
	session := client.NewSessionState(client.NewFileStorage(sessionPath))
	api := client.NewAPIClient(baseURL, session, nil)
	tasks := client.NewManager(api)
	session.Subscribe(tasks.OnSession)
	return &app{
		session: session,
		api:     api,
		auth:    client.NewAuthenticator(api, session),
		tasks:   tasks,
	}
}

func TestBuyMilk(t *testing.T) {
	srv := newServer(t)
	sessionPath := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	a := newApp(t, srv.URL, sessionPath)
	s, err := a.auth.Register(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", s.User.Email)
	assert.Empty(t, a.tasks.Tasks())

	created, err := a.tasks.Add(ctx, models.NewTask{Title: "Buy milk", Description: "2 liters, whole"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncomplete, created.Status)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	assert.Equal(t, s.User.ID, created.OwnerID)
	assert.Equal(t, []models.Task{created}, a.tasks.Derive(client.FilterActive))

	toggled, ok, err := a.tasks.Toggle(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StatusComplete, toggled.Status)
	assert.True(t, toggled.UpdatedAt.After(created.UpdatedAt))
	assert.Empty(t, a.tasks.Derive(client.FilterActive))
	assert.Equal(t, []models.Task{toggled}, a.tasks.Derive(client.FilterCompleted))

	// A fresh process restores the session and reloads the same list.
	restarted := newApp(t, srv.URL, sessionPath)
	require.NoError(t, restarted.session.Init(ctx))
	assert.Equal(t, a.tasks.Tasks(), restarted.tasks.Tasks())

	require.NoError(t, restarted.tasks.Remove(ctx, created.ID))
	assert.Empty(t, restarted.tasks.Tasks())

	require.NoError(t, restarted.auth.Logout(ctx))
	_, active := restarted.session.Current()
	assert.False(t, active)
	_, err = restarted.api.ListTasks(ctx)
	assert.True(t, client.IsAuthError(err))
}

func TestBuyMilkLowPriority(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	a := newApp(t, srv.URL, filepath.Join(t.TempDir(), "session.json"))
	_, err := a.auth.Register(ctx, "carol@example.com", "secret123")
	require.NoError(t, err)

	created, err := a.tasks.Add(ctx, models.NewTask{
		Title:       "Buy milk",
		Description: "2% milk, 1 gallon",
		Priority:    models.PriorityLow,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIncomplete, created.Status)
	assert.Equal(t, models.PriorityLow, created.Priority)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	complete := models.StatusComplete
	updated, err := a.tasks.ApplyUpdate(ctx, created.ID, models.TaskPatch{Status: &complete})
	require.NoError(t, err)
	tasks := a.tasks.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, models.StatusComplete, tasks[0].Status)
	assert.Equal(t, updated, tasks[0])

	require.NoError(t, a.tasks.Remove(ctx, created.ID))
	assert.Empty(t, a.tasks.Tasks())
	require.NoError(t, a.tasks.Refresh(ctx))
	assert.Empty(t, a.tasks.Tasks())
}

func TestAPIClientErrors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	a := newApp(t, srv.URL, filepath.Join(t.TempDir(), "session.json"))

	_, err := a.auth.Register(ctx, "bob@example.com", "secret123")
	require.NoError(t, err)

	_, err = a.auth.Register(ctx, "bob@example.com", "secret123")
	var aerr *models.AuthError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	_, err = a.auth.Login(ctx, "bob@example.com", "wrong-password")
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Invalid credentials", aerr.Message)

	_, err = a.api.CreateTask(ctx, models.NewTask{Title: " ", Description: "something"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	err = a.api.DeleteTask(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestAPIClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	api := client.NewAPIClient(url, nil, nil)
	_, err := api.ListTasks(context.Background())
	var nerr *client.NetworkError
	require.ErrorAs(t, err, &nerr)
}
