package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"task-tracker/db"
	"task-tracker/models"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{Secret: "test-secret-key", TTL: 15 * time.Minute, Issuer: "test-issuer"}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(store, NewPasswordHasher(bcrypt.MinCost), NewTokenManager(testTokenConfig()))
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	manager := NewTokenManager(testTokenConfig())
	user := models.UserInfo{ID: uuid.New(), Email: "test@example.com"}

	token, err := manager.Issue(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestTokenManager_Expired(t *testing.T) {
	manager := NewTokenManager(testTokenConfig())
	manager.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := manager.Issue(models.UserInfo{ID: uuid.New(), Email: "old@example.com"})
	require.NoError(t, err)

	manager.now = time.Now
	_, err = manager.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenManager_Rejects(t *testing.T) {
	manager := NewTokenManager(testTokenConfig())
	user := models.UserInfo{ID: uuid.New(), Email: "test@example.com"}

	other := NewTokenManager(TokenConfig{Secret: "different", TTL: time.Minute})
	foreign, err := other.Issue(user)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": user.ID.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "not-a-uuid",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	badSubject, err := noUser.SignedString([]byte("test-secret-key"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"alg none":     unsigned,
		"bad user id":  badSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := manager.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, hasher.Verify("secret123", hash))
	assert.False(t, hasher.Verify("wrong", hash))

	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "  Alice@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.Token)

	who, err := svc.Tokens().Validate(registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User, who)

	loggedIn, err := svc.Login(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	refreshed, err := svc.Refresh(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.User, refreshed.User)
}

func TestService_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "bob@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "BOB@example.com", "another1")
	var aerr *models.AuthError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Email already registered", aerr.Message)
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	_, err = svc.Login(ctx, "bob@example.com", "wrong-password")
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Invalid credentials", aerr.Message)

	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, "Invalid credentials", aerr.Message)

	var verr *models.ValidationError
	_, err = svc.Register(ctx, "not-an-email", "secret123")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)

	_, err = svc.Register(ctx, "carol@example.com", "123")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "password", verr.Field)

	_, err = svc.Refresh(ctx, uuid.New())
	require.True(t, errors.As(err, &aerr))
}
