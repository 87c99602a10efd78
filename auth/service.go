// Package auth is the authentication provider: it registers users, checks
// credentials and issues the bearer tokens the task API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"task-tracker/db"
	"task-tracker/models"
)

const MinPasswordLength = 6

// Session is what a successful login or registration hands back.
type Session struct {
	Token string          `json:"token"`
	User  models.UserInfo `json:"user"`
}

type Service struct {
	users  db.UserStore
	hasher *PasswordHasher
	tokens *TokenManager
}

func NewService(users db.UserStore, hasher *PasswordHasher, tokens *TokenManager) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return Session{}, &models.ValidationError{Field: "email", Message: "Enter a valid email"}
	}
	if len(password) < MinPasswordLength {
		return Session{}, &models.ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password should be of minimum %d characters length", MinPasswordLength),
		}
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, email, hashed)
	if errors.Is(err, models.ErrEmailTaken) {
		return Session{}, &models.AuthError{Message: "Email already registered", Err: err}
	}
	if err != nil {
		return Session{}, err
	}
	return s.session(user.Info())
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return Session{}, &models.AuthError{Message: "Invalid credentials", Err: err}
	}
	if err != nil {
		return Session{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return Session{}, &models.AuthError{Message: "Invalid credentials"}
	}
	return s.session(user.Info())
}

// Refresh issues a fresh token for a user who still exists.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID) (Session, error) {
	user, err := s.users.UserByID(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return Session{}, &models.AuthError{Message: "Invalid token", Err: err}
	}
	if err != nil {
		return Session{}, err
	}
	return s.session(user.Info())
}

func (s *Service) session(user models.UserInfo) (Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, User: user}, nil
}
