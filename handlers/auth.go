package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"task-tracker/auth"
	"task-tracker/middlewares"
)

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	Auth *auth.Service
	Log  *zap.Logger
}

func NewAuthHandler(svc *auth.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: svc, Log: log}
}

// Register godoc
// @Summary      Create an account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      AuthRequest  true  "Email and password"
// @Success      201          {object}  auth.Session
// @Failure      400          {object}  ErrorResponse
// @Failure      409          {object}  ErrorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeStoreError(w, h.Log, "register", err)
		return
	}
	h.Log.Info("user registered", zap.Stringer("user_id", session.User.ID))
	writeJSON(w, http.StatusCreated, session)
}

// Login godoc
// @Summary      Exchange credentials for a token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      AuthRequest  true  "Email and password"
// @Success      200          {object}  auth.Session
// @Failure      401          {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeStoreError(w, h.Log, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// RefreshToken godoc
// @Summary      Issue a new token for the caller
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  auth.Session
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewares.GetUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing token")
		return
	}

	session, err := h.Auth.Refresh(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, h.Log, "refresh token", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
