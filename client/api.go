// Package client talks to the task API on behalf of a logged-in user and
// keeps that user's task list in memory.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"task-tracker/models"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response. For 404 it unwraps to models.ErrNotFound.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// APIClient is the HTTP binding of the task API. The bearer token comes from
// the SessionState on every request.
type APIClient struct {
	baseURL string
	http    *http.Client
	session *SessionState
}

func NewAPIClient(baseURL string, session *SessionState, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		session: session,
	}
}

func (c *APIClient) Register(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/register", credentials{email, password}, &s, "Registration failed")
	return s, err
}

func (c *APIClient) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/auth/login", credentials{email, password}, &s, "Login failed")
	return s, err
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *APIClient) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks, "Failed to fetch tasks"); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (c *APIClient) CreateTask(ctx context.Context, in models.NewTask) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, http.MethodPost, "/tasks", in, &task, "Failed to create task")
	return task, err
}

func (c *APIClient) UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, http.MethodPatch, "/tasks/"+id.String(), patch, &task, "Failed to update task")
	return task, err
}

func (c *APIClient) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id.String(), nil, nil, "Failed to delete task")
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any, fallback string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}
	return responseError(resp, fallback)
}

func responseError(resp *http.Response, fallback string) error {
	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &eb); err != nil || eb.Error == "" {
		eb.Error = fallback
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &models.ValidationError{Field: eb.Field, Message: eb.Error}
	case http.StatusUnauthorized:
		return &models.AuthError{Message: eb.Error}
	case http.StatusConflict:
		return &models.AuthError{Message: eb.Error, Err: models.ErrEmailTaken}
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Error}
	}
}

// IsAuthError reports whether err means the caller must log in again.
func IsAuthError(err error) bool {
	var aerr *models.AuthError
	return errors.As(err, &aerr)
}
