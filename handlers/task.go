package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"task-tracker/db"
	"task-tracker/middlewares"
	"task-tracker/models"
)

// TaskHandler serves the /tasks resource. Every route sits behind
// middlewares.RequireAuth, so the caller is always known here.
type TaskHandler struct {
	Store db.TaskStore
	Log   *zap.Logger
}

func NewTaskHandler(store db.TaskStore, log *zap.Logger) *TaskHandler {
	return &TaskHandler{Store: store, Log: log}
}

// taskID reads {id}. A malformed id cannot name any task, so it is reported
// the same way as a missing one.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return uuid.Nil, false
	}
	return id, true
}

func caller(w http.ResponseWriter, r *http.Request) (models.UserInfo, bool) {
	user, ok := middlewares.GetUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing token")
	}
	return user, ok
}

// ListTasks godoc
// @Summary      List the caller's tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Task
// @Failure      401  {object}  ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	tasks, err := h.Store.ListByOwner(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, h.Log, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary      Create a new task
// @Description  Adds a task owned by the caller
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        task  body      models.NewTask  true  "Task to create"
// @Success      201   {object}  models.Task
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var in models.NewTask
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	in.OwnerID = user.ID

	task, err := h.Store.Create(r.Context(), in)
	if err != nil {
		writeStoreError(w, h.Log, "create task", err)
		return
	}
	h.Log.Debug("task created", zap.Stringer("task_id", task.ID), zap.Stringer("owner_id", user.ID))
	writeJSON(w, http.StatusCreated, task)
}

// GetTask godoc
// @Summary      Get one of the caller's tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  models.Task
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.Store.Get(r.Context(), id, user.ID)
	if err != nil {
		writeStoreError(w, h.Log, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask godoc
// @Summary      Partially update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string            true  "Task ID"
// @Param        patch  body      models.TaskPatch  true  "Fields to change"
// @Success      200    {object}  models.Task
// @Failure      400    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	task, err := h.Store.Update(r.Context(), id, user.ID, patch)
	if err != nil {
		writeStoreError(w, h.Log, "update task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask godoc
// @Summary      Delete a task permanently
// @Tags         tasks
// @Security     BearerAuth
// @Param        id  path  string  true  "Task ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.Store.Delete(r.Context(), id, user.ID); err != nil {
		writeStoreError(w, h.Log, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
