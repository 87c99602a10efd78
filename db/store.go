// Package db persists tasks and users.
//
// Every operation that targets a task by id is scoped by owner: a task owned
// by someone else is reported as models.ErrNotFound, exactly like a task that
// does not exist.
package db

import (
	"context"

	"github.com/google/uuid"

	"task-tracker/models"
)

type TaskStore interface {
	Create(ctx context.Context, in models.NewTask) (models.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error)
	Get(ctx context.Context, id, ownerID uuid.UUID) (models.Task, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, patch models.TaskPatch) (models.Task, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// newTask builds a storable task from in, assigning id and timestamps.
func newTask(in models.NewTask) (models.Task, error) {
	task, err := in.Build()
	if err != nil {
		return models.Task{}, err
	}
	now := models.Now()
	task.ID = uuid.New()
	task.CreatedAt = now
	task.UpdatedAt = now
	return task, nil
}
