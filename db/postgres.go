package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"task-tracker/models"
)

const taskColumns = "id, title, description, status, priority, owner_id, created_at, updated_at"

// PostgresStore keeps tasks and users in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (s *PostgresStore) Create(ctx context.Context, in models.NewTask) (models.Task, error) {
	task, err := newTask(in)
	if err != nil {
		return models.Task{}, err
	}

	_, err = s.pool.Exec(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		task.ID, task.Title, task.Description, task.Status, task.Priority, task.OwnerID, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id=$1 ORDER BY created_at, id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *PostgresStore) Get(ctx context.Context, id, ownerID uuid.UUID) (models.Task, error) {
	task, err := scanTask(s.pool.QueryRow(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id=$1 AND owner_id=$2", id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) Update(ctx context.Context, id, ownerID uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return models.Task{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Task{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := scanTask(tx.QueryRow(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id=$1 AND owner_id=$2 FOR UPDATE", id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("load task: %w", err)
	}

	task.Apply(patch)
	task.Touch(models.Now())

	_, err = tx.Exec(ctx,
		"UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, updated_at=$5 WHERE id=$6 AND owner_id=$7",
		task.Title, task.Description, task.Status, task.Priority, task.UpdatedAt, id, ownerID,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Task{}, fmt.Errorf("commit update: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	commandTag, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id=$1 AND owner_id=$2", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    models.Now(),
	}
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)",
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, models.ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.queryUser(ctx, "SELECT id, email, password_hash, created_at FROM users WHERE email=$1", strings.ToLower(email))
}

func (s *PostgresStore) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.queryUser(ctx, "SELECT id, email, password_hash, created_at FROM users WHERE id=$1", id)
}

func (s *PostgresStore) queryUser(ctx context.Context, query string, arg any) (models.User, error) {
	var user models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
