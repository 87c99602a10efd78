package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-tracker/models"
)

// SQLiteStore keeps tasks and users in a SQLite file through gorm. It backs
// local development and the test suites.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: gdb}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, in models.NewTask) (models.Task, error) {
	task, err := newTask(in)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Task, error) {
	tasks := []models.Task{}
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at, id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		normalizeTimes(&tasks[i])
	}
	return tasks, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id, ownerID uuid.UUID) (models.Task, error) {
	return findOwned(s.db.WithContext(ctx), id, ownerID)
}

func (s *SQLiteStore) Update(ctx context.Context, id, ownerID uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return models.Task{}, err
	}

	var task models.Task
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		task, err = findOwned(tx, id, ownerID)
		if err != nil {
			return err
		}
		task.Apply(patch)
		task.Touch(models.Now())
		return tx.Model(&models.Task{}).
			Where("id = ? AND owner_id = ?", id, ownerID).
			Updates(map[string]any{
				"title":       task.Title,
				"description": task.Description,
				"status":      task.Status,
				"priority":    task.Priority,
				"updated_at":  task.UpdatedAt,
			}).Error
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Task{}, err
		}
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    models.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, models.ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)))
}

func (s *SQLiteStore) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	return s.findUser(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *SQLiteStore) findUser(q *gorm.DB) (models.User, error) {
	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, models.ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func findOwned(q *gorm.DB, id, ownerID uuid.UUID) (models.Task, error) {
	var task models.Task
	err := q.Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Task{}, models.ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	normalizeTimes(&task)
	return task, nil
}

func normalizeTimes(t *models.Task) {
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
}
