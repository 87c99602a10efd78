package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"task-tracker/models"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterAll, FilterActive, FilterCompleted:
		return f, nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("unknown filter %q: want all, active or completed", s)
}

// Match reports whether t belongs in the filtered view. Unknown filters match
// everything.
func (f Filter) Match(t models.Task) bool {
	switch f {
	case FilterActive:
		return t.Status == models.StatusIncomplete
	case FilterCompleted:
		return t.Status == models.StatusComplete
	}
	return true
}

// TaskAPI is the remote side of the Manager. *APIClient implements it.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, in models.NewTask) (models.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

// Manager is the client's copy of the current user's tasks. Local state
// changes only after the server confirms; a failed call leaves it as it was.
// The lock is never held across a network call, so when calls race the
// response that arrives last wins. Responses to calls issued before the last
// session change are not applied.
type Manager struct {
	api TaskAPI

	mu     sync.RWMutex
	tasks  []models.Task
	filter Filter
	gen    uint64
}

func NewManager(api TaskAPI) *Manager {
	return &Manager{api: api, tasks: []models.Task{}, filter: FilterAll}
}

// OnSession is a Listener: a new session loads its tasks, teardown clears them.
func (m *Manager) OnSession(ctx context.Context, _ Session, active bool) error {
	m.mu.Lock()
	m.gen++
	m.tasks = []models.Task{}
	m.mu.Unlock()
	if !active {
		return nil
	}
	return m.Refresh(ctx)
}

func (m *Manager) generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// Refresh replaces the local list with the server's.
func (m *Manager) Refresh(ctx context.Context) error {
	gen := m.generation()
	tasks, err := m.api.ListTasks(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.gen == gen {
		m.tasks = append([]models.Task{}, tasks...)
	}
	m.mu.Unlock()
	return nil
}

// Add creates a task and appends the server's copy.
func (m *Manager) Add(ctx context.Context, draft models.NewTask) (models.Task, error) {
	if err := ValidateDraft(draft); err != nil {
		return models.Task{}, err
	}
	gen := m.generation()
	task, err := m.api.CreateTask(ctx, draft)
	if err != nil {
		return models.Task{}, err
	}
	m.mu.Lock()
	if m.gen == gen {
		m.tasks = append(m.tasks, task)
	}
	m.mu.Unlock()
	return task, nil
}

// ApplyUpdate sends patch and swaps in the returned task.
func (m *Manager) ApplyUpdate(ctx context.Context, id uuid.UUID, patch models.TaskPatch) (models.Task, error) {
	if err := ValidatePatch(patch); err != nil {
		return models.Task{}, err
	}
	gen := m.generation()
	task, err := m.api.UpdateTask(ctx, id, patch)
	if err != nil {
		return models.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return task, nil
	}
	for i := range m.tasks {
		if m.tasks[i].ID == task.ID {
			m.tasks[i] = task
			break
		}
	}
	return task, nil
}

// Remove deletes id on the server, then locally.
func (m *Manager) Remove(ctx context.Context, id uuid.UUID) error {
	gen := m.generation()
	if err := m.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return nil
	}
	kept := m.tasks[:0:0]
	for _, t := range m.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
	return nil
}

// Toggle flips the status of a known task. It reports false without calling
// the server when id is not in the local list.
func (m *Manager) Toggle(ctx context.Context, id uuid.UUID) (models.Task, bool, error) {
	current, ok := m.find(id)
	if !ok {
		return models.Task{}, false, nil
	}
	next := current.Status.Opposite()
	task, err := m.ApplyUpdate(ctx, id, models.TaskPatch{Status: &next})
	if err != nil {
		return models.Task{}, false, err
	}
	return task, true, nil
}

// Move handles a drag between the two status columns. Drops onto the same
// column, onto no column, or of an unknown task do nothing.
func (m *Manager) Move(ctx context.Context, id uuid.UUID, from, to models.Status) (models.Task, bool, error) {
	if !to.Valid() || from == to {
		return models.Task{}, false, nil
	}
	current, ok := m.find(id)
	if !ok || current.Status == to {
		return models.Task{}, false, nil
	}
	task, err := m.ApplyUpdate(ctx, id, models.TaskPatch{Status: &to})
	if err != nil {
		return models.Task{}, false, err
	}
	return task, true, nil
}

func (m *Manager) find(id uuid.UUID) (models.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// Tasks returns a copy of every task in server order.
func (m *Manager) Tasks() []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Task{}, m.tasks...)
}

// Derive returns the tasks matching f, preserving order.
func (m *Manager) Derive(f Filter) []models.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Task{}
	for _, t := range m.tasks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (m *Manager) SetFilter(f Filter) {
	m.mu.Lock()
	m.filter = f
	m.mu.Unlock()
}

func (m *Manager) Filter() Filter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filter
}

// Visible is Derive with the current filter.
func (m *Manager) Visible() []models.Task {
	return m.Derive(m.Filter())
}
