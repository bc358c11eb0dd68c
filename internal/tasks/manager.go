// Package tasks maintains the signed-in user's task list with optimistic
// local updates on top of the remote tasks table, and derives productivity
// analytics from it.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/doease/doease/internal/backend"
	"github.com/doease/doease/internal/domain"
	"go.uber.org/zap"
)

// Manager owns an in-memory copy of one user's task list. Mutations are
// applied locally first, written through to the remote table, and rolled
// back when the write fails.
type Manager struct {
	api    backend.API
	logger *zap.Logger

	mu         sync.Mutex
	userID     string
	tasks      []domain.Task
	nextTempID int64
}

// NewManager creates a task manager over the facade.
func NewManager(api backend.API, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, logger: logger, nextTempID: -1}
}

// Load fetches the task list for userID, replacing any previously held
// list. The remote service returns rows newest first.
func (m *Manager) Load(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := m.api.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	m.mu.Lock()
	m.userID = userID
	m.tasks = tasks
	m.mu.Unlock()

	return m.Tasks(), nil
}

// EnsureLoaded makes sure the held list belongs to userID, loading it when
// the manager is empty or bound to a different user.
func (m *Manager) EnsureLoaded(ctx context.Context, userID string) error {
	m.mu.Lock()
	held := m.userID
	m.mu.Unlock()

	if held == userID {
		return nil
	}
	_, err := m.Load(ctx, userID)
	return err
}

// Tasks returns a copy of the current list.
func (m *Manager) Tasks() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// Add validates and inserts a task. The task appears in the local list
// immediately under a temporary id and is reconciled with the stored row on
// success, or removed again on failure.
func (m *Manager) Add(ctx context.Context, newTask domain.NewTask) (*domain.Task, error) {
	if strings.TrimSpace(newTask.Name) == "" {
		return nil, fmt.Errorf("task name cannot be empty")
	}
	if newTask.Priority == "" {
		newTask.Priority = domain.PriorityMedium
	}
	if !newTask.Priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", newTask.Priority)
	}

	m.mu.Lock()
	if m.userID == "" {
		m.mu.Unlock()
		return nil, fmt.Errorf("no task list loaded")
	}
	userID := m.userID
	tempID := m.nextTempID
	m.nextTempID--
	placeholder := domain.Task{
		ID:       tempID,
		UserID:   userID,
		Name:     newTask.Name,
		Priority: newTask.Priority,
		DueDate:  newTask.DueDate,
	}
	m.tasks = append([]domain.Task{placeholder}, m.tasks...)
	m.mu.Unlock()

	created, err := m.api.AddTask(ctx, userID, newTask)
	if err != nil {
		m.removeByID(tempID)
		return nil, fmt.Errorf("failed to add task: %w", err)
	}

	m.mu.Lock()
	for i := range m.tasks {
		if m.tasks[i].ID == tempID {
			m.tasks[i] = *created
			break
		}
	}
	sort.SliceStable(m.tasks, func(i, j int) bool {
		return m.tasks[i].CreatedAt.After(m.tasks[j].CreatedAt)
	})
	m.mu.Unlock()

	return created, nil
}

// Toggle flips a task's completed flag. The flip is applied locally first
// and reverted when the remote write fails. Completing a task feeds the
// profile streak.
func (m *Manager) Toggle(ctx context.Context, taskID int64) (*domain.Task, error) {
	m.mu.Lock()
	idx := m.indexLocked(taskID)
	if idx < 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("task %d not found", taskID)
	}
	m.tasks[idx].Completed = !m.tasks[idx].Completed
	completed := m.tasks[idx].Completed
	userID := m.userID
	m.mu.Unlock()

	updated, err := m.api.UpdateTask(ctx, taskID, domain.TaskUpdate{Completed: &completed})
	if err != nil {
		m.mu.Lock()
		if idx := m.indexLocked(taskID); idx >= 0 {
			m.tasks[idx].Completed = !completed
		}
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	m.mu.Lock()
	if idx := m.indexLocked(taskID); idx >= 0 {
		m.tasks[idx] = *updated
	}
	m.mu.Unlock()

	if completed {
		if err := m.maintainStreak(ctx, userID); err != nil {
			m.logger.Warn("streak update failed", zap.Error(err))
		}
	}

	return updated, nil
}

// Delete removes a task locally, then remotely, restoring it at its old
// position when the remote delete fails.
func (m *Manager) Delete(ctx context.Context, taskID int64) error {
	m.mu.Lock()
	idx := m.indexLocked(taskID)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("task %d not found", taskID)
	}
	removed := m.tasks[idx]
	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	m.mu.Unlock()

	if err := m.api.DeleteTask(ctx, taskID); err != nil {
		m.mu.Lock()
		if idx > len(m.tasks) {
			idx = len(m.tasks)
		}
		m.tasks = append(m.tasks[:idx], append([]domain.Task{removed}, m.tasks[idx:]...)...)
		m.mu.Unlock()
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// Reset drops the held list, e.g. on sign-out.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.userID = ""
	m.tasks = nil
	m.mu.Unlock()
}

func (m *Manager) indexLocked(taskID int64) int {
	for i := range m.tasks {
		if m.tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func (m *Manager) removeByID(taskID int64) {
	m.mu.Lock()
	if idx := m.indexLocked(taskID); idx >= 0 {
		m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	}
	m.mu.Unlock()
}
