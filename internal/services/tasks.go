package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"bottega/internal/core"
	"bottega/internal/log"
)

type TaskStore interface {
	AddTask(ctx context.Context, t core.Task) (string, error)
	GetTask(ctx context.Context, id string) (core.Task, error)
	ListTasks(ctx context.Context) ([]core.Task, error)
	UpdateTask(ctx context.Context, t core.Task) error
	SetTaskDone(ctx context.Context, id string, done bool) error
	DeleteTask(ctx context.Context, id string) error
}

// TaskService manages calendar tasks.
type TaskService struct {
	store  TaskStore
	logger *slog.Logger
}

func NewTaskService(store TaskStore, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{store: store, logger: logger.With(log.FieldComponent, log.ComponentTasks)}
}

func (s *TaskService) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	t.Done = false
	if t.Priority == "" {
		t.Priority = core.PriorityNormal
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	id, err := s.store.AddTask(ctx, t)
	if err != nil {
		return core.Task{}, fmt.Errorf("save task: %w", err)
	}
	t.ID = id
	return t, nil
}

// ListTasks orders tasks by when they are due. Tasks with an unparseable
// datetime sort last, by name.
func (s *TaskService) ListTasks(ctx context.Context) ([]core.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(tasks, func(a, b core.Task) int {
		wa, errA := a.When()
		wb, errB := b.When()
		switch {
		case errA != nil && errB != nil:
			return strings.Compare(a.Name, b.Name)
		case errA != nil:
			return 1
		case errB != nil:
			return -1
		}
		if c := wa.Compare(wb); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return tasks, nil
}

// ToggleTask flips done and returns the new value.
func (s *TaskService) ToggleTask(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrNotFound
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return false, err
	}
	if err := s.store.SetTaskDone(ctx, id, !t.Done); err != nil {
		return false, fmt.Errorf("toggle task: %w", err)
	}
	return !t.Done, nil
}

// EditTask replaces name, datetime, priority and price of an existing task.
func (s *TaskService) EditTask(ctx context.Context, t core.Task) error {
	if _, err := s.store.GetTask(ctx, t.ID); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return fmt.Errorf("edit task: %w", err)
	}
	return nil
}

// DeleteTask is idempotent.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
