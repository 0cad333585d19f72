package service

import (
	"context"

	"taskFlow/internal/models/task"
)

// TaskRepository - контракт хранилища, один на все четыре реализации
// (firestore, file, postgres, inmemory).
type TaskRepository interface {
	Create(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, ownerID, taskID string) (*task.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error)
	Update(ctx context.Context, t *task.Task) error
	Delete(ctx context.Context, ownerID, taskID string) error
	Owners(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}
