package handlers

import (
	"context"
	"time"

	"taskFlow/internal/models/task"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, ownerID string, t *task.Task) (*task.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]*task.Task, error)
	GetTask(ctx context.Context, ownerID, taskID string) (*task.Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID string, options ...task.TaskOption) (*task.Task, error)
	ReplaceTask(ctx context.Context, ownerID string, t *task.Task) error
	DeleteTask(ctx context.Context, ownerID, taskID string) error
	SetTaskDone(ctx context.Context, ownerID, taskID string, done bool) error
	SetTaskStatus(ctx context.Context, ownerID, taskID string, status task.Status, author string) error
	AddSubTask(ctx context.Context, ownerID, taskID string, subTask task.SubTask) error
	RemoveSubTask(ctx context.Context, ownerID, taskID string, subTask task.SubTask) error
	ToggleSubTask(ctx context.Context, ownerID, taskID, subTaskID string, done *bool) error
	ToggleSubTaskByIndex(ctx context.Context, ownerID, taskID string, index int, done *bool) error
	AppendWorkLog(ctx context.Context, ownerID, taskID string, entry task.WorkLog) error
	DashboardCounts(ctx context.Context, ownerID string, now time.Time) (task.Counts, error)
}
