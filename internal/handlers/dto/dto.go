package dto

import (
	"time"

	"taskFlow/internal/models/task"
)

type CreateTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    task.Priority  `json:"priority"`
	DueDate     time.Time      `json:"dueDate"`
	Done        bool           `json:"done"`
	Status      task.Status    `json:"status"`
	SubTasks    []task.SubTask `json:"subTasks"`
}

func (r *CreateTaskRequest) ToTask() *task.Task {
	return &task.Task{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		Done:        r.Done,
		Status:      r.Status,
		SubTasks:    r.SubTasks,
	}
}

// UpdateTaskRequest - частичное обновление: затрагиваются только
// переданные поля.
type UpdateTaskRequest struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Priority    *task.Priority `json:"priority,omitempty"`
	Status      *task.Status   `json:"status,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Done        *bool          `json:"done,omitempty"`
}

func (r *UpdateTaskRequest) Options() []task.TaskOption {
	options := []task.TaskOption{}
	if r.Title != nil {
		options = append(options, task.WithTitle(*r.Title))
	}
	if r.Description != nil {
		options = append(options, task.WithDescription(*r.Description))
	}
	if r.Priority != nil {
		options = append(options, task.WithPriority(*r.Priority))
	}
	if r.Status != nil {
		options = append(options, task.WithStatus(*r.Status))
	}
	if r.DueDate != nil {
		options = append(options, task.WithDueDate(*r.DueDate))
	}
	if r.Done != nil {
		options = append(options, task.WithDone(*r.Done))
	}
	return options
}

type SetDoneRequest struct {
	Done bool `json:"done"`
}

type SetStatusRequest struct {
	Status task.Status `json:"status"`
	Author string      `json:"author"`
}

// ToggleSubTaskRequest принимает адресацию по id или по индексу.
// Позиционная форма оставлена для совместимости.
type ToggleSubTaskRequest struct {
	ID    *string `json:"id,omitempty"`
	Index *int    `json:"index,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}

type DeleteTaskRequest struct {
	ID string `json:"id"`
}

type TaskResponse struct {
	task.Task
	CompletionPercent int  `json:"completionPercent"`
	IsOverdue         bool `json:"isOverdue"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		Task:              *t,
		CompletionPercent: task.CompletionPercent(t),
		IsOverdue:         task.IsOverdue(t, time.Now()),
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
