package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	rep "taskFlow/internal/repository"
)

// TaskService - фасад хранилища задач. Все операции ограничены владельцем,
// вложенные коллекции обновляются заменой массива целиком
// (чтение-изменение-запись, последняя запись побеждает).
type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) TaskService {
	return TaskService{
		repo: repo,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// CreateTask назначает новый id и сохраняет задачу с выставленными
// значениями по умолчанию. Возвращает сохранённое представление.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, taskToCreate *task.Task) (*task.Task, error) {
	if taskToCreate.Title == "" {
		return nil, NewValidationError("title", "название не может быть пустым")
	}
	if taskToCreate.DueDate.IsZero() {
		return nil, NewValidationError("dueDate", "дедлайн должен быть задан")
	}

	taskToCreate.ID = uuid.New().String()
	taskToCreate.UserID = ownerID
	taskToCreate.Normalize()

	if err := s.repo.Create(ctx, taskToCreate); err != nil {
		return nil, mapRepoError(err, taskToCreate.ID)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", taskToCreate.ID),
		zap.String("owner_id", ownerID))
	return taskToCreate, nil
}

// ListTasks возвращает все задачи владельца в порядке хранилища.
// Каждая задача нормализована - клиент не увидит отсутствующих полей.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string) ([]*task.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapRepoError(err, "")
	}

	for _, t := range tasks {
		t.Normalize()
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", taskID))
		}
		return nil, mapRepoError(err, taskID)
	}

	t.Normalize()
	return t, nil
}

// UpdateTask - генеральный путь частичного обновления: сливает переданные
// поля в хранимую запись. Связку done/completedAt/status этот путь
// НЕ поддерживает - за неё отвечают SetTaskDone и SetTaskStatus.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, options ...task.TaskOption) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return nil, mapRepoError(err, taskID)
	}

	t.Apply(options...)

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, mapRepoError(err, taskID)
	}
	return t, nil
}

// ReplaceTask - полная замена задачи по id (PUT). Замена отсутствующего
// id молча ничего не делает: семантика "последняя запись побеждает".
func (s *TaskService) ReplaceTask(ctx context.Context, ownerID string, taskToStore *task.Task) error {
	taskToStore.UserID = ownerID
	taskToStore.Normalize()

	if err := s.repo.Update(ctx, taskToStore); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Warn("Service: Замена отсутствующей задачи пропущена",
				zap.String("task_id", taskToStore.ID))
			return nil
		}
		return mapRepoError(err, taskToStore.ID)
	}
	return nil
}

// DeleteTask удаляет агрегат целиком. Идемпотентно.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := s.repo.Delete(ctx, ownerID, taskID); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

// SetTaskDone - единственный путь, атомарно поддерживающий инвариант
// done <-> completedAt: при done=true ставится текущая метка времени,
// при done=false метка очищается.
func (s *TaskService) SetTaskDone(ctx context.Context, ownerID, taskID string, done bool) error {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	t.Done = done
	if done {
		now := time.Now()
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

// SetTaskStatus - канбан-переход. Переход в done обязан выставить
// done=true и completedAt, уход из done - снять оба. В журнал работ
// добавляется запись status_change.
func (s *TaskService) SetTaskStatus(ctx context.Context, ownerID, taskID string, status task.Status, author string) error {
	if !status.Valid() {
		return NewValidationError("status", "допустимы только todo, doing, done")
	}

	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	t.Status = status
	if status == task.StatusDone {
		t.Done = true
		now := time.Now()
		t.CompletedAt = &now
	} else {
		t.Done = false
		t.CompletedAt = nil
	}

	t.WorkLog = append(t.WorkLog, task.WorkLog{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Author:    author,
		Message:   fmt.Sprintf("Статус изменён на %s", status),
		Type:      task.LogStatusChange,
	})

	if err := s.repo.Update(ctx, t); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

// AddSubTask добавляет подзадачу в конец массива. Если id не задан,
// он генерируется здесь. Дубликат id - ошибка валидации.
func (s *TaskService) AddSubTask(ctx context.Context, ownerID, taskID string, subTask task.SubTask) error {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	if subTask.ID == "" {
		subTask.ID = uuid.New().String()
	}
	if _, ok := t.FindSubTask(subTask.ID); ok {
		return NewValidationError("subTask.id", "подзадача с таким id уже есть")
	}

	t.SubTasks = append(t.SubTasks, subTask)

	if err := s.repo.Update(ctx, t); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

// RemoveSubTask удаляет подзадачу по совпадению значения: по id, если он
// задан, иначе по полному структурному равенству. Отсутствие совпадения
// ничего не меняет (семантика arrayRemove).
func (s *TaskService) RemoveSubTask(ctx context.Context, ownerID, taskID string, subTask task.SubTask) error {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	filtered := make([]task.SubTask, 0, len(t.SubTasks))
	removed := false
	for _, st := range t.SubTasks {
		if !removed && matchSubTask(st, subTask) {
			removed = true
			continue
		}
		filtered = append(filtered, st)
	}
	if !removed {
		return nil
	}
	t.SubTasks = filtered

	if err := s.repo.Update(ctx, t); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

func matchSubTask(stored, target task.SubTask) bool {
	if target.ID != "" {
		return stored.ID == target.ID
	}
	return stored.Title == target.Title && stored.Done == target.Done
}

// ToggleSubTask переключает или выставляет флаг done подзадачи по id.
// Если done == nil, флаг инвертируется. Выставление уже стоящего
// значения идемпотентно.
func (s *TaskService) ToggleSubTask(ctx context.Context, ownerID, taskID, subTaskID string, done *bool) error {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	ind, ok := t.FindSubTask(subTaskID)
	if !ok {
		return &BusinessError{
			Code:    CodeNotFound,
			Message: fmt.Sprintf("подзадача %s не найдена", subTaskID),
			Details: map[string]any{"subTaskId": subTaskID},
		}
	}

	if done != nil {
		t.SubTasks[ind].Done = *done
	} else {
		t.SubTasks[ind].Done = !t.SubTasks[ind].Done
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

// ToggleSubTaskByIndex - совместимость со старой позиционной адресацией:
// индекс разрешается в id по текущему массиву, дальше работает путь по id.
func (s *TaskService) ToggleSubTaskByIndex(ctx context.Context, ownerID, taskID string, index int, done *bool) error {
	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	if index < 0 || index >= len(t.SubTasks) {
		return NewValidationError("index", "индекс вне границ массива подзадач")
	}

	return s.ToggleSubTask(ctx, ownerID, taskID, t.SubTasks[index].ID, done)
}

// AppendWorkLog добавляет запись в журнал работ. Журнал только растёт,
// прошлые записи не изменяются. Два конкурентных добавления выживают оба.
func (s *TaskService) AppendWorkLog(ctx context.Context, ownerID, taskID string, entry task.WorkLog) error {
	if entry.Message == "" {
		return NewValidationError("message", "сообщение не может быть пустым")
	}

	t, err := s.repo.GetByID(ctx, ownerID, taskID)
	if err != nil {
		return mapRepoError(err, taskID)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Type == "" {
		entry.Type = task.LogComment
	}

	t.WorkLog = append(t.WorkLog, entry)

	if err := s.repo.Update(ctx, t); err != nil {
		return mapRepoError(err, taskID)
	}
	return nil
}

// DashboardCounts считает агрегаты дашборда. Неделя - последние 7 суток.
func (s *TaskService) DashboardCounts(ctx context.Context, ownerID string, now time.Time) (task.Counts, error) {
	tasks, err := s.ListTasks(ctx, ownerID)
	if err != nil {
		return task.Counts{}, err
	}

	weekStart := now.AddDate(0, 0, -7)
	return task.AggregateCounts(tasks, now, weekStart), nil
}
