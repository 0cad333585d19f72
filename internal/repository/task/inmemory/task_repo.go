package inmemory

import (
	"context"
	"sync"
	"time"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	repo "taskFlow/internal/repository"
)

// TaskStorage - хранилище в памяти для тестов и локального запуска.
// Задачи лежат по владельцам, порядок вставки сохраняется.
type TaskStorage struct {
	storage map[string]map[string]*task.Task // ownerID -> taskID -> task
	order   map[string][]string              // ownerID -> порядок вставки
	mtx     *sync.RWMutex
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[string]map[string]*task.Task),
		order:   make(map[string][]string),
		mtx:     &sync.RWMutex{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Close() {}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	owner := taskToCreate.UserID
	if s.storage[owner] == nil {
		s.storage[owner] = make(map[string]*task.Task)
	}

	taskToCreate.CreatedAt = time.Now()

	s.storage[owner][taskToCreate.ID] = clone(taskToCreate)
	s.order[owner] = append(s.order[owner], taskToCreate.ID)
	return nil
}

// clone копирует задачу вместе с вложенными массивами, чтобы клиент
// не делил память с хранилищем.
func clone(t *task.Task) *task.Task {
	copied := *t
	copied.SubTasks = append([]task.SubTask(nil), t.SubTasks...)
	copied.WorkLog = append([]task.WorkLog(nil), t.WorkLog...)
	return &copied
}

func (s *TaskStorage) GetByID(ctx context.Context, ownerID, taskID string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[ownerID][taskID]
	if !ok {
		return nil, repo.ErrNotFound
	}

	return clone(taskToGet), nil
}

func (s *TaskStorage) ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.order[ownerID] {
		taskToGet, ok := s.storage[ownerID][id]
		if !ok {
			continue
		}
		res = append(res, clone(taskToGet))
	}

	return res, nil
}

// Update - полная замена документа, последняя запись побеждает.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	owner := taskToUpdate.UserID
	if _, ok := s.storage[owner][taskToUpdate.ID]; !ok {
		return repo.ErrNotFound
	}

	now := time.Now()
	taskToUpdate.UpdatedAt = &now

	s.storage[owner][taskToUpdate.ID] = clone(taskToUpdate)
	return nil
}

// Delete идемпотентно: удаление несуществующего id не ошибка.
func (s *TaskStorage) Delete(ctx context.Context, ownerID, taskID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[ownerID][taskID]; !ok {
		return nil
	}

	delete(s.storage[ownerID], taskID)
	for ind, val := range s.order[ownerID] {
		if val == taskID {
			s.order[ownerID] = append(s.order[ownerID][:ind], s.order[ownerID][ind+1:]...)
			break
		}
	}
	return nil
}

func (s *TaskStorage) Owners(ctx context.Context) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	owners := make([]string, 0, len(s.storage))
	for owner, tasks := range s.storage {
		if len(tasks) == 0 {
			continue
		}
		owners = append(owners, owner)
	}
	return owners, nil
}
