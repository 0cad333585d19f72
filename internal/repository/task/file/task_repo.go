// Package file - хранилище задач в одном JSON-файле на диске.
// Формат: объект владелец -> массив задач. Каждая запись - это
// чтение-изменение-перезапись всего файла, без блокировок между
// процессами (последняя запись побеждает).
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	repo "taskFlow/internal/repository"
)

type TaskStorage struct {
	path string
	mtx  *sync.Mutex
}

func New(path string) (*TaskStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("путь к файлу задач не задан")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога данных: %w", err)
	}

	logger.Info("Repository: Файловое хранилище готово", zap.String("path", path))
	return &TaskStorage{
		path: path,
		mtx:  &sync.Mutex{},
	}, nil
}

func (s *TaskStorage) Close() {}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	_, err := s.load()
	if err != nil {
		logger.Error("Repository: Файл задач нечитаем", err)
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}
	return nil
}

// load читает весь файл. Отсутствующий файл - пустая база.
func (s *TaskStorage) load() (map[string][]*task.Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string][]*task.Task{}, nil
		}
		return nil, fmt.Errorf("чтение файла задач: %w", err)
	}

	db := map[string][]*task.Task{}
	if len(data) == 0 {
		return db, nil
	}
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("разбор файла задач: %w", err)
	}
	return db, nil
}

// save перезаписывает файл целиком через временный файл и rename,
// чтобы не оставить полузаписанную базу при падении.
func (s *TaskStorage) save(db map[string][]*task.Task) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация базы задач: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("запись файла задач: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("замена файла задач: %w", err)
	}
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	start := time.Now()

	db, err := s.load()
	if err != nil {
		logger.Error("Repository: Создание задачи", err)
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	taskToCreate.CreatedAt = time.Now()
	db[taskToCreate.UserID] = append(db[taskToCreate.UserID], taskToCreate)

	if err := s.save(db); err != nil {
		logger.Error("Repository: Создание задачи", err)
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, ownerID, taskID string) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	db, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	for _, t := range db[ownerID] {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *TaskStorage) ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	db, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	tasks := db[ownerID]
	if tasks == nil {
		tasks = []*task.Task{}
	}
	return tasks, nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	db, err := s.load()
	if err != nil {
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	found := false
	for i, t := range db[taskToUpdate.UserID] {
		if t.ID == taskToUpdate.ID {
			now := time.Now()
			taskToUpdate.UpdatedAt = &now
			db[taskToUpdate.UserID][i] = taskToUpdate
			found = true
			break
		}
	}
	if !found {
		return repo.ErrNotFound
	}

	if err := s.save(db); err != nil {
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}
	return nil
}

func (s *TaskStorage) Delete(ctx context.Context, ownerID, taskID string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	db, err := s.load()
	if err != nil {
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	tasks := db[ownerID]
	filtered := tasks[:0]
	for _, t := range tasks {
		if t.ID != taskID {
			filtered = append(filtered, t)
		}
	}

	// удаление несуществующего id не ошибка и не трогает файл
	if len(filtered) == len(tasks) {
		return nil
	}

	db[ownerID] = filtered
	if err := s.save(db); err != nil {
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}
	return nil
}

func (s *TaskStorage) Owners(ctx context.Context) ([]string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	db, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}

	owners := make([]string, 0, len(db))
	for owner, tasks := range db {
		if len(tasks) == 0 {
			continue
		}
		owners = append(owners, owner)
	}
	return owners, nil
}
