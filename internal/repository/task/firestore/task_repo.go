// Package firestore - документное хранилище задач. Документы лежат по пути
// users/{ownerID}/tasks/{taskID}, подзадачи и журнал встроены в документ.
// Используются только точечные чтения и полные сканы коллекции,
// составных индексов нет.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	repo "taskFlow/internal/repository"
)

type Storage struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID, credentialsFile string) (*Storage, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		logger.Error("Repository: Ошибка подключения к Firestore", err)
		return nil, fmt.Errorf("подключение к firestore: %w", err)
	}

	logger.Info("Repository: Успешное подключение к Firestore", zap.String("project", projectID))
	return &Storage{client: client}, nil
}

func (s *Storage) Close() {
	s.client.Close()
	logger.Info("Repository: Закрытие клиента Firestore")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	// дешёвая проверка: одно точечное чтение заведомо отсутствующего документа
	_, err := s.client.Collection("users").Doc("_health").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		logger.Error("Repository: Firestore недоступен", err)
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) tasks(ownerID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(ownerID).Collection("tasks")
}

// mapError переводит коды gRPC в ошибки хранилища.
func mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return repo.ErrNotFound
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", repo.ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	taskToCreate.CreatedAt = time.Now()
	_, err := s.tasks(taskToCreate.UserID).Doc(taskToCreate.ID).Set(ctx, taskToCreate)
	if err != nil {
		logger.Error("Repository: Создание задачи", err, zap.Duration("ms", time.Since(start)))
		return mapError(err)
	}

	if time.Since(start) > time.Millisecond*300 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, ownerID, taskID string) (*task.Task, error) {
	snap, err := s.tasks(ownerID).Doc(taskID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Получение задачи", err)
		return nil, mapError(err)
	}

	var t task.Task
	if err := snap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("разбор документа: %w", err)
	}
	t.ID = snap.Ref.ID
	return &t, nil
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	start := time.Now()

	res := []*task.Task{}
	iter := s.tasks(ownerID).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Repository: Скан коллекции задач", err)
			return nil, mapError(err)
		}

		var t task.Task
		if err := snap.DataTo(&t); err != nil {
			return nil, fmt.Errorf("разбор документа: %w", err)
		}
		t.ID = snap.Ref.ID
		res = append(res, &t)
	}

	if time.Since(start) > time.Millisecond*500 {
		logger.Warn("Repository: Медленный скан", zap.Duration("ms", time.Since(start)), zap.Int("tasks", len(res)))
	}
	return res, nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	ref := s.tasks(taskToUpdate.UserID).Doc(taskToUpdate.ID)

	// полная замена документа; существование проверяется точечным чтением,
	// между чтением и записью побеждает последняя запись
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return repo.ErrNotFound
		}
		return mapError(err)
	}

	now := time.Now()
	taskToUpdate.UpdatedAt = &now

	if _, err := ref.Set(ctx, taskToUpdate); err != nil {
		logger.Error("Repository: Обновление задачи", err)
		return mapError(err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, ownerID, taskID string) error {
	// Delete в Firestore идемпотентен сам по себе
	if _, err := s.tasks(ownerID).Doc(taskID).Delete(ctx); err != nil {
		logger.Error("Repository: Удаление задачи", err)
		return mapError(err)
	}
	return nil
}

func (s *Storage) Owners(ctx context.Context) ([]string, error) {
	owners := []string{}
	iter := s.client.Collection("users").DocumentRefs(ctx)

	for {
		ref, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Repository: Скан владельцев", err)
			return nil, mapError(err)
		}
		owners = append(owners, ref.ID)
	}
	return owners, nil
}
