// Package postgres хранит задачу как JSONB-документ целиком,
// с составным ключом (owner_id, id). Семантика та же, что у
// документного хранилища: полная замена документа, последняя
// запись побеждает.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	repo "taskFlow/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("%w: проверка соединения: %s", repo.ErrUnavailable, err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

// Migrate применяет встроенные миграции.
func Migrate(connString string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("чтение миграций: %w", err)
	}

	url := strings.Replace(connString, "postgres://", "pgx5://", 1)
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("инициализация мигратора: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Repository: Миграции применены")
	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("%w: %s", repo.ErrUnavailable, err)
	}
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	taskToCreate.CreatedAt = time.Now()
	doc, err := json.Marshal(taskToCreate)
	if err != nil {
		return fmt.Errorf("сериализация документа: %w", err)
	}

	query := `INSERT INTO tasks (owner_id, id, doc, created_at)
			VALUES ($1, $2, $3, $4)`

	_, err = s.pool.Exec(ctx, query, taskToCreate.UserID, taskToCreate.ID, doc, taskToCreate.CreatedAt)
	if err != nil {
		logger.Error("Repository: Создание задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("%w: создание задачи: %s", repo.ErrUnavailable, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, ownerID, taskID string) (*task.Task, error) {
	query := `SELECT doc FROM tasks
			WHERE owner_id = $1 AND id = $2`

	var doc []byte
	err := s.pool.QueryRow(ctx, query, ownerID, taskID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Получение задачи", err)
		return nil, fmt.Errorf("%w: получение задачи: %s", repo.ErrUnavailable, err)
	}

	var t task.Task
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("разбор документа: %w", err)
	}
	return &t, nil
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT doc FROM tasks
			WHERE owner_id = $1
			ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		logger.Error("Repository: Получение задач владельца", err)
		return nil, fmt.Errorf("%w: получение задач: %s", repo.ErrUnavailable, err)
	}
	defer rows.Close()

	res := []*task.Task{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: чтение строки: %s", repo.ErrUnavailable, err)
		}

		var t task.Task
		if err := json.Unmarshal(doc, &t); err != nil {
			return nil, fmt.Errorf("разбор документа: %w", err)
		}
		res = append(res, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: обход строк: %s", repo.ErrUnavailable, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return res, nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	now := time.Now()
	taskToUpdate.UpdatedAt = &now

	doc, err := json.Marshal(taskToUpdate)
	if err != nil {
		return fmt.Errorf("сериализация документа: %w", err)
	}

	query := `UPDATE tasks
			SET doc = $1,
				updated_at = $2
			WHERE owner_id = $3 AND id = $4`

	tag, err := s.pool.Exec(ctx, query, doc, now, taskToUpdate.UserID, taskToUpdate.ID)
	if err != nil {
		logger.Error("Repository: Обновление задачи", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("%w: обновление задачи: %s", repo.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, ownerID, taskID string) error {
	query := `DELETE FROM tasks
			WHERE owner_id = $1 AND id = $2`

	// нулевое число удалённых строк не ошибка - удаление идемпотентно
	_, err := s.pool.Exec(ctx, query, ownerID, taskID)
	if err != nil {
		logger.Error("Repository: Удаление задачи", err)
		return fmt.Errorf("%w: удаление задачи: %s", repo.ErrUnavailable, err)
	}
	return nil
}

func (s *Storage) Owners(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT owner_id FROM tasks`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: Скан владельцев", err)
		return nil, fmt.Errorf("%w: скан владельцев: %s", repo.ErrUnavailable, err)
	}
	defer rows.Close()

	owners := []string{}
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("%w: чтение строки: %s", repo.ErrUnavailable, err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
