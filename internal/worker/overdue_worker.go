package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	"taskFlow/internal/service"
)

// OverdueWorker периодически обходит задачи всех владельцев и пишет в лог
// сводку по просроченным. Данные пользователей он не меняет: конкурентная
// фоновая запись ломала бы семантику "последняя запись побеждает"
// для клиентских сессий.
type OverdueWorker struct {
	repo     service.TaskRepository
	interval time.Duration
}

func NewOverdueWorker(repo service.TaskRepository, interval time.Duration) *OverdueWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OverdueWorker{
		repo:     repo,
		interval: interval,
	}
}

func (w *OverdueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая проверка задач на просроченность", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

func (w *OverdueWorker) Check(ctx context.Context) {
	start := time.Now()

	owners, err := w.repo.Owners(ctx)
	if err != nil {
		logger.Warn("Worker: ошибка получения владельцев", zap.Error(err))
		return
	}

	now := time.Now()
	totalChecked := 0
	totalOverdue := 0

	for _, owner := range owners {
		tasks, err := w.repo.ListByOwner(ctx, owner)
		if err != nil {
			logger.Warn("Worker: ошибка получения задач",
				zap.Error(err),
				zap.String("owner_id", owner))
			continue
		}

		overdue := 0
		for _, t := range tasks {
			if task.IsOverdue(t, now) {
				overdue++
			}
		}

		totalChecked += len(tasks)
		totalOverdue += overdue

		if overdue > 0 {
			logger.Info("Worker: У владельца есть просроченные задачи",
				zap.String("owner_id", owner),
				zap.Int("overdue", overdue),
				zap.Int("total", len(tasks)))
		}
	}

	logger.Info("Worker: Завершение проверки задач",
		zap.Duration("ms", time.Since(start)),
		zap.Int("owners", len(owners)),
		zap.Int("checked", totalChecked),
		zap.Int("overdue", totalOverdue),
	)
}
