package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"taskFlow/internal/config"
	"taskFlow/internal/handlers"
	"taskFlow/internal/logger"
	"taskFlow/internal/middleware"
	"taskFlow/internal/repository/task/file"
	fsrepo "taskFlow/internal/repository/task/firestore"
	"taskFlow/internal/repository/task/inmemory"
	"taskFlow/internal/repository/task/postgres"
	"taskFlow/internal/service"
	"taskFlow/internal/worker"
)

// Repository - хранилище плюс освобождение ресурсов при остановке.
type Repository interface {
	service.TaskRepository
	Close()
}

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	repo      Repository
	worker    *worker.OverdueWorker
	shutdowns []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {

	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repo, err := a.buildRepository(ctx)
	if err != nil {
		return fmt.Errorf("инициализация хранилища: %w", err)
	}
	a.repo = repo
	a.shutdowns = append(a.shutdowns, repo.Close)

	taskService := service.NewTaskService(a.repo)
	taskHandler := handlers.NewTaskHandler(&taskService)

	if a.config.Worker.Enabled {
		a.worker = worker.NewOverdueWorker(a.repo, a.config.Worker.Interval)
	}

	a.router = a.buildRouter(&taskHandler)
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	return nil
}

func (a *App) buildRepository(ctx context.Context) (Repository, error) {
	switch a.config.Repository.Type {
	case "firestore":
		return fsrepo.New(ctx,
			a.config.Repository.Firestore.ProjectID,
			a.config.Repository.Firestore.CredentialsFile)
	case "file":
		return file.New(a.config.Repository.File.Path)
	case "postgres":
		if a.config.Repository.Postgres.Migrate {
			if err := postgres.Migrate(a.config.Repository.Postgres.URL); err != nil {
				return nil, err
			}
		}
		return postgres.New(ctx, a.config.Repository.Postgres.URL)
	case "inmemory":
		return inmemory.NewTaskStorage(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %s", a.config.Repository.Type)
	}
}

func (a *App) buildRouter(taskHandler *handlers.TaskHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.RateLimit(a.config.RateLimit.RPM))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
		MaxAge:         300,
	}))

	r.Route("/tasks/{ownerID}", func(r chi.Router) {
		r.Use(middleware.OwnerAuth(a.config.Auth.Enabled, a.config.Auth.Secret))

		r.Get("/", taskHandler.GetTasks)      // GET /tasks/{ownerID}
		r.Post("/", taskHandler.PostTask)     // POST /tasks/{ownerID}
		r.Put("/", taskHandler.PutTask)       // PUT /tasks/{ownerID}
		r.Delete("/", taskHandler.DeleteTask) // DELETE /tasks/{ownerID}

		r.Get("/stats", taskHandler.GetStats) // GET /tasks/{ownerID}/stats

		r.Route("/{taskID}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTaskByID)  // GET /tasks/{ownerID}/{taskID}
			r.Patch("/", taskHandler.PatchTask)  // PATCH /tasks/{ownerID}/{taskID}
			r.Post("/done", taskHandler.SetDone) // POST /tasks/{ownerID}/{taskID}/done
			r.Post("/status", taskHandler.SetStatus)
			r.Post("/subtasks", taskHandler.AddSubTask)
			r.Delete("/subtasks", taskHandler.RemoveSubTask)
			r.Post("/subtasks/toggle", taskHandler.ToggleSubTask)
			r.Post("/worklog", taskHandler.AppendWorkLog)
		})
	})

	r.Get("/health", taskHandler.HealthCheck)

	return r
}

// Run запускает сервер и фонового воркера и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if a.worker != nil {
		go a.worker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started: " + a.config.GetServerAddr())
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("сервер упал: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки сервера", err)
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	return nil
}
