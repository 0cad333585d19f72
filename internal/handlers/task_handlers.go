package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taskFlow/internal/handlers/dto"
	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		respondServiceError(w, err, "health_check")
		return
	}
	healthCheck(w)
}

// GetTasks - GET /tasks/{ownerID}: все задачи владельца, пустой массив
// если задач нет.
func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	ownerID := chi.URLParam(r, "ownerID")

	tasks, err := s.TaskService.ListTasks(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

// PostTask - POST /tasks/{ownerID}: создание задачи, id назначает сервер.
func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")

	created, err := s.TaskService.CreateTask(r.Context(), ownerID, request.ToTask())
	if err != nil {
		respondServiceError(w, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, created)
}

// PutTask - PUT /tasks/{ownerID}: полная замена задачи по id из тела.
// Ответ повторяет тело запроса.
func (s *TaskHandler) PutTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var taskToStore task.Task
	if err := json.NewDecoder(r.Body).Decode(&taskToStore); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	if taskToStore.ID == "" {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "id"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	ownerID := chi.URLParam(r, "ownerID")

	if err := s.TaskService.ReplaceTask(r.Context(), ownerID, &taskToStore); err != nil {
		respondServiceError(w, err, "replace_task")
		return
	}

	logger.Info("HTTP_OUT: Задача заменена",
		zap.String("task_id", taskToStore.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, taskToStore)
}

// DeleteTask - DELETE /tasks/{ownerID} с телом {"id": ...}. Идемпотентно.
func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.DeleteTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	if request.ID == "" {
		responseWithError(w, http.StatusBadRequest, "id не может быть пустым")
		return
	}

	ownerID := chi.URLParam(r, "ownerID")

	if err := s.TaskService.DeleteTask(r.Context(), ownerID, request.ID); err != nil {
		respondServiceError(w, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", request.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GetTaskByID - GET /tasks/{ownerID}/{taskID}.
func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	t, err := s.TaskService.GetTask(r.Context(), ownerID, taskID)
	if err != nil {
		respondServiceError(w, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", t.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTask(t))
}

// PatchTask - PATCH /tasks/{ownerID}/{taskID}: частичное обновление.
// Связку done/completedAt этот путь не поддерживает - для неё есть
// /done и /status.
func (s *TaskHandler) PatchTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	updated, err := s.TaskService.UpdateTask(r.Context(), ownerID, taskID, request.Options()...)
	if err != nil {
		respondServiceError(w, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", taskID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTask(updated))
}

// SetDone - POST /tasks/{ownerID}/{taskID}/done: единственный путь,
// который держит инвариант done <-> completedAt.
func (s *TaskHandler) SetDone(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SetDoneRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	if err := s.TaskService.SetTaskDone(r.Context(), ownerID, taskID, request.Done); err != nil {
		respondServiceError(w, err, "set_done")
		return
	}

	responseWithJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// SetStatus - POST /tasks/{ownerID}/{taskID}/status: канбан-переход.
func (s *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	if err := s.TaskService.SetTaskStatus(r.Context(), ownerID, taskID, request.Status, request.Author); err != nil {
		respondServiceError(w, err, "set_status")
		return
	}

	responseWithJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// AddSubTask - POST /tasks/{ownerID}/{taskID}/subtasks.
func (s *TaskHandler) AddSubTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var subTask task.SubTask
	if err := json.NewDecoder(r.Body).Decode(&subTask); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	if subTask.Title == "" {
		responseWithError(w, http.StatusBadRequest, "название подзадачи не может быть пустым")
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	if err := s.TaskService.AddSubTask(r.Context(), ownerID, taskID, subTask); err != nil {
		respondServiceError(w, err, "add_subtask")
		return
	}

	responseWithJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

// RemoveSubTask - DELETE /tasks/{ownerID}/{taskID}/subtasks: удаление по
// совпадению значения, в теле передаётся точная хранимая подзадача.
func (s *TaskHandler) RemoveSubTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var subTask task.SubTask
	if err := json.NewDecoder(r.Body).Decode(&subTask); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	if err := s.TaskService.RemoveSubTask(r.Context(), ownerID, taskID, subTask); err != nil {
		respondServiceError(w, err, "remove_subtask")
		return
	}

	responseWithJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ToggleSubTask - POST /tasks/{ownerID}/{taskID}/subtasks/toggle.
// Адресация по id; индекс принимается как совместимость и разрешается
// в id на стороне сервиса.
func (s *TaskHandler) ToggleSubTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.ToggleSubTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	var err error
	switch {
	case request.ID != nil:
		err = s.TaskService.ToggleSubTask(r.Context(), ownerID, taskID, *request.ID, request.Done)
	case request.Index != nil:
		err = s.TaskService.ToggleSubTaskByIndex(r.Context(), ownerID, taskID, *request.Index, request.Done)
	default:
		responseWithError(w, http.StatusBadRequest, "нужно передать id или index подзадачи")
		return
	}
	if err != nil {
		respondServiceError(w, err, "toggle_subtask")
		return
	}

	responseWithJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// AppendWorkLog - POST /tasks/{ownerID}/{taskID}/worklog.
func (s *TaskHandler) AppendWorkLog(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var entry task.WorkLog
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	ownerID := chi.URLParam(r, "ownerID")
	taskID := chi.URLParam(r, "taskID")

	if err := s.TaskService.AppendWorkLog(r.Context(), ownerID, taskID, entry); err != nil {
		respondServiceError(w, err, "append_worklog")
		return
	}

	responseWithJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

// GetStats - GET /tasks/{ownerID}/stats: агрегаты для дашборда.
func (s *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	ownerID := chi.URLParam(r, "ownerID")

	counts, err := s.TaskService.DashboardCounts(r.Context(), ownerID, time.Now())
	if err != nil {
		respondServiceError(w, err, "dashboard_counts")
		return
	}

	logger.Info("HTTP_OUT: Агрегаты посчитаны",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, counts)
}
