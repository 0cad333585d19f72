package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskFlow/internal/logger"
	"taskFlow/internal/models/task"
	"taskFlow/internal/repository/task/inmemory"
	"taskFlow/internal/service"
)

func init() {
	logger.Init(true)
}

// MockTaskRepository - мок репозитория для проверки ошибок
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, ownerID, taskID string) (*task.Task, error) {
	args := m.Called(ctx, ownerID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]*task.Task, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, ownerID, taskID string) error {
	args := m.Called(ctx, ownerID, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) Owners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

// newService - сервис поверх реального inmemory-хранилища
func newService() service.TaskService {
	return service.NewTaskService(inmemory.NewTaskStorage())
}

func mustCreate(t *testing.T, svc *service.TaskService, ownerID, title string) *task.Task {
	t.Helper()
	created, err := svc.CreateTask(context.Background(), ownerID, &task.Task{
		Title:   title,
		DueDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	return created
}

// TestCreateTask_RoundTrip - создание и чтение: тот же id, все дефолты на месте
func TestCreateTask_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	created, err := svc.CreateTask(ctx, "uid-1", &task.Task{
		Title:    "X",
		DueDate:  time.Now().Add(24 * time.Hour),
		SubTasks: []task.SubTask{},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "uid-1", got.UserID)
	assert.Equal(t, task.PriorityMedium, got.Priority)
	assert.Equal(t, task.StatusTodo, got.Status)
	assert.NotNil(t, got.SubTasks)
	assert.NotNil(t, got.WorkLog)
	assert.False(t, got.Done)
	assert.Nil(t, got.CompletedAt)
}

// TestCreateTask_Validation
func TestCreateTask_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CreateTask(ctx, "uid-1", &task.Task{DueDate: time.Now().Add(time.Hour)})
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeValidation, businessErr.Code)

	_, err = svc.CreateTask(ctx, "uid-1", &task.Task{Title: "без дедлайна"})
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeValidation, businessErr.Code)
}

// TestGetTask_NotFound - отсутствующая задача это NOT_FOUND, а не 500
func TestGetTask_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.GetTask(ctx, "uid-1", "нет-такого-id")
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeNotFound, businessErr.Code)
}

// TestSetTaskDone_Coupling - инвариант done <-> completedAt в обе стороны
func TestSetTaskDone_Coupling(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "связка")

	require.NoError(t, svc.SetTaskDone(ctx, "uid-1", created.ID, true))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.True(t, got.Done)
	require.NotNil(t, got.CompletedAt)

	require.NoError(t, svc.SetTaskDone(ctx, "uid-1", created.ID, false))

	got, err = svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.False(t, got.Done)
	assert.Nil(t, got.CompletedAt)
}

// TestUpdateTask_DoesNotCouple - генеральный путь обновления связку не держит:
// WithDone(true) не выставляет completedAt
func TestUpdateTask_DoesNotCouple(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "без связки")

	updated, err := svc.UpdateTask(ctx, "uid-1", created.ID, task.WithDone(true))
	require.NoError(t, err)

	assert.True(t, updated.Done)
	assert.Nil(t, updated.CompletedAt)
}

// TestUpdateTask_PartialMerge - нетронутые поля сохраняются
func TestUpdateTask_PartialMerge(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	created, err := svc.CreateTask(ctx, "uid-1", &task.Task{
		Title:       "исходная",
		Description: "описание",
		Priority:    task.PriorityHigh,
		DueDate:     time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = svc.UpdateTask(ctx, "uid-1", created.ID, task.WithTitle("новая"))
	require.NoError(t, err)

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "новая", got.Title)
	assert.Equal(t, "описание", got.Description)
	assert.Equal(t, task.PriorityHigh, got.Priority)
}

// TestSetTaskStatus_Coupling - канбан-переход в done и обратно
func TestSetTaskStatus_Coupling(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "канбан")

	require.NoError(t, svc.SetTaskStatus(ctx, "uid-1", created.ID, task.StatusDone, "user@example.com"))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.True(t, got.Done)
	require.NotNil(t, got.CompletedAt)
	require.Len(t, got.WorkLog, 1)
	assert.Equal(t, task.LogStatusChange, got.WorkLog[0].Type)
	assert.Equal(t, "user@example.com", got.WorkLog[0].Author)

	require.NoError(t, svc.SetTaskStatus(ctx, "uid-1", created.ID, task.StatusDoing, "user@example.com"))

	got, err = svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDoing, got.Status)
	assert.False(t, got.Done)
	assert.Nil(t, got.CompletedAt)
	assert.Len(t, got.WorkLog, 2)
}

// TestSetTaskStatus_Invalid
func TestSetTaskStatus_Invalid(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "статус")

	err := svc.SetTaskStatus(ctx, "uid-1", created.ID, "archived", "user@example.com")
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeValidation, businessErr.Code)
}

// TestSubTask_AddRemoveRoundTrip - добавление и удаление того же значения
// возвращает массив к исходному состоянию
func TestSubTask_AddRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "подзадачи")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "base", Title: "остаётся"}))

	before, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)

	added := task.SubTask{ID: "sub-1", Title: "временная", Done: false}
	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, added))
	require.NoError(t, svc.RemoveSubTask(ctx, "uid-1", created.ID, added))

	after, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, before.SubTasks, after.SubTasks)
}

// TestAddSubTask_GeneratesID
func TestAddSubTask_GeneratesID(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "генерация id")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{Title: "без id"}))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	require.Len(t, got.SubTasks, 1)
	assert.NotEmpty(t, got.SubTasks[0].ID)
}

// TestAddSubTask_DuplicateID
func TestAddSubTask_DuplicateID(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "дубликат")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "dup", Title: "первая"}))

	err := svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "dup", Title: "вторая"})
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeValidation, businessErr.Code)

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Len(t, got.SubTasks, 1)
}

// TestRemoveSubTask_NoMatch - удаление несовпадающего значения ничего не меняет
func TestRemoveSubTask_NoMatch(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "без совпадения")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "s1", Title: "есть"}))
	require.NoError(t, svc.RemoveSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "чужой"}))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Len(t, got.SubTasks, 1)
}

// TestRemoveSubTask_StructuralMatch - без id совпадение по всей структуре
func TestRemoveSubTask_StructuralMatch(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "структурное совпадение")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "s1", Title: "цель", Done: true}))
	require.NoError(t, svc.RemoveSubTask(ctx, "uid-1", created.ID, task.SubTask{Title: "цель", Done: true}))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.Len(t, got.SubTasks, 0)
}

// TestToggleSubTask_Idempotent - выставление уже стоящего done ничего не меняет
func TestToggleSubTask_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "идемпотентность")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "s1", Title: "шаг"}))

	done := true
	require.NoError(t, svc.ToggleSubTask(ctx, "uid-1", created.ID, "s1", &done))
	require.NoError(t, svc.ToggleSubTask(ctx, "uid-1", created.ID, "s1", &done))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	require.Len(t, got.SubTasks, 1)
	assert.True(t, got.SubTasks[0].Done)
}

// TestToggleSubTask_Flip - без явного значения флаг инвертируется
func TestToggleSubTask_Flip(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "переключение")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "s1", Title: "шаг"}))
	require.NoError(t, svc.ToggleSubTask(ctx, "uid-1", created.ID, "s1", nil))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.True(t, got.SubTasks[0].Done)
}

// TestToggleSubTaskByIndex - позиционная адресация разрешается в id
func TestToggleSubTaskByIndex(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "по индексу")

	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "s1", Title: "первая"}))
	require.NoError(t, svc.AddSubTask(ctx, "uid-1", created.ID, task.SubTask{ID: "s2", Title: "вторая"}))

	done := true
	require.NoError(t, svc.ToggleSubTaskByIndex(ctx, "uid-1", created.ID, 1, &done))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	assert.False(t, got.SubTasks[0].Done)
	assert.True(t, got.SubTasks[1].Done)

	err = svc.ToggleSubTaskByIndex(ctx, "uid-1", created.ID, 5, &done)
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeValidation, businessErr.Code)
}

// TestAppendWorkLog - журнал только растёт, прошлые записи не трогаются
func TestAppendWorkLog(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, &svc, "uid-1", "журнал")

	require.NoError(t, svc.AppendWorkLog(ctx, "uid-1", created.ID, task.WorkLog{
		Author:  "user@example.com",
		Message: "первый комментарий",
	}))
	require.NoError(t, svc.AppendWorkLog(ctx, "uid-1", created.ID, task.WorkLog{
		Author:  "user@example.com",
		Message: "второй комментарий",
		Type:    task.LogEdit,
	}))

	got, err := svc.GetTask(ctx, "uid-1", created.ID)
	require.NoError(t, err)
	require.Len(t, got.WorkLog, 2)

	assert.Equal(t, "первый комментарий", got.WorkLog[0].Message)
	assert.NotEmpty(t, got.WorkLog[0].ID)
	assert.False(t, got.WorkLog[0].Timestamp.IsZero())
	assert.Equal(t, task.LogComment, got.WorkLog[0].Type)
	assert.Equal(t, task.LogEdit, got.WorkLog[1].Type)
}

// TestDeleteTask_Idempotent - удаление несуществующего id не ошибка
// и не трогает коллекцию владельца
func TestDeleteTask_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	mustCreate(t, &svc, "uid-1", "остаётся")

	require.NoError(t, svc.DeleteTask(ctx, "uid-1", "нет-такого-id"))

	tasks, err := svc.ListTasks(ctx, "uid-1")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

// TestListTasks_OwnerScoped - чужие задачи не видны
func TestListTasks_OwnerScoped(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	mustCreate(t, &svc, "uid-1", "моя")
	mustCreate(t, &svc, "uid-2", "чужая")

	tasks, err := svc.ListTasks(ctx, "uid-1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "моя", tasks[0].Title)

	_, err = svc.GetTask(ctx, "uid-2", tasks[0].ID)
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeNotFound, businessErr.Code)
}

// TestDashboardCounts
func TestDashboardCounts(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	now := time.Now()

	overdueTask, err := svc.CreateTask(ctx, "uid-1", &task.Task{Title: "просрочена", DueDate: now.AddDate(0, 0, -2)})
	require.NoError(t, err)
	_ = overdueTask

	doneTask := mustCreate(t, &svc, "uid-1", "выполнена")
	require.NoError(t, svc.SetTaskDone(ctx, "uid-1", doneTask.ID, true))

	counts, err := svc.DashboardCounts(ctx, "uid-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Pending)
	assert.Equal(t, 1, counts.DoneThisWeek)
	assert.Equal(t, 1, counts.Overdue)
}

// TestStoreUnavailable - ошибка хранилища превращается в STORE_UNAVAILABLE
func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("ListByOwner", mock.Anything, "uid-1").Return(nil, errors.New("connection refused"))

	svc := service.NewTaskService(mockRepo)

	_, err := svc.ListTasks(ctx, "uid-1")
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, service.CodeUnavailable, businessErr.Code)

	mockRepo.AssertExpectations(t)
}

// TestReplaceTask_MissingIsNoop - замена отсутствующего id молча пропускается
func TestReplaceTask_MissingIsNoop(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	err := svc.ReplaceTask(ctx, "uid-1", &task.Task{ID: "призрак", Title: "нет такой"})
	require.NoError(t, err)

	tasks, err := svc.ListTasks(ctx, "uid-1")
	require.NoError(t, err)
	assert.Len(t, tasks, 0)
}
