package task

import (
	"time"
)

type Priority string
type Status string
type LogType string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

const StatusTodo Status = "todo"
const StatusDoing Status = "doing"
const StatusDone Status = "done"

const LogComment LogType = "comment"
const LogStatusChange LogType = "status_change"
const LogEdit LogType = "edit"

// Task - агрегат задачи. Подзадачи и журнал работ встроены в документ,
// отдельного жизненного цикла у них нет.
type Task struct {
	ID          string     `json:"id" firestore:"id"`
	UserID      string     `json:"userId" firestore:"userId"`
	Title       string     `json:"title" firestore:"title"`
	Description string     `json:"description" firestore:"description"`
	Priority    Priority   `json:"priority" firestore:"priority"`
	DueDate     time.Time  `json:"dueDate" firestore:"dueDate"`
	Done        bool       `json:"done" firestore:"done"`
	CompletedAt *time.Time `json:"completedAt" firestore:"completedAt"`
	Status      Status     `json:"status" firestore:"status"`
	SubTasks    []SubTask  `json:"subTasks" firestore:"subTasks"`
	WorkLog     []WorkLog  `json:"workLog" firestore:"workLog"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" firestore:"updatedAt"`
}

type SubTask struct {
	ID    string `json:"id" firestore:"id"`
	Title string `json:"title" firestore:"title"`
	Done  bool   `json:"done" firestore:"done"`
}

// WorkLog - запись журнала работ, только добавление, без изменений задним числом.
type WorkLog struct {
	ID        string    `json:"id" firestore:"id"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
	Author    string    `json:"author" firestore:"author"`
	Message   string    `json:"message" firestore:"message"`
	Type      LogType   `json:"type" firestore:"type"`
}

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDoing || s == StatusDone
}

// Normalize приводит задачу к полному виду: пустой приоритет становится medium,
// пустой статус - todo, nil-массивы - пустыми. Вызывается на каждом чтении,
// чтобы клиенты никогда не видели отсутствующих полей.
func (t *Task) Normalize() {
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		t.Status = StatusTodo
	}
	if t.SubTasks == nil {
		t.SubTasks = []SubTask{}
	}
	if t.WorkLog == nil {
		t.WorkLog = []WorkLog{}
	}
}

// FindSubTask ищет подзадачу по id.
func (t *Task) FindSubTask(id string) (int, bool) {
	for i, st := range t.SubTasks {
		if st.ID == id {
			return i, true
		}
	}
	return -1, false
}
