package task

import (
	"math"
	"time"
)

// Counts - агрегаты для дашборда.
type Counts struct {
	Pending      int `json:"pending"`
	DoneThisWeek int `json:"doneThisWeek"`
	Overdue      int `json:"overdue"`
}

// CompletionPercent считает процент выполненных подзадач, 0..100.
// Для задачи без подзадач всегда 0, деления на ноль нет.
func CompletionPercent(t *Task) int {
	total := len(t.SubTasks)
	if total == 0 {
		return 0
	}

	done := 0
	for _, st := range t.SubTasks {
		if st.Done {
			done++
		}
	}

	return int(math.Round(100 * float64(done) / float64(total)))
}

// IsOverdue - просрочена ли задача. Сравнение только по календарной дате,
// время суток не учитывается. Выполненная задача просроченной не бывает.
func IsOverdue(t *Task, now time.Time) bool {
	if t.Done {
		return false
	}
	if t.DueDate.IsZero() {
		return false
	}
	return dateOnly(t.DueDate).Before(dateOnly(now))
}

// AggregateCounts считает метрики дашборда за один проход.
func AggregateCounts(tasks []*Task, now time.Time, weekStart time.Time) Counts {
	var c Counts
	for _, t := range tasks {
		if !t.Done {
			c.Pending++
		}
		if t.Done && t.CompletedAt != nil && !t.CompletedAt.Before(weekStart) {
			c.DoneThisWeek++
		}
		if IsOverdue(t, now) {
			c.Overdue++
		}
	}
	return c
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
