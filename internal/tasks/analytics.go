package tasks

import (
	"time"

	"github.com/doease/doease/internal/domain"
)

// Stats summarizes a task list.
type Stats struct {
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	// CompletionRate is a rounded percentage, 0 for an empty list.
	CompletionRate int `json:"completion_rate"`
}

// DayCount is one bucket of the weekly productivity series.
type DayCount struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

// Report is the analytics payload rendered by the dashboard.
type Report struct {
	Stats      Stats                   `json:"stats"`
	Weekly     []DayCount              `json:"weekly"`
	ByPriority map[domain.Priority]int `json:"by_priority"`
}

// ComputeStats derives the headline numbers.
func ComputeStats(tasks []domain.Task) Stats {
	s := Stats{TotalTasks: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.CompletedTasks++
		}
	}
	if s.TotalTasks > 0 {
		s.CompletionRate = int(float64(s.CompletedTasks)/float64(s.TotalTasks)*100 + 0.5)
	}
	return s
}

// WeeklyCompleted buckets completed tasks into the last seven days by
// creation date, oldest bucket first. Creation date stands in for a
// completion timestamp, which the table does not record.
func WeeklyCompleted(tasks []domain.Task, now time.Time) []DayCount {
	buckets := make([]DayCount, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i-6).Format("2006-01-02")
		buckets[i] = DayCount{Date: day}
		index[day] = i
	}

	for _, t := range tasks {
		if !t.Completed {
			continue
		}
		day := t.CreatedAt.Format("2006-01-02")
		if i, ok := index[day]; ok {
			buckets[i].Completed++
		}
	}
	return buckets
}

// PriorityBreakdown counts open and done tasks per priority level.
func PriorityBreakdown(tasks []domain.Task) map[domain.Priority]int {
	out := map[domain.Priority]int{
		domain.PriorityLow:    0,
		domain.PriorityMedium: 0,
		domain.PriorityHigh:   0,
	}
	for _, t := range tasks {
		out[t.Priority]++
	}
	return out
}

// BuildReport assembles the full analytics payload.
func BuildReport(tasks []domain.Task, now time.Time) Report {
	return Report{
		Stats:      ComputeStats(tasks),
		Weekly:     WeeklyCompleted(tasks, now),
		ByPriority: PriorityBreakdown(tasks),
	}
}
