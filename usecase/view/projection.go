// Package view consumes read-only task snapshots and a declarative
// filter/sort/group specification to produce a display order. It never
// mutates engine state.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/brainbow/syncd/domain"
)

// Group is one bucket of a grouped projection.
type Group struct {
	Key   string        `json:"key"`
	Tasks []domain.Task `json:"tasks"`
}

// Apply filters and sorts a snapshot according to the filter. The input
// slice is not modified.
func Apply(tasks []domain.Task, f domain.Filter) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if matches(task, f) {
			out = append(out, task)
		}
	}
	sortTasks(out, f.SortBy, f.SortOrder)
	return out
}

// Grouped applies the filter and splits the result into groups, preserving
// the sorted order inside each group. An empty GroupBy yields one group.
func Grouped(tasks []domain.Task, f domain.Filter) []Group {
	filtered := Apply(tasks, f)
	if f.GroupBy == domain.GroupByNone {
		return []Group{{Key: "", Tasks: filtered}}
	}

	index := make(map[string]int)
	var groups []Group
	for _, task := range filtered {
		key := groupKey(task, f.GroupBy)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Tasks = append(groups[i].Tasks, task)
	}
	return groups
}

// Counts mirrors the sidebar badges: total plus per-project tallies.
func Counts(tasks []domain.Task) map[string]int {
	counts := map[string]int{
		"all":                  len(tasks),
		domain.ProjectWork:     0,
		domain.ProjectPersonal: 0,
	}
	for _, task := range tasks {
		counts[task.Project]++
	}
	return counts
}

func matches(task domain.Task, f domain.Filter) bool {
	if f.Project != "" && f.Project != "all" && task.Project != f.Project {
		return false
	}
	if f.Assignee != "" && task.Assignee != f.Assignee {
		return false
	}
	if f.Priority != "" && task.Priority != f.Priority {
		return false
	}
	switch f.Status {
	case domain.StatusOpen:
		if task.Completed {
			return false
		}
	case domain.StatusCompleted:
		if !task.Completed {
			return false
		}
	}
	if f.From != nil && (task.Deadline == nil || task.Deadline.Before(*f.From)) {
		return false
	}
	if f.To != nil && (task.Deadline == nil || task.Deadline.After(*f.To)) {
		return false
	}
	for _, tag := range f.Tags {
		if !strings.Contains(strings.ToLower(task.Tags), strings.ToLower(tag)) {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(task.Title), needle) &&
			!strings.Contains(strings.ToLower(task.Description), needle) &&
			!strings.Contains(strings.ToLower(task.Tags), needle) {
			return false
		}
	}
	return true
}

func sortTasks(tasks []domain.Task, sortBy, order string) {
	if sortBy == "" {
		sortBy = domain.SortByCreatedAt
	}
	desc := order != domain.SortAsc

	sort.SliceStable(tasks, func(i, j int) bool {
		less := lessBy(tasks[i], tasks[j], sortBy)
		if desc {
			return lessBy(tasks[j], tasks[i], sortBy)
		}
		return less
	})
}

func lessBy(a, b domain.Task, sortBy string) bool {
	switch sortBy {
	case domain.SortByPriority:
		return priorityRank(a.Priority) < priorityRank(b.Priority)
	case domain.SortByTitle:
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	case domain.SortByDeadline:
		return timeOrZero(a.Deadline).Before(timeOrZero(b.Deadline))
	case domain.SortByUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func priorityRank(priority string) int {
	switch priority {
	case domain.PriorityLow:
		return 1
	case domain.PriorityHigh:
		return 3
	default:
		return 2
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func groupKey(task domain.Task, groupBy string) string {
	switch groupBy {
	case domain.GroupByProject:
		return task.Project
	case domain.GroupByPriority:
		return task.Priority
	case domain.GroupByAssignee:
		if task.Assignee == "" {
			return "unassigned"
		}
		return task.Assignee
	default:
		return ""
	}
}
