package viewstate

import (
	"projectdash/internal/models"
	"projectdash/internal/reorder"
)

// Group is one status section of the task list or one board column.
type Group struct {
	Status models.TaskStatus
	Tasks  []models.Task
}

// GroupTasks splits tasks by status in column order, each group sorted by
// order then creation time. Every column is present, possibly empty.
func GroupTasks(tasks []models.Task) []Group {
	byStatus := make(map[models.TaskStatus][]models.Task, len(models.TaskColumns))
	for _, t := range tasks {
		status := t.Status
		if status == "" {
			status = models.TaskTodo
		}
		byStatus[status] = append(byStatus[status], t)
	}
	groups := make([]Group, 0, len(models.TaskColumns))
	for _, status := range models.TaskColumns {
		group := byStatus[status]
		reorder.SortTasks(group)
		groups = append(groups, Group{Status: status, Tasks: group})
	}
	return groups
}

// Progress is the progress shown for a project: the stored value, or the
// share of completed tasks when none is stored.
func Progress(p models.ProjectSummary) int {
	return models.DisplayProgress(p.Progress, p.Tasks)
}
