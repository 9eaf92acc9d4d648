package reorder

import (
	"slices"

	"projectdash/internal/models"
)

// PlanKind classifies the outcome of a drop.
type PlanKind int

const (
	NoOp PlanKind = iota
	StatusChange
	Reorder
)

func (k PlanKind) String() string {
	switch k {
	case NoOp:
		return "noop"
	case StatusChange:
		return "status-change"
	case Reorder:
		return "reorder"
	}
	return "unknown"
}

// Change is one task whose order moves.
type Change struct {
	TaskID string
	From   int
	To     int
}

// Plan is what a drop asks the engine to do.
type Plan struct {
	Kind   PlanKind
	TaskID string
	// Status is the new status of a StatusChange, or the group of a Reorder.
	Status models.TaskStatus
	// Changed lists the tasks of a Reorder whose order differs, in group order.
	Changed []Change
}

// PlanKanban resolves a drop on the board. Columns and cards in another
// column move the task to that column's status; order within the destination
// is left to the server, which appends it.
func PlanKanban(tasks []models.Task, taskID string, target DropTarget) Plan {
	dragged, ok := find(tasks, taskID)
	if !ok {
		return Plan{Kind: NoOp}
	}
	var status models.TaskStatus
	switch target.Kind {
	case DropColumn:
		status = target.Status
	case DropTask:
		if target.TaskID == taskID {
			return Plan{Kind: NoOp}
		}
		over, ok := find(tasks, target.TaskID)
		if !ok {
			return Plan{Kind: NoOp}
		}
		status = over.Status
		if status == "" {
			status = models.TaskTodo
		}
	default:
		return Plan{Kind: NoOp}
	}
	if _, known := models.ValidTaskStatuses[status]; !known || status == dragged.Status {
		return Plan{Kind: NoOp}
	}
	return Plan{Kind: StatusChange, TaskID: taskID, Status: status}
}

// PlanList resolves a drop in the grouped list. Only drops on another task of
// the same status reorder; everything else is a no-op.
func PlanList(tasks []models.Task, taskID string, target DropTarget) Plan {
	if target.Kind != DropTask || target.TaskID == taskID {
		return Plan{Kind: NoOp}
	}
	dragged, ok := find(tasks, taskID)
	if !ok {
		return Plan{Kind: NoOp}
	}
	over, ok := find(tasks, target.TaskID)
	if !ok || over.Status != dragged.Status || over.ProjectID != dragged.ProjectID {
		return Plan{Kind: NoOp}
	}

	group := Siblings(tasks, dragged.ProjectID, dragged.Status)
	from := slices.IndexFunc(group, func(t models.Task) bool { return t.ID == taskID })
	to := slices.IndexFunc(group, func(t models.Task) bool { return t.ID == target.TaskID })
	moved := slices.Insert(slices.Delete(slices.Clone(group), from, from+1), to, dragged)

	plan := Plan{Kind: Reorder, TaskID: taskID, Status: dragged.Status}
	for i, t := range moved {
		if t.Order != i {
			plan.Changed = append(plan.Changed, Change{TaskID: t.ID, From: t.Order, To: i})
		}
	}
	if len(plan.Changed) == 0 {
		return Plan{Kind: NoOp}
	}
	return plan
}

// Siblings returns the tasks of one status group sorted by order, then
// creation time.
func Siblings(tasks []models.Task, projectID string, status models.TaskStatus) []models.Task {
	var group []models.Task
	for _, t := range tasks {
		if t.ProjectID == projectID && t.Status == status {
			group = append(group, t)
		}
	}
	SortTasks(group)
	return group
}

// SortTasks orders tasks by order, creation time and id, in place.
func SortTasks(tasks []models.Task) {
	slices.SortStableFunc(tasks, compareTasks)
}

func compareTasks(a, b models.Task) int {
	if a.Order != b.Order {
		return a.Order - b.Order
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func find(tasks []models.Task, id string) (models.Task, bool) {
	i := slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return models.Task{}, false
	}
	return tasks[i], true
}
