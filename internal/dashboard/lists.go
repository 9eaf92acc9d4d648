package dashboard

import (
	"slices"

	"projectdash/internal/cache"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
	"projectdash/internal/reorder"
)

// commit moves ref to the id the server assigned and returns the temporary
// id it replaces. A ref that is already committed reports false.
func commit(ref *mutation.Ref, id string) (string, bool) {
	tempID := ref.ID()
	committed, err := ref.Commit(id)
	if err != nil {
		return "", false
	}
	*ref = committed
	return tempID, true
}

// editList replaces the list cached at key, if any, with edit's result.
func editList[T any](tx *cache.Txn, key string, edit func([]T) []T) {
	if list, ok := cache.Lookup[[]T](tx, key); ok {
		tx.Set(key, edit(list))
	}
}

// editLists is editList for every list cached under prefix.
func editLists[T any](tx *cache.Txn, prefix string, edit func([]T) []T) {
	for _, k := range tx.Keys(prefix) {
		editList(tx, k, edit)
	}
}

// editEntry replaces the value cached at key, if any, with edit's result.
func editEntry[T any](tx *cache.Txn, key string, edit func(T) T) {
	if v, ok := cache.Lookup[T](tx, key); ok {
		tx.Set(key, edit(v))
	}
}

func prepend[T any](item T) func([]T) []T {
	return func(list []T) []T {
		return append([]T{item}, list...)
	}
}

func appendItem[T any](item T) func([]T) []T {
	return func(list []T) []T {
		return append(slices.Clip(list), item)
	}
}

func replaceWhere[T any](match func(T) bool, fn func(T) T) func([]T) []T {
	return func(list []T) []T {
		out := make([]T, len(list))
		for i, v := range list {
			if match(v) {
				v = fn(v)
			}
			out[i] = v
		}
		return out
	}
}

func removeWhere[T any](match func(T) bool) func([]T) []T {
	return func(list []T) []T {
		out := make([]T, 0, len(list))
		for _, v := range list {
			if !match(v) {
				out = append(out, v)
			}
		}
		return out
	}
}

func clientID(id string) func(models.Client) bool {
	return func(c models.Client) bool { return c.ID == id }
}

func projectID(id string) func(models.ProjectSummary) bool {
	return func(p models.ProjectSummary) bool { return p.ID == id }
}

func taskRowID(id string) func(models.TaskWithProject) bool {
	return func(t models.TaskWithProject) bool { return t.ID == id }
}

func taskID(id string) func(models.Task) bool {
	return func(t models.Task) bool { return t.ID == id }
}

// projectTasks returns what the cache knows about a project's tasks.
func projectTasks(tx *cache.Txn, pid string) []models.Task {
	if rows, ok := cache.Lookup[[]models.TaskWithProject](tx, projectTasksKey(pid)); ok {
		return plainTasks(rows)
	}
	if detail, ok := cache.Lookup[models.ProjectDetail](tx, projectKey(pid)); ok {
		return detail.Tasks
	}
	var out []models.Task
	if rows, ok := cache.Lookup[[]models.TaskWithProject](tx, tasksKey); ok {
		for _, r := range rows {
			if r.ProjectID == pid {
				out = append(out, r.Task)
			}
		}
	}
	return out
}

// nextOrder is the order the server gives a task appended to a project, or
// to one status group of it when status is set.
func nextOrder(tasks []models.Task, status models.TaskStatus, skip string) int {
	next := 0
	for _, t := range tasks {
		if t.ID == skip || (status != "" && t.Status != status) {
			continue
		}
		if t.Order+1 > next {
			next = t.Order + 1
		}
	}
	return next
}

func sortedTasks(tasks []models.Task) []models.Task {
	reorder.SortTasks(tasks)
	return tasks
}

func statusRefs(tasks []models.Task) []models.TaskStatusRef {
	refs := make([]models.TaskStatusRef, len(tasks))
	for i, t := range tasks {
		refs[i] = models.TaskStatusRef{ID: t.ID, Status: t.Status}
	}
	return refs
}

func summaryOf(d models.ProjectDetail) models.ProjectSummary {
	return models.ProjectSummary{
		Project:   d.Project,
		Client:    d.Client,
		Tasks:     statusRefs(d.Tasks),
		TaskCount: d.TaskCount,
	}
}

// clientRef finds a client summary in the cached client list.
func clientRef(tx *cache.Txn, id *string) *models.ClientRef {
	if id == nil {
		return nil
	}
	list, _ := cache.Lookup[[]models.Client](tx, clientsKey)
	for _, c := range list {
		if c.ID == *id {
			return &models.ClientRef{ID: c.ID, Name: c.Name, Email: c.Email}
		}
	}
	return nil
}

// projectRef finds a project summary for task rows.
func projectRef(tx *cache.Txn, pid string) *models.ProjectRef {
	if d, ok := cache.Lookup[models.ProjectDetail](tx, projectKey(pid)); ok {
		return &models.ProjectRef{ID: d.ID, Title: d.Title, Status: d.Status}
	}
	list, _ := cache.Lookup[[]models.ProjectSummary](tx, projectsKey)
	for _, p := range list {
		if p.ID == pid {
			return &models.ProjectRef{ID: p.ID, Title: p.Title, Status: p.Status}
		}
	}
	return nil
}
