package dashboard

import (
	"context"
	"slices"

	"projectdash/internal/cache"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
	"projectdash/internal/reorder"
	"projectdash/internal/viewstate"
)

type taskUpdate struct {
	ID        string
	ProjectID string
	Patch     models.TaskPatch
}

// CreateTask adds a task to the end of its project.
func (s *Session) CreateTask(ctx context.Context, in models.TaskInput) (models.TaskWithProject, error) {
	in.Normalize()
	ref := mutation.NewPending()
	pid := in.ProjectID

	m := mutation.Mutation[models.TaskInput, models.TaskWithProject]{
		Name: "create task",
		Keys: func(models.TaskInput) []string { return []string{tasksKey, projectKey(pid)} },
		Apply: func(tx *cache.Txn, in models.TaskInput) {
			now := s.now()
			t := models.Task{
				ID:          ref.ID(),
				Title:       in.Title,
				Description: in.Description,
				Status:      in.Status,
				Priority:    in.Priority,
				ProjectID:   pid,
				UserID:      s.userID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if in.Order != nil {
				t.Order = *in.Order
			} else {
				t.Order = nextOrder(projectTasks(tx, pid), "", "")
			}
			row := models.TaskWithProject{Task: t, Project: projectRef(tx, pid)}
			editList(tx, tasksKey, appendItem(row))
			editList(tx, projectTasksKey(pid), appendItem(row))
			editEntry(tx, projectKey(pid), func(d models.ProjectDetail) models.ProjectDetail {
				d.Tasks = sortedTasks(append(slices.Clone(d.Tasks), t))
				d.TaskCount++
				return d
			})
		},
		Remote: s.api.CreateTask,
		Reconcile: func(tx *cache.Txn, _ models.TaskInput, created models.TaskWithProject) {
			tempID, ok := commit(&ref, created.ID)
			if !ok {
				return
			}
			swap := replaceWhere(taskRowID(tempID), func(models.TaskWithProject) models.TaskWithProject {
				return created
			})
			editList(tx, tasksKey, swap)
			editList(tx, projectTasksKey(pid), swap)
			editEntry(tx, projectKey(pid), func(d models.ProjectDetail) models.ProjectDetail {
				d.Tasks = replaceWhere(taskID(tempID), func(models.Task) models.Task { return created.Task })(d.Tasks)
				return d
			})
		},
		Invalidate: func(models.TaskInput, models.TaskWithProject) []string {
			return []string{tasksKey, projectKey(pid)}
		},
		Success: "Task created",
	}
	return mutation.Run(ctx, s.coord, m, in)
}

// UpdateTask applies a partial update. A status change without an explicit
// order moves the task to the end of its new group, as the server does.
func (s *Session) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.TaskWithProject, error) {
	if mutation.IsTempID(id) {
		return models.TaskWithProject{}, s.reject(errStillSaving)
	}
	u := taskUpdate{ID: id, ProjectID: s.taskProject(id), Patch: patch}

	m := mutation.Mutation[taskUpdate, models.TaskWithProject]{
		Name: "update task",
		Keys: taskKeys,
		Apply: func(tx *cache.Txn, u taskUpdate) {
			now := s.now()
			change := u.Patch
			if change.Status != nil && change.Order == nil && u.ProjectID != "" {
				siblings := projectTasks(tx, u.ProjectID)
				if i := slices.IndexFunc(siblings, taskID(u.ID)); i >= 0 && siblings[i].Status != *change.Status {
					next := nextOrder(siblings, *change.Status, u.ID)
					change.Order = &next
				}
			}
			merge := func(t models.Task) models.Task {
				change.ApplyTo(&t)
				t.UpdatedAt = now
				return t
			}
			editLists(tx, tasksKey, replaceWhere(taskRowID(u.ID), func(r models.TaskWithProject) models.TaskWithProject {
				r.Task = merge(r.Task)
				return r
			}))
			editEntry(tx, taskKey(u.ID), func(r models.TaskWithProject) models.TaskWithProject {
				r.Task = merge(r.Task)
				return r
			})
			if u.ProjectID != "" {
				editEntry(tx, projectKey(u.ProjectID), func(d models.ProjectDetail) models.ProjectDetail {
					d.Tasks = sortedTasks(replaceWhere(taskID(u.ID), merge)(d.Tasks))
					return d
				})
			}
		},
		Remote: func(ctx context.Context, u taskUpdate) (models.TaskWithProject, error) {
			return s.api.UpdateTask(ctx, u.ID, u.Patch)
		},
		Reconcile: func(tx *cache.Txn, u taskUpdate, updated models.TaskWithProject) {
			editLists(tx, tasksKey, replaceWhere(taskRowID(u.ID), func(models.TaskWithProject) models.TaskWithProject {
				return updated
			}))
			editEntry(tx, taskKey(u.ID), func(models.TaskWithProject) models.TaskWithProject { return updated })
			editEntry(tx, projectKey(updated.ProjectID), func(d models.ProjectDetail) models.ProjectDetail {
				d.Tasks = sortedTasks(replaceWhere(taskID(u.ID), func(models.Task) models.Task { return updated.Task })(d.Tasks))
				return d
			})
		},
		Invalidate: func(_ taskUpdate, updated models.TaskWithProject) []string {
			return []string{tasksKey, projectKey(updated.ProjectID)}
		},
		Success: "Task updated",
	}
	return mutation.Run(ctx, s.coord, m, u)
}

// DeleteTask removes a task.
func (s *Session) DeleteTask(ctx context.Context, id string) error {
	if mutation.IsTempID(id) {
		return s.reject(errStillSaving)
	}
	u := taskUpdate{ID: id, ProjectID: s.taskProject(id)}

	m := mutation.Mutation[taskUpdate, struct{}]{
		Name: "delete task",
		Keys: taskKeys,
		Apply: func(tx *cache.Txn, u taskUpdate) {
			editLists(tx, tasksKey, removeWhere(taskRowID(u.ID)))
			tx.Delete(taskKey(u.ID))
			if u.ProjectID != "" {
				editEntry(tx, projectKey(u.ProjectID), func(d models.ProjectDetail) models.ProjectDetail {
					before := len(d.Tasks)
					d.Tasks = removeWhere(taskID(u.ID))(d.Tasks)
					d.TaskCount -= before - len(d.Tasks)
					return d
				})
			}
		},
		Remote: func(ctx context.Context, u taskUpdate) (struct{}, error) {
			return struct{}{}, s.api.DeleteTask(ctx, u.ID)
		},
		Invalidate: func(taskUpdate, struct{}) []string {
			return []string{tasksKey, projectsKey}
		},
		Success: "Task deleted",
	}
	_, err := mutation.Run(ctx, s.coord, m, u)
	return err
}

// DropTask finishes a drag gesture on a project's tasks in the given view.
func (s *Session) DropTask(ctx context.Context, view viewstate.TaskView, pid string, g *reorder.Gesture) error {
	dragged, target, err := g.Finish()
	if err != nil {
		return err
	}
	var tasks []models.Task
	s.cache.Update(func(tx *cache.Txn) { tasks = projectTasks(tx, pid) })

	var plan reorder.Plan
	if view == viewstate.KanbanView {
		plan = reorder.PlanKanban(tasks, dragged, target)
	} else {
		plan = reorder.PlanList(tasks, dragged, target)
	}
	for _, c := range plan.Changed {
		if mutation.IsTempID(c.TaskID) {
			return s.reject(errStillSaving)
		}
	}
	return s.reorder.Execute(ctx, pid, plan)
}

func (s *Session) setTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	_, err := s.UpdateTask(ctx, id, models.TaskPatch{Status: &status})
	return err
}

// taskKeys covers every list a task can appear in and, when known, its
// project's detail.
func taskKeys(u taskUpdate) []string {
	if u.ProjectID == "" {
		return []string{tasksKey, projectsKey}
	}
	return []string{tasksKey, projectKey(u.ProjectID)}
}

// taskProject finds the project of a cached task, or "" when the task is not
// cached.
func (s *Session) taskProject(id string) string {
	var pid string
	s.cache.Update(func(tx *cache.Txn) {
		if r, ok := cache.Lookup[models.TaskWithProject](tx, taskKey(id)); ok {
			pid = r.ProjectID
			return
		}
		for _, k := range tx.Keys(tasksKey) {
			rows, _ := cache.Lookup[[]models.TaskWithProject](tx, k)
			if i := slices.IndexFunc(rows, taskRowID(id)); i >= 0 {
				pid = rows[i].ProjectID
				return
			}
		}
		for _, k := range tx.Keys(projectsKey) {
			d, ok := cache.Lookup[models.ProjectDetail](tx, k)
			if !ok {
				continue
			}
			if slices.ContainsFunc(d.Tasks, taskID(id)) {
				pid = d.ID
				return
			}
		}
	})
	return pid
}
