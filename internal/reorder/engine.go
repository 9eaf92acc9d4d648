// Package reorder turns drag-and-drop gestures on the task views into order
// and status changes, applies them optimistically and persists them.
package reorder

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"projectdash/internal/cache"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
)

// TaskUpdater persists a single task change.
type TaskUpdater interface {
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.TaskWithProject, error)
}

// StatusFunc moves a task to another status.
type StatusFunc func(ctx context.Context, taskID string, status models.TaskStatus) error

// Engine executes plans against the cache and the API.
type Engine struct {
	cache     *cache.Cache
	tasks     TaskUpdater
	setStatus StatusFunc
	notify    mutation.Notifier
	logger    *slog.Logger
}

// NewEngine returns an engine. setStatus handles StatusChange plans and is
// normally the optimistic task update.
func NewEngine(c *cache.Cache, tasks TaskUpdater, setStatus StatusFunc, notify mutation.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if notify == nil {
		notify = mutation.LogNotifier{Logger: logger}
	}
	return &Engine{cache: c, tasks: tasks, setStatus: setStatus, notify: notify, logger: logger}
}

// Execute carries out plan for a task of projectID.
func (e *Engine) Execute(ctx context.Context, projectID string, plan Plan) error {
	switch plan.Kind {
	case NoOp:
		return nil
	case StatusChange:
		if e.setStatus == nil {
			return fmt.Errorf("reorder: no status handler")
		}
		return e.setStatus(ctx, plan.TaskID, plan.Status)
	case Reorder:
		return e.reorder(ctx, projectID, plan)
	}
	return fmt.Errorf("reorder: unknown plan kind %d", plan.Kind)
}

// Keys are the cache prefixes a reorder in projectID touches.
func Keys(projectID string) []string {
	return []string{"tasks", cache.Key("projects", projectID)}
}

func (e *Engine) reorder(ctx context.Context, projectID string, plan Plan) error {
	if len(plan.Changed) == 0 {
		return nil
	}
	orders := make(map[string]int, len(plan.Changed))
	for _, ch := range plan.Changed {
		orders[ch.TaskID] = ch.To
	}

	keys := Keys(projectID)
	var snap cache.Snapshot
	e.cache.Update(func(tx *cache.Txn) {
		for _, k := range keys {
			tx.Cancel(k)
		}
		snap = tx.Snapshot(keys...)
		ApplyOrders(tx, projectID, orders)
	})

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range plan.Changed {
		g.Go(func() error {
			to := ch.To
			if _, err := e.tasks.UpdateTask(gctx, ch.TaskID, models.TaskPatch{Order: &to}); err != nil {
				return fmt.Errorf("persist order of task %s: %w", ch.TaskID, err)
			}
			return nil
		})
	}
	err := g.Wait()

	if err != nil {
		e.cache.Restore(snap)
		e.logger.Warn("reorder rolled back",
			slog.String("project", projectID),
			slog.Int("changes", len(plan.Changed)),
			slog.String("error", err.Error()))
		e.notify.Failure(mutation.Message(err))
	}
	for _, k := range keys {
		e.cache.Invalidate(k)
	}
	return err
}

// ApplyOrders rewrites the order of the given tasks in every cached task list
// and in the project's detail. Cached values are replaced, not modified.
func ApplyOrders(tx *cache.Txn, projectID string, orders map[string]int) {
	for _, k := range tx.Keys("tasks") {
		list, ok := cache.Lookup[[]models.TaskWithProject](tx, k)
		if !ok {
			continue
		}
		next := make([]models.TaskWithProject, len(list))
		touched := false
		for i, t := range list {
			if to, ok := orders[t.ID]; ok {
				t.Order = to
				touched = true
			}
			next[i] = t
		}
		if touched {
			sortRows(next)
			tx.Set(k, next)
		}
	}

	key := cache.Key("projects", projectID)
	if detail, ok := cache.Lookup[models.ProjectDetail](tx, key); ok {
		tasks := make([]models.Task, len(detail.Tasks))
		for i, t := range detail.Tasks {
			if to, ok := orders[t.ID]; ok {
				t.Order = to
			}
			tasks[i] = t
		}
		SortTasks(tasks)
		detail.Tasks = tasks
		tx.Set(key, detail)
	}
}

func sortRows(rows []models.TaskWithProject) {
	tasks := make([]models.Task, len(rows))
	index := make(map[string]models.TaskWithProject, len(rows))
	for i, r := range rows {
		tasks[i] = r.Task
		index[r.ID] = r
	}
	SortTasks(tasks)
	for i, t := range tasks {
		r := index[t.ID]
		r.Task = t
		rows[i] = r
	}
}
