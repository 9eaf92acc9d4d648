package sqlite

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"projectdash/internal/models"
)

var taskColumns = []string{
	"id", "title", "description", "status", "priority", "sort_order",
	"project_id", "user_id", "created_at", "updated_at",
}

func qualified(table string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = table + "." + c
	}
	return out
}

type taskRow struct {
	models.Task
	ProjectTitle  string               `db:"project_title"`
	ProjectStatus models.ProjectStatus `db:"project_status"`
}

// ListTasks returns the user's tasks in board order with a project summary.
func (s *Store) ListTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]models.TaskWithProject, error) {
	where := sq.Eq{"t.user_id": userID}
	if filter.ProjectID != "" {
		where["t.project_id"] = filter.ProjectID
	}
	if filter.Status != "" {
		where["t.status"] = filter.Status
	}
	if filter.Priority != "" {
		where["t.priority"] = filter.Priority
	}

	columns := append(qualified("t", taskColumns), "p.title AS project_title", "p.status AS project_status")
	var rows []taskRow
	err := selectAll(ctx, s.db, &rows, sq.Select(columns...).
		From("tasks t").
		Join("projects p ON p.id = t.project_id").
		Where(where).
		OrderBy("t.sort_order", "t.created_at", "t.id"))
	if err != nil {
		return nil, translate("list tasks", err)
	}

	tasks := make([]models.TaskWithProject, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, models.TaskWithProject{
			Task: r.Task,
			Project: &models.ProjectRef{
				ID:     r.ProjectID,
				Title:  r.ProjectTitle,
				Status: r.ProjectStatus,
			},
		})
	}
	return tasks, nil
}

// CreateTask adds a task to one of the user's projects. Without an explicit
// order the task goes after every other task of the project.
func (s *Store) CreateTask(ctx context.Context, userID string, in models.TaskInput) (models.TaskWithProject, error) {
	in.Normalize()
	now := s.now()
	t := models.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		ProjectID:   in.ProjectID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.getProject(ctx, tx, userID, in.ProjectID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		if in.Order != nil {
			t.Order = *in.Order
		} else {
			next, err := nextOrder(ctx, tx, sq.Eq{"project_id": in.ProjectID, "user_id": userID})
			if err != nil {
				return err
			}
			t.Order = next
		}

		_, err := exec(ctx, tx, sq.Insert("tasks").Columns(taskColumns...).
			Values(t.ID, t.Title, t.Description, t.Status, t.Priority, t.Order,
				t.ProjectID, t.UserID, t.CreatedAt, t.UpdatedAt))
		return translate("insert task", err)
	})
	if err != nil {
		return models.TaskWithProject{}, err
	}
	return s.GetTask(ctx, userID, t.ID)
}

// GetTask fetches one task with its project summary.
func (s *Store) GetTask(ctx context.Context, userID, id string) (models.TaskWithProject, error) {
	columns := append(qualified("t", taskColumns), "p.title AS project_title", "p.status AS project_status")
	var r taskRow
	err := get(ctx, s.db, &r, sq.Select(columns...).
		From("tasks t").
		Join("projects p ON p.id = t.project_id").
		Where(sq.Eq{"t.id": id, "t.user_id": userID}))
	if err != nil {
		return models.TaskWithProject{}, translate("get task", err)
	}
	return models.TaskWithProject{
		Task:    r.Task,
		Project: &models.ProjectRef{ID: r.ProjectID, Title: r.ProjectTitle, Status: r.ProjectStatus},
	}, nil
}

// UpdateTask applies a partial update. Moving a task to another status without
// an explicit order appends it to the destination column.
func (s *Store) UpdateTask(ctx context.Context, userID, id string, patch models.TaskPatch) (models.TaskWithProject, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		t, err := s.getTask(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		previous := t.Status
		patch.ApplyTo(&t)
		if t.Status != previous && patch.Order == nil {
			next, err := nextOrder(ctx, tx, sq.And{
				sq.Eq{"project_id": t.ProjectID, "user_id": userID, "status": t.Status},
				sq.NotEq{"id": t.ID},
			})
			if err != nil {
				return err
			}
			t.Order = next
		}
		t.UpdatedAt = s.now()

		_, err = exec(ctx, tx, sq.Update("tasks").
			SetMap(map[string]any{
				"title":       t.Title,
				"description": t.Description,
				"status":      t.Status,
				"priority":    t.Priority,
				"sort_order":  t.Order,
				"updated_at":  t.UpdatedAt,
			}).
			Where(sq.Eq{"id": id, "user_id": userID}))
		return translate("update task", err)
	})
	if err != nil {
		return models.TaskWithProject{}, err
	}
	return s.GetTask(ctx, userID, id)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := exec(ctx, s.db, sq.Delete("tasks").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return translate("delete task", err)
	}
	return translate("delete task", affectedOne(res))
}

func (s *Store) getTask(ctx context.Context, q queryer, userID, id string) (models.Task, error) {
	var t models.Task
	err := get(ctx, q, &t, sq.Select(taskColumns...).From("tasks").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return models.Task{}, translate("get task", err)
	}
	return t, nil
}

// nextOrder returns one past the highest sort order matching where, or 0.
func nextOrder(ctx context.Context, q queryer, where sq.Sqlizer) (int, error) {
	var highest sql.NullInt64
	err := get(ctx, q, &highest, sq.Select("MAX(sort_order)").From("tasks").Where(where))
	if err != nil {
		return 0, translate("next task order", err)
	}
	if !highest.Valid {
		return 0, nil
	}
	return int(highest.Int64) + 1, nil
}
