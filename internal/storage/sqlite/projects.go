package sqlite

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"projectdash/internal/models"
)

var projectColumns = []string{
	"id", "title", "description", "roadmap", "build_plan", "screenshots", "tech_stack",
	"status", "priority", "progress", "start_date", "due_date", "budget", "client_id",
	"user_id", "created_at", "updated_at",
}

func projectValues(p models.Project) []any {
	return []any{
		p.ID, p.Title, p.Description, p.Roadmap, p.BuildPlan, p.Screenshots, p.TechStack,
		p.Status, p.Priority, p.Progress, p.StartDate, p.DueDate, p.Budget, p.ClientID,
		p.UserID, p.CreatedAt, p.UpdatedAt,
	}
}

// ListProjects returns the user's projects, most recently updated first, with
// a client summary and the task statuses needed for derived progress.
func (s *Store) ListProjects(ctx context.Context, userID string, filter models.ProjectFilter) ([]models.ProjectSummary, error) {
	where := sq.Eq{"user_id": userID}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if filter.ClientID != "" {
		where["client_id"] = filter.ClientID
	}
	if filter.Priority != "" {
		where["priority"] = filter.Priority
	}

	var projects []models.Project
	err := selectAll(ctx, s.db, &projects, sq.Select(projectColumns...).From("projects").
		Where(where).OrderBy("updated_at DESC", "id"))
	if err != nil {
		return nil, translate("list projects", err)
	}

	summaries := make([]models.ProjectSummary, 0, len(projects))
	if len(projects) == 0 {
		return summaries, nil
	}

	projectIDs := make([]string, 0, len(projects))
	clientIDs := []string{}
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
		if p.ClientID != nil {
			clientIDs = append(clientIDs, *p.ClientID)
		}
	}

	clients := map[string]*models.ClientRef{}
	if len(clientIDs) > 0 {
		var refs []models.ClientRef
		err := selectAll(ctx, s.db, &refs, sq.Select("id", "name", "email").From("clients").
			Where(sq.Eq{"id": clientIDs, "user_id": userID}))
		if err != nil {
			return nil, translate("list project clients", err)
		}
		for i := range refs {
			clients[refs[i].ID] = &refs[i]
		}
	}

	var rows []struct {
		models.TaskStatusRef
		ProjectID string `db:"project_id"`
	}
	err = selectAll(ctx, s.db, &rows, sq.Select("id", "status", "project_id").From("tasks").
		Where(sq.Eq{"project_id": projectIDs, "user_id": userID}).
		OrderBy("sort_order", "created_at"))
	if err != nil {
		return nil, translate("list project tasks", err)
	}
	tasks := map[string][]models.TaskStatusRef{}
	for _, r := range rows {
		tasks[r.ProjectID] = append(tasks[r.ProjectID], r.TaskStatusRef)
	}

	for _, p := range projects {
		summary := models.ProjectSummary{Project: p, Tasks: tasks[p.ID]}
		if summary.Tasks == nil {
			summary.Tasks = []models.TaskStatusRef{}
		}
		summary.TaskCount = len(summary.Tasks)
		if p.ClientID != nil {
			summary.Client = clients[*p.ClientID]
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateProject persists a new project. A client reference must belong to the user.
func (s *Store) CreateProject(ctx context.Context, userID string, in models.ProjectInput) (models.ProjectDetail, error) {
	in.Normalize()
	if !models.DatesValid(in.StartDate, in.DueDate) {
		return models.ProjectDetail{}, ErrDueBeforeStart
	}

	now := s.now()
	p := models.Project{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Roadmap:     in.Roadmap,
		BuildPlan:   in.BuildPlan,
		Screenshots: models.StringList(in.Screenshots),
		TechStack:   models.StringList(in.TechStack),
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   in.StartDate,
		DueDate:     in.DueDate,
		Budget:      in.Budget,
		ClientID:    in.ClientID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Progress != nil {
		p.Progress = *in.Progress
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if p.ClientID != nil {
			if err := s.clientOwned(ctx, tx, userID, *p.ClientID); err != nil {
				return err
			}
		}
		_, err := exec(ctx, tx, sq.Insert("projects").Columns(projectColumns...).Values(projectValues(p)...))
		return translate("insert project", err)
	})
	if err != nil {
		return models.ProjectDetail{}, err
	}
	return s.GetProject(ctx, userID, p.ID)
}

// GetProject fetches a project with its client and tasks ordered for display.
func (s *Store) GetProject(ctx context.Context, userID, id string) (models.ProjectDetail, error) {
	p, err := s.getProject(ctx, s.db, userID, id)
	if err != nil {
		return models.ProjectDetail{}, err
	}

	detail := models.ProjectDetail{Project: p, Tasks: []models.Task{}}
	if p.ClientID != nil {
		var ref models.ClientRef
		err := get(ctx, s.db, &ref, sq.Select("id", "name", "email", "phone", "status").From("clients").
			Where(sq.Eq{"id": *p.ClientID, "user_id": userID}))
		if err != nil {
			return models.ProjectDetail{}, translate("get project client", err)
		}
		detail.Client = &ref
	}

	err = selectAll(ctx, s.db, &detail.Tasks, sq.Select(taskColumns...).From("tasks").
		Where(sq.Eq{"project_id": id, "user_id": userID}).
		OrderBy("sort_order", "created_at", "id"))
	if err != nil {
		return models.ProjectDetail{}, translate("list project tasks", err)
	}
	detail.TaskCount = len(detail.Tasks)
	return detail, nil
}

// UpdateProject applies a partial update. The merged dates must stay ordered and
// a new client reference must belong to the user.
func (s *Store) UpdateProject(ctx context.Context, userID, id string, patch models.ProjectPatch) (models.ProjectDetail, error) {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.getProject(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		patch.ApplyTo(&p)
		if !models.DatesValid(p.StartDate, p.DueDate) {
			return ErrDueBeforeStart
		}
		if patch.ClientID.Set && p.ClientID != nil {
			if err := s.clientOwned(ctx, tx, userID, *p.ClientID); err != nil {
				return err
			}
		}
		p.UpdatedAt = s.now()

		_, err = exec(ctx, tx, sq.Update("projects").
			SetMap(map[string]any{
				"title":       p.Title,
				"description": p.Description,
				"roadmap":     p.Roadmap,
				"build_plan":  p.BuildPlan,
				"screenshots": p.Screenshots,
				"tech_stack":  p.TechStack,
				"status":      p.Status,
				"priority":    p.Priority,
				"progress":    p.Progress,
				"start_date":  p.StartDate,
				"due_date":    p.DueDate,
				"budget":      p.Budget,
				"client_id":   p.ClientID,
				"updated_at":  p.UpdatedAt,
			}).
			Where(sq.Eq{"id": id, "user_id": userID}))
		return translate("update project", err)
	})
	if err != nil {
		return models.ProjectDetail{}, err
	}
	return s.GetProject(ctx, userID, id)
}

// DeleteProject removes a project along with its tasks.
func (s *Store) DeleteProject(ctx context.Context, userID, id string) error {
	res, err := exec(ctx, s.db, sq.Delete("projects").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return translate("delete project", err)
	}
	return translate("delete project", affectedOne(res))
}

func (s *Store) getProject(ctx context.Context, q queryer, userID, id string) (models.Project, error) {
	var p models.Project
	err := get(ctx, q, &p, sq.Select(projectColumns...).From("projects").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return models.Project{}, translate("get project", err)
	}
	return p, nil
}
