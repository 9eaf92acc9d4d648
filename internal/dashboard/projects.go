package dashboard

import (
	"context"
	"fmt"
	"io"
	"slices"

	"projectdash/internal/cache"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
)

type projectUpdate struct {
	ID    string
	Patch models.ProjectPatch
}

// CreateProject adds a project. Until the server answers, the list shows it
// with no client summary and no tasks.
func (s *Session) CreateProject(ctx context.Context, in models.ProjectInput) (models.ProjectDetail, error) {
	in.Normalize()
	if !models.DatesValid(in.StartDate, in.DueDate) {
		return models.ProjectDetail{}, s.reject(errDueBeforeStart)
	}
	ref := mutation.NewPending()

	m := mutation.Mutation[models.ProjectInput, models.ProjectDetail]{
		Name: "create project",
		Keys: func(models.ProjectInput) []string { return []string{projectsKey} },
		Apply: func(tx *cache.Txn, in models.ProjectInput) {
			now := s.now()
			p := models.Project{
				ID:          ref.ID(),
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
				UserID:      s.userID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if in.Progress != nil {
				p.Progress = *in.Progress
			}
			editList(tx, projectsKey, prepend(models.ProjectSummary{
				Project: p,
				Tasks:   []models.TaskStatusRef{},
			}))
		},
		Remote: s.api.CreateProject,
		Reconcile: func(tx *cache.Txn, _ models.ProjectInput, created models.ProjectDetail) {
			tempID, ok := commit(&ref, created.ID)
			if !ok {
				return
			}
			editList(tx, projectsKey, replaceWhere(projectID(tempID), func(models.ProjectSummary) models.ProjectSummary {
				return summaryOf(created)
			}))
			tx.Set(projectKey(created.ID), created)
		},
		Invalidate: func(models.ProjectInput, models.ProjectDetail) []string {
			return []string{projectsKey, clientsKey}
		},
		Success: "Project created",
	}
	return mutation.Run(ctx, s.coord, m, in)
}

// UpdateProject applies a partial update. A date pair that ends up with the
// due date before the start date is refused without contacting the server.
func (s *Session) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.ProjectDetail, error) {
	if mutation.IsTempID(id) {
		return models.ProjectDetail{}, s.reject(errStillSaving)
	}
	if current, ok := s.cachedProject(id); ok {
		patch.ApplyTo(&current)
		if !models.DatesValid(current.StartDate, current.DueDate) {
			return models.ProjectDetail{}, s.reject(errDueBeforeStart)
		}
	} else if !models.DatesValid(patch.StartDate.Value, patch.DueDate.Value) {
		return models.ProjectDetail{}, s.reject(errDueBeforeStart)
	}

	m := mutation.Mutation[projectUpdate, models.ProjectDetail]{
		Name: "update project",
		Keys: func(projectUpdate) []string { return []string{projectsKey} },
		Apply: func(tx *cache.Txn, u projectUpdate) {
			now := s.now()
			var client *models.ClientRef
			if u.Patch.ClientID.Set {
				client = clientRef(tx, u.Patch.ClientID.Value)
			}
			merge := func(p models.Project, c *models.ClientRef) (models.Project, *models.ClientRef) {
				u.Patch.ApplyTo(&p)
				p.UpdatedAt = now
				if u.Patch.ClientID.Set {
					c = client
				}
				return p, c
			}
			editLists(tx, projectsKey, replaceWhere(projectID(u.ID), func(p models.ProjectSummary) models.ProjectSummary {
				p.Project, p.Client = merge(p.Project, p.Client)
				return p
			}))
			editEntry(tx, projectKey(u.ID), func(d models.ProjectDetail) models.ProjectDetail {
				d.Project, d.Client = merge(d.Project, d.Client)
				return d
			})
		},
		Remote: func(ctx context.Context, u projectUpdate) (models.ProjectDetail, error) {
			return s.api.UpdateProject(ctx, u.ID, u.Patch)
		},
		Reconcile: func(tx *cache.Txn, u projectUpdate, updated models.ProjectDetail) {
			editLists(tx, projectsKey, replaceWhere(projectID(u.ID), func(models.ProjectSummary) models.ProjectSummary {
				return summaryOf(updated)
			}))
			tx.Set(projectKey(u.ID), updated)
		},
		Invalidate: func(u projectUpdate, _ models.ProjectDetail) []string {
			return []string{projectsKey, projectKey(u.ID), clientsKey}
		},
		Success: "Project updated",
	}
	return mutation.Run(ctx, s.coord, m, projectUpdate{ID: id, Patch: patch})
}

// DeleteProject removes a project and, with it, its tasks.
func (s *Session) DeleteProject(ctx context.Context, id string) error {
	if mutation.IsTempID(id) {
		return s.reject(errStillSaving)
	}
	m := mutation.Mutation[string, struct{}]{
		Name: "delete project",
		Keys: func(string) []string { return []string{projectsKey, tasksKey} },
		Apply: func(tx *cache.Txn, id string) {
			editLists(tx, projectsKey, removeWhere(projectID(id)))
			editLists(tx, tasksKey, removeWhere(func(t models.TaskWithProject) bool {
				return t.ProjectID == id
			}))
		},
		Remote: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, s.api.DeleteProject(ctx, id)
		},
		Invalidate: func(string, struct{}) []string {
			return []string{projectsKey, tasksKey, clientsKey}
		},
		Success: "Project deleted",
	}
	_, err := mutation.Run(ctx, s.coord, m, id)
	return err
}

// cachedProject returns the freshest cached copy of a project.
func (s *Session) cachedProject(id string) (models.Project, bool) {
	if d, ok := cache.Get[models.ProjectDetail](s.cache, projectKey(id)); ok {
		return d.Project, true
	}
	list, _ := cache.Get[[]models.ProjectSummary](s.cache, projectsKey)
	for _, p := range list {
		if p.ID == id {
			return p.Project, true
		}
	}
	return models.Project{}, false
}

// AttachScreenshot uploads an image and appends its URL to the project's
// screenshots.
func (s *Session) AttachScreenshot(ctx context.Context, id, filename string, r io.Reader) (models.ProjectDetail, error) {
	if mutation.IsTempID(id) {
		return models.ProjectDetail{}, s.reject(errStillSaving)
	}
	obj, err := s.api.UploadScreenshot(ctx, filename, r)
	if err != nil {
		s.notify.Failure(mutation.Message(err))
		return models.ProjectDetail{}, fmt.Errorf("upload screenshot: %w", err)
	}
	current, ok := s.cachedProject(id)
	if !ok {
		detail, err := s.Project(ctx, id)
		if err != nil {
			return models.ProjectDetail{}, err
		}
		current = detail.Project
	}
	shots := append(slices.Clone([]string(current.Screenshots)), obj.URL)
	return s.UpdateProject(ctx, id, models.ProjectPatch{Screenshots: models.Some(shots)})
}
