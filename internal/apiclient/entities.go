package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"projectdash/internal/models"
)

// ListClients returns the user's clients.
func (c *Client) ListClients(ctx context.Context, filter models.ClientFilter) ([]models.Client, error) {
	var out []models.Client
	q := filterQuery("status", string(filter.Status), "search", filter.Search)
	err := c.do(ctx, http.MethodGet, "/api/clients", q, nil, &out)
	return out, err
}

func (c *Client) GetClient(ctx context.Context, id string) (models.ClientDetail, error) {
	var out models.ClientDetail
	err := c.do(ctx, http.MethodGet, "/api/clients/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateClient(ctx context.Context, in models.ClientInput) (models.Client, error) {
	var out models.Client
	err := c.do(ctx, http.MethodPost, "/api/clients", nil, in, &out)
	return out, err
}

func (c *Client) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (models.Client, error) {
	var out models.Client
	err := c.do(ctx, http.MethodPatch, "/api/clients/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/clients/"+url.PathEscape(id), nil, nil, nil)
}

// ListProjects returns project summaries, most recently updated first.
func (c *Client) ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, error) {
	var out []models.ProjectSummary
	q := filterQuery("status", string(filter.Status), "clientId", filter.ClientID, "priority", string(filter.Priority))
	err := c.do(ctx, http.MethodGet, "/api/projects", q, nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id string) (models.ProjectDetail, error) {
	var out models.ProjectDetail
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (models.ProjectDetail, error) {
	var out models.ProjectDetail
	err := c.do(ctx, http.MethodPost, "/api/projects", nil, in, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.ProjectDetail, error) {
	var out models.ProjectDetail
	err := c.do(ctx, http.MethodPatch, "/api/projects/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+url.PathEscape(id), nil, nil, nil)
}

// ListTasks returns tasks in board order.
func (c *Client) ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.TaskWithProject, error) {
	var out []models.TaskWithProject
	q := filterQuery("projectId", filter.ProjectID, "status", string(filter.Status), "priority", string(filter.Priority))
	err := c.do(ctx, http.MethodGet, "/api/tasks", q, nil, &out)
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id string) (models.TaskWithProject, error) {
	var out models.TaskWithProject
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in models.TaskInput) (models.TaskWithProject, error) {
	var out models.TaskWithProject
	err := c.do(ctx, http.MethodPost, "/api/tasks", nil, in, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.TaskWithProject, error) {
	var out models.TaskWithProject
	err := c.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(id), nil, patch, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil, nil)
}
