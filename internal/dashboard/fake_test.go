package dashboard

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"projectdash/internal/blob"
	"projectdash/internal/models"
)

// fakeAPI is an in-memory remote. Errors set in fail are returned by the
// named method instead of doing any work.
type fakeAPI struct {
	mu       sync.Mutex
	clients  []models.Client
	projects []models.ProjectSummary
	tasks    []models.TaskWithProject
	fail     map[string]error
	calls    []string
	updates  map[string]models.TaskPatch
	nextID   int
	// before runs at the start of every call, after fail is checked.
	before   func(method string)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{fail: map[string]error{}, updates: map[string]models.TaskPatch{}}
}

func (f *fakeAPI) enter(method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	err := f.fail[method]
	hook := f.before
	f.mu.Unlock()
	if hook != nil {
		hook(method)
	}
	return err
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeAPI) ListClients(context.Context, models.ClientFilter) ([]models.Client, error) {
	if err := f.enter("ListClients"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.clients), nil
}

func (f *fakeAPI) GetClient(_ context.Context, id string) (models.ClientDetail, error) {
	if err := f.enter("GetClient"); err != nil {
		return models.ClientDetail{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.ID == id {
			return models.ClientDetail{Client: c, Projects: []models.ProjectBrief{}}, nil
		}
	}
	return models.ClientDetail{}, fmt.Errorf("client %s not found", id)
}

func (f *fakeAPI) CreateClient(_ context.Context, in models.ClientInput) (models.Client, error) {
	if err := f.enter("CreateClient"); err != nil {
		return models.Client{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := models.Client{ID: f.id("c"), Name: in.Name, Email: in.Email, Status: in.Status, CreatedAt: time.Now()}
	f.clients = append([]models.Client{c}, f.clients...)
	return c, nil
}

func (f *fakeAPI) UpdateClient(_ context.Context, id string, patch models.ClientPatch) (models.Client, error) {
	if err := f.enter("UpdateClient"); err != nil {
		return models.Client{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.clients {
		if f.clients[i].ID == id {
			patch.ApplyTo(&f.clients[i])
			return f.clients[i], nil
		}
	}
	return models.Client{}, fmt.Errorf("client %s not found", id)
}

func (f *fakeAPI) DeleteClient(_ context.Context, id string) error {
	if err := f.enter("DeleteClient"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients = slices.DeleteFunc(f.clients, func(c models.Client) bool { return c.ID == id })
	return nil
}

func (f *fakeAPI) ListProjects(context.Context, models.ProjectFilter) ([]models.ProjectSummary, error) {
	if err := f.enter("ListProjects"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.projects), nil
}

func (f *fakeAPI) detail(id string) (models.ProjectDetail, bool) {
	for _, p := range f.projects {
		if p.ID == id {
			d := models.ProjectDetail{Project: p.Project, Client: p.Client, Tasks: []models.Task{}}
			for _, t := range f.tasks {
				if t.ProjectID == id {
					d.Tasks = append(d.Tasks, t.Task)
				}
			}
			d.TaskCount = len(d.Tasks)
			return d, true
		}
	}
	return models.ProjectDetail{}, false
}

func (f *fakeAPI) GetProject(_ context.Context, id string) (models.ProjectDetail, error) {
	if err := f.enter("GetProject"); err != nil {
		return models.ProjectDetail{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.detail(id); ok {
		return d, nil
	}
	return models.ProjectDetail{}, fmt.Errorf("project %s not found", id)
}

func (f *fakeAPI) CreateProject(_ context.Context, in models.ProjectInput) (models.ProjectDetail, error) {
	if err := f.enter("CreateProject"); err != nil {
		return models.ProjectDetail{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Project{ID: f.id("p"), Title: in.Title, Status: in.Status, Priority: in.Priority, ClientID: in.ClientID}
	f.projects = append([]models.ProjectSummary{{Project: p, Tasks: []models.TaskStatusRef{}}}, f.projects...)
	d, _ := f.detail(p.ID)
	return d, nil
}

func (f *fakeAPI) UpdateProject(_ context.Context, id string, patch models.ProjectPatch) (models.ProjectDetail, error) {
	if err := f.enter("UpdateProject"); err != nil {
		return models.ProjectDetail{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects {
		if f.projects[i].ID == id {
			patch.ApplyTo(&f.projects[i].Project)
			d, _ := f.detail(id)
			return d, nil
		}
	}
	return models.ProjectDetail{}, fmt.Errorf("project %s not found", id)
}

func (f *fakeAPI) DeleteProject(_ context.Context, id string) error {
	if err := f.enter("DeleteProject"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = slices.DeleteFunc(f.projects, func(p models.ProjectSummary) bool { return p.ID == id })
	f.tasks = slices.DeleteFunc(f.tasks, func(t models.TaskWithProject) bool { return t.ProjectID == id })
	return nil
}

func (f *fakeAPI) ListTasks(_ context.Context, filter models.TaskFilter) ([]models.TaskWithProject, error) {
	if err := f.enter("ListTasks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskWithProject
	for _, t := range f.tasks {
		if filter.ProjectID == "" || t.ProjectID == filter.ProjectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetTask(_ context.Context, id string) (models.TaskWithProject, error) {
	if err := f.enter("GetTask"); err != nil {
		return models.TaskWithProject{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return models.TaskWithProject{}, fmt.Errorf("task %s not found", id)
}

func (f *fakeAPI) CreateTask(_ context.Context, in models.TaskInput) (models.TaskWithProject, error) {
	if err := f.enter("CreateTask"); err != nil {
		return models.TaskWithProject{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.TaskWithProject{Task: models.Task{ID: f.id("t"), Title: in.Title, Status: in.Status, ProjectID: in.ProjectID}}
	if in.Order != nil {
		t.Order = *in.Order
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeAPI) UpdateTask(_ context.Context, id string, patch models.TaskPatch) (models.TaskWithProject, error) {
	if err := f.enter("UpdateTask"); err != nil {
		return models.TaskWithProject{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = patch
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			patch.ApplyTo(&f.tasks[i].Task)
			return f.tasks[i], nil
		}
	}
	return models.TaskWithProject{}, fmt.Errorf("task %s not found", id)
}

func (f *fakeAPI) DeleteTask(_ context.Context, id string) error {
	if err := f.enter("DeleteTask"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = slices.DeleteFunc(f.tasks, func(t models.TaskWithProject) bool { return t.ID == id })
	return nil
}

func (f *fakeAPI) UploadScreenshot(_ context.Context, filename string, r io.Reader) (blob.Object, error) {
	if err := f.enter("UploadScreenshot"); err != nil {
		return blob.Object{}, err
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return blob.Object{}, err
	}
	return blob.Object{URL: "/uploads/screenshots/" + filename, Filename: filename}, nil
}
