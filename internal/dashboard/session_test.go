package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectdash/internal/apiclient"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
	"projectdash/internal/reorder"
	"projectdash/internal/viewstate"
)

type notices struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *notices) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *notices) Failure(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, msg)
}

func newSession(t *testing.T, api *fakeAPI) (*Session, *notices) {
	t.Helper()
	n := &notices{}
	return NewSession(api, Options{UserID: "u1", Notifier: n}), n
}

func ptr[T any](v T) *T { return &v }

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func seededAPI() *fakeAPI {
	api := newFakeAPI()
	api.clients = []models.Client{
		{ID: "c1", Name: "Acme", Email: ptr("ops@acme.test"), Status: models.ClientActive},
	}
	api.projects = []models.ProjectSummary{{
		Project: models.Project{ID: "p1", Title: "Website", Status: models.ProjectActive, ClientID: ptr("c1")},
		Client:  &models.ClientRef{ID: "c1", Name: "Acme"},
	}}
	for i, id := range []string{"a", "t", "c"} {
		api.tasks = append(api.tasks, models.TaskWithProject{
			Task:    models.Task{ID: id, Status: models.TaskTodo, Order: i, ProjectID: "p1", CreatedAt: epoch.Add(time.Duration(i) * time.Minute)},
			Project: &models.ProjectRef{ID: "p1", Title: "Website"},
		})
	}
	api.tasks = append(api.tasks, models.TaskWithProject{
		Task: models.Task{ID: "d", Status: models.TaskDone, Order: 0, ProjectID: "p1", CreatedAt: epoch},
	})
	return api
}

func TestCreateClientConflictRestoresList(t *testing.T) {
	api := seededAPI()
	s, n := newSession(t, api)
	ctx := context.Background()

	before, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)
	snapshot := s.Cache().Snapshot("").Entries()

	var during []models.Client
	api.before = func(method string) {
		if method == "CreateClient" {
			during, _ = s.Clients(ctx, models.ClientFilter{})
		}
	}
	api.fail["CreateClient"] = &apiclient.Error{Status: http.StatusConflict, Message: "A client with this email already exists"}

	_, err = s.CreateClient(ctx, models.ClientInput{Name: "Dup", Email: ptr("ops@acme.test")})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apiclient.StatusOf(err))

	require.Len(t, during, 2)
	assert.True(t, mutation.IsTempID(during[0].ID))
	assert.Equal(t, "Dup", during[0].Name)

	assert.Equal(t, snapshot, s.Cache().Snapshot("").Entries())
	after, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{"A client with this email already exists"}, n.failures)
	assert.Equal(t, 1, api.count("ListClients"))
}

func TestCreateClientCommitsServerRecord(t *testing.T) {
	api := seededAPI()
	s, n := newSession(t, api)
	ctx := context.Background()

	_, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)

	created, err := s.CreateClient(ctx, models.ClientInput{Name: "  Globex  "})
	require.NoError(t, err)
	assert.Equal(t, "Globex", created.Name)
	assert.False(t, mutation.IsTempID(created.ID))
	assert.True(t, s.Cache().IsStale(clientsKey))

	list, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.count("ListClients"))
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, []string{"Client created"}, n.successes)
}

func TestPendingRecordRefusesEdits(t *testing.T) {
	api := seededAPI()
	s, n := newSession(t, api)
	ctx := context.Background()

	_, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)

	var updateErr, deleteErr error
	api.before = func(method string) {
		if method != "CreateClient" {
			return
		}
		list, _ := s.Clients(ctx, models.ClientFilter{})
		pending := list[0].ID
		_, updateErr = s.UpdateClient(ctx, pending, models.ClientPatch{Name: ptr("Renamed")})
		deleteErr = s.DeleteClient(ctx, pending)
	}

	created, err := s.CreateClient(ctx, models.ClientInput{Name: "Globex"})
	require.NoError(t, err)

	assert.ErrorIs(t, updateErr, errStillSaving)
	assert.ErrorIs(t, deleteErr, errStillSaving)
	assert.Zero(t, api.count("UpdateClient"))
	assert.Zero(t, api.count("DeleteClient"))
	assert.Equal(t, []string{string(errStillSaving), string(errStillSaving)}, n.failures)

	list, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "Globex", list[0].Name)
}

func TestDeleteClientDetachesProjects(t *testing.T) {
	api := seededAPI()
	s, _ := newSession(t, api)
	ctx := context.Background()

	_, err := s.Clients(ctx, models.ClientFilter{})
	require.NoError(t, err)
	_, err = s.Projects(ctx, models.ProjectFilter{})
	require.NoError(t, err)

	var projects []models.ProjectSummary
	api.before = func(method string) {
		if method == "DeleteClient" {
			projects, _ = s.Projects(ctx, models.ProjectFilter{})
		}
	}
	require.NoError(t, s.DeleteClient(ctx, "c1"))
	require.Len(t, projects, 1)
	assert.Nil(t, projects[0].ClientID)
	assert.Nil(t, projects[0].Client)
	assert.True(t, s.Cache().IsStale(projectsKey))
}

func TestUpdateProjectRejectsInvertedDates(t *testing.T) {
	api := seededAPI()
	s, n := newSession(t, api)
	ctx := context.Background()

	_, err := s.Project(ctx, "p1")
	require.NoError(t, err)
	_, err = s.UpdateProject(ctx, "p1", models.ProjectPatch{StartDate: models.Some(epoch)})
	require.NoError(t, err)

	_, err = s.UpdateProject(ctx, "p1", models.ProjectPatch{DueDate: models.Some(epoch.Add(-time.Hour))})
	require.Error(t, err)
	assert.Equal(t, 1, api.count("UpdateProject"))
	assert.Equal(t, []string{"Due date must be after start date"}, n.failures)

	_, err = s.CreateProject(ctx, models.ProjectInput{Title: "X", StartDate: ptr(epoch), DueDate: ptr(epoch.Add(-time.Hour))})
	require.Error(t, err)
	assert.Equal(t, 0, api.count("CreateProject"))
}

func TestCreateProjectShowsPlaceholder(t *testing.T) {
	api := seededAPI()
	s, _ := newSession(t, api)
	ctx := context.Background()
	_, err := s.Projects(ctx, models.ProjectFilter{})
	require.NoError(t, err)

	var during []models.ProjectSummary
	api.before = func(method string) {
		if method == "CreateProject" {
			during, _ = s.Projects(ctx, models.ProjectFilter{})
		}
	}
	created, err := s.CreateProject(ctx, models.ProjectInput{Title: "App"})
	require.NoError(t, err)

	require.Len(t, during, 2)
	assert.True(t, mutation.IsTempID(during[0].ID))
	assert.Nil(t, during[0].Client)
	assert.Empty(t, during[0].Tasks)
	assert.Zero(t, during[0].TaskCount)
	assert.Equal(t, models.ProjectPlanning, during[0].Status)

	detail, err := s.Project(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "App", detail.Title)
}

func TestDeleteProjectFailureRestoresTasks(t *testing.T) {
	api := seededAPI()
	s, n := newSession(t, api)
	ctx := context.Background()
	_, err := s.Projects(ctx, models.ProjectFilter{})
	require.NoError(t, err)
	_, err = s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
	require.NoError(t, err)
	before := s.Cache().Snapshot("").Entries()

	var tasks []models.TaskWithProject
	api.before = func(method string) {
		if method == "DeleteProject" {
			tasks, _ = s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
		}
	}
	api.fail["DeleteProject"] = errors.New("network down")

	require.Error(t, s.DeleteProject(ctx, "p1"))
	assert.Empty(t, tasks)
	assert.Equal(t, before, s.Cache().Snapshot("").Entries())
	assert.Equal(t, []string{mutation.FallbackMessage}, n.failures)
}

func TestCreateTaskAppendsAfterMaxOrder(t *testing.T) {
	api := seededAPI()
	api.tasks[2].Order = 4
	s, _ := newSession(t, api)
	ctx := context.Background()
	_, err := s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
	require.NoError(t, err)

	var during []models.TaskWithProject
	api.before = func(method string) {
		if method == "CreateTask" {
			during, _ = s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
		}
	}
	_, err = s.CreateTask(ctx, models.TaskInput{Title: "New", ProjectID: "p1"})
	require.NoError(t, err)

	require.Len(t, during, 5)
	last := during[4]
	assert.True(t, mutation.IsTempID(last.ID))
	assert.Equal(t, 5, last.Order)
	assert.Equal(t, models.TaskTodo, last.Status)
}

func TestUpdateTaskStatusAppendsToGroup(t *testing.T) {
	api := seededAPI()
	s, _ := newSession(t, api)
	ctx := context.Background()
	_, err := s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
	require.NoError(t, err)

	var moved models.TaskWithProject
	api.before = func(method string) {
		if method != "UpdateTask" {
			return
		}
		rows, _ := s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
		for _, r := range rows {
			if r.ID == "t" {
				moved = r
			}
		}
	}
	_, err = s.UpdateTask(ctx, "t", models.TaskPatch{Status: ptr(models.TaskDone)})
	require.NoError(t, err)

	assert.Equal(t, models.TaskDone, moved.Status)
	assert.Equal(t, 1, moved.Order)
	assert.Nil(t, api.updates["t"].Order)
}

func TestDropTaskInListReordersGroup(t *testing.T) {
	api := seededAPI()
	s, _ := newSession(t, api)
	ctx := context.Background()
	_, err := s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
	require.NoError(t, err)

	var g reorder.Gesture
	require.NoError(t, g.Start("t"))
	require.NoError(t, g.Drop(reorder.OnTask("a")))
	require.NoError(t, s.DropTask(ctx, viewstate.ListView, "p1", &g))

	assert.Equal(t, 2, api.count("UpdateTask"))
	assert.Equal(t, 0, *api.updates["t"].Order)
	assert.Equal(t, 1, *api.updates["a"].Order)
	assert.NotContains(t, api.updates, "c")

	board, err := s.TaskBoard(ctx, "p1")
	require.NoError(t, err)
	var todo []string
	for _, tk := range board[0].Tasks {
		todo = append(todo, tk.ID)
	}
	assert.Equal(t, []string{"t", "a", "c"}, todo)
}

func TestDropTaskOnKanbanColumnChangesStatus(t *testing.T) {
	api := seededAPI()
	s, _ := newSession(t, api)
	ctx := context.Background()
	_, err := s.Tasks(ctx, models.TaskFilter{ProjectID: "p1"})
	require.NoError(t, err)

	var g reorder.Gesture
	require.NoError(t, g.Start("a"))
	require.NoError(t, g.Drop(reorder.OnColumn(models.TaskReview)))
	require.NoError(t, s.DropTask(ctx, viewstate.KanbanView, "p1", &g))

	require.Contains(t, api.updates, "a")
	assert.Equal(t, models.TaskReview, *api.updates["a"].Status)
	assert.Nil(t, api.updates["a"].Order)
}

func TestDropWithoutDragFails(t *testing.T) {
	s, _ := newSession(t, seededAPI())
	var g reorder.Gesture
	assert.ErrorIs(t, s.DropTask(context.Background(), viewstate.ListView, "p1", &g), reorder.ErrNoActiveDrag)
}

func TestSearchProjectsUsesCache(t *testing.T) {
	api := seededAPI()
	s, _ := newSession(t, api)
	ctx := context.Background()

	got, err := s.SearchProjects(ctx, viewstate.ProjectQuery{Search: "acme"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	_, err = s.SearchProjects(ctx, viewstate.ProjectQuery{Search: "nothing"})
	require.NoError(t, err)
	assert.Equal(t, 1, api.count("ListProjects"))
}

func TestTaskViewPreference(t *testing.T) {
	prefs, err := viewstate.LoadPreferences(t.TempDir() + "/prefs.yaml")
	require.NoError(t, err)
	s := NewSession(seededAPI(), Options{UserID: "u1", Preferences: prefs})

	assert.Equal(t, viewstate.ListView, s.TaskView())
	require.NoError(t, s.SetTaskView(viewstate.KanbanView))
	assert.Equal(t, viewstate.KanbanView, s.TaskView())
}

func TestAttachScreenshotAppendsURL(t *testing.T) {
	api := seededAPI()
	api.projects[0].Screenshots = models.StringList{"/uploads/screenshots/a.png"}
	s, _ := newSession(t, api)
	ctx := context.Background()

	detail, err := s.AttachScreenshot(ctx, "p1", "b.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"/uploads/screenshots/a.png", "/uploads/screenshots/b.png"}, detail.Screenshots)
}
