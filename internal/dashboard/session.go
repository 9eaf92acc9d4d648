// Package dashboard is the signed-in user's view of their data. It serves
// queries from the cache, runs every write as an optimistic mutation and
// turns drag gestures into reorders.
package dashboard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"projectdash/internal/blob"
	"projectdash/internal/cache"
	"projectdash/internal/events"
	"projectdash/internal/models"
	"projectdash/internal/mutation"
	"projectdash/internal/reorder"
	"projectdash/internal/viewstate"
)

// API is the remote the dashboard reads from and writes to. It is satisfied
// by *apiclient.Client.
type API interface {
	ListClients(ctx context.Context, filter models.ClientFilter) ([]models.Client, error)
	GetClient(ctx context.Context, id string) (models.ClientDetail, error)
	CreateClient(ctx context.Context, in models.ClientInput) (models.Client, error)
	UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (models.Client, error)
	DeleteClient(ctx context.Context, id string) error

	ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, error)
	GetProject(ctx context.Context, id string) (models.ProjectDetail, error)
	CreateProject(ctx context.Context, in models.ProjectInput) (models.ProjectDetail, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.ProjectDetail, error)
	DeleteProject(ctx context.Context, id string) error

	ListTasks(ctx context.Context, filter models.TaskFilter) ([]models.TaskWithProject, error)
	GetTask(ctx context.Context, id string) (models.TaskWithProject, error)
	CreateTask(ctx context.Context, in models.TaskInput) (models.TaskWithProject, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (models.TaskWithProject, error)
	DeleteTask(ctx context.Context, id string) error

	UploadScreenshot(ctx context.Context, filename string, r io.Reader) (blob.Object, error)
}

// Options configures a Session.
type Options struct {
	UserID      string
	Notifier    mutation.Notifier
	Logger      *slog.Logger
	Preferences *viewstate.PreferenceStore
}

// Session serves one user.
type Session struct {
	api     API
	cache   *cache.Cache
	coord   *mutation.Coordinator
	reorder *reorder.Engine
	prefs   *viewstate.PreferenceStore
	notify  mutation.Notifier
	userID  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewSession returns a session with an empty cache.
func NewSession(api API, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	notify := opts.Notifier
	if notify == nil {
		notify = mutation.LogNotifier{Logger: logger}
	}
	c := cache.New()
	s := &Session{
		api:    api,
		cache:  c,
		coord:  mutation.NewCoordinator(c, notify, logger),
		prefs:  opts.Preferences,
		notify: notify,
		userID: opts.UserID,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.reorder = reorder.NewEngine(c, api, s.setTaskStatus, notify, logger)
	return s
}

// Cache exposes the session cache.
func (s *Session) Cache() *cache.Cache {
	return s.cache
}

func (s *Session) Clients(ctx context.Context, filter models.ClientFilter) ([]models.Client, error) {
	return cache.Load(ctx, s.cache, clientListKey(filter), func(ctx context.Context) ([]models.Client, error) {
		return s.api.ListClients(ctx, filter)
	})
}

func (s *Session) Client(ctx context.Context, id string) (models.ClientDetail, error) {
	return cache.Load(ctx, s.cache, clientKey(id), func(ctx context.Context) (models.ClientDetail, error) {
		return s.api.GetClient(ctx, id)
	})
}

func (s *Session) Projects(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectSummary, error) {
	return cache.Load(ctx, s.cache, projectListKey(filter), func(ctx context.Context) ([]models.ProjectSummary, error) {
		return s.api.ListProjects(ctx, filter)
	})
}

// SearchProjects filters and sorts the cached project list locally.
func (s *Session) SearchProjects(ctx context.Context, q viewstate.ProjectQuery) ([]models.ProjectSummary, error) {
	all, err := s.Projects(ctx, models.ProjectFilter{})
	if err != nil {
		return nil, err
	}
	return q.Apply(all), nil
}

func (s *Session) Project(ctx context.Context, id string) (models.ProjectDetail, error) {
	return cache.Load(ctx, s.cache, projectKey(id), func(ctx context.Context) (models.ProjectDetail, error) {
		return s.api.GetProject(ctx, id)
	})
}

func (s *Session) Tasks(ctx context.Context, filter models.TaskFilter) ([]models.TaskWithProject, error) {
	return cache.Load(ctx, s.cache, taskListKey(filter), func(ctx context.Context) ([]models.TaskWithProject, error) {
		return s.api.ListTasks(ctx, filter)
	})
}

func (s *Session) Task(ctx context.Context, id string) (models.TaskWithProject, error) {
	return cache.Load(ctx, s.cache, taskKey(id), func(ctx context.Context) (models.TaskWithProject, error) {
		return s.api.GetTask(ctx, id)
	})
}

// TaskBoard returns a project's tasks grouped by status.
func (s *Session) TaskBoard(ctx context.Context, projectID string) ([]viewstate.Group, error) {
	rows, err := s.Tasks(ctx, models.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return viewstate.GroupTasks(plainTasks(rows)), nil
}

// TaskView is the user's preferred task view.
func (s *Session) TaskView() viewstate.TaskView {
	if s.prefs == nil {
		return viewstate.ListView
	}
	return s.prefs.TaskView(s.userID)
}

// SetTaskView stores the user's preferred task view.
func (s *Session) SetTaskView(view viewstate.TaskView) error {
	if s.prefs == nil {
		return nil
	}
	return s.prefs.SetTaskView(s.userID, view)
}

// Invalidate marks the given keys stale.
func (s *Session) Invalidate(keys ...string) {
	for _, k := range keys {
		s.cache.Invalidate(k)
	}
}

// Follow applies the server's invalidation feed until ctx is cancelled.
func (s *Session) Follow(ctx context.Context, url string, header http.Header) error {
	return events.Listen(ctx, url, header, func(keys []string) {
		s.logger.Debug("remote invalidation", slog.Any("keys", keys))
		s.Invalidate(keys...)
	})
}

func plainTasks(rows []models.TaskWithProject) []models.Task {
	tasks := make([]models.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.Task
	}
	return tasks
}
