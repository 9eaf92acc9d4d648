package dashboard

import (
	"net/url"

	"projectdash/internal/cache"
	"projectdash/internal/models"
)

const (
	clientsKey  = "clients"
	projectsKey = "projects"
	tasksKey    = "tasks"
)

func clientKey(id string) string  { return cache.Key(clientsKey, id) }
func projectKey(id string) string { return cache.Key(projectsKey, id) }
func taskKey(id string) string    { return cache.Key(tasksKey, id) }

// listKey names a filtered collection. Filter segments always contain "=",
// so they never collide with entity ids.
func listKey(base string, pairs ...string) string {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			q.Set(pairs[i], pairs[i+1])
		}
	}
	if len(q) == 0 {
		return base
	}
	return cache.Key(base, q.Encode())
}

func clientListKey(f models.ClientFilter) string {
	return listKey(clientsKey, "status", string(f.Status), "search", f.Search)
}

func projectListKey(f models.ProjectFilter) string {
	return listKey(projectsKey, "status", string(f.Status), "clientId", f.ClientID, "priority", string(f.Priority))
}

func taskListKey(f models.TaskFilter) string {
	return listKey(tasksKey, "projectId", f.ProjectID, "status", string(f.Status), "priority", string(f.Priority))
}

func projectTasksKey(projectID string) string {
	return taskListKey(models.TaskFilter{ProjectID: projectID})
}
