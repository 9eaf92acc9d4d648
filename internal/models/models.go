package models

import "time"

// ClientStatus is the lifecycle state of a client.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientArchived ClientStatus = "archived"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectReview    ProjectStatus = "review"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// TaskStatus names a board column.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskDone       TaskStatus = "done"
)

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidTaskStatuses enumerates the statuses supported by the board columns.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	TaskTodo:       {},
	TaskInProgress: {},
	TaskReview:     {},
	TaskDone:       {},
}

// TaskColumns lists board columns in display order.
var TaskColumns = []TaskStatus{TaskTodo, TaskInProgress, TaskReview, TaskDone}

// PriorityRank orders priorities high > medium > low.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// User is an account that owns clients, projects and tasks.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Client is a customer that projects may be billed to.
type Client struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Email     *string      `json:"email" db:"email"`
	Phone     *string      `json:"phone" db:"phone"`
	Status    ClientStatus `json:"status" db:"status"`
	UserID    string       `json:"userId" db:"user_id"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}

// ClientDetail is a client together with the projects billed to it.
type ClientDetail struct {
	Client
	Projects     []ProjectBrief `json:"projects"`
	ProjectCount int            `json:"projectCount"`
}

// ClientRef is the client summary embedded in project payloads.
type ClientRef struct {
	ID     string       `json:"id" db:"id"`
	Name   string       `json:"name" db:"name"`
	Email  *string      `json:"email" db:"email"`
	Phone  *string      `json:"phone,omitempty" db:"phone"`
	Status ClientStatus `json:"status,omitempty" db:"status"`
}

// Project groups tasks and carries planning notes.
type Project struct {
	ID          string        `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Description *string       `json:"description" db:"description"`
	Roadmap     *string       `json:"roadmap" db:"roadmap"`
	BuildPlan   *string       `json:"buildPlan" db:"build_plan"`
	Screenshots StringList    `json:"screenshots" db:"screenshots"`
	TechStack   StringList    `json:"techStack" db:"tech_stack"`
	Status      ProjectStatus `json:"status" db:"status"`
	Priority    Priority      `json:"priority" db:"priority"`
	Progress    int           `json:"progress" db:"progress"`
	StartDate   *time.Time    `json:"startDate" db:"start_date"`
	DueDate     *time.Time    `json:"dueDate" db:"due_date"`
	Budget      *float64      `json:"budget" db:"budget"`
	ClientID    *string       `json:"clientId" db:"client_id"`
	UserID      string        `json:"userId" db:"user_id"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

// ProjectSummary is a row of the project list.
type ProjectSummary struct {
	Project
	Client    *ClientRef      `json:"client"`
	Tasks     []TaskStatusRef `json:"tasks"`
	TaskCount int             `json:"taskCount"`
}

// ProjectDetail is a single project with its client and ordered tasks.
type ProjectDetail struct {
	Project
	Client    *ClientRef `json:"client"`
	Tasks     []Task     `json:"tasks"`
	TaskCount int        `json:"taskCount"`
}

// ProjectBrief is the project summary embedded in client payloads.
type ProjectBrief struct {
	ID        string        `json:"id" db:"id"`
	Title     string        `json:"title" db:"title"`
	Status    ProjectStatus `json:"status" db:"status"`
	Priority  Priority      `json:"priority" db:"priority"`
	Progress  int           `json:"progress" db:"progress"`
	DueDate   *time.Time    `json:"dueDate" db:"due_date"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// ProjectRef is the project summary embedded in task payloads.
type ProjectRef struct {
	ID     string        `json:"id" db:"id"`
	Title  string        `json:"title" db:"title"`
	Status ProjectStatus `json:"status" db:"status"`
}

// Task represents a single card on the board.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	Order       int        `json:"order" db:"sort_order"`
	ProjectID   string     `json:"projectId" db:"project_id"`
	UserID      string     `json:"userId" db:"user_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// TaskWithProject is a task list row.
type TaskWithProject struct {
	Task
	Project *ProjectRef `json:"project"`
}

// TaskStatusRef is the minimal task view used to derive project progress.
type TaskStatusRef struct {
	ID     string     `json:"id" db:"id"`
	Status TaskStatus `json:"status" db:"status"`
}

// DisplayProgress returns the explicit progress, or the completed-task ratio
// when none is set. The derived value is for display only.
func DisplayProgress(explicit int, tasks []TaskStatusRef) int {
	if explicit > 0 {
		return explicit
	}
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Status == TaskDone {
			done++
		}
	}
	return (done*100 + len(tasks)/2) / len(tasks)
}
