package models

import (
	"strings"
	"time"
)

// ClientInput is the payload for creating a client.
type ClientInput struct {
	Name   string       `json:"name" binding:"required,min=1,max=200"`
	Email  *string      `json:"email,omitempty" binding:"omitempty,email"`
	Phone  *string      `json:"phone,omitempty" binding:"omitempty,max=50"`
	Status ClientStatus `json:"status,omitempty" binding:"omitempty,oneof=active inactive archived"`
}

// ClientPatch is a partial update of a client. Email and phone may be cleared with null.
type ClientPatch struct {
	Name   *string          `json:"name,omitempty" binding:"omitempty,min=1,max=200"`
	Email  Optional[string] `json:"email,omitzero"`
	Phone  Optional[string] `json:"phone,omitzero"`
	Status *ClientStatus    `json:"status,omitempty" binding:"omitempty,oneof=active inactive archived"`
}

// ClientFilter narrows the client list.
type ClientFilter struct {
	Status ClientStatus `form:"status" binding:"omitempty,oneof=active inactive archived"`
	Search string       `form:"search"`
}

// ProjectInput is the payload for creating a project.
type ProjectInput struct {
	Title       string        `json:"title" binding:"required,min=1,max=200"`
	Description *string       `json:"description,omitempty" binding:"omitempty,max=10000"`
	Roadmap     *string       `json:"roadmap,omitempty" binding:"omitempty,max=50000"`
	BuildPlan   *string       `json:"buildPlan,omitempty" binding:"omitempty,max=50000"`
	Screenshots []string      `json:"screenshots,omitempty" binding:"omitempty,dive,min=1"`
	TechStack   []string      `json:"techStack,omitempty" binding:"omitempty,dive,min=1"`
	ClientID    *string       `json:"clientId,omitempty"`
	Status      ProjectStatus `json:"status,omitempty" binding:"omitempty,oneof=planning active review completed archived"`
	Priority    Priority      `json:"priority,omitempty" binding:"omitempty,oneof=low medium high"`
	Progress    *int          `json:"progress,omitempty" binding:"omitempty,min=0,max=100"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Budget      *float64      `json:"budget,omitempty" binding:"omitempty,min=0"`
}

// ProjectPatch is a partial update of a project.
type ProjectPatch struct {
	Title       *string             `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Description *string             `json:"description,omitempty" binding:"omitempty,max=10000"`
	Roadmap     *string             `json:"roadmap,omitempty" binding:"omitempty,max=50000"`
	BuildPlan   *string             `json:"buildPlan,omitempty" binding:"omitempty,max=50000"`
	Screenshots Optional[[]string]  `json:"screenshots,omitzero"`
	TechStack   Optional[[]string]  `json:"techStack,omitzero"`
	ClientID    Optional[string]    `json:"clientId,omitzero"`
	Status      *ProjectStatus      `json:"status,omitempty" binding:"omitempty,oneof=planning active review completed archived"`
	Priority    *Priority           `json:"priority,omitempty" binding:"omitempty,oneof=low medium high"`
	Progress    *int                `json:"progress,omitempty" binding:"omitempty,min=0,max=100"`
	StartDate   Optional[time.Time] `json:"startDate,omitzero"`
	DueDate     Optional[time.Time] `json:"dueDate,omitzero"`
	Budget      Optional[float64]   `json:"budget,omitzero"`
}

// ProjectFilter narrows the project list.
type ProjectFilter struct {
	Status   ProjectStatus `form:"status" binding:"omitempty,oneof=planning active review completed archived"`
	ClientID string        `form:"clientId"`
	Priority Priority      `form:"priority" binding:"omitempty,oneof=low medium high"`
}

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	ProjectID   string     `json:"projectId" binding:"required"`
	Description *string    `json:"description,omitempty"`
	Status      TaskStatus `json:"status,omitempty" binding:"omitempty,oneof=todo in_progress review done"`
	Priority    Priority   `json:"priority,omitempty" binding:"omitempty,oneof=low medium high"`
	Order       *int       `json:"order,omitempty" binding:"omitempty,min=0"`
}

// TaskPatch is a partial update of a task, commonly status or order.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty" binding:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" binding:"omitempty,oneof=todo in_progress review done"`
	Priority    *Priority   `json:"priority,omitempty" binding:"omitempty,oneof=low medium high"`
	Order       *int        `json:"order,omitempty" binding:"omitempty,min=0"`
}

// TaskFilter narrows the task list.
type TaskFilter struct {
	ProjectID string     `form:"projectId"`
	Status    TaskStatus `form:"status" binding:"omitempty,oneof=todo in_progress review done"`
	Priority  Priority   `form:"priority" binding:"omitempty,oneof=low medium high"`
}

// Normalize trims text fields and applies defaults.
func (in *ClientInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = trimOrNil(in.Email)
	in.Phone = trimOrNil(in.Phone)
	if in.Status == "" {
		in.Status = ClientActive
	}
}

// ApplyTo merges the patch over c.
func (p ClientPatch) ApplyTo(c *Client) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email.Set {
		c.Email = trimOrNil(p.Email.Value)
	}
	if p.Phone.Set {
		c.Phone = trimOrNil(p.Phone.Value)
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
}

// Normalize trims text fields and applies defaults.
func (in *ProjectInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.ClientID = trimOrNil(in.ClientID)
	if in.Status == "" {
		in.Status = ProjectPlanning
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
}

// DatesValid reports whether due date is not before start date.
func DatesValid(start, due *time.Time) bool {
	if start == nil || due == nil {
		return true
	}
	return !due.Before(*start)
}

// ApplyTo merges the patch over p.
func (patch ProjectPatch) ApplyTo(p *Project) {
	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Roadmap != nil {
		p.Roadmap = patch.Roadmap
	}
	if patch.BuildPlan != nil {
		p.BuildPlan = patch.BuildPlan
	}
	if patch.Screenshots.Set {
		p.Screenshots = listOrNil(patch.Screenshots.Value)
	}
	if patch.TechStack.Set {
		p.TechStack = listOrNil(patch.TechStack.Value)
	}
	if patch.ClientID.Set {
		p.ClientID = trimOrNil(patch.ClientID.Value)
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Priority != nil {
		p.Priority = *patch.Priority
	}
	if patch.Progress != nil {
		p.Progress = *patch.Progress
	}
	if patch.StartDate.Set {
		p.StartDate = patch.StartDate.Value
	}
	if patch.DueDate.Set {
		p.DueDate = patch.DueDate.Value
	}
	if patch.Budget.Set {
		p.Budget = patch.Budget.Value
	}
}

// Normalize trims text fields and applies defaults.
func (in *TaskInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimOrNil(in.Description)
	if in.Status == "" {
		in.Status = TaskTodo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
}

// ApplyTo merges the patch over t.
func (p TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = trimOrNil(p.Description)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
}

func trimOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func listOrNil(v *[]string) StringList {
	if v == nil || len(*v) == 0 {
		return nil
	}
	out := make(StringList, len(*v))
	copy(out, *v)
	return out
}
