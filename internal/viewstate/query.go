package viewstate

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"projectdash/internal/models"
)

// SortKey selects the project list comparator.
type SortKey string

const (
	SortTitle    SortKey = "title"
	SortCreated  SortKey = "created"
	SortUpdated  SortKey = "updated"
	SortStatus   SortKey = "status"
	SortPriority SortKey = "priority"
	SortProgress SortKey = "progress"
	SortDueDate  SortKey = "dueDate"
)

// ProjectQuery filters and sorts a cached project list without a server
// round-trip. Zero fields do not filter.
type ProjectQuery struct {
	// Search matches title, description or client name, ignoring case.
	Search   string
	Status   models.ProjectStatus
	Priority models.Priority
	ClientID string
	// TechStack keeps projects using any of the listed technologies.
	TechStack []string
	// DueFrom and DueTo bound the due date inclusively. Projects without a
	// due date are dropped once either bound is set.
	DueFrom *time.Time
	DueTo   *time.Time
	Sort    SortKey
}

// Apply returns the matching projects in sort order. The input is not
// modified.
func (q ProjectQuery) Apply(projects []models.ProjectSummary) []models.ProjectSummary {
	out := make([]models.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		if q.Match(p) {
			out = append(out, p)
		}
	}
	if cmpFn := q.comparator(); cmpFn != nil {
		slices.SortStableFunc(out, cmpFn)
	}
	return out
}

// Match reports whether p passes every filter.
func (q ProjectQuery) Match(p models.ProjectSummary) bool {
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		hit := strings.Contains(strings.ToLower(p.Title), s) ||
			(p.Description != nil && strings.Contains(strings.ToLower(*p.Description), s)) ||
			(p.Client != nil && strings.Contains(strings.ToLower(p.Client.Name), s))
		if !hit {
			return false
		}
	}
	if q.Status != "" && p.Status != q.Status {
		return false
	}
	if q.Priority != "" && p.Priority != q.Priority {
		return false
	}
	if q.ClientID != "" && (p.ClientID == nil || *p.ClientID != q.ClientID) {
		return false
	}
	if len(q.TechStack) > 0 && !usesAny(p.TechStack, q.TechStack) {
		return false
	}
	if q.DueFrom != nil || q.DueTo != nil {
		if p.DueDate == nil {
			return false
		}
		if q.DueFrom != nil && p.DueDate.Before(*q.DueFrom) {
			return false
		}
		if q.DueTo != nil && p.DueDate.After(*q.DueTo) {
			return false
		}
	}
	return true
}

func usesAny(stack []string, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range stack {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}

func (q ProjectQuery) comparator() func(a, b models.ProjectSummary) int {
	switch q.Sort {
	case SortTitle, "name":
		return func(a, b models.ProjectSummary) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortCreated:
		return func(a, b models.ProjectSummary) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortUpdated:
		return func(a, b models.ProjectSummary) int { return b.UpdatedAt.Compare(a.UpdatedAt) }
	case SortStatus:
		return func(a, b models.ProjectSummary) int { return cmp.Compare(a.Status, b.Status) }
	case SortPriority:
		return func(a, b models.ProjectSummary) int {
			return models.PriorityRank(b.Priority) - models.PriorityRank(a.Priority)
		}
	case SortProgress:
		return func(a, b models.ProjectSummary) int { return b.Progress - a.Progress }
	case SortDueDate:
		return compareDue
	}
	return nil
}

// compareDue sorts ascending by due date with undated projects last.
func compareDue(a, b models.ProjectSummary) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	return a.DueDate.Compare(*b.DueDate)
}
