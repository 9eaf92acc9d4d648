package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"projectdash/internal/models"
	"projectdash/internal/perrors"
)

// handleListProjects returns the user's projects, most recently updated first.
func (s *Server) handleListProjects(c *gin.Context) {
	var filter models.ProjectFilter
	if !s.bindQuery(c, &filter) {
		return
	}

	projects, err := s.store.ListProjects(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		s.respondError(c, perrors.NewErrInternalServerError("Failed to fetch projects", err))
		return
	}
	respondSuccess(c, http.StatusOK, projects)
}

// handleCreateProject creates a new project entity.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req models.ProjectInput
	if !s.bindJSON(c, &req) {
		return
	}
	if !models.DatesValid(req.StartDate, req.DueDate) {
		s.respondError(c, perrors.NewErrInvalidRequest("Validation failed", "dueDate: Due date must be after start date"))
		return
	}

	project, err := s.store.CreateProject(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		s.respondError(c, storeError(err, "Project not found", "Failed to create project"))
		return
	}
	s.publish(c, "projects", "clients")
	respondSuccess(c, http.StatusCreated, project)
}

// handleGetProject returns a project with its client and ordered tasks.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := s.store.GetProject(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		s.respondError(c, storeError(err, "Project not found", "Failed to fetch project"))
		return
	}
	respondSuccess(c, http.StatusOK, project)
}

// handleUpdateProject applies a partial update to an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.ProjectPatch
	if !s.bindJSON(c, &req) {
		return
	}
	if issues := projectPatchIssues(req); len(issues) > 0 {
		s.respondError(c, perrors.NewErrInvalidRequest("Validation failed", issues...))
		return
	}

	project, err := s.store.UpdateProject(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		s.respondError(c, storeError(err, "Project not found", "Failed to update project"))
		return
	}
	s.publish(c, "projects", "projects/"+id, "clients")
	respondSuccess(c, http.StatusOK, project)
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), currentUserID(c), id); err != nil {
		s.respondError(c, storeError(err, "Project not found", "Failed to delete project"))
		return
	}
	s.publish(c, "projects", "projects/"+id, "tasks", "clients")
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}

// projectPatchIssues checks the optional fields binding tags cannot reach.
func projectPatchIssues(p models.ProjectPatch) []string {
	var issues []string
	if p.Screenshots.Value != nil && hasBlank(*p.Screenshots.Value) {
		issues = append(issues, "screenshots: Screenshot URL is required")
	}
	if p.TechStack.Value != nil && hasBlank(*p.TechStack.Value) {
		issues = append(issues, "techStack: Tech stack item cannot be empty")
	}
	if p.Budget.Value != nil && *p.Budget.Value < 0 {
		issues = append(issues, "budget: Budget must be non-negative")
	}
	if !models.DatesValid(p.StartDate.Value, p.DueDate.Value) {
		issues = append(issues, "dueDate: Due date must be after start date")
	}
	return issues
}

func hasBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
