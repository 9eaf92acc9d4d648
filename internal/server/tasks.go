package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"projectdash/internal/models"
	"projectdash/internal/perrors"
)

// handleListTasks returns tasks in board order, optionally for one project.
func (s *Server) handleListTasks(c *gin.Context) {
	var filter models.TaskFilter
	if !s.bindQuery(c, &filter) {
		return
	}

	tasks, err := s.store.ListTasks(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		s.respondError(c, perrors.NewErrInternalServerError("Failed to fetch tasks", err))
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask inserts a new task into one of the user's projects.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req models.TaskInput
	if !s.bindJSON(c, &req) {
		return
	}

	task, err := s.store.CreateTask(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		s.respondError(c, storeError(err, "Task not found", "Failed to create task"))
		return
	}
	s.publishTask(c, task.ProjectID)
	respondSuccess(c, http.StatusCreated, task)
}

// handleGetTask returns one task.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		s.respondError(c, storeError(err, "Task not found", "Failed to fetch task"))
		return
	}
	respondSuccess(c, http.StatusOK, task)
}

// handleUpdateTask updates task fields such as status or order.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.TaskPatch
	if !s.bindJSON(c, &req) {
		return
	}

	task, err := s.store.UpdateTask(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		s.respondError(c, storeError(err, "Task not found", "Failed to update task"))
		return
	}
	s.publishTask(c, task.ProjectID)
	respondSuccess(c, http.StatusOK, task)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.GetTask(ctx, currentUserID(c), id)
	if err == nil {
		err = s.store.DeleteTask(ctx, currentUserID(c), id)
	}
	if err != nil {
		s.respondError(c, storeError(err, "Task not found", "Failed to delete task"))
		return
	}
	s.publishTask(c, task.ProjectID)
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}

func (s *Server) publishTask(c *gin.Context, projectID string) {
	s.publish(c, "tasks", "projects/"+projectID, "projects")
}
