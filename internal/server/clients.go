package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"projectdash/internal/models"
	"projectdash/internal/perrors"
	"projectdash/internal/storage/sqlite"
)

// handleListClients returns the user's clients, optionally filtered.
func (s *Server) handleListClients(c *gin.Context) {
	var filter models.ClientFilter
	if !s.bindQuery(c, &filter) {
		return
	}

	clients, err := s.store.ListClients(c.Request.Context(), currentUserID(c), filter)
	if err != nil {
		s.respondError(c, perrors.NewErrInternalServerError("Failed to fetch clients", err))
		return
	}
	respondSuccess(c, http.StatusOK, clients)
}

// handleCreateClient creates a client.
func (s *Server) handleCreateClient(c *gin.Context) {
	var req models.ClientInput
	if !s.bindJSON(c, &req) {
		return
	}

	client, err := s.store.CreateClient(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		s.respondError(c, clientError(err, "Failed to create client"))
		return
	}
	s.publish(c, "clients")
	respondSuccess(c, http.StatusCreated, client)
}

// handleGetClient returns a client with its projects.
func (s *Server) handleGetClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	client, err := s.store.GetClient(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		s.respondError(c, clientError(err, "Failed to fetch client"))
		return
	}
	respondSuccess(c, http.StatusOK, client)
}

// handleUpdateClient applies a partial update.
func (s *Server) handleUpdateClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.ClientPatch
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Email.Set && req.Email.Value != nil {
		if err := emailIssue(*req.Email.Value); err != nil {
			s.respondError(c, err)
			return
		}
	}

	client, err := s.store.UpdateClient(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		s.respondError(c, clientError(err, "Failed to update client"))
		return
	}
	s.publish(c, "clients", "projects")
	respondSuccess(c, http.StatusOK, client)
}

// handleDeleteClient removes a client; its projects lose the reference.
func (s *Server) handleDeleteClient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := s.store.DeleteClient(c.Request.Context(), currentUserID(c), id); err != nil {
		s.respondError(c, clientError(err, "Failed to delete client"))
		return
	}
	s.publish(c, "clients", "projects")
	respondSuccess(c, http.StatusOK, gin.H{"success": true})
}

func clientError(err error, fallback string) error {
	if errors.Is(err, sqlite.ErrDuplicate) {
		return perrors.NewErrConflict("A client with this email already exists")
	}
	return storeError(err, "Client not found", fallback)
}

// emailIssue validates an email that arrived through an Optional field,
// which binding tags cannot reach.
func emailIssue(email string) error {
	if email == "" {
		return nil
	}
	if err := validate.Var(email, "email"); err != nil {
		return perrors.NewErrInvalidRequest("Validation failed", "email: invalid email address")
	}
	return nil
}
