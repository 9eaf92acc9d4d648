package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"projectdash/internal/auth"
	"projectdash/internal/perrors"
	"projectdash/internal/storage/sqlite"
)

const (
	sessionCookie = "session"
	userIDKey     = "userId"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// requireAuth accepts a session cookie or a Bearer token and stores the user id
// on the context. Requests without a valid session get 401.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie(sessionCookie)
		}
		if raw == "" {
			s.respondError(c, perrors.NewErrUnauthorized("Unauthorized"))
			return
		}

		claims, err := s.auth.Verify(raw)
		if err != nil {
			s.respondError(c, perrors.NewErrUnauthorized("Unauthorized"))
			return
		}
		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// currentUserID returns the id set by requireAuth.
func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// handleLogin checks credentials and issues a session.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			s.respondError(c, perrors.NewErrUnauthorized("Invalid email or password"))
			return
		}
		s.respondError(c, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.respondError(c, perrors.NewErrUnauthorized("Invalid email or password"))
		return
	}

	token, err := s.auth.Issue(user.ID, user.Email)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(s.auth.TTL().Seconds()), "/", "", c.Request.TLS != nil, true)
	respondSuccess(c, http.StatusOK, gin.H{"token": token, "user": user})
}

// handleLogout clears the session cookie.
func (s *Server) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	respondSuccess(c, http.StatusNoContent, nil)
}

// handleMe returns the signed-in user.
func (s *Server) handleMe(c *gin.Context) {
	user, err := s.store.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			s.respondError(c, perrors.NewErrUnauthorized("User not found. Please log in again."))
			return
		}
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, user)
}
