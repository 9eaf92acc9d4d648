package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"projectdash/internal/auth"
	"projectdash/internal/blob"
	"projectdash/internal/events"
	"projectdash/internal/perrors"
	"projectdash/internal/storage/sqlite"
)

// Options configures the HTTP server.
type Options struct {
	StaticDir   string
	UploadDir   string
	CORSOrigins []string
}

// Server provides HTTP handlers for the project dashboard.
type Server struct {
	engine  *gin.Engine
	store   *sqlite.Store
	auth    *auth.Manager
	blobs   *blob.LocalStore
	hub     *events.Hub
	logger  *slog.Logger
	options Options
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, sessions *auth.Manager, blobs *blob.LocalStore, hub *events.Hub, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = events.NewHub(logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	useJSONFieldNames()

	srv := &Server{
		engine:  router,
		store:   store,
		auth:    sessions,
		blobs:   blobs,
		hub:     hub,
		logger:  logger,
		options: opts,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", s.handleLogin)
			authGroup.POST("/logout", s.handleLogout)
			authGroup.GET("/me", s.requireAuth(), s.handleMe)
		}

		private := api.Group("", s.requireAuth())

		clients := private.Group("/clients")
		{
			clients.GET("", s.handleListClients)
			clients.POST("", s.handleCreateClient)
			clients.GET(":id", s.handleGetClient)
			clients.PATCH(":id", s.handleUpdateClient)
			clients.DELETE(":id", s.handleDeleteClient)
		}

		projects := private.Group("/projects")
		{
			projects.GET("", s.handleListProjects)
			projects.POST("", s.handleCreateProject)
			projects.GET(":id", s.handleGetProject)
			projects.PATCH(":id", s.handleUpdateProject)
			projects.DELETE(":id", s.handleDeleteProject)
		}

		tasks := private.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PATCH(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
		}

		private.POST("/upload/screenshot", s.handleUploadScreenshot)
		private.GET("/events", s.handleEvents)
	}

	s.mountUploads()
	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.respondError(c, perrors.NewErrInternalServerError("database unavailable", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID returns a trimmed path identifier, rejecting empty values.
func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		c.JSON(http.StatusBadRequest, perrors.NewErrInvalidRequest("invalid identifier"))
		return "", false
	}
	return id, true
}

// bindJSON decodes and validates a request body, answering 400 with
// field-level issues when it fails.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.respondError(c, validationError("Validation failed", err))
		return false
	}
	return true
}

// bindQuery is bindJSON for query parameters.
func (s *Server) bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		s.respondError(c, validationError("Invalid query parameters", err))
		return false
	}
	return true
}

func validationError(msg string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, describeField(fe))
		}
		return perrors.NewErrInvalidRequest(msg, issues...)
	}
	return perrors.NewErrInvalidRequest(msg, err.Error())
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s: must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: must be less than %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s: must be at most %s", field, fe.Param())
	case "email":
		return field + ": invalid email address"
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", field, fe.Param())
	}
	return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
}

// useJSONFieldNames makes validation issues name fields as clients send them.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

var validate = validator.New()

// storeError maps storage failures onto API errors. notFound names the
// primary entity of the route; unknown failures become internal errors
// reported with fallback.
func storeError(err error, notFound, fallback string) error {
	switch {
	case errors.Is(err, sqlite.ErrClientNotFound):
		return perrors.NewErrNotFound("Client not found or does not belong to you")
	case errors.Is(err, sqlite.ErrProjectNotFound):
		return perrors.NewErrNotFound("Project not found or does not belong to you")
	case errors.Is(err, sqlite.ErrNotFound):
		return perrors.NewErrNotFound(notFound)
	case errors.Is(err, sqlite.ErrDueBeforeStart):
		return perrors.NewErrInvalidRequest("Validation failed", "dueDate: Due date must be after start date")
	case errors.Is(err, sqlite.ErrForeignKey):
		return perrors.NewErrInvalidRequest("Referenced record does not exist")
	}
	return perrors.NewErrInternalServerError(fallback, err)
}

// respondError logs unexpected errors and writes the {error, issues} payload.
func (s *Server) respondError(c *gin.Context, err error) {
	perr := perrors.As(err, "Something went wrong")
	if perr.HttpStatus() >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("method", c.Request.Method),
			slog.String("error", err.Error()))
	}
	if perr.Issues == nil {
		perr.Issues = []string{}
	}
	c.AbortWithStatusJSON(perr.HttpStatus(), perr)
}

// respondSuccess writes the payload as is; nil payloads send only the status.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// publish tells the user's connected dashboards which cache keys went stale.
func (s *Server) publish(c *gin.Context, keys ...string) {
	s.hub.Publish(currentUserID(c), keys...)
}
