package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountUploads serves stored screenshots below /uploads.
func (s *Server) mountUploads() {
	if s.options.UploadDir == "" {
		return
	}
	s.engine.StaticFS("/uploads", gin.Dir(s.options.UploadDir, false))
}

// mountStatic serves the compiled frontend from the configured directory.
func (s *Server) mountStatic() {
	notFound := func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found", "issues": []string{}})
	}

	staticDir := s.options.StaticDir
	if staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		s.engine.NoRoute(notFound)
		return
	}

	info, err := os.Stat(staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", staticDir, "error", err)
		s.engine.NoRoute(notFound)
		return
	}

	indexPath := filepath.Join(staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", "path", indexPath, "error", err)
		s.engine.NoRoute(notFound)
	} else {
		s.engine.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})
		s.engine.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				notFound(c)
				return
			}
			c.File(indexPath)
		})
	}

	assetsDir := filepath.Join(staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		s.engine.StaticFS("/assets", gin.Dir(assetsDir, true))
	}

	favicon := filepath.Join(staticDir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}
