package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves a prebuilt browser client from the configured directory.
func (s *Server) mountStatic() {
	s.engine.NoRoute(s.handleNoRoute)

	if s.staticDir == "" {
		s.logger.Info("static directory not configured; API only mode")
		return
	}

	info, err := os.Stat(s.staticDir)
	if err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return
	}

	indexPath := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(indexPath); err != nil {
		s.logger.Warn("index.html not found", "path", indexPath, "error", err)
	} else {
		s.index = indexPath
		s.engine.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})
	}

	for _, asset := range []string{"app.js", "style.css", "favicon.ico"} {
		path := filepath.Join(s.staticDir, asset)
		if _, err := os.Stat(path); err == nil {
			s.engine.StaticFile("/"+asset, path)
		}
	}

	assetsDir := filepath.Join(s.staticDir, "assets")
	if _, err := os.Stat(assetsDir); err == nil {
		s.engine.StaticFS("/assets", gin.Dir(assetsDir, false))
	}
}

// handleNoRoute answers unknown API paths with JSON and everything else with
// the client entry page when one is mounted.
func (s *Server) handleNoRoute(c *gin.Context) {
	if s.index == "" || strings.HasPrefix(c.Request.URL.Path, "/tasks") {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
		return
	}
	c.File(s.index)
}
