package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"github.com/zulfkhar00/instafit_console/internal/archive"
	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/middleware"
	"github.com/zulfkhar00/instafit_console/internal/render"
	"github.com/zulfkhar00/instafit_console/services/storage"
)

// ConsoleHandler serves the try-on console page and its API.
type ConsoleHandler struct {
	Sessions       *middleware.Sessions
	Backend        *backend.Client
	DefaultBaseURL string
	MaxUploadBytes int

	// Archiver is nil when archiving is off. Memory is set only when the
	// archive lives in process memory and has to be served by the console.
	Archiver *archive.Archiver
	Memory   *storage.MemoryService
}

// Register mounts every console route on h.
func (h *ConsoleHandler) Register(s *server.Hertz) {
	s.GET("/api/health", h.HealthCheckHandler)
	s.POST("/api/session", h.CreateSessionHandler)
	s.GET("/", h.Sessions.Ensure(), h.IndexHandler)
	if h.Memory != nil {
		s.GET("/archive/*key", h.ServeArchivedHandler)
	}

	api := s.Group("/api")
	api.Use(h.Sessions.Require())
	api.GET("/state", h.StateHandler)
	api.POST("/base-url", h.SetBaseURLHandler)
	api.POST("/images", h.UploadImagesHandler)
	api.POST("/model", h.SetModelHandler)
	api.POST("/try-on", h.TryOnHandler)
	api.POST("/analyze", h.AnalyzeHandler)
	api.POST("/notice/dismiss", h.DismissNoticeHandler)
	api.GET("/events", h.EventsHandler)
	api.DELETE("/archive/:id", h.DeleteArchivedHandler)
	api.POST("/archive/:id/delete", h.DeleteArchivedHandler)
}

// IndexHandler renders the console page for the caller's session.
func (h *ConsoleHandler) IndexHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.HTML(&buf, render.Build(ctrl.State())); err != nil {
		c.String(http.StatusInternalServerError, "Failed to render page: %v", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func sessionOrAbort(c *app.RequestContext) (*dispatcher.Controller, bool) {
	ctrl, ok := middleware.Controller(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]interface{}{
			"success": false,
			"error":   "session missing from context",
		})
	}
	return ctrl, ok
}

// wantsHTML reports whether the caller is a browser form rather than an API
// client.
func wantsHTML(c *app.RequestContext) bool {
	return strings.Contains(string(c.GetHeader("Accept")), "text/html")
}

// respond redirects browser forms back to the page and answers API clients
// with the current view.
func respond(c *app.RequestContext, status int, ctrl *dispatcher.Controller, errMsg string) {
	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, []byte("/"))
		return
	}
	body := map[string]interface{}{
		"success": errMsg == "",
		"view":    render.Build(ctrl.State()),
	}
	if errMsg != "" {
		body["error"] = errMsg
	}
	c.JSON(status, body)
}
