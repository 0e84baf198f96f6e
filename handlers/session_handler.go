package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/render"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

// CreateSessionHandler starts a session and returns its bearer token.
func (h *ConsoleHandler) CreateSessionHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, token, err := h.Sessions.Issue(c)
	if err != nil {
		hlog.CtxErrorf(ctx, "failed to issue session: %v", err)
		c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to generate token",
		})
		return
	}
	c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"session_id": ctrl.ID(),
		"token":      token,
	})
}

func (h *ConsoleHandler) StateHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	s := ctrl.State()
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"state":   s,
		"view":    render.Build(s),
	})
}

func (h *ConsoleHandler) SetBaseURLHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	base := strings.TrimSpace(formValue(c, "base_url"))
	if base == "" {
		respond(c, http.StatusBadRequest, ctrl, "base_url is required")
		return
	}
	ctrl.Apply(session.SetBaseURL{URL: base})
	respond(c, http.StatusOK, ctrl, "")
}

func (h *ConsoleHandler) SetModelHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	model, err := backend.ParseModel(formValue(c, "model_type"))
	if err != nil {
		respond(c, http.StatusBadRequest, ctrl, err.Error())
		return
	}
	ctrl.Apply(session.SelectModel{Model: model})
	respond(c, http.StatusOK, ctrl, "")
}

func (h *ConsoleHandler) DismissNoticeHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	ctrl.Apply(session.DismissNotice{})
	respond(c, http.StatusOK, ctrl, "")
}

// formValue reads key from a form body, falling back to a JSON object body.
func formValue(c *app.RequestContext, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	if !strings.HasPrefix(string(c.ContentType()), "application/json") {
		return ""
	}
	var body map[string]string
	if err := json.Unmarshal(c.Request.Body(), &body); err != nil {
		return ""
	}
	return body[key]
}
