package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/zulfkhar00/instafit_console/services/storage"
)

func (h *ConsoleHandler) DeleteArchivedHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	if h.Archiver == nil {
		respond(c, http.StatusNotFound, ctrl, "archiving is disabled")
		return
	}

	id := c.Param("id")
	if id == "" {
		respond(c, http.StatusBadRequest, ctrl, "archive id required")
		return
	}
	if err := h.Archiver.Delete(ctx, ctrl, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond(c, http.StatusNotFound, ctrl, err.Error())
			return
		}
		hlog.CtxErrorf(ctx, "Error deleting archived image %s for session %s: %v", id, ctrl.ID(), err)
		respond(c, http.StatusInternalServerError, ctrl, "failed to delete archived image")
		return
	}
	respond(c, http.StatusOK, ctrl, "")
}

// ServeArchivedHandler serves blobs of the in-memory archive.
func (h *ConsoleHandler) ServeArchivedHandler(ctx context.Context, c *app.RequestContext) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	blob, ok := h.Memory.Get(key)
	if !ok {
		c.String(http.StatusNotFound, "not found")
		return
	}
	c.Data(http.StatusOK, blob.ContentType, blob.Data)
}
