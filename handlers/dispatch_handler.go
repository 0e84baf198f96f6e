package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

func (h *ConsoleHandler) TryOnHandler(ctx context.Context, c *app.RequestContext) {
	h.dispatch(c, session.FlowTryOn)
}

func (h *ConsoleHandler) AnalyzeHandler(ctx context.Context, c *app.RequestContext) {
	h.dispatch(c, session.FlowAnalyze)
}

// dispatch accepts the request and returns at once; progress is visible
// through the state, the page and the event stream.
func (h *ConsoleHandler) dispatch(c *app.RequestContext, flow session.Flow) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	err := ctrl.Start(flow)
	switch {
	case err == nil:
		respond(c, http.StatusAccepted, ctrl, "")
	case errors.Is(err, dispatcher.ErrBusy):
		respond(c, http.StatusConflict, ctrl, err.Error())
	case errors.Is(err, dispatcher.ErrMissingInput):
		respond(c, http.StatusUnprocessableEntity, ctrl, err.Error())
	default:
		respond(c, http.StatusInternalServerError, ctrl, err.Error())
	}
}
