package handlers

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/websocket"

	"github.com/zulfkhar00/instafit_console/internal/render"
)

var upgrader = websocket.HertzUpgrader{}

// EventsHandler streams the session's view after every state change.
func (h *ConsoleHandler) EventsHandler(ctx context.Context, c *app.RequestContext) {
	ctrl, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	err := upgrader.Upgrade(c, func(conn *websocket.Conn) {
		defer conn.Close()
		updates, cancel := ctrl.Subscribe()
		defer cancel()

		// The client never sends anything; reading only detects the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case s, ok := <-updates:
				if !ok {
					return
				}
				if err := conn.WriteJSON(render.Build(s)); err != nil {
					hlog.CtxDebugf(ctx, "[events] session=%s write: %v", ctrl.ID(), err)
					return
				}
			case <-closed:
				return
			}
		}
	})
	if err != nil {
		hlog.CtxWarnf(ctx, "[events] upgrade failed: %v", err)
	}
}
