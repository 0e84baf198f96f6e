// Package watch follows a console session's event stream over WebSocket.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/zulfkhar00/instafit_console/internal/render"
)

// EventsPath is the console route that streams views.
const EventsPath = "/api/events"

// EventsURL turns the console's http(s) address into the ws(s) address of
// its event stream.
func EventsURL(console string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(console), "/"))
	if err != nil {
		return "", fmt.Errorf("invalid console url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid console url %q: scheme must be http or https", console)
	}
	u.Path = strings.TrimRight(u.Path, "/") + EventsPath
	return u.String(), nil
}

// Stream calls fn with every view the console sends until ctx is done, the
// connection closes or fn returns false. A normal close returns nil.
func Stream(ctx context.Context, console, token string, fn func(render.View) bool) error {
	target, err := EventsURL(console)
	if err != nil {
		return err
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("event stream closed: %w", err)
			}
			return fmt.Errorf("read event: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var v render.View
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		if !fn(v) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}
