package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol"

	"github.com/zulfkhar00/instafit_console/internal/auth"
	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
)

const (
	SessionCookie = "tryon_session"
	sessionKey    = "session"
)

// Sessions ties JWT session tokens to the controllers of a registry.
type Sessions struct {
	Registry *dispatcher.Registry
	Secret   []byte
	TTL      time.Duration
}

// Issue starts a new session, sets its cookie and returns the signed token.
func (s *Sessions) Issue(c *app.RequestContext) (*dispatcher.Controller, string, error) {
	ctrl := s.Registry.Create()
	token, err := auth.GenerateSessionToken(ctrl.ID(), s.Secret, s.TTL)
	if err != nil {
		return nil, "", err
	}
	c.SetCookie(SessionCookie, token, int(s.TTL/time.Second), "/", "", protocol.CookieSameSiteLaxMode, false, true)
	return ctrl, token, nil
}

// Require rejects requests without a valid session token. The token is taken
// from the Authorization header, falling back to the session cookie.
func (s *Sessions) Require() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		ctrl, err := s.resolve(c)
		if err != nil {
			hlog.CtxInfof(ctx, "Auth error: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		c.Set(sessionKey, ctrl)
		c.Next(ctx)
	}
}

// Ensure attaches the caller's session, creating one when the token is
// missing, invalid or names an expired session.
func (s *Sessions) Ensure() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		ctrl, err := s.resolve(c)
		if err != nil {
			ctrl, _, err = s.Issue(c)
			if err != nil {
				hlog.CtxErrorf(ctx, "failed to issue session: %v", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			hlog.CtxInfof(ctx, "[sessions] created %s", ctrl.ID())
		}
		c.Set(sessionKey, ctrl)
		c.Next(ctx)
	}
}

// Controller returns the session attached by Require or Ensure.
func Controller(c *app.RequestContext) (*dispatcher.Controller, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	ctrl, ok := v.(*dispatcher.Controller)
	return ctrl, ok
}

func (s *Sessions) resolve(c *app.RequestContext) (*dispatcher.Controller, error) {
	token, err := tokenFrom(c)
	if err != nil {
		return nil, err
	}
	sessionID, err := auth.ParseSessionToken(token, s.Secret)
	if err != nil {
		return nil, err
	}
	return s.Registry.Get(sessionID)
}

func tokenFrom(c *app.RequestContext) (string, error) {
	if header := string(c.GetHeader("Authorization")); header != "" {
		return auth.BearerToken(header)
	}
	if cookie := string(c.Cookie(SessionCookie)); cookie != "" {
		return cookie, nil
	}
	return "", errors.New("Authorization token required")
}
