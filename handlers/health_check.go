package handlers

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
)

const healthProbeTimeout = 3 * time.Second

// Health check handler
func (h *ConsoleHandler) HealthCheckHandler(ctx context.Context, c *app.RequestContext) {
	backendStatus := "unreachable"
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if health, err := h.Backend.Health(probeCtx, h.DefaultBaseURL); err == nil {
		backendStatus = health.Status
	}

	response := map[string]string{
		"status":         "ok",
		"backend_url":    h.DefaultBaseURL,
		"backend_status": backendStatus,
	}

	c.JSON(200, response)
}
