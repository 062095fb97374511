package api

import (
	"context"
	"net/http"

	drepo "Momentum/internal/domain/repository"
	xhttp "Momentum/pkg/http"

	"github.com/labstack/echo/v4"
)

// Pinger is any dependency with a liveness check.
type Pinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	feed drepo.MarketFeed
	deps map[string]Pinger
}

func NewHealthHandler(feed drepo.MarketFeed, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{feed: feed, deps: deps}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	status := map[string]string{}
	healthy := true

	if h.feed != nil {
		if h.feed.IsConnected() {
			status["feed"] = "up"
		} else {
			// The feed reconnects on its own, so a down feed degrades
			// rather than fails the check.
			status["feed"] = "reconnecting"
		}
	}
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Health(ctx); err != nil {
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}
