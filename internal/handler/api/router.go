package api

import (
	appmw "Momentum/internal/middleware"

	"github.com/labstack/echo/v4"
)

// Router composes the API surface: identified /api routes plus the open
// health endpoint.
type Router struct {
	scouts  *ScoutsHandler
	signals *SignalsHandler
	candles *CandlesHandler
	health  *HealthHandler
}

// NewRouter composes the handlers. candles may be nil when no archive is
// configured; its routes are then not registered.
func NewRouter(scouts *ScoutsHandler, signals *SignalsHandler, candles *CandlesHandler, health *HealthHandler) *Router {
	return &Router{scouts: scouts, signals: signals, candles: candles, health: health}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.health.RegisterRoutes(e)

	g := e.Group("/api", appmw.Identity())
	r.scouts.RegisterRoutes(g)
	r.signals.RegisterRoutes(g)
	if r.candles != nil {
		r.candles.RegisterRoutes(g)
	}
}
