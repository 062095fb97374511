package api

import (
	"errors"
	"time"

	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	appmw "Momentum/internal/middleware"
	"Momentum/internal/repository"
	"Momentum/internal/usecase"
	xhttp "Momentum/pkg/http"
	xlogger "Momentum/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ScoutsHandler exposes the scout control surface. Status transitions drive
// the monitor: ACTIVE starts the runner, INACTIVE stops it.
type ScoutsHandler struct {
	logger  *xlogger.Logger
	scouts  drepo.ScoutStore
	monitor *usecase.Monitor
}

func NewScoutsHandler(logger *xlogger.Logger, scouts drepo.ScoutStore, monitor *usecase.Monitor) *ScoutsHandler {
	return &ScoutsHandler{logger: logger, scouts: scouts, monitor: monitor}
}

func (h *ScoutsHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/scouts", h.Create)
	g.GET("/scouts", h.List)
	g.GET("/scouts/:id", h.Get)
	g.PATCH("/scouts/:id", h.Update)
	g.PATCH("/scouts/:id/status", h.UpdateStatus)
	g.DELETE("/scouts/:id", h.Delete)
}

func (h *ScoutsHandler) Create(c echo.Context) error {
	req := &models.CreateScoutRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	config := req.Config
	if config == nil {
		config = models.DefaultConfig(models.Strategy(req.Strategy))
	}

	now := time.Now().UTC()
	scout := &models.Scout{
		ID:          uuid.NewString(),
		UserID:      appmw.UserID(c),
		Name:        req.Name,
		Description: req.Description,
		Tier:        models.ScoutTier(req.Tier),
		Strategy:    models.Strategy(req.Strategy),
		Config:      config,
		Symbols:     req.Symbols,
		Interval:    req.Interval,
		Status:      models.ScoutStatusInactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.scouts.Create(c.Request().Context(), scout); err != nil {
		h.logger.Error("create scout", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, scout)
}

func (h *ScoutsHandler) List(c echo.Context) error {
	scouts, err := h.scouts.FindByUser(c.Request().Context(), appmw.UserID(c))
	if err != nil {
		h.logger.Error("list scouts", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if scouts == nil {
		scouts = []*models.Scout{}
	}
	return xhttp.SuccessResponse(c, scouts)
}

func (h *ScoutsHandler) Get(c echo.Context) error {
	scout, err := h.owned(c)
	if err != nil {
		return h.scoutError(c, err)
	}
	return xhttp.SuccessResponse(c, scout)
}

func (h *ScoutsHandler) Update(c echo.Context) error {
	req := &models.UpdateScoutRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	scout, err := h.owned(c)
	if err != nil {
		return h.scoutError(c, err)
	}
	if h.monitor.IsRunning(scout.ID) {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("stop the scout before editing it"))
	}

	if req.Name != "" {
		scout.Name = req.Name
	}
	if req.Description != "" {
		scout.Description = req.Description
	}
	if req.Config != nil {
		scout.Config = req.Config
	}
	if req.Symbols != nil {
		scout.Symbols = req.Symbols
	}
	if req.Interval != "" {
		scout.Interval = req.Interval
	}

	if err := h.scouts.Update(c.Request().Context(), scout); err != nil {
		h.logger.Error("update scout", xlogger.Error(err))
		return h.scoutError(c, err)
	}
	return xhttp.SuccessResponse(c, scout)
}

func (h *ScoutsHandler) UpdateStatus(c echo.Context) error {
	req := &models.UpdateScoutStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	scout, err := h.owned(c)
	if err != nil {
		return h.scoutError(c, err)
	}

	ctx := c.Request().Context()
	status := models.ScoutStatus(req.Status)
	switch status {
	case models.ScoutStatusActive:
		if err := h.monitor.StartScout(ctx, scout); err != nil {
			h.logger.Error("start scout", xlogger.String("scout_id", scout.ID), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	case models.ScoutStatusInactive:
		h.monitor.StopScout(scout.ID)
	}

	if err := h.scouts.UpdateStatus(ctx, scout.ID, status); err != nil {
		h.logger.Error("persist scout status", xlogger.Error(err))
		return h.scoutError(c, err)
	}
	scout.Status = status
	return xhttp.SuccessResponse(c, scout)
}

func (h *ScoutsHandler) Delete(c echo.Context) error {
	scout, err := h.owned(c)
	if err != nil {
		return h.scoutError(c, err)
	}

	// Stop first so no runner references the scout after the row is gone.
	h.monitor.StopScout(scout.ID)
	if err := h.scouts.Delete(c.Request().Context(), scout.ID); err != nil {
		h.logger.Error("delete scout", xlogger.Error(err))
		return h.scoutError(c, err)
	}
	return xhttp.NoContentResponse(c)
}

// owned loads the scout and enforces ownership. A foreign scout reads as not
// found so the route does not leak existence.
func (h *ScoutsHandler) owned(c echo.Context) (*models.Scout, error) {
	scout, err := h.scouts.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if scout.UserID != appmw.UserID(c) {
		return nil, repository.ErrNotFound
	}
	return scout, nil
}

func (h *ScoutsHandler) scoutError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("scout not found"))
	}
	return xhttp.AppErrorResponse(c, err)
}
