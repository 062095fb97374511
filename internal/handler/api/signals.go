package api

import (
	"net/http"

	"Momentum/internal/broadcast"
	"Momentum/internal/domain/models"
	drepo "Momentum/internal/domain/repository"
	appmw "Momentum/internal/middleware"
	"Momentum/internal/usecase"
	xhttp "Momentum/pkg/http"
	xlogger "Momentum/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SignalsHandler exposes detection, signal history and the live event stream.
type SignalsHandler struct {
	logger  *xlogger.Logger
	signals drepo.SignalStore
	detect  *usecase.DetectUseCase
	hub     *broadcast.Hub
}

func NewSignalsHandler(logger *xlogger.Logger, signals drepo.SignalStore, detect *usecase.DetectUseCase, hub *broadcast.Hub) *SignalsHandler {
	return &SignalsHandler{logger: logger, signals: signals, detect: detect, hub: hub}
}

func (h *SignalsHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/signals/detect", h.Detect)
	g.GET("/signals", h.List)
	g.GET("/signals/stream", h.Stream)
}

// Detect runs one on-demand evaluation against the freshest window for the
// requested symbol. A nil signal with no error means no condition fired.
func (h *SignalsHandler) Detect(c echo.Context) error {
	req := &models.DetectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signal, err := h.detect.Detect(c.Request().Context(), req.Symbol, appmw.UserID(c), models.Strategy(req.Strategy))
	if err != nil {
		h.logger.Error("on-demand detect", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if signal == nil {
		return xhttp.SuccessResponse(c, map[string]interface{}{
			"detected": false,
			"message":  "no signal conditions met",
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"detected": true,
		"signal":   signal,
	})
}

func (h *SignalsHandler) List(c echo.Context) error {
	req := &models.ListSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals, err := h.signals.FindByUser(c.Request().Context(), appmw.UserID(c), req.Limit)
	if err != nil {
		h.logger.Error("list signals", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if signals == nil {
		signals = []*models.Signal{}
	}
	return xhttp.SuccessResponse(c, signals)
}

// Stream serves server-sent events. Every broadcast event is written as a
// single data frame; the hub sends the connected acknowledgement on register.
func (h *SignalsHandler) Stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	sink := broadcast.NewChannelSink(16)
	h.hub.Register(sink)
	defer h.hub.Unregister(sink)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-sink.C():
			if _, err := res.Write([]byte("data: ")); err != nil {
				return nil
			}
			if _, err := res.Write(data); err != nil {
				return nil
			}
			if _, err := res.Write([]byte("\n\n")); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
