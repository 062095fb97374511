package api

import (
	"time"

	drepo "Momentum/internal/domain/repository"
	xhttp "Momentum/pkg/http"
	xlogger "Momentum/pkg/logger"
	xutil "Momentum/pkg/util"

	"github.com/labstack/echo/v4"
)

// CandlesHandler serves archived candles for charting and backtesting.
// Routes are registered only when the archive is configured.
type CandlesHandler struct {
	logger  *xlogger.Logger
	archive drepo.CandleArchive
}

func NewCandlesHandler(logger *xlogger.Logger, archive drepo.CandleArchive) *CandlesHandler {
	return &CandlesHandler{logger: logger, archive: archive}
}

func (h *CandlesHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/candles", h.List)
}

func (h *CandlesHandler) List(c echo.Context) error {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("symbol is required"))
	}

	now := time.Now().UTC()
	from := xhttp.ParseTimeDefault(c.QueryParam("from"), now.Add(-24*time.Hour))
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), now)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 500)
	from, to = xutil.AlignFromTo(from, to, c.QueryParam("tf"))

	candles, err := h.archive.Query(c.Request().Context(), symbol, from, to, limit)
	if err != nil {
		h.logger.Error("query candle archive", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, candles)
}
